package dataset

// Config holds configuration for the local spreadsheet dataset.
type Config struct {
	// Path is the location of the .xlsx workbook.
	Path string `mapstructure:"path" default:"assets.xlsx"`
	// Sheet is the worksheet name containing the asset rows.
	Sheet string `mapstructure:"sheet" default:"Sheet1"`
}
