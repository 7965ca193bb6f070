package reconcile

// Config holds configuration for a reconciliation run. The set of reconciled
// fields is configuration, not data: column and remote field names map the
// spreadsheet schema onto the remote service's custom fields.
type Config struct {
	// SerialColumn is the spreadsheet column holding the asset serial number.
	SerialColumn string `mapstructure:"serial_column" default:"Serial Number"`
	// BarcodeColumn is the spreadsheet column holding the barcode.
	BarcodeColumn string `mapstructure:"barcode_column" default:"Barcode"`
	// PurchaseDateColumn is the spreadsheet column holding the purchase date.
	PurchaseDateColumn string `mapstructure:"purchase_date_column" default:"Purchase Date"`
	// WarrantyDateColumn is the spreadsheet column holding the warranty date.
	WarrantyDateColumn string `mapstructure:"warranty_date_column" default:"Warranty Date"`
	// BarcodePattern is an optional regular expression barcodes must match.
	BarcodePattern string `mapstructure:"barcode_pattern" default:""`
	// GateEvery is the number of outbound update calls between continuation
	// prompts. Zero disables the gate.
	GateEvery int `mapstructure:"gate_every" default:"150"`
	// Report is the path of the discrepancy report, appended to per run.
	Report string `mapstructure:"report" default:"discrepancies.txt"`
}

// Fields returns the configured set of reconciled field pairs.
func (c Config) Fields() []FieldSpec {
	return []FieldSpec{
		{
			Label:       "Barcode",
			LocalColumn: c.BarcodeColumn,
			RemoteField: "barCode",
			Kind:        KindText,
			Pattern:     c.BarcodePattern,
		},
		{
			Label:       "Purchase Date",
			LocalColumn: c.PurchaseDateColumn,
			RemoteField: "purchaseDate",
			Kind:        KindDate,
		},
		{
			Label:       "Warranty Date",
			LocalColumn: c.WarrantyDateColumn,
			RemoteField: "warrantyDate",
			Kind:        KindDate,
		},
	}
}
