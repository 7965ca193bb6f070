package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is an in-memory view of one worksheet, addressed by header name.
// The first row is treated as the header; data rows are zero-indexed below it.
// Cell mutations are applied both to the in-memory view and the underlying
// workbook, and tracked so the file is written back at most once.
type Table struct {
	path    string
	sheet   string
	file    *excelize.File
	columns map[string]int
	rows    [][]string
	dirty   bool
}

// Open loads the configured worksheet into memory.
func Open(cfg Config) (*Table, error) {
	f, err := excelize.OpenFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", cfg.Path, err)
	}

	rows, err := f.GetRows(cfg.Sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read sheet %s: %w", cfg.Sheet, err)
	}
	if len(rows) == 0 {
		f.Close()
		return nil, fmt.Errorf("sheet %s is empty", cfg.Sheet)
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		columns[name] = i
	}

	return &Table{
		path:    cfg.Path,
		sheet:   cfg.Sheet,
		file:    f,
		columns: columns,
		rows:    rows[1:],
	}, nil
}

// Len returns the number of data rows (excluding the header).
func (t *Table) Len() int {
	return len(t.rows)
}

// RequireColumns verifies that every named column exists in the header row.
// Missing columns are reported together so the operator can fix them in one go.
func (t *Table) RequireColumns(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := t.columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %v", missing)
	}
	return nil
}

// Cell returns the raw value of the named column in the given data row.
// Short rows (excelize trims trailing empty cells) read as empty strings.
func (t *Table) Cell(row int, column string) string {
	idx, ok := t.columns[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return ""
	}
	if idx >= len(t.rows[row]) {
		return ""
	}
	return t.rows[row][idx]
}

// SetCell writes a value into the named column of the given data row,
// updating both the in-memory view and the workbook, and marks the table dirty.
func (t *Table) SetCell(row int, column, value string) error {
	idx, ok := t.columns[column]
	if !ok {
		return fmt.Errorf("unknown column %q", column)
	}
	if row < 0 || row >= len(t.rows) {
		return fmt.Errorf("row %d out of range", row)
	}

	// Grow short rows so the in-memory view stays addressable.
	for len(t.rows[row]) <= idx {
		t.rows[row] = append(t.rows[row], "")
	}
	t.rows[row][idx] = value

	// Data rows start at worksheet row 2 (row 1 is the header).
	cell, err := excelize.CoordinatesToCellName(idx+1, row+2)
	if err != nil {
		return fmt.Errorf("failed to resolve cell coordinates: %w", err)
	}
	if err := t.file.SetCellValue(t.sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}

	t.dirty = true
	return nil
}

// Dirty reports whether any cell has been mutated since Open.
func (t *Table) Dirty() bool {
	return t.dirty
}

// Save writes the workbook back to its original path.
// It is a no-op unless the table is dirty, so an unmodified run never
// touches the file on disk.
func (t *Table) Save() error {
	if !t.dirty {
		return nil
	}
	if err := t.file.SaveAs(t.path); err != nil {
		return fmt.Errorf("failed to save spreadsheet %s: %w", t.path, err)
	}
	t.dirty = false
	return nil
}

// Close releases the underlying workbook without saving.
func (t *Table) Close() error {
	return t.file.Close()
}
