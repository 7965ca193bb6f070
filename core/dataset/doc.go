// Package dataset provides read/write access to the local asset spreadsheet.
//
// The spreadsheet is the locally maintained source of truth: one row per asset,
// addressed by header name rather than cell coordinates so column order does
// not matter. The table tracks mutations and persists the workbook at most
// once per run, and only when something actually changed, so an interrupted
// run leaves the original file untouched.
package dataset
