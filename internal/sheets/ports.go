// Package sheets defines the outbound port for exporting ledger rows to a
// spreadsheet. Adapters live in subpackages.
package sheets

import "context"

// Row is one exported spreadsheet line. Amounts are plain decimal strings
// so the sheet stays readable without knowing about minor units.
type Row struct {
	Date        string
	Kind        string
	Description string
	Category    string
	Amount      string
	Reference   string
}

// RowWriter appends a row and returns an adapter-specific reference to it.
type RowWriter interface {
	Append(ctx context.Context, row Row) (rowRef string, err error)
}
