package tabular

import (
	"fmt"
)

// FromRows builds a Dataset from already-split string rows, where the
// first row is the header. Sheet sources use this after the spreadsheet
// API has done the cell parsing.
func FromRows(rows [][]string, sampleSize int) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}
	if sampleSize <= 0 {
		sampleSize = 100
	}
	return buildDataset(rows, sampleSize)
}

// FromTable builds a Dataset from a column list plus typed rows, the
// shape a SQL result set comes in. Values are stringified so the
// downstream coercion pass sees the same raw text a file upload would
// produce; nil stays nil.
func FromTable(columns []string, rows [][]any, sampleSize int) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, ErrMissingHeader
	}
	if sampleSize <= 0 {
		sampleSize = 100
	}

	raw := make([][]string, 0, len(rows)+1)
	raw = append(raw, columns)
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i := range columns {
			if i >= len(row) || row[i] == nil {
				continue
			}
			cells[i] = fmt.Sprintf("%v", row[i])
		}
		raw = append(raw, cells)
	}
	return buildDataset(raw, sampleSize)
}
