package sources

import (
	"context"
	"fmt"

	"chartly/internal/tabular"
)

// ── Sheet Source ────────────────────────────────────────────
// Pulls rows from a shared online spreadsheet. The actual API call is
// behind RowsProvider so the source stays testable without network.

// RowsProvider fetches the cell grid of a spreadsheet range. The first
// returned row is treated as the header row.
type RowsProvider interface {
	FetchRows(ctx context.Context, sheetID, rangeSpec string) ([][]string, error)
}

type sheetSource struct {
	rows RowsProvider
}

func NewSheetSource(rows RowsProvider) Source {
	return &sheetSource{rows: rows}
}

func (s *sheetSource) Spec() SourceSpec {
	return SourceSpec{
		Type:  "sheet",
		Label: "Online Spreadsheet",
		Icon:  "IconTable",
		ConfigFields: []ConfigField{
			{Key: "sheetId", Label: "Spreadsheet ID", Type: "string", Required: true, Help: "Identifier of the shared spreadsheet"},
			{Key: "range", Label: "Cell Range", Type: "string", Required: false, Default: "A1:ZZ", Help: "Range to import (default: whole first sheet)"},
		},
	}
}

func (s *sheetSource) Resolve(ctx context.Context, cfg SourceConfig, sampleSize int) (*tabular.Dataset, error) {
	sheetID, _ := cfg["sheetId"].(string)
	if sheetID == "" {
		return nil, fmt.Errorf("sheetId is required")
	}
	rangeSpec, _ := cfg["range"].(string)
	if rangeSpec == "" {
		rangeSpec = "A1:ZZ"
	}

	rows, err := s.rows.FetchRows(ctx, sheetID, rangeSpec)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet %s: %w", sheetID, err)
	}
	return tabular.FromRows(rows, sampleSize)
}
