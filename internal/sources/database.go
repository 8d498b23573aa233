package sources

import (
	"context"
	"fmt"

	"chartly/internal/tabular"
)

// ── Database Source ────────────────────────────────────────
// Runs a read query against a saved external database connection and
// imports the result set. Connector access sits behind a provider
// interface implemented by the app layer.

// QueryProvider resolves a saved connection by ID and runs a capped
// read query against it.
type QueryProvider interface {
	RunQuery(ctx context.Context, connectionID, query string, maxRows int) (columns []string, rows [][]any, err error)
}

type databaseSource struct {
	queries QueryProvider
	maxRows int
}

func NewDatabaseSource(queries QueryProvider, maxRows int) Source {
	if maxRows <= 0 {
		maxRows = 100000
	}
	return &databaseSource{queries: queries, maxRows: maxRows}
}

func (s *databaseSource) Spec() SourceSpec {
	return SourceSpec{
		Type:  "database",
		Label: "Database Query",
		Icon:  "IconDatabase",
		ConfigFields: []ConfigField{
			{Key: "connectionId", Label: "Connection", Type: "select", Required: true, Help: "Saved database connection"},
			{Key: "query", Label: "Query", Type: "textarea", Required: true, Help: "Read query producing the rows to import"},
		},
	}
}

func (s *databaseSource) Resolve(ctx context.Context, cfg SourceConfig, sampleSize int) (*tabular.Dataset, error) {
	connID, _ := cfg["connectionId"].(string)
	query, _ := cfg["query"].(string)
	if connID == "" || query == "" {
		return nil, fmt.Errorf("connectionId and query are required")
	}

	columns, rows, err := s.queries.RunQuery(ctx, connID, query, s.maxRows)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	return tabular.FromTable(columns, rows, sampleSize)
}
