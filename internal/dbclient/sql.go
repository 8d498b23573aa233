package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Conn is an open read connection to an external SQL database.
type Conn struct {
	driverName string
	db         *sql.DB
}

func open(driverName, dsn string) (*Conn, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &Conn{driverName: driverName, db: db}, nil
}

// Ping verifies connectivity.
func (c *Conn) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// isReadQuery detects queries that produce a result set.
func isReadQuery(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}

// Query runs a read query and returns the full result set, capped at
// maxRows. Write statements are refused: import sources only read.
func (c *Conn) Query(ctx context.Context, query string, maxRows int) ([]string, [][]any, error) {
	if !isReadQuery(query) {
		return nil, nil, fmt.Errorf("dbclient: only read queries are allowed")
	}
	if maxRows <= 0 {
		maxRows = 100000
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("columns: %w", err)
	}

	var out [][]any
	for rows.Next() && len(out) < maxRows {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range values {
			// Drivers return text columns as []byte.
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows: %w", err)
	}

	return cols, out, nil
}

// Close closes the pool.
func (c *Conn) Close() error {
	return c.db.Close()
}
