package dbclient

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// ── External SQL Connections ───────────────────────────────
// Imports can also be fed by a query against a customer database.
// Only read access is needed here; a connector opens a pooled
// connection and streams one result set into memory.

// Driver identifies a supported external database.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// ConnConfig describes one external connection. The password is
// supplied separately by the caller, never persisted with the config.
type ConnConfig struct {
	Driver   Driver `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	SSLMode  string `json:"sslMode"`
}

// Open creates a connection for cfg.
func Open(cfg ConnConfig, password string) (*Conn, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return open("postgres", buildPostgresDSN(cfg, password))
	case DriverMySQL:
		return open("mysql", buildMySQLDSN(cfg, password))
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}

// buildPostgresDSN constructs a Postgres connection string.
func buildPostgresDSN(cfg ConnConfig, password string) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.Username, password, cfg.Database, sslMode,
	)
}

// buildMySQLDSN constructs a MySQL DSN.
// Format: user:password@tcp(host:port)/dbname?parseTime=true
func buildMySQLDSN(cfg ConnConfig, password string) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.Username, password, cfg.Host, port, cfg.Database,
	)
	if cfg.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}
