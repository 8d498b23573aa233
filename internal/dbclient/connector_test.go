package dbclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPostgresDSN(t *testing.T) {
	cfg := ConnConfig{
		Driver:   DriverPostgres,
		Host:     "db.internal",
		Port:     5433,
		Database: "warehouse",
		Username: "reader",
		SSLMode:  "require",
	}
	dsn := buildPostgresDSN(cfg, "s3cret")
	assert.Equal(t, "host=db.internal port=5433 user=reader password=s3cret dbname=warehouse sslmode=require", dsn)

	// Defaults fill in port and ssl mode.
	dsn = buildPostgresDSN(ConnConfig{Host: "h", Database: "d", Username: "u"}, "p")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestBuildMySQLDSN(t *testing.T) {
	cfg := ConnConfig{
		Driver:   DriverMySQL,
		Host:     "db.internal",
		Database: "warehouse",
		Username: "reader",
	}
	dsn := buildMySQLDSN(cfg, "s3cret")
	assert.Equal(t, "reader:s3cret@tcp(db.internal:3306)/warehouse?parseTime=true&charset=utf8mb4", dsn)

	cfg.SSLMode = "require"
	assert.Contains(t, buildMySQLDSN(cfg, "p"), "&tls=true")
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(ConnConfig{Driver: "oracle"}, "")
	assert.Error(t, err)
}

func TestIsReadQuery(t *testing.T) {
	assert.True(t, isReadQuery("SELECT * FROM t"))
	assert.True(t, isReadQuery("  with x as (select 1) select * from x"))
	assert.True(t, isReadQuery("SHOW TABLES"))
	assert.False(t, isReadQuery("DROP TABLE t"))
	assert.False(t, isReadQuery("INSERT INTO t VALUES (1)"))
	assert.False(t, isReadQuery("UPDATE t SET a=1"))
}
