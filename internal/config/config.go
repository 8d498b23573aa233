package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

// Config holds every runtime setting, parsed from the environment with
// optional .env overrides. Loaded once in main and passed down.
type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`

	// Document store holding imported collections.
	MongoURI string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB  string `env:"MONGO_DB" envDefault:"chartly"`

	// Local state: upload tracking, saved connections, import jobs.
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/chartly.db"`
	UploadDir  string `env:"UPLOAD_DIR" envDefault:"data/uploads"`
	SecretsDir string `env:"SECRETS_DIR" envDefault:"data/secrets"`

	ServerPort    int   `env:"PORT" envDefault:"8080"`
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"`

	// Import tuning.
	PageSize   int `env:"IMPORT_PAGE_SIZE" envDefault:"1000"`
	BatchSize  int `env:"IMPORT_BATCH_SIZE" envDefault:"1000"`
	SampleSize int `env:"IMPORT_SAMPLE_SIZE" envDefault:"100"`

	// CSV export endpoint for the sheet source; %s is the sheet ID.
	// Empty disables the source.
	SheetExportURL string `env:"SHEET_EXPORT_URL" envDefault:""`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	MCPEnabled bool `env:"MCP_ENABLED" envDefault:"false"`
}

// Load reads the given .env files (missing ones are skipped) and then
// parses the environment.
func Load(envFiles ...string) (*Config, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return c, nil
}

// SocketAddress is the listen address for the HTTP server.
func (c *Config) SocketAddress() string {
	if c.Environment == Production {
		return fmt.Sprintf(":%d", c.ServerPort)
	}
	return fmt.Sprintf("localhost:%d", c.ServerPort)
}

func (c *Config) logrusLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger builds the application logger. Production logs JSON.
func (c *Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(c.logrusLevel())
	if c.Environment == Production {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}
