package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfiguration holds the connection settings of the reference store
type DatabaseConfiguration struct {
	Driver   string
	Path     string // sqlite file path or ":memory:"
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
	ReadOnly bool
}

// NewDatabaseConfiguration reads the configuration from the environment.
// A .env file in the working directory is loaded first if present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Driver:   getEnv("DB_DRIVER", DriverSQLite),
		Path:     os.Getenv("DB_PATH"),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		Database: os.Getenv("DB_DATABASE"),
		Username: os.Getenv("DB_USERNAME"),
		Password: os.Getenv("DB_PASSWORD"),
		Schema:   getEnv("DB_SCHEMA", "public"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	if v := os.Getenv("DB_READONLY"); v != "" {
		readOnly, err := strconv.ParseBool(v)
		if err != nil {
			return nil, NewError("parse DB_READONLY", err)
		}
		config.ReadOnly = readOnly
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadEnvFile loads additional environment variables from the given file
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return NewError("load env file", err)
	}
	return nil
}

// Validate checks that the configuration can be used to open a connection
func (c *DatabaseConfiguration) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return NewError("database configuration", fmt.Errorf("DB_PATH is required for driver %s", c.Driver))
		}
	case DriverPostgres:
		if c.Database == "" || c.Username == "" {
			return NewError("database configuration", fmt.Errorf("DB_DATABASE and DB_USERNAME are required for driver %s", c.Driver))
		}
	default:
		return NewError("database configuration", fmt.Errorf("unsupported driver: %s", c.Driver))
	}
	return nil
}

// DataSourceName builds the driver specific connection string
func (c *DatabaseConfiguration) DataSourceName() string {
	if c.Driver == DriverPostgres {
		dsn := fmt.Sprintf(
			"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s search_path=%s",
			c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode, c.Schema,
		)
		if c.ReadOnly {
			dsn += " default_transaction_read_only=on"
		}
		return dsn
	}

	if c.Path == ":memory:" {
		return "file::memory:?cache=shared"
	}

	params := url.Values{}
	params.Add("_pragma", "busy_timeout(5000)")
	if c.ReadOnly && !strings.Contains(c.Path, "mode=") {
		params.Add("mode", "ro")
	}

	sep := "?"
	if strings.Contains(c.Path, "?") {
		sep = "&"
	}
	return "file:" + c.Path + sep + params.Encode()
}

// Database is an open connection to the reference store
type Database struct {
	Name     string
	Driver   string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens and pings the configured database
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) (*Database, error) {
	if config == nil {
		return nil, NewError("database configuration", fmt.Errorf("configuration is nil"))
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = DiscardLogger()
	}

	instance, err := sql.Open(config.Driver, config.DataSourceName())
	if err != nil {
		return nil, NewError("open database", err)
	}

	// in-memory sqlite is per connection unless the pool is pinned to one
	if config.Driver == DriverSQLite && (config.Path == ":memory:" || strings.Contains(config.Path, "mode=memory")) {
		instance.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := instance.PingContext(ctx); err != nil {
		instance.Close()
		return nil, NewError("ping database", err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("driver", config.Driver))

	return &Database{
		Name:     name,
		Driver:   config.Driver,
		Instance: instance,
		Logger:   logger,
	}, nil
}

// NewTestDatabase opens a database for tests and panics on failure
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	db, err := NewDatabase("test", config, DiscardLogger())
	if err != nil {
		panic(err)
	}
	return db
}

// NewMemoryDatabaseConfiguration returns a configuration for a named shared
// in-memory sqlite database. Different names give isolated databases.
func NewMemoryDatabaseConfiguration(name string) *DatabaseConfiguration {
	return &DatabaseConfiguration{
		Driver: DriverSQLite,
		Path:   name + "?mode=memory&cache=shared",
	}
}

// Rebind converts '?' placeholders to '$n' for postgres
func (d *Database) Rebind(query string) string {
	if d.Driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the underlying connection pool
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
