package config

import (
	"database/sql"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/jbweber/homelab/animes/internal/datastore"
	"github.com/jbweber/homelab/animes/internal/migrations"
)

// EnvPrefix is prepended to every environment variable, e.g. ANIMES_HTTP_PORT
const EnvPrefix = "ANIMES"

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the animes service
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Paging   PagingConfig   `mapstructure:"paging"`
}

// HTTPConfig configures the listener
type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the store and sizes its pool
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// LogConfig configures the zerolog output
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PagingConfig bounds listing page sizes
type PagingConfig struct {
	DefaultSize int `mapstructure:"default_size"`
	MaxSize     int `mapstructure:"max_size"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			DSN:             "~/animes/data/animes.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Paging: PagingConfig{
			DefaultSize: 5,
			MaxSize:     2000,
		},
	}
}

// SetDefaults registers every key with its default so environment
// variables and config files can override any of them.
func SetDefaults(v *viper.Viper) {
	d := NewConfig()
	v.SetDefault("http.host", d.HTTP.Host)
	v.SetDefault("http.port", d.HTTP.Port)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", d.Database.ConnMaxIdleTime)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("paging.default_size", d.Paging.DefaultSize)
	v.SetDefault("paging.max_size", d.Paging.MaxSize)
}

// BindEnv makes ANIMES_SECTION_KEY override section.key
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	cfg := NewConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return errors.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database dsn is required")
	}
	port, err := strconv.Atoi(c.HTTP.Port)
	if err != nil || port < 0 || port > 65535 {
		return errors.Errorf("invalid http port %q", c.HTTP.Port)
	}
	if c.Paging.DefaultSize < 1 || c.Paging.MaxSize < 1 {
		return errors.New("paging sizes must be positive")
	}
	if c.Paging.DefaultSize > c.Paging.MaxSize {
		return errors.Errorf("paging default size %d exceeds max size %d", c.Paging.DefaultSize, c.Paging.MaxSize)
	}
	return nil
}

// Address is the host:port the server listens on
func (c *Config) Address() string {
	return net.JoinHostPort(c.HTTP.Host, c.HTTP.Port)
}

// InitializeDatabase opens the configured store, tunes the pool and brings the
// schema up to date.
func (c *Config) InitializeDatabase(log zerolog.Logger) (*datastore.Datastore, error) {
	var (
		db      *sql.DB
		dialect migrations.Dialect
		err     error
	)

	switch c.Database.Driver {
	case DriverPostgres:
		dialect = migrations.DialectPostgres
		db, err = sql.Open("postgres", c.Database.DSN)
	case DriverSQLite:
		dialect = migrations.DialectSQLite
		dsn := c.expandPath(c.Database.DSN)
		if dir := sqliteDir(dsn); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, errors.Wrap(err, "failed to create database directory")
			}
		}
		db, err = sql.Open("sqlite", SQLiteDSN(dsn))
	default:
		return nil, errors.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	OptimizeDatabaseConnection(db, c.Database)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if dialect == migrations.DialectSQLite {
		if err := ApplyPragmaOptimizations(db); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to apply performance optimizations")
		}
	}

	if err := runMigrations(db, dialect, log); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	log.Info().Str("driver", c.Database.Driver).Msg("database ready")
	return datastore.New(db, dialect, log), nil
}

// expandPath expands ~ to home directory
func (c *Config) expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(homeDir, path[2:])
}

// runMigrations runs all database migrations
func runMigrations(db *sql.DB, dialect migrations.Dialect, log zerolog.Logger) error {
	return migrations.NewDefault(db, dialect, log).RunMigrations()
}
