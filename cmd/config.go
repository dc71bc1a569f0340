package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"db-graph/internal/dialect"
	"db-graph/internal/run"

	"github.com/spf13/viper"
)

type DBConfig struct {
	Name     string `mapstructure:"name"`
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Database string `mapstructure:"database"`
	Schema   string `mapstructure:"schema"`
	Active   bool   `mapstructure:"active"`
}

type Settings struct {
	Output  string
	Timeout time.Duration
	Workers int
}

// GetActiveDBConfig returns the currently active database configuration.
func GetActiveDBConfig() (*DBConfig, error) {
	var configs []DBConfig

	if err := viper.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}

	var activeConfig *DBConfig
	count := 0

	for i := range configs {
		if configs[i].Active {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active database found in config (set active: true)")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active databases found (only one can be active)")
	}

	return activeConfig, nil
}

// ResolveDBConfig prefers an explicit --dsn (or DBGRAPH_DATABASE_DSN) over the config
// file's active database. --driver and --schema override either source.
func ResolveDBConfig() (*DBConfig, error) {
	var cfg *DBConfig
	if dsn := viper.GetString("database.dsn"); dsn != "" {
		cfg = &DBConfig{Name: "command line", DSN: dsn, Active: true}
	} else {
		active, err := GetActiveDBConfig()
		if err != nil {
			return nil, fmt.Errorf("%w (or pass --dsn)", err)
		}
		cfg = active
	}

	if driver := viper.GetString("database.driver"); driver != "" {
		cfg.Driver = driver
	}
	if cfg.Driver == "" {
		cfg.Driver = detectDriver(cfg.DSN)
	}
	if s := viper.GetString("database.schema"); s != "" {
		cfg.Schema = s
	}
	return cfg, nil
}

func detectDriver(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "sslmode"):
		return "postgres"
	case strings.HasPrefix(dsn, "sqlserver://"):
		return "sqlserver"
	case strings.HasPrefix(dsn, "oracle://"):
		return "oracle"
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"):
		return "sqlite"
	default:
		return "mysql"
	}
}

// GetSettings reads settings key by key so flags bound to single keys (--output)
// and defaults for keys missing from the file both apply.
func GetSettings() (*Settings, error) {
	s := &Settings{
		Output:  viper.GetString("settings.output"),
		Timeout: viper.GetDuration("settings.timeout"),
		Workers: viper.GetInt("settings.workers"),
	}
	if s.Output == "" {
		return nil, fmt.Errorf("settings.output must not be empty")
	}
	if s.Workers < 0 {
		return nil, fmt.Errorf("settings.workers must not be negative, got %d", s.Workers)
	}
	return s, nil
}

// session is an open connection plus the resolved run over it.
type session struct {
	Config   *DBConfig
	Settings *Settings
	DB       *sql.DB
	Dialect  dialect.Dialect
	Run      *run.Run
}

func (s *session) Close() error {
	return s.DB.Close()
}

// openSession connects to the configured database and resolves its schema.
func openSession(ctx context.Context) (*session, error) {
	config, err := ResolveDBConfig()
	if err != nil {
		return nil, err
	}
	settings, err := GetSettings()
	if err != nil {
		return nil, err
	}

	d, err := dialect.GetDialect(config.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	fmt.Printf("🔗 Connected to %s (%s)\n", config.Name, config.Driver)
	log.Printf("Using Dialect: %s", d.Name())

	log.Println("Analyzing schema...")
	src := &run.SQLSource{DB: db, Dialect: d, Database: config.Database, Schema: config.Schema}
	r, err := run.New(ctx, src, settings.Timeout)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &session{Config: config, Settings: settings, DB: db, Dialect: d, Run: r}, nil
}
