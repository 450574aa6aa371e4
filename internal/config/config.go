package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file at the project root.
const FileName = "dre.yaml"

// Store drivers.
const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Environment overrides, applied after .env loading.
const (
	EnvStoreDriver = "DRE_STORE_DRIVER"
	EnvStoreDSN    = "DRE_STORE_DSN"
	EnvLogLevel    = "DRE_LOG_LEVEL"
	EnvAMQPURL     = "DRE_AMQP_URL"
	EnvConcurrency = "DRE_CONCURRENCY"
)

// Config represents the top-level dre.yaml configuration.
type Config struct {
	Company CompanyConfig `yaml:"company"`
	Report  ReportConfig  `yaml:"report"`
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
	Publish PublishConfig `yaml:"publish"`
	Git     GitConfig     `yaml:"git"`
}

// CompanyConfig identifies the default company reported on.
type CompanyConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ReportConfig tunes report computation and display.
type ReportConfig struct {
	Window      int    `yaml:"window"`      // months per report, ending at the report month
	Currency    string `yaml:"currency"`    // ISO 4217 code used for display
	Concurrency int    `yaml:"concurrency"` // periods computed at once
}

// StoreConfig selects where configuration and ledger data are read from.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// PublishConfig controls report publishing to AMQP. Publishing is off when
// AMQPURL is empty.
type PublishConfig struct {
	AMQPURL    string `yaml:"amqp_url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a dre.yaml file from disk. Fields missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("", "")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(companyID, companyName string) *Config {
	return &Config{
		Company: CompanyConfig{
			ID:   companyID,
			Name: companyName,
		},
		Report: ReportConfig{
			Window:      13,
			Currency:    "BRL",
			Concurrency: 4,
		},
		Store: StoreConfig{
			Driver: DriverCSV,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Publish: PublishConfig{
			Exchange:   "dre",
			RoutingKey: "dre.report",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "DRE",
			AuthorEmail: "dre@localhost",
		},
	}
}

// LoadDotEnv loads dir/.env into the process environment when present.
// Variables already set are not overridden.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables looked up with
// lookup, usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvStoreDriver); ok && v != "" {
		c.Store.Driver = v
	}
	if v, ok := lookup(EnvStoreDSN); ok && v != "" {
		c.Store.DSN = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvAMQPURL); ok && v != "" {
		c.Publish.AMQPURL = v
	}
	if v, ok := lookup(EnvConcurrency); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", EnvConcurrency, v, err)
		}
		c.Report.Concurrency = n
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Report.Window < 2 {
		problems = append(problems, fmt.Sprintf("invalid report window %d: must be at least 2", c.Report.Window))
	}
	if c.Report.Concurrency < 1 {
		problems = append(problems, fmt.Sprintf("invalid report concurrency %d: must be at least 1", c.Report.Concurrency))
	}
	if len(c.Report.Currency) != 3 {
		problems = append(problems, fmt.Sprintf("invalid currency %q: must be an ISO 4217 code", c.Report.Currency))
	}

	switch c.Store.Driver {
	case DriverCSV:
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			problems = append(problems, fmt.Sprintf("store dsn is required for driver %s", c.Store.Driver))
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid store driver %q: must be one of csv, sqlite, postgres", c.Store.Driver))
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid log format %q: must be text or json", c.Log.Format))
	}

	if c.Publish.AMQPURL != "" {
		if u, err := url.Parse(c.Publish.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme %q: must be amqp or amqps", u.Scheme))
		}
		if c.Publish.Exchange == "" {
			problems = append(problems, "publish exchange cannot be empty when an AMQP URL is set")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// ResolveDSN returns the store DSN, resolving relative SQLite paths against the
// project root.
func (s StoreConfig) ResolveDSN(root string) string {
	if s.Driver == DriverSQLite && s.DSN != "" && !filepath.IsAbs(s.DSN) {
		return filepath.Join(root, s.DSN)
	}
	return s.DSN
}
