package neobase

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Environment variables read by New. Explicit options take precedence.
const (
	EnvFile       = "OPTD_POR_FILE"
	EnvDate       = "OPTD_POR_DATE"
	EnvDuplicates = "OPTD_POR_DUPLICATES"
)

// Config contains the options of a load.
type Config struct {
	Date       time.Time    // reference date for validity windows (default: today)
	Duplicates bool         // keep every record sharing a key (default: true)
	Schema     Schema       // column layout (default: DefaultSchema())
	Header     bool         // first line is a header (default: true)
	File       string       // dataset path, overrides OPTD_POR_FILE
	Reader     io.Reader    // dataset stream, overrides File
	Logger     *slog.Logger // load diagnostics (default: slog.Default())

	dateSet       bool
	duplicatesSet bool
}

// Option is a functional option for configuring a Base.
type Option func(*Config)

// WithDate sets the reference date used to filter records by validity window.
func WithDate(date time.Time) Option {
	return func(c *Config) {
		c.Date = date
		c.dateSet = true
	}
}

// WithDuplicates sets whether records sharing a key are all kept.
func WithDuplicates(keep bool) Option {
	return func(c *Config) {
		c.Duplicates = keep
		c.duplicatesSet = true
	}
}

// WithSchema replaces the default column layout.
func WithSchema(s Schema) Option {
	return func(c *Config) {
		c.Schema = s.clone()
	}
}

// WithHeader sets whether the first line of the input is a header.
func WithHeader(header bool) Option {
	return func(c *Config) {
		c.Header = header
	}
}

// WithFile loads the dataset from path instead of the embedded copy.
func WithFile(path string) Option {
	return func(c *Config) {
		c.File = path
	}
}

// WithReader loads the dataset from r. It takes precedence over WithFile.
func WithReader(r io.Reader) Option {
	return func(c *Config) {
		c.Reader = r
	}
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// defaultConfig returns the built-in defaults, before environment lookup.
func defaultConfig() *Config {
	return &Config{
		Date:       time.Now(),
		Duplicates: true,
		Schema:     DefaultSchema(),
		Header:     true,
	}
}

// newConfig applies opts over the environment over the defaults.
func newConfig(opts ...Option) (*Config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if !cfg.dateSet {
		if v, ok := os.LookupEnv(EnvDate); ok && v != "" {
			d, err := time.Parse(dateLayout, v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", EnvDate, err)
			}
			cfg.Date = d
		}
	}
	if !cfg.duplicatesSet {
		if v, ok := os.LookupEnv(EnvDuplicates); ok {
			cfg.Duplicates = v == "1"
		}
	}
	if cfg.Reader == nil && cfg.File == "" {
		cfg.File = os.Getenv(EnvFile)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg, nil
}
