// Package config holds the monitor's run configuration: the keyword
// categories to watch and the knobs for the search, capture, archive,
// and email stages. Configuration problems are fatal; a run never gets
// as far as spending search quota on a config that cannot be delivered.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MihirGambhire/linkedin-monitor/internal/fingerprint"
	"gopkg.in/yaml.v3"
)

// Error describes an invalid or incomplete configuration. It is always
// fatal: the CLI reports it and exits before any search call goes out.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "config: " + e.Msg
	}
	return "config: " + e.Field + ": " + e.Msg
}

func errf(field, format string, args ...any) *Error {
	return &Error{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Category is a named group of keyword phrases. Each category becomes
// exactly one search query per run, with its keywords OR'd together.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// SearchConfig controls the SERP stage.
type SearchConfig struct {
	// Provider selects the search backend: "serpapi" or "duckduckgo".
	Provider string `yaml:"provider"`
	// MaxResults is the per-category result ceiling, 1 to 100.
	MaxResults int `yaml:"max_results"`
	// MaxPerRun caps unique posts kept per run across all categories;
	// 0 keeps everything. When the cap bites, categories are trimmed
	// proportionally, largest first.
	MaxPerRun int `yaml:"max_per_run"`
	// TimeFilter restricts result recency: "d", "w", or "m".
	TimeFilter string `yaml:"time_filter"`
	// Budget caps search calls per run. Retries within a call do not
	// spend extra units.
	Budget int `yaml:"budget"`
	// Language and Region are passed through to the provider (hl/gl).
	Language string `yaml:"language"`
	Region   string `yaml:"region"`
	// PacePerMinute spreads calls out; 0 disables pacing.
	PacePerMinute int         `yaml:"pace_per_minute"`
	Retry         RetryConfig `yaml:"retry"`

	// APIKey comes from the SERPAPI_KEY environment variable, never
	// from the YAML file.
	APIKey string `yaml:"-"`
}

// RetryConfig bounds transient-failure retries within one search call.
type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	BaseDelay   Duration `yaml:"base_delay"`
	MaxDelay    Duration `yaml:"max_delay"`
}

// CaptureConfig controls the screenshot stage.
type CaptureConfig struct {
	Enabled        bool     `yaml:"enabled"`
	OutputDir      string   `yaml:"output_dir"`
	ViewportWidth  int      `yaml:"viewport_width"`
	ViewportHeight int      `yaml:"viewport_height"`
	// NavTimeout bounds navigation per post; a page slower than this
	// is recorded as a timeout, not an error.
	NavTimeout  Duration    `yaml:"nav_timeout"`
	SettleDelay Duration    `yaml:"settle_delay"`
	Concurrency int         `yaml:"concurrency"`
	Probe       ProbeConfig `yaml:"probe"`
	// Proxies rotate browser egress; ProxyFile loads more, one per line.
	Proxies   []string `yaml:"proxies"`
	ProxyFile string   `yaml:"proxy_file"`
}

// ProbeConfig controls the HTTP preflight that runs before a browser
// is pointed at a post.
type ProbeConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Fingerprint string `yaml:"fingerprint"`
}

// ArchiveConfig selects where finished runs are persisted.
type ArchiveConfig struct {
	// Driver is "sqlite", "postgres", "ndjson", or "none".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// EmailConfig controls digest delivery. Credentials come from the
// environment (GMAIL_ADDRESS, GMAIL_APP_PASSWORD, RECIPIENT_EMAIL),
// never from the YAML file.
type EmailConfig struct {
	Enabled       bool   `yaml:"enabled"`
	SMTPHost      string `yaml:"smtp_host"`
	SMTPPort      int    `yaml:"smtp_port"`
	SubjectPrefix string `yaml:"subject_prefix"`

	Sender    string `yaml:"-"`
	Password  string `yaml:"-"`
	Recipient string `yaml:"-"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Config is the full monitor configuration.
type Config struct {
	Categories []Category    `yaml:"categories"`
	Search     SearchConfig  `yaml:"search"`
	Capture    CaptureConfig `yaml:"capture"`
	Archive    ArchiveConfig `yaml:"archive"`
	Email      EmailConfig   `yaml:"email"`
	Logging    LoggingConfig `yaml:"logging"`
}

// Default returns the stock configuration: the battery-industry watch
// list this monitor was built for, weekly recency, captures on.
func Default() Config {
	return Config{
		Categories: defaultCategories(),
		Search: SearchConfig{
			Provider:      "serpapi",
			MaxResults:    10,
			TimeFilter:    "w",
			Budget:        20,
			Language:      "en",
			Region:        "in",
			PacePerMinute: 10,
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   DurationFrom(1 * time.Second),
				MaxDelay:    DurationFrom(8 * time.Second),
			},
		},
		Capture: CaptureConfig{
			Enabled:        true,
			OutputDir:      "screenshots",
			ViewportWidth:  1280,
			ViewportHeight: 900,
			NavTimeout:     DurationFrom(30 * time.Second),
			SettleDelay:    DurationFrom(5 * time.Second),
			Concurrency:    3,
			Probe: ProbeConfig{
				Fingerprint: string(fingerprint.DefaultProfile),
			},
		},
		Archive: ArchiveConfig{
			Driver: "sqlite",
			DSN:    "linkedin-monitor.db",
		},
		Email: EmailConfig{
			Enabled:       true,
			SMTPHost:      "smtp.gmail.com",
			SMTPPort:      587,
			SubjectPrefix: "[ADOR Digatron] LinkedIn Keyword Monitor",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: false,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
// Environment credentials are applied on top.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errf("", "open %s: %v", path, err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errf("", "decode yaml: %v", err)
	}
	return finish(cfg)
}

// FromEnvironment returns the default configuration with environment
// credentials applied. Used when no config file is present.
func FromEnvironment() (*Config, error) {
	return finish(Default())
}

func finish(cfg Config) (*Config, error) {
	cfg.normalise()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SERPAPI_KEY"); v != "" {
		c.Search.APIKey = v
	}
	if v := os.Getenv("GMAIL_ADDRESS"); v != "" {
		c.Email.Sender = v
	}
	if v := os.Getenv("GMAIL_APP_PASSWORD"); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv("RECIPIENT_EMAIL"); v != "" {
		c.Email.Recipient = v
	}
	// Digests default to self-delivery.
	if c.Email.Recipient == "" {
		c.Email.Recipient = c.Email.Sender
	}
}

func (c *Config) normalise() {
	for i := range c.Categories {
		c.Categories[i].Name = strings.TrimSpace(c.Categories[i].Name)
		for j := range c.Categories[i].Keywords {
			c.Categories[i].Keywords[j] = strings.TrimSpace(c.Categories[i].Keywords[j])
		}
	}

	c.Search.Provider = strings.ToLower(strings.TrimSpace(c.Search.Provider))
	c.Search.TimeFilter = strings.ToLower(strings.TrimSpace(c.Search.TimeFilter))
	// Accept the raw Google token form too.
	c.Search.TimeFilter = strings.TrimPrefix(c.Search.TimeFilter, "qdr:")
	c.Search.Language = strings.TrimSpace(c.Search.Language)
	c.Search.Region = strings.TrimSpace(c.Search.Region)

	c.Capture.OutputDir = strings.TrimSpace(c.Capture.OutputDir)
	c.Capture.ProxyFile = strings.TrimSpace(c.Capture.ProxyFile)
	c.Capture.Probe.Fingerprint = strings.ToLower(strings.TrimSpace(c.Capture.Probe.Fingerprint))

	c.Archive.Driver = strings.ToLower(strings.TrimSpace(c.Archive.Driver))
	c.Archive.DSN = strings.TrimSpace(c.Archive.DSN)

	c.Email.SMTPHost = strings.TrimSpace(c.Email.SMTPHost)
	c.Email.SubjectPrefix = strings.TrimSpace(c.Email.SubjectPrefix)

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// Validate enforces the invariants every stage assumes. It returns a
// *Error describing the first problem found.
func (c Config) Validate() error {
	if len(c.Categories) == 0 {
		return errf("categories", "at least one category must be configured")
	}
	seen := make(map[string]struct{}, len(c.Categories))
	for i, cat := range c.Categories {
		if cat.Name == "" {
			return errf("categories", "category %d has an empty name", i)
		}
		key := strings.ToLower(cat.Name)
		if _, dup := seen[key]; dup {
			return errf("categories", "duplicate category name %q", cat.Name)
		}
		seen[key] = struct{}{}
		if len(cat.Keywords) == 0 {
			return errf("categories", "category %q has no keywords", cat.Name)
		}
		for _, kw := range cat.Keywords {
			if kw == "" {
				return errf("categories", "category %q has an empty keyword", cat.Name)
			}
		}
	}

	switch c.Search.Provider {
	case "serpapi":
		if c.Search.APIKey == "" {
			return errf("search.provider", "serpapi requires SERPAPI_KEY in the environment")
		}
	case "duckduckgo":
	default:
		return errf("search.provider", "unknown provider %q", c.Search.Provider)
	}
	if c.Search.MaxResults < 1 || c.Search.MaxResults > 100 {
		return errf("search.max_results", "must be between 1 and 100 (got %d)", c.Search.MaxResults)
	}
	if c.Search.MaxPerRun < 0 {
		return errf("search.max_per_run", "must be >= 0 (got %d)", c.Search.MaxPerRun)
	}
	switch c.Search.TimeFilter {
	case "d", "w", "m":
	default:
		return errf("search.time_filter", "must be d, w, or m (got %q)", c.Search.TimeFilter)
	}
	if c.Search.Budget < 1 {
		return errf("search.budget", "must be >= 1 (got %d)", c.Search.Budget)
	}
	if c.Search.PacePerMinute < 0 {
		return errf("search.pace_per_minute", "must be >= 0 (got %d)", c.Search.PacePerMinute)
	}
	if c.Search.Retry.MaxAttempts < 1 {
		return errf("search.retry.max_attempts", "must be >= 1 (got %d)", c.Search.Retry.MaxAttempts)
	}

	if c.Capture.Enabled {
		if c.Capture.OutputDir == "" {
			return errf("capture.output_dir", "must be set when capture is enabled")
		}
		if c.Capture.ViewportWidth <= 0 || c.Capture.ViewportHeight <= 0 {
			return errf("capture", "viewport must be positive (got %dx%d)", c.Capture.ViewportWidth, c.Capture.ViewportHeight)
		}
		if c.Capture.NavTimeout.IsZero() {
			return errf("capture.nav_timeout", "must be set when capture is enabled")
		}
		if c.Capture.Concurrency < 1 {
			return errf("capture.concurrency", "must be >= 1 (got %d)", c.Capture.Concurrency)
		}
	}
	if !fingerprint.Profile(c.Capture.Probe.Fingerprint).Valid() {
		return errf("capture.probe.fingerprint", "unknown profile %q", c.Capture.Probe.Fingerprint)
	}

	switch c.Archive.Driver {
	case "none":
	case "sqlite", "postgres", "ndjson":
		if c.Archive.DSN == "" {
			return errf("archive.dsn", "must be set for driver %q", c.Archive.Driver)
		}
	default:
		return errf("archive.driver", "unknown driver %q", c.Archive.Driver)
	}

	if c.Email.Enabled {
		if c.Email.SMTPHost == "" {
			return errf("email.smtp_host", "must be set when email is enabled")
		}
		if c.Email.SMTPPort < 1 || c.Email.SMTPPort > 65535 {
			return errf("email.smtp_port", "must be a valid port (got %d)", c.Email.SMTPPort)
		}
		if c.Email.Sender == "" {
			return errf("email", "GMAIL_ADDRESS must be set when email is enabled")
		}
		if c.Email.Password == "" {
			return errf("email", "GMAIL_APP_PASSWORD must be set when email is enabled")
		}
		if c.Email.Recipient == "" {
			return errf("email", "RECIPIENT_EMAIL must be set when email is enabled")
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errf("logging.level", "must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}

	return nil
}

// SelectCategories filters the configured categories down to the named
// ones, preserving configuration order. Matching ignores case. Unknown
// names are an error so a typo does not silently narrow a run.
func (c Config) SelectCategories(names []string) ([]Category, error) {
	if len(names) == 0 {
		return c.Categories, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			want[n] = false
		}
	}

	var out []Category
	for _, cat := range c.Categories {
		key := strings.ToLower(cat.Name)
		if _, ok := want[key]; ok {
			want[key] = true
			out = append(out, cat)
		}
	}

	for name, found := range want {
		if !found {
			return nil, errf("categories", "unknown category %q", name)
		}
	}
	return out, nil
}
