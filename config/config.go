package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rustyeddy/polygate/clob"
	"github.com/rustyeddy/polygate/journal"
	"github.com/rustyeddy/polygate/preflight"
	"gopkg.in/yaml.v3"
)

const (
	SourceCLOB    = "clob"
	SourceFixture = "fixture"

	ProbeCollector = "collector"
	ProbeCommand   = "command"
)

// Config represents the complete gate configuration
type Config struct {
	Exchange  ExchangeConfig       `json:"exchange" yaml:"exchange"`
	Reconcile ReconcileConfig      `json:"reconcile" yaml:"reconcile"`
	Snapshot  SnapshotConfig       `json:"snapshot" yaml:"snapshot"`
	Preflight preflight.Thresholds `json:"preflight" yaml:"preflight"`
	Journal   JournalConfig        `json:"journal" yaml:"journal"`
	Server    ServerConfig         `json:"server" yaml:"server"`
	Log       LogConfig            `json:"log" yaml:"log"`
}

// ExchangeConfig selects where balances, orders and books come from
type ExchangeConfig struct {
	Source      string `json:"source" yaml:"source"` // "clob" or "fixture"
	FixturePath string `json:"fixture_path,omitempty" yaml:"fixture_path,omitempty"`

	BaseURL       string           `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	GammaURL      string           `json:"gamma_url,omitempty" yaml:"gamma_url,omitempty"`
	Address       string           `json:"address,omitempty" yaml:"address,omitempty"`
	Credentials   clob.Credentials `json:"credentials" yaml:"credentials"`
	SignatureType int              `json:"signature_type" yaml:"signature_type"`
	Timeout       string           `json:"timeout" yaml:"timeout"` // e.g. "10s"
}

// ReconcileConfig bounds the reconciliation pass
type ReconcileConfig struct {
	CallTimeout string `json:"call_timeout" yaml:"call_timeout"`
	Concurrency int    `json:"concurrency" yaml:"concurrency"`
}

// SnapshotConfig controls how the book snapshot is taken
type SnapshotConfig struct {
	Probe       string   `json:"probe" yaml:"probe"` // "collector" or "command"
	Command     []string `json:"command,omitempty" yaml:"command,omitempty"`
	Dir         string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Timeout     string   `json:"timeout" yaml:"timeout"`
	AuditPath   string   `json:"audit_path,omitempty" yaml:"audit_path,omitempty"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	MarketLimit int      `json:"market_limit" yaml:"market_limit"`
	PageDelay   string   `json:"page_delay,omitempty" yaml:"page_delay,omitempty"`
	Concurrency int      `json:"concurrency" yaml:"concurrency"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// ServerConfig is used by the serve command
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	Interval       string   `json:"interval" yaml:"interval"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// Load builds the effective configuration: defaults, then the file at path
// (if any), then .env files, then the process environment. The result is
// validated.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = parseFile(path); err != nil {
			return nil, err
		}
	}

	// .env files are optional
	if len(envFiles) > 0 {
		_ = godotenv.Load(envFiles...)
	} else {
		_ = godotenv.Load()
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// unset keys keep their defaults
	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML by extension, else JSON)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Exchange.Source {
	case SourceCLOB:
	case SourceFixture:
		if c.Exchange.FixturePath == "" {
			return fmt.Errorf("exchange.fixture_path required for fixture source")
		}
	default:
		return fmt.Errorf("exchange.source must be 'clob' or 'fixture'")
	}
	if c.Exchange.SignatureType < 0 || c.Exchange.SignatureType > 2 {
		return fmt.Errorf("exchange.signature_type must be 0, 1 or 2")
	}

	switch c.Snapshot.Probe {
	case ProbeCollector:
	case ProbeCommand:
		if len(c.Snapshot.Command) == 0 || strings.TrimSpace(c.Snapshot.Command[0]) == "" {
			return fmt.Errorf("snapshot.command required for command probe")
		}
	default:
		return fmt.Errorf("snapshot.probe must be 'collector' or 'command'")
	}
	if c.Snapshot.MarketLimit < 0 {
		return fmt.Errorf("snapshot.market_limit must not be negative")
	}
	if c.Snapshot.Concurrency < 0 || c.Reconcile.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}

	for name, d := range map[string]string{
		"exchange.timeout":       c.Exchange.Timeout,
		"reconcile.call_timeout": c.Reconcile.CallTimeout,
		"snapshot.timeout":       c.Snapshot.Timeout,
		"snapshot.page_delay":    c.Snapshot.PageDelay,
		"server.interval":        c.Server.Interval,
	} {
		if _, err := parseDuration(d); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	p := c.Preflight
	if p.StalenessLimitSeconds < 0 {
		return fmt.Errorf("preflight.staleness_limit_seconds must not be negative")
	}
	if p.SpreadLimitCents < 0 || p.DepthExitMultipleMin < 0 || p.Depth3TicksMultipleMin < 0 {
		return fmt.Errorf("preflight limits must not be negative")
	}
	if p.MaxExposureUSD < 0 || p.MaxLossUSD < 0 || p.TimeStopSeconds < 0 {
		return fmt.Errorf("preflight risk limits must not be negative")
	}
	if !p.DryRun {
		return fmt.Errorf("preflight.dry_run must be true: live trading is not supported")
	}

	switch c.Journal.Type {
	case journal.KindNone:
	case journal.KindSQLite, journal.KindCSV:
		if c.Journal.Path == "" {
			return fmt.Errorf("journal.path required for %s journal", c.Journal.Type)
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Source:   SourceCLOB,
			BaseURL:  clob.DefaultBaseURL,
			GammaURL: clob.DefaultGammaURL,
			Timeout:  "10s",
		},
		Reconcile: ReconcileConfig{
			CallTimeout: "10s",
			Concurrency: 4,
		},
		Snapshot: SnapshotConfig{
			Probe:       ProbeCollector,
			Timeout:     "25s",
			AuditPath:   "./book_snapshot_latest.json",
			Keywords:    []string{"bitcoin", "btc"},
			MarketLimit: 3,
			PageDelay:   "200ms",
			Concurrency: 4,
		},
		Preflight: preflight.DefaultThresholds(),
		Journal: JournalConfig{
			Type: journal.KindSQLite,
			Path: "./polygate.db",
		},
		Server: ServerConfig{
			Addr:     "127.0.0.1:9464",
			Interval: "30s",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Duration helpers. An empty value means "use the package default" and
// parses as zero.

func (e ExchangeConfig) TimeoutDuration() time.Duration { return durationOrZero(e.Timeout) }

func (r ReconcileConfig) CallTimeoutDuration() time.Duration { return durationOrZero(r.CallTimeout) }

func (s SnapshotConfig) TimeoutDuration() time.Duration { return durationOrZero(s.Timeout) }

func (s SnapshotConfig) PageDelayDuration() time.Duration { return durationOrZero(s.PageDelay) }

func (s ServerConfig) IntervalDuration() time.Duration { return durationOrZero(s.Interval) }

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}

// durationOrZero is only used after Validate, so errors read as zero.
func durationOrZero(s string) time.Duration {
	d, _ := parseDuration(s)
	return d
}
