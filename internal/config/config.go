// Package config assembles runtime settings from defaults, an optional YAML
// file and environment variables, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"

	DefaultTurnLogPath   = "bot_logs.txt"
	DefaultLookupTimeout = 10 * time.Second
	DefaultMaxEntries    = 10000
)

type Config struct {
	Lookup  LookupConfig  `yaml:"lookup"`
	State   StateConfig   `yaml:"state"`
	TurnLog TurnLogConfig `yaml:"turn_log"`
}

// LookupConfig describes the registration provider. Body is the raw JSON
// request template and Cookies the raw cookie header value.
type LookupConfig struct {
	URL             string        `yaml:"url"`
	Body            string        `yaml:"body"`
	Cookies         string        `yaml:"cookies"`
	IdentifierField string        `yaml:"identifier_field"`
	Timeout         time.Duration `yaml:"timeout"`
}

type StateConfig struct {
	Backend    string        `yaml:"backend"`
	Table      string        `yaml:"table"`
	MaxEntries int           `yaml:"max_entries"`
	IdleTTL    time.Duration `yaml:"idle_ttl"`
}

// TurnLogConfig selects the turn log sink: the DynamoDB table when Table is
// set, the JSON-lines file at Path otherwise.
type TurnLogConfig struct {
	Path  string `yaml:"path"`
	Table string `yaml:"table"`
}

func defaults() Config {
	return Config{
		Lookup: LookupConfig{
			IdentifierField: "Props",
			Timeout:         DefaultLookupTimeout,
		},
		State: StateConfig{
			Backend:    BackendMemory,
			MaxEntries: DefaultMaxEntries,
		},
		TurnLog: TurnLogConfig{
			Path: DefaultTurnLogPath,
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used. The lookup section is not validated
// here because the Lambda entry point fills it from Parameter Store.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)

	if err := cfg.State.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Lookup.URL = getEnv("API_URL", cfg.Lookup.URL)
	cfg.Lookup.Body = getEnv("API_BODY", cfg.Lookup.Body)
	cfg.Lookup.Cookies = getEnv("COOKIES", cfg.Lookup.Cookies)
	cfg.Lookup.IdentifierField = getEnv("LOOKUP_IDENTIFIER_FIELD", cfg.Lookup.IdentifierField)
	cfg.Lookup.Timeout = getDurationEnv("LOOKUP_TIMEOUT", cfg.Lookup.Timeout)

	cfg.State.Backend = strings.ToLower(getEnv("STATE_BACKEND", cfg.State.Backend))
	cfg.State.Table = getEnv("STATE_TABLE", cfg.State.Table)
	cfg.State.MaxEntries = getIntEnv("STATE_MAX_ENTRIES", cfg.State.MaxEntries)
	cfg.State.IdleTTL = getDurationEnv("STATE_IDLE_TTL", cfg.State.IdleTTL)

	cfg.TurnLog.Path = getEnv("TURN_LOG_PATH", cfg.TurnLog.Path)
	cfg.TurnLog.Table = getEnv("TURN_LOG_TABLE", cfg.TurnLog.Table)
}

func (s StateConfig) Validate() error {
	switch s.Backend {
	case BackendMemory:
		if s.MaxEntries <= 0 {
			return errors.New("config: state max entries must be positive")
		}
	case BackendDynamoDB:
		if strings.TrimSpace(s.Table) == "" {
			return errors.New("config: state table is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("config: unknown state backend %q", s.Backend)
	}
	if s.IdleTTL < 0 {
		return errors.New("config: state idle ttl must not be negative")
	}
	return nil
}

func (l LookupConfig) Validate() error {
	if strings.TrimSpace(l.URL) == "" {
		return errors.New("config: lookup url is required (API_URL)")
	}
	if l.Timeout <= 0 {
		return errors.New("config: lookup timeout must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
