package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/patch"
	"git.home.luguber.info/inful/docsync/internal/retry"
)

// Version is the only configuration format version understood by Load.
const Version = "1.0"

// Config is the docsync configuration file.
type Config struct {
	Version      string             `yaml:"version"`
	Session      SessionConfig      `yaml:"session"`
	Collaborator CollaboratorConfig `yaml:"collaborator"`
	Patch        PatchConfig        `yaml:"patch"`
	Document     DocumentConfig     `yaml:"document"`
	Server       ServerConfig       `yaml:"server"`
	Journal      JournalConfig      `yaml:"journal"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// SessionConfig identifies the report session. An empty ID is replaced by a random one.
type SessionConfig struct {
	ID    string `yaml:"id"`
	Topic string `yaml:"topic"`
}

// CollaboratorConfig selects and tunes the channel to the research collaborator.
type CollaboratorConfig struct {
	Transport           Transport     `yaml:"transport"`
	URL                 string        `yaml:"url"`      // websocket base, e.g. http://localhost:8000
	NATSURL             string        `yaml:"nats_url"` // used when transport is nats
	SubjectPrefix       string        `yaml:"subject_prefix"`
	RegenerationTimeout time.Duration `yaml:"regeneration_timeout"`
	DialTimeout         time.Duration `yaml:"dial_timeout"`
	PingInterval        time.Duration `yaml:"ping_interval"`
	// ConnectRetry applies to the initial connection only. A channel lost after the
	// session started is never redialed.
	ConnectRetry RetryConfig `yaml:"connect_retry"`
}

// RetryConfig is a backoff policy for transient failures.
type RetryConfig struct {
	Backoff      retry.BackoffMode `yaml:"backoff"`
	InitialDelay time.Duration     `yaml:"initial_delay"`
	MaxDelay     time.Duration     `yaml:"max_delay"`
	MaxRetries   int               `yaml:"max_retries"`
}

// Policy converts the settings for the retry package.
func (r RetryConfig) Policy() retry.Policy {
	return retry.NewPolicy(r.Backoff, r.InitialDelay, r.MaxDelay, r.MaxRetries)
}

// PatchConfig carries the regeneration guards.
type PatchConfig struct {
	MaxProposalRatio float64 `yaml:"max_proposal_ratio"`
	MaxRegionRatio   float64 `yaml:"max_region_ratio"`
	MinContentLength int     `yaml:"min_content_length"`
	// ExcerptLength caps, in runes, the section content sent with a regenerate request.
	ExcerptLength int `yaml:"excerpt_length"`
}

// Limits converts the guard settings for the patch applier.
func (p PatchConfig) Limits() patch.Limits {
	return patch.Limits{
		MaxProposalRatio: p.MaxProposalRatio,
		MaxRegionRatio:   p.MaxRegionRatio,
		MinContentLength: p.MinContentLength,
	}
}

// DocumentConfig points at the markdown file mirrored by the session.
type DocumentConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type JournalConfig struct {
	Path          string        `yaml:"path"`
	Retention     time.Duration `yaml:"retention"`
	PruneInterval time.Duration `yaml:"prune_interval"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads a configuration file, expanding ${VAR} references after loading
// .env files, then normalizes, defaults and validates it.
func Load(path string) (*Config, error) {
	if loaded, err := loadEnvFiles(); err == nil && loaded != "" {
		fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", loaded)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", path).
				UserAction().
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read config file").
			WithContext("path", path).
			Build()
	}
	return Parse(data)
}

// Parse decodes configuration content. Environment references are expanded
// against the current process environment.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Build()
	}
	if cfg.Version != Version {
		return nil, errors.ConfigError("unsupported configuration version").
			WithContext("version", cfg.Version).
			WithContext("expected", Version).
			Build()
	}

	res := Normalize(&cfg)
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "config normalization: %s\n", w)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: Version}
	ApplyDefaults(cfg)
	return cfg
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			UserAction().
			Build()
	}

	example := Default()
	example.Session.Topic = "Example research topic"
	example.Document.Path = "report.md"
	example.Document.Watch = true
	example.Journal.Path = "docsync-journal.db"
	example.Metrics.Enabled = true
	example.Collaborator.ConnectRetry.MaxRetries = 2

	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal example config").Build()
	}
	header := "# docsync configuration\n# Values may reference environment variables as ${VAR}; .env and .env.local are loaded first.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}
