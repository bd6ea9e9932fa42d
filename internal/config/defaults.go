package config

import (
	"time"

	"git.home.luguber.info/inful/docsync/internal/patch"
	"git.home.luguber.info/inful/docsync/internal/retry"
)

const (
	DefaultCollaboratorURL     = "http://localhost:8000"
	DefaultNATSURL             = "nats://127.0.0.1:4222"
	DefaultSubjectPrefix       = "docsync"
	DefaultRegenerationTimeout = 2 * time.Minute
	DefaultDialTimeout         = 10 * time.Second
	DefaultPingInterval        = 30 * time.Second
	DefaultExcerptLength       = 500
	DefaultServerAddr          = "127.0.0.1:8090"
	DefaultJournalRetention    = 30 * 24 * time.Hour
	DefaultPruneInterval       = time.Hour
	DefaultRetryInitialDelay   = time.Second
	DefaultRetryMaxDelay       = 30 * time.Second
)

// ApplyDefaults fills every unset field. Zero numeric guards take the patch
// package defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = Version
	}

	c := &cfg.Collaborator
	if c.Transport == "" {
		c.Transport = TransportWebSocket
	}
	if c.URL == "" {
		c.URL = DefaultCollaboratorURL
	}
	if c.NATSURL == "" {
		c.NATSURL = DefaultNATSURL
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.RegenerationTimeout <= 0 {
		c.RegenerationTimeout = DefaultRegenerationTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	r := &c.ConnectRetry
	if r.Backoff == "" {
		r.Backoff = retry.BackoffLinear
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = DefaultRetryInitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = DefaultRetryMaxDelay
	}
	if c.PingInterval < 0 {
		c.PingInterval = 0
	} else if c.PingInterval == 0 {
		c.PingInterval = DefaultPingInterval
	}

	limits := patch.DefaultLimits()
	p := &cfg.Patch
	if p.MaxProposalRatio == 0 {
		p.MaxProposalRatio = limits.MaxProposalRatio
	}
	if p.MaxRegionRatio == 0 {
		p.MaxRegionRatio = limits.MaxRegionRatio
	}
	if p.MinContentLength == 0 {
		p.MinContentLength = limits.MinContentLength
	}
	if p.ExcerptLength <= 0 {
		p.ExcerptLength = DefaultExcerptLength
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Journal.Retention == 0 {
		cfg.Journal.Retention = DefaultJournalRetention
	}
	if cfg.Journal.PruneInterval == 0 {
		cfg.Journal.PruneInterval = DefaultPruneInterval
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
}
