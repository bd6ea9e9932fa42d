package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/docsync/internal/retry"
)

// NormalizationResult collects warnings about values rewritten during normalization.
type NormalizationResult struct {
	Warnings []string
}

func warnChanged(field string, from, to any) string {
	return fmt.Sprintf("normalized %s from '%v' to '%v'", field, from, to)
}

func warnUnknown(field, value, def string) string {
	return fmt.Sprintf("unknown %s '%s', defaulting to '%s'", field, value, def)
}

// Normalize case-folds enumerations and trims free-form strings. Unknown log
// settings fall back to their defaults with a warning; an unknown transport is
// left for validation to reject.
func Normalize(cfg *Config) *NormalizationResult {
	res := &NormalizationResult{}
	if cfg == nil {
		return res
	}
	normalizeCollaborator(&cfg.Collaborator, res)
	normalizeLogging(&cfg.Logging, res)

	cfg.Session.ID = strings.TrimSpace(cfg.Session.ID)
	cfg.Session.Topic = strings.TrimSpace(cfg.Session.Topic)
	cfg.Document.Path = strings.TrimSpace(cfg.Document.Path)
	cfg.Journal.Path = strings.TrimSpace(cfg.Journal.Path)
	cfg.Server.Addr = strings.TrimSpace(cfg.Server.Addr)
	return res
}

func normalizeCollaborator(c *CollaboratorConfig, res *NormalizationResult) {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	c.NATSURL = strings.TrimSpace(c.NATSURL)
	c.SubjectPrefix = strings.Trim(strings.TrimSpace(c.SubjectPrefix), ".")
	c.ConnectRetry.Backoff = retry.BackoffMode(strings.ToLower(strings.TrimSpace(string(c.ConnectRetry.Backoff))))
	if c.Transport == "" {
		return
	}
	if t, ok := transports.lookup(string(c.Transport)); ok {
		if t != c.Transport {
			res.Warnings = append(res.Warnings, warnChanged("collaborator.transport", c.Transport, t))
			c.Transport = t
		}
	}
}

func normalizeLogging(l *LoggingConfig, res *NormalizationResult) {
	if l.Level != "" {
		if lvl, ok := logLevels.lookup(string(l.Level)); ok {
			if lvl != l.Level {
				res.Warnings = append(res.Warnings, warnChanged("logging.level", l.Level, lvl))
				l.Level = lvl
			}
		} else {
			res.Warnings = append(res.Warnings, warnUnknown("logging.level", string(l.Level), string(LogLevelInfo)))
			l.Level = LogLevelInfo
		}
	}
	if l.Format != "" {
		if f, ok := logFormats.lookup(string(l.Format)); ok {
			if f != l.Format {
				res.Warnings = append(res.Warnings, warnChanged("logging.format", l.Format, f))
				l.Format = f
			}
		} else {
			res.Warnings = append(res.Warnings, warnUnknown("logging.format", string(l.Format), string(LogFormatText)))
			l.Format = LogFormatText
		}
	}
}
