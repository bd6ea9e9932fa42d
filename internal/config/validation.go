package config

import (
	"net/url"
	"strings"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// Validate checks a defaulted configuration. Every failure is a config-category
// ClassifiedError naming the offending field.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateCollaborator,
		validatePatch,
		validateJournal,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func invalid(field, message string) *errors.ErrorBuilder {
	return errors.ConfigError(message).WithContext("field", field).UserAction()
}

func validateCollaborator(cfg *Config) error {
	c := cfg.Collaborator
	switch c.Transport {
	case TransportWebSocket:
		u, err := url.Parse(c.URL)
		if err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid collaborator url").
				WithContext("field", "collaborator.url").
				Build()
		}
		switch u.Scheme {
		case "http", "https", "ws", "wss":
		default:
			return invalid("collaborator.url", "collaborator url must use http, https, ws or wss").
				WithContext("url", c.URL).
				Build()
		}
	case TransportNATS:
		if !strings.HasPrefix(c.NATSURL, "nats://") && !strings.HasPrefix(c.NATSURL, "tls://") {
			return invalid("collaborator.nats_url", "nats url must use nats:// or tls://").
				WithContext("url", c.NATSURL).
				Build()
		}
		if strings.ContainsAny(c.SubjectPrefix, " *>") {
			return invalid("collaborator.subject_prefix", "subject prefix must not contain spaces or wildcards").
				WithContext("prefix", c.SubjectPrefix).
				Build()
		}
	default:
		return invalid("collaborator.transport", "unsupported collaborator transport").
			WithContext("transport", string(c.Transport)).
			WithContext("valid", strings.Join(transports.valid(), ", ")).
			Build()
	}
	if !c.ConnectRetry.Backoff.Valid() {
		return invalid("collaborator.connect_retry.backoff", "backoff must be fixed, linear or exponential").
			WithContext("backoff", string(c.ConnectRetry.Backoff)).
			Build()
	}
	if c.ConnectRetry.MaxRetries < 0 {
		return invalid("collaborator.connect_retry.max_retries", "max retries cannot be negative").
			WithContext("value", c.ConnectRetry.MaxRetries).
			Build()
	}
	return nil
}

func validatePatch(cfg *Config) error {
	p := cfg.Patch
	if p.MaxProposalRatio <= 0 || p.MaxProposalRatio > 1 {
		return invalid("patch.max_proposal_ratio", "ratio must be in (0, 1]").
			WithContext("value", p.MaxProposalRatio).
			Build()
	}
	if p.MaxRegionRatio <= 0 || p.MaxRegionRatio > 1 {
		return invalid("patch.max_region_ratio", "ratio must be in (0, 1]").
			WithContext("value", p.MaxRegionRatio).
			Build()
	}
	if p.MinContentLength < 0 {
		return invalid("patch.min_content_length", "minimum content length cannot be negative").
			WithContext("value", p.MinContentLength).
			Build()
	}
	return nil
}

func validateJournal(cfg *Config) error {
	j := cfg.Journal
	if j.Path == "" {
		return nil
	}
	if j.Retention < 0 {
		return invalid("journal.retention", "retention cannot be negative").Build()
	}
	if j.PruneInterval < 0 {
		return invalid("journal.prune_interval", "prune interval cannot be negative").Build()
	}
	return nil
}
