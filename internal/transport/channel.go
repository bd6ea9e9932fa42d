// Package transport carries protocol messages between the engine and the collaborator.
//
// A Channel is one duplex session. Receive returns a classified error: validation
// errors describe a single bad message and the channel stays usable, channel errors
// mean the session is gone for good.
package transport

import (
	"context"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/protocol"
)

// Channel is a duplex message channel to the collaborator.
type Channel interface {
	Send(ctx context.Context, msg protocol.Message) error
	Receive(ctx context.Context) (protocol.Message, error)
	Close() error
}

// IsLoss reports whether err means the channel is permanently unusable.
func IsLoss(err error) bool {
	return errors.HasCategory(err, errors.CategoryChannel)
}

func lossError(transport string, cause error) error {
	b := errors.ChannelError("collaborator channel closed").WithContext("transport", transport)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b.Build()
}
