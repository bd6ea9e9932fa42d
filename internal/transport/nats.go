package transport

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/protocol"
)

// NATSOptions tunes the NATS transport.
type NATSOptions struct {
	DialTimeout time.Duration
	// Name is reported to the NATS server for the connection.
	Name string
}

// Subjects returns the subject the engine publishes on and the one it listens on.
func Subjects(prefix, sessionID string) (out, in string) {
	base := strings.TrimSuffix(prefix, ".") + "." + sessionID
	return base + ".out", base + ".in"
}

// NATS is a Channel over two core NATS subjects: <prefix>.<session>.out carries engine
// messages, <prefix>.<session>.in carries collaborator messages.
type NATS struct {
	conn     *nats.Conn
	sub      *nats.Subscription
	outbound string
	msgs     chan *nats.Msg
	done     chan struct{}
	once     sync.Once

	errMu sync.Mutex
	err   error
}

// ConnectNATS connects to url and subscribes to the session's inbound subject.
func ConnectNATS(url, prefix, sessionID string, opts NATSOptions) (*NATS, error) {
	if opts.Name == "" {
		opts.Name = "docsync"
	}
	n := &NATS{
		msgs: make(chan *nats.Msg, 64),
		done: make(chan struct{}),
	}

	natsOpts := []nats.Option{
		nats.Name(opts.Name),
		nats.ClosedHandler(func(*nats.Conn) { n.fail(nil) }),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	}
	if opts.DialTimeout > 0 {
		natsOpts = append(natsOpts, nats.Timeout(opts.DialTimeout))
	}

	conn, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryChannel, "failed to connect to NATS").
			WithContext("url", url).
			Retryable().
			Build()
	}

	out, in := Subjects(prefix, sessionID)
	sub, err := conn.ChanSubscribe(in, n.msgs)
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryChannel, "failed to subscribe to collaborator subject").
			WithContext("subject", in).
			Build()
	}
	n.conn, n.sub, n.outbound = conn, sub, out

	slog.Info("NATS channel ready",
		logfields.SessionID(sessionID),
		"publish", out,
		"subscribe", in)
	return n, nil
}

func (n *NATS) fail(err error) {
	n.errMu.Lock()
	if n.err == nil {
		n.err = err
	}
	n.errMu.Unlock()
	n.once.Do(func() { close(n.done) })
}

func (n *NATS) cause() error {
	n.errMu.Lock()
	defer n.errMu.Unlock()
	return n.err
}

func (n *NATS) Send(ctx context.Context, msg protocol.Message) error {
	select {
	case <-n.done:
		return lossError("nats", n.cause())
	default:
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := n.conn.Publish(n.outbound, data); err != nil {
		return lossError("nats", err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return lossError("nats", err)
	}
	return nil
}

func (n *NATS) Receive(ctx context.Context) (protocol.Message, error) {
	select {
	case m := <-n.msgs:
		return protocol.Decode(m.Data)
	case <-n.done:
		return nil, lossError("nats", n.cause())
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close unsubscribes and drains the connection.
func (n *NATS) Close() error {
	_ = n.sub.Unsubscribe()
	n.conn.Close()
	n.fail(nil)
	return nil
}
