package transport

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/docsync/internal/protocol"
)

// Memory is an in-process Channel. Tests and offline tools drive the collaborator side
// through Deliver and Sent.
type Memory struct {
	mu      sync.Mutex
	sent    []protocol.Message
	inbound chan protocol.Message
	done    chan struct{}
	once    sync.Once
	sendErr error
}

// NewMemory returns an open Memory channel.
func NewMemory() *Memory {
	return &Memory{
		inbound: make(chan protocol.Message, 64),
		done:    make(chan struct{}),
	}
}

func (m *Memory) Send(ctx context.Context, msg protocol.Message) error {
	select {
	case <-m.done:
		return lossError("memory", nil)
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *Memory) Receive(ctx context.Context) (protocol.Message, error) {
	select {
	case msg := <-m.inbound:
		return msg, nil
	case <-m.done:
		return nil, lossError("memory", nil)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close simulates the collaborator going away.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

// Deliver queues msg as if the collaborator had sent it.
func (m *Memory) Deliver(msg protocol.Message) {
	m.inbound <- msg
}

// FailSends makes every later Send return err.
func (m *Memory) FailSends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// Sent returns a copy of everything sent so far.
func (m *Memory) Sent() []protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]protocol.Message(nil), m.sent...)
}
