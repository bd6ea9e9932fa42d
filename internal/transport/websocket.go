package transport

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/protocol"
)

// WebSocketOptions tunes the WebSocket client.
type WebSocketOptions struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// PingInterval enables keepalive pings when positive. A peer that stops answering
	// for two intervals is treated as lost.
	PingInterval time.Duration
}

// WebSocket is a Channel over a gorilla/websocket client connection to
// <base>/ws/<session>.
type WebSocket struct {
	conn   *websocket.Conn
	opts   WebSocketOptions
	writeM sync.Mutex
	frames chan []byte
	done   chan struct{}
	once   sync.Once

	errMu sync.Mutex
	err   error
}

// SessionURL returns the collaborator endpoint for sessionID. http and https base URLs
// are mapped to ws and wss.
func SessionURL(base, sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryConfig, "invalid collaborator url").
			WithContext("url", base).
			Build()
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.ConfigError("collaborator url must use ws, wss, http or https").
			WithContext("url", base).
			Build()
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + url.PathEscape(sessionID)
	return u.String(), nil
}

// DialWebSocket connects to the collaborator for sessionID.
func DialWebSocket(ctx context.Context, base, sessionID string, opts WebSocketOptions) (*WebSocket, error) {
	target, err := SessionURL(base, sessionID)
	if err != nil {
		return nil, err
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	dialer := *websocket.DefaultDialer
	if opts.DialTimeout > 0 {
		dialer.HandshakeTimeout = opts.DialTimeout
	}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		b := errors.WrapError(err, errors.CategoryChannel, "failed to connect to collaborator").
			WithContext("url", target)
		if resp != nil {
			b = b.WithContext("status", resp.StatusCode)
		} else {
			// No handshake response: the collaborator was unreachable.
			b = b.Retryable()
		}
		return nil, b.Build()
	}

	ws := &WebSocket{
		conn:   conn,
		opts:   opts,
		frames: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	go ws.readLoop()
	if opts.PingInterval > 0 {
		go ws.pingLoop()
	}
	return ws, nil
}

func (w *WebSocket) readLoop() {
	if w.opts.PingInterval > 0 {
		deadline := 2 * w.opts.PingInterval
		_ = w.conn.SetReadDeadline(time.Now().Add(deadline))
		w.conn.SetPongHandler(func(string) error {
			return w.conn.SetReadDeadline(time.Now().Add(deadline))
		})
	}
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			w.fail(err)
			return
		}
		select {
		case w.frames <- data:
		case <-w.done:
			return
		}
	}
}

func (w *WebSocket) pingLoop() {
	ticker := time.NewTicker(w.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.writeM.Lock()
			err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(w.opts.WriteTimeout))
			w.writeM.Unlock()
			if err != nil {
				w.fail(err)
				return
			}
		case <-w.done:
			return
		}
	}
}

func (w *WebSocket) fail(err error) {
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
	w.once.Do(func() {
		close(w.done)
		_ = w.conn.Close()
	})
}

func (w *WebSocket) cause() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil || websocket.IsCloseError(w.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return w.err
}

func (w *WebSocket) Send(ctx context.Context, msg protocol.Message) error {
	select {
	case <-w.done:
		return lossError("websocket", w.cause())
	default:
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(w.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	w.writeM.Lock()
	defer w.writeM.Unlock()
	_ = w.conn.SetWriteDeadline(deadline)
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		go w.fail(err)
		return lossError("websocket", err)
	}
	return nil
}

func (w *WebSocket) Receive(ctx context.Context) (protocol.Message, error) {
	select {
	case data := <-w.frames:
		return protocol.Decode(data)
	case <-w.done:
		// Frames read before the connection dropped are still delivered.
		select {
		case data := <-w.frames:
			return protocol.Decode(data)
		default:
		}
		return nil, lossError("websocket", w.cause())
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close sends a normal closure and tears the connection down.
func (w *WebSocket) Close() error {
	w.writeM.Lock()
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.writeM.Unlock()
	w.fail(nil)
	return nil
}
