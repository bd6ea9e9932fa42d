package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"git.home.luguber.info/inful/docsync/internal/events"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/server/responses"
)

const (
	streamBuffer       = 64
	streamWriteTimeout = 10 * time.Second
)

// StreamHandler pushes bus events to display clients over WebSocket. Each client
// gets a lossy subscription so a slow browser never stalls the coordinator.
type StreamHandler struct {
	bus      *events.Bus
	upgrader websocket.Upgrader
}

func NewStreamHandler(bus *events.Bus) *StreamHandler {
	return &StreamHandler{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The display UI is served from arbitrary local origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleEvents upgrades the request and streams events until the client goes away
// or the bus closes.
func (h *StreamHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("Event stream upgrade failed", logfields.Error(err))
		return
	}
	defer conn.Close()

	ch, unsubscribe := events.SubscribeLossy[events.Event](h.bus, streamBuffer)
	defer unsubscribe()

	// Reading is only needed to notice the client closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(responses.StreamEvent{Kind: evt.Kind(), Data: evt}); err != nil {
				slog.Debug("Event stream write failed", logfields.Error(err))
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
