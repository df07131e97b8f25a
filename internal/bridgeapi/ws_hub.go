package bridgeapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"sumobridge/cli/internal/protocol"
)

type WSHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
	seq     atomic.Uint64
	log     *slog.Logger
}

func NewWSHub(lg *slog.Logger) *WSHub {
	if lg == nil {
		lg = slog.New(slog.DiscardHandler)
	}
	return &WSHub{clients: map[*websocket.Conn]struct{}{}, log: lg}
}

func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	// Pages connect from arbitrary origins, same as the HTTP routes.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		h.log.Warn("websocket accept failed", "err", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

func (h *WSHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHub) Publish(op string, payload any) {
	msg, err := json.Marshal(protocol.NewEvent(h.seq.Add(1), op, payload))
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		_ = c.Write(ctx, websocket.MessageText, msg)
		cancel()
	}
}

// Close disconnects every subscriber. http.Server.Shutdown does not track
// hijacked websocket connections.
func (h *WSHub) Close() {
	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = map[*websocket.Conn]struct{}{}
	h.mu.Unlock()
	for _, c := range clients {
		_ = c.Close(websocket.StatusGoingAway, "bridge shutting down")
	}
}
