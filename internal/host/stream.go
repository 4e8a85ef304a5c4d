package host

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gearxr/gear/internal/handlers"
	"github.com/gearxr/gear/internal/storage"
	ws "github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// presenceStream pushes the fresh participants of an activity, excluding the
// caller, until the client disconnects. It only reads presence; poses are
// still reported through the sync call.
func (s *Server) presenceStream(w http.ResponseWriter, r *http.Request) {
	caller, ok := handlers.CallerFrom(r.Context())
	if !ok {
		http.Error(w, `{"error":"login required"}`, http.StatusUnauthorized)
		return
	}
	gearID, err := strconv.ParseInt(r.URL.Query().Get("gearid"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"invalid gearid"}`, http.StatusBadRequest)
		return
	}
	if _, err := s.deps.Store.Activity(r.Context(), gearID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, `{"error":"activity not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// the read loop only notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := r.Context()
	ticker := time.NewTicker(s.deps.StreamInterval)
	defer ticker.Stop()

	for {
		participants, err := s.deps.Service.Participants(ctx, gearID, caller.ID)
		if err != nil {
			s.logger.Error("Presence lookup failed", "gearid", gearID, "error", err)
		} else {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(participants); err != nil {
				s.logger.Debug("Presence stream closed", "gearid", gearID, "error", err)
				return
			}
		}

		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
