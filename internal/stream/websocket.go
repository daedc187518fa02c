package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/tabula-labs/tabula/internal/chat"
	"github.com/tabula-labs/tabula/internal/identity"
)

// outboundBuffer bounds the frames queued for one slow client.
const outboundBuffer = 64

const writeTimeout = 10 * time.Second

// Frame is one server-to-client message.
type Frame struct {
	Type    string        `json:"type"`
	Index   int           `json:"index"`
	Message *chat.Message `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// inbound is one client-to-server message.
type inbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// WebSocketHandler streams a tab's transcript: the current messages on
// connect, then each append. Clients may send {"type":"message"} frames,
// which are submitted like POST /api/chat.
type WebSocketHandler struct {
	sessions      *chat.Registry
	cm            *ConnManager
	allowedOrigin string
	isDev         bool
	logger        *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(sessions *chat.Registry, cm *ConnManager, allowedOrigin string, isDev bool, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		sessions:      sessions,
		cm:            cm,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		logger:        logger,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	connID := uuid.NewString()
	log := h.logger.With("user_id", userID, "session_id", sessionID, "conn_id", connID)
	log.Info("WebSocket connection request", "ip", identity.IPFromRequest(r))

	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			log.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	h.cm.Register(userID, sessionID, ws)
	defer h.cm.Unregister(userID, sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := h.sessions.Get(userID, sessionID)

	out := make(chan Frame, outboundBuffer)
	snapshot, unsubscribe := session.Transcript().Subscribe(func(idx int, m chat.Message) {
		// Runs under the transcript lock; never block here.
		select {
		case out <- Frame{Type: "message", Index: idx, Message: &m}:
		default:
			log.Warn("Chat stream client too slow, dropping connection")
			cancel()
		}
	})
	defer unsubscribe()

	for i := range snapshot {
		if err := h.writeJSON(ctx, ws, Frame{Type: "message", Index: i, Message: &snapshot[i]}); err != nil {
			log.Debug("Failed to replay transcript", "error", err)
			return
		}
	}

	go h.inputLoop(ctx, cancel, ws, session, out, log)
	h.outputLoop(ctx, ws, out, log)
	log.Info("Chat stream ended")
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) inputLoop(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn, session *chat.Session, out chan<- Frame, log *slog.Logger) {
	defer cancel()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				log.Debug("WebSocket closed by client")
			} else {
				log.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.send(out, Frame{Type: "error", Error: "invalid_frame"})
			continue
		}

		switch msg.Type {
		case "ping":
			h.send(out, Frame{Type: "pong"})
		case "message":
			// Submit blocks for the whole delegation flow; keep reading so
			// pings are still answered.
			go func(content string) {
				_, err := session.Submit(ctx, content)
				switch {
				case errors.Is(err, chat.ErrBusy):
					h.send(out, Frame{Type: "error", Error: "command_in_progress"})
				case errors.Is(err, chat.ErrEmptyInput):
					h.send(out, Frame{Type: "error", Error: "message_required"})
				case err != nil:
					log.Error("Chat submit failed", "error", err)
				}
			}(msg.Content)
		default:
			h.send(out, Frame{Type: "error", Error: "unknown_frame_type"})
		}
	}
}

func (h *WebSocketHandler) outputLoop(ctx context.Context, ws *websocket.Conn, out <-chan Frame, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-out:
			if err := h.writeJSON(ctx, ws, f); err != nil {
				if ctx.Err() == nil {
					log.Debug("WebSocket write error", "error", err)
				}
				return
			}
		}
	}
}

// send queues a control frame without blocking.
func (h *WebSocketHandler) send(out chan<- Frame, f Frame) {
	select {
	case out <- f:
	default:
		h.logger.Debug("Dropping control frame for slow client", "type", f.Type)
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
