package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/askgov/askgov/internal/chat"
	"github.com/askgov/askgov/internal/log"
	"github.com/askgov/askgov/internal/notify"
)

// Per-connection message budget. One message per second sustained,
// small burst for a quick follow-up or feedback click.
const (
	messagesPerSecond = 1
	messageBurst      = 5
)

// wsConn adapts a websocket connection to notify.Conn so the
// orchestrator can push events without knowing the transport.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Send(ctx context.Context, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// chatHandler upgrades requests to WebSocket and runs the chat loop.
type chatHandler struct {
	orch           *chat.Orchestrator
	registry       *notify.Registry
	allowedOrigins []string
	isDev          bool
	logger         log.Logger
}

func newChatHandler(orch *chat.Orchestrator, registry *notify.Registry, allowedOrigins []string, isDev bool, logger log.Logger) *chatHandler {
	return &chatHandler{
		orch:           orch,
		registry:       registry,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
		logger:         logger,
	}
}

func (h *chatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "conversation ended"); closeErr != nil {
			h.logger.Debug("websocket close failed", "error", closeErr)
		}
	}()

	connID := uuid.NewString()
	conn := &wsConn{conn: ws}
	h.registry.Register(connID, conn)
	defer h.registry.Unregister(connID, conn)

	h.logger.Info("chat connection opened",
		"conn_id", connID,
		"ip", r.RemoteAddr,
		"request_id", requestIDFromContext(r.Context()),
	)

	h.readLoop(r.Context(), ws, connID)

	h.logger.Info("chat connection closed", "conn_id", connID)
}

func (h *chatHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	h.logger.Warn("websocket origin rejected", "origin", origin)
	return false
}

func (h *chatHandler) readLoop(ctx context.Context, ws *websocket.Conn, connID string) {
	history := &chat.History{}
	limiter := rate.NewLimiter(messagesPerSecond, messageBurst)
	conn := &wsConn{conn: ws}

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("websocket closed by client", "conn_id", connID)
			} else {
				h.logger.Warn("websocket read error", "error", err, "conn_id", connID)
			}
			return
		}

		if !limiter.Allow() {
			h.logger.Warn("chat message rate exceeded", "conn_id", connID)
			h.sendEvent(ctx, conn, connID, chat.NewErrorEvent(chat.KindThrottled))
			continue
		}

		req, err := chat.DecodeRequest(data)
		if err != nil {
			h.logger.Warn("undecodable chat request", "error", err, "conn_id", connID)
			h.sendEvent(ctx, conn, connID, chat.NewErrorEvent(chat.KindInvalidRequest))
			continue
		}

		h.orch.Handle(ctx, connID, req, history)
	}
}

func (h *chatHandler) sendEvent(ctx context.Context, conn *wsConn, connID string, event any) {
	if err := conn.Send(ctx, event); err != nil {
		h.logger.Warn("failed to deliver event", "error", err, "conn_id", connID)
	}
}
