package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	portssvc "github.com/finvault/ledgerd/internal/core/ports/services"
	"github.com/finvault/ledgerd/internal/middleware"
	"github.com/finvault/ledgerd/internal/notifier"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Callers are already authorized by the API-key middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamHandler upgrades clients to websocket connections subscribed to an
// account's transaction events.
type streamHandler struct {
	accountService portssvc.AccountSvc
	hub            *notifier.Hub
}

func newStreamHandler(as portssvc.AccountSvc, hub *notifier.Hub) *streamHandler {
	return &streamHandler{
		accountService: as,
		hub:            hub,
	}
}

func registerStreamRoutes(rg *gin.RouterGroup, as portssvc.AccountSvc, hub *notifier.Hub) {
	h := newStreamHandler(as, hub)
	rg.GET("/ws/transactions/:accountNumber", h.subscribe)
}

func (h *streamHandler) subscribe(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountNumber := c.Param("accountNumber")

	// Only existing, active accounts can be subscribed to; a subscriber
	// registered here will only ever receive events for this account.
	if _, err := h.accountService.GetAccount(c.Request.Context(), accountNumber); err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	sub := newWSSubscriber(conn)
	h.hub.Subscribe(accountNumber, sub)
	logger.Info("Subscriber connected", slog.String("account_number", accountNumber))

	defer func() {
		h.hub.Unsubscribe(accountNumber, sub)
		_ = conn.Close()
		logger.Info("Subscriber disconnected", slog.String("account_number", accountNumber))
	}()

	// Inbound messages are ignored; the read loop only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// wsSubscriber adapts a websocket connection to the hub's Subscriber
// interface. Hub workers and the subscribe acknowledgment may write
// concurrently, so writes are serialized.
type wsSubscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSSubscriber(conn *websocket.Conn) *wsSubscriber {
	return &wsSubscriber{conn: conn}
}

func (s *wsSubscriber) Send(ctx context.Context, event notifier.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := time.Now().Add(wsWriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteJSON(event)
}
