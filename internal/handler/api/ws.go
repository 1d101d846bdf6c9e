package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	models "MacroPulse/internal/domain/models"
	xlogger "MacroPulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 45 * time.Second
	wsSendBufferSize = 8
)

// WSHub pushes fresh evaluations to connected websocket clients. Slow
// clients are dropped rather than allowed to block the broadcast path.
type WSHub struct {
	logger   *xlogger.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (cl *wsClient) closeSend() { cl.closeOnce.Do(func() { close(cl.send) }) }

func NewWSHub(logger *xlogger.Logger) *WSHub {
	return &WSHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

func (h *WSHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve upgrades the connection and streams evaluations until the client
// disconnects.
func (h *WSHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", xlogger.Error(err))
		return nil
	}
	cl := &wsClient{conn: conn, send: make(chan []byte, wsSendBufferSize)}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws client connected", xlogger.String("remote", conn.RemoteAddr().String()), xlogger.Int("clients", n))

	go h.writePump(cl)
	go h.readPump(cl)
	return nil
}

// Broadcast serializes the evaluation once and fans it out. Wired as the
// evaluator's broadcast hook.
func (h *WSHub) Broadcast(ev *models.Evaluation) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("ws marshal failed", xlogger.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		select {
		case cl.send <- b:
		default:
			// Client buffer full, drop it on the next pump iteration.
			cl.closeSend()
			go h.remove(cl)
		}
	}
}

// ClientCount reports the number of active connections.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *WSHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		_ = cl.conn.Close()
		delete(h.clients, cl)
	}
}

func (h *WSHub) remove(cl *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
	}
	h.mu.Unlock()
	_ = cl.conn.Close()
}

func (h *WSHub) readPump(cl *wsClient) {
	defer h.remove(cl)
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		// Inbound messages are ignored; the read loop only detects close.
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHub) writePump(cl *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		h.remove(cl)
	}()
	for {
		select {
		case b, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
