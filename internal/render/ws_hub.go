package render

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"StockHolo/internal/domain/models"
	drepo "StockHolo/internal/domain/repository"
	svcmetrics "StockHolo/internal/service/metrics"
	applogger "StockHolo/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 90 * time.Second
	pingPeriod = 45 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

// controlMsg is sent by browsers: pause, resume or snapshot.
type controlMsg struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

type client struct {
	conn    *websocket.Conn
	out     chan models.Frame
	done    chan struct{}
	paused  atomic.Bool
	lastSeq atomic.Uint64
}

// push queues f, replacing the oldest queued frame when the buffer is full.
func (c *client) push(f models.Frame) {
	for {
		select {
		case c.out <- f:
			return
		default:
		}
		select {
		case <-c.out:
		default:
		}
	}
}

// Hub fans frames out to connected browsers over WebSocket.
type Hub struct {
	current      func() models.Frame
	logger       *applogger.Logger
	buffer       int
	writeTimeout time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
	lastSeq uint64
}

// NewHub creates a hub. current supplies the greeting frame for new clients.
func NewHub(current func() models.Frame, logger *applogger.Logger, buffer int, writeTimeout time.Duration) *Hub {
	if buffer <= 0 {
		buffer = 8
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Hub{
		current:      current,
		logger:       logger.With("ws_hub"),
		buffer:       buffer,
		writeTimeout: writeTimeout,
		clients:      make(map[*client]struct{}),
	}
}

var _ drepo.RenderSurface = (*Hub)(nil)

func (h *Hub) Name() string { return "websocket" }

// Render broadcasts f. Frames older than the last broadcast are dropped.
func (h *Hub) Render(_ context.Context, f models.Frame) error {
	h.mu.Lock()
	if f.Seq <= h.lastSeq {
		h.mu.Unlock()
		return nil
	}
	h.lastSeq = f.Seq
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if !c.paused.Load() {
			c.push(f)
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams frames until the peer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", applogger.Error(err))
		return
	}
	defer conn.Close()

	cl := &client{conn: conn, out: make(chan models.Frame, h.buffer), done: make(chan struct{})}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	svcmetrics.WSClients.Inc()
	h.logger.Debug("client connected", applogger.String("remote", r.RemoteAddr))

	defer func() {
		close(cl.done)
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
		svcmetrics.WSClients.Dec()
	}()

	go h.writeLoop(cl)
	if h.current != nil {
		cl.push(h.current())
	}
	h.readLoop(cl)
}

func (h *Hub) writeLoop(cl *client) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case f := <-cl.out:
			if f.Seq != 0 && f.Seq <= cl.lastSeq.Load() {
				continue
			}
			cl.lastSeq.Store(f.Seq)
			_ = cl.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := cl.conn.WriteJSON(f); err != nil {
				_ = cl.conn.Close()
				return
			}
		case <-ping.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = cl.conn.Close()
				return
			}
		case <-cl.done:
			return
		}
	}
}

func (h *Hub) readLoop(cl *client) {
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		mt, data, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var ctrl controlMsg
		if err := json.Unmarshal(data, &ctrl); err != nil || ctrl.Type != "control" {
			continue
		}
		switch strings.ToLower(ctrl.Action) {
		case "pause":
			cl.paused.Store(true)
		case "resume":
			cl.paused.Store(false)
			if h.current != nil {
				cl.push(h.current())
			}
		case "snapshot":
			if h.current != nil {
				f := h.current()
				// resend even if already seen
				cl.lastSeq.Store(0)
				cl.push(f)
			}
		}
	}
}
