package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chainscope/internal/dashboard"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

// Hub owns the set of live clients and refreshes their series periodically.
type Hub struct {
	svc          *dashboard.Service
	logger       *zap.Logger
	upgrader     websocket.Upgrader
	refreshEvery time.Duration

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(svc *dashboard.Service, refreshEvery time.Duration, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if refreshEvery <= 0 {
		refreshEvery = 30 * time.Second
	}
	return &Hub{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		refreshEvery: refreshEvery,
		clients:      make(map[*client]struct{}),
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run refreshes every active subscription until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.refreshAll(ctx)
		}
	}
}

func (h *Hub) refreshAll(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		filter, gen, ok := c.sub.Current()
		if !ok {
			continue
		}
		go h.fetch(ctx, c, filter, gen)
	}
}

// fetch resolves one series request and delivers it under the generation
// token captured when the fetch began.
func (h *Hub) fetch(ctx context.Context, c *client, filter dashboard.SeriesRequest, gen uint64) {
	resp, err := h.svc.Series(ctx, filter)
	if !c.sub.Deliver(gen, err != nil) {
		// A newer filter selection superseded this fetch.
		return
	}

	if err != nil {
		c.sendMessage(outMessage{Type: "error", Error: err.Error()})
		return
	}
	c.sendMessage(outMessage{Type: "series", Series: resp})
}

// HandleUpgrade upgrades an HTTP request into a live client connection.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}

	// The request context dies when the handler returns, so each client
	// carries its own context, cancelled on drop.
	ctx, cancel := context.WithCancel(context.Background())
	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		sub:    newSubscription(),
		ctx:    ctx,
		cancel: cancel,
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	go h.readPump(c)
}

type inMessage struct {
	Type    string `json:"type"`
	Network string `json:"network"`
	Metric  string `json:"metric"`
	Range   string `json:"range"`
	Mode    string `json:"mode"`
}

type outMessage struct {
	Type    string                    `json:"type"`
	Error   string                    `json:"error,omitempty"`
	Series  *dashboard.SeriesResponse `json:"series,omitempty"`
	Filters map[string][]string       `json:"filters,omitempty"`
}

func (h *Hub) readPump(c *client) {
	defer h.drop(c)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.sendMessage(outMessage{Type: "error", Error: "malformed message"})
			continue
		}

		switch msg.Type {
		case "filters":
			c.sub.FiltersLoading()
			filters, err := h.svc.Filters(c.ctx, msg.Network, msg.Metric)
			if err != nil {
				c.sendMessage(outMessage{Type: "error", Error: err.Error()})
				continue
			}
			c.sub.FiltersReady()
			c.sendMessage(outMessage{Type: "filters", Filters: filters})

		case "subscribe":
			filter := dashboard.SeriesRequest{
				Network: msg.Network,
				Metric:  msg.Metric,
				Range:   msg.Range,
				Mode:    msg.Mode,
			}
			gen := c.sub.Set(filter)
			go h.fetch(c.ctx, c, filter, gen)

		default:
			c.sendMessage(outMessage{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.closeSend()
	c.conn.Close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
		c.conn.Close()
	}
}
