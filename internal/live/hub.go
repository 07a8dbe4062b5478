package live

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/monocle-dev/statuswatch/internal/metrics"
	"github.com/monocle-dev/statuswatch/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Message is pushed to every client watching a page.
type Message struct {
	Type            string                `json:"type"`
	PageID          uuid.UUID             `json:"page_id"`
	IncidentID      *uuid.UUID            `json:"incident_id,omitempty"`
	Monitor         string                `json:"monitor,omitempty"`
	ComponentStatus types.ComponentStatus `json:"component_status,omitempty"`
	Message         string                `json:"message,omitempty"`
}

// client serializes writes; gorilla connections allow a single concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Hub tracks websocket clients per status page.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]bool
	log     logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*client]bool),
		log:     log,
	}
}

func (h *Hub) register(pageID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[pageID] == nil {
		h.clients[pageID] = make(map[*client]bool)
	}
	h.clients[pageID][c] = true
	metrics.LiveConnections.Inc()
}

func (h *Hub) unregister(pageID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[pageID]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.clients, pageID)
	}
	metrics.LiveConnections.Dec()
}

// Count returns the number of clients watching pageID.
func (h *Hub) Count(pageID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[pageID])
}

// Publish sends msg to every client of pageID. Clients that fail are dropped.
func (h *Hub) Publish(pageID uuid.UUID, msg Message) {
	msg.PageID = pageID

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients[pageID]))
	for c := range h.clients[pageID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(msg); err != nil {
			h.log.Warn("dropping live client", "status_page_id", pageID, "error", err)
			h.unregister(pageID, c)
			c.conn.Close()
		}
	}
}

// Serve owns conn until the peer disconnects. It blocks.
func (h *Hub) Serve(conn *websocket.Conn, pageID uuid.UUID) {
	c := &client{conn: conn}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.register(pageID, c)
	defer func() {
		h.unregister(pageID, c)
		conn.Close()
		h.log.Debug("live connection closed", "status_page_id", pageID)
	}()

	if err := c.write(Message{Type: "connected", PageID: pageID, Message: "Live feed connected"}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("live connection error", "status_page_id", pageID, "error", err)
			}
			return
		}
	}
}
