package main

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// wsClient serializes writes to one connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// hub tracks websocket clients for broadcasting live records.
type hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool
}

func newHub() *hub {
	return &hub{clients: make(map[*wsClient]bool)}
}

func (h *hub) add(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	return client
}

func (h *hub) remove(client *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()
	if ok {
		client.conn.Close()
	}
}

func (h *hub) snapshot() []*wsClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) broadcast(data []byte) {
	for _, client := range h.snapshot() {
		if err := client.write(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Msg("dropping websocket client")
			h.remove(client)
		}
	}
}

// pingLoop keeps idle listeners from hitting their read deadline.
func (h *hub) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			for _, client := range h.snapshot() {
				if err := client.write(websocket.PingMessage, nil); err != nil {
					h.remove(client)
				}
			}
		}
	}
}
