package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/nhsfuk/dharmic-games/metrics"
)

const sendBuffer = 256

// Message is what a WebSocket client receives for each update.
type Message struct {
	Type       string   `json:"type"`
	Components []string `json:"components"`
	Payload    Update   `json:"payload"`
}

const messageTypeUpdate = "UPDATE"

// Hub keeps WebSocket clients in rooms named after UI components. A client may
// sit in several rooms and still gets each update once.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
	all   map[*Client]bool

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rooms:      make(map[string]map[*Client]bool),
		all:        make(map[*Client]bool),
		logger:     logger,
	}
}

// Run owns client registration until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.all[client] = true
			for _, room := range client.rooms {
				if _, ok := h.rooms[room]; !ok {
					h.rooms[room] = make(map[*Client]bool)
				}
				h.rooms[room][client] = true
			}
			total := len(h.all)
			h.mu.Unlock()
			metrics.WebSocketClients.Inc()
			h.logger.Debug("websocket client registered", slog.Any("rooms", client.rooms), slog.Int("clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if h.all[client] {
				delete(h.all, client)
				for _, room := range client.rooms {
					delete(h.rooms[room], client)
					if len(h.rooms[room]) == 0 {
						delete(h.rooms, room)
					}
				}
				client.close()
				metrics.WebSocketClients.Dec()
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.all {
				client.close()
				metrics.WebSocketClients.Dec()
			}
			h.all = make(map[*Client]bool)
			h.rooms = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			h.logger.Info("websocket hub stopped")
			return
		}
	}
}

// Deliver sends u to every client in a room u touches. It is a Listener and is
// normally subscribed to the Notifier under the wildcard component.
func (h *Hub) Deliver(u Update) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	matched := make(map[*Client][]string)
	for _, component := range u.Affects {
		for client := range h.rooms[component] {
			matched[client] = append(matched[client], component)
		}
	}
	for client := range h.rooms[Wildcard] {
		if _, ok := matched[client]; !ok {
			matched[client] = []string{Wildcard}
		}
	}

	for client, components := range matched {
		payload, err := json.Marshal(Message{Type: messageTypeUpdate, Components: components, Payload: u})
		if err != nil {
			return err
		}
		if !client.trySend(payload) {
			h.logger.Warn("websocket client send buffer full, dropping update",
				slog.Any("rooms", client.rooms), slog.String("type", string(u.Type)))
		}
	}
	return nil
}

// Attach registers conn as a client of rooms and starts its pumps.
func (h *Hub) Attach(conn *websocket.Conn, rooms []string) *Client {
	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		rooms: rooms,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return client
	}
	go client.writePump()
	go client.readPump()
	return client
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
