package websocket

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ilias-t/griblet/pkg/logger"
)

// Parse lifecycle event types pushed to the map UI
const (
	MessageTypeParseStarted   = "parse_started"
	MessageTypeParseCompleted = "parse_completed"
	MessageTypeParseFailed    = "parse_failed"
	MessageTypeRecordDeleted  = "record_deleted"
)

// Message represents a WebSocket message
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Client represents a WebSocket client
type Client struct {
	conn   *websocket.Conn
	send   chan *Message
	server *Server
	mu     sync.Mutex
	closed bool
}

// Server broadcasts parse lifecycle events to connected clients
type Server struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	upgrader   websocket.Upgrader
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewServer creates a new WebSocket server
func NewServer(log *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 16),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		logger: log.Named("web-socket"),
	}
}

// Run starts the WebSocket server loop
func (s *Server) Run() {
	s.logger.Info("Starting WebSocket server")

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			count := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client registered", logger.Int("client_count", count))

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.mu.Lock()
				client.closed = true
				client.mu.Unlock()
				close(client.send)
			}
			count := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client unregistered", logger.Int("client_count", count))

		case message := <-s.broadcast:
			s.mu.RLock()
			var stale []*Client
			for client := range s.clients {
				client.mu.Lock()
				if client.closed {
					client.mu.Unlock()
					continue
				}
				client.mu.Unlock()

				select {
				case client.send <- message:
				default:
					// Channel full; client is too slow, drop it
					stale = append(stale, client)
				}
			}
			s.mu.RUnlock()

			// Stale clients are removed inline: this loop is the only
			// receiver of the unregister channel, so routing them through
			// it would deadlock.
			if len(stale) > 0 {
				s.mu.Lock()
				for _, client := range stale {
					if _, ok := s.clients[client]; !ok {
						continue
					}
					delete(s.clients, client)
					client.mu.Lock()
					client.closed = true
					client.mu.Unlock()
					close(client.send)
				}
				count := len(s.clients)
				s.mu.Unlock()
				s.logger.Debug("Dropped slow clients",
					logger.Int("dropped", len(stale)),
					logger.Int("client_count", count))
			}
		}
	}
}

// Broadcast sends an event to every connected client
func (s *Server) Broadcast(messageType string, data map[string]any) {
	s.broadcast <- &Message{Type: messageType, Data: data}
}

// HandleWebSocket upgrades an HTTP request to a WebSocket connection
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", logger.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan *Message, 32),
		server: s,
	}
	s.register <- client

	go client.writePump()
	go client.readPump()
}

// writePump forwards broadcast messages to the client connection
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteJSON(message); err != nil {
			c.server.logger.Debug("Failed to write to client", logger.Error(err))
			return
		}
	}
}

// readPump drains the connection so pings and close frames are processed.
// Clients of this server are listeners only; incoming payloads are ignored.
func (c *Client) readPump() {
	defer func() {
		c.server.unregister <- c
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
