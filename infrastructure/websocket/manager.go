package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"smart-gallery/pkg/logger"
)

// Event types pushed to connected admin clients.
const (
	EventEnrichmentUpdated = "enrichment.updated"
	EventImportProgress    = "import.progress"
	EventPong              = "pong"
)

// AdminRoom is the room every authenticated admin connection joins.
const AdminRoom = "admins"

const sendBuffer = 32

type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Conn is the part of a websocket connection the manager writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type client struct {
	conn   Conn
	userID uuid.UUID
	roomID string
	send   chan []byte
}

type ConnectionManager struct {
	mu      sync.RWMutex
	clients map[Conn]*client
}

// Manager is the process-wide connection registry.
var Manager = NewConnectionManager()

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{clients: make(map[Conn]*client)}
}

func (m *ConnectionManager) RegisterClient(conn Conn, userID uuid.UUID, roomID string) {
	c := &client{conn: conn, userID: userID, roomID: roomID, send: make(chan []byte, sendBuffer)}

	m.mu.Lock()
	m.clients[conn] = c
	total := len(m.clients)
	m.mu.Unlock()

	go m.writeLoop(c)

	logger.WebSocket("client_registered", "Client registered", map[string]interface{}{
		"user_id": userID.String(),
		"room_id": roomID,
		"clients": total,
	})
}

func (m *ConnectionManager) UnregisterClient(conn Conn) {
	m.mu.Lock()
	c, ok := m.clients[conn]
	if ok {
		delete(m.clients, conn)
		close(c.send)
	}
	m.mu.Unlock()

	if ok {
		logger.WebSocket("client_unregistered", "Client unregistered", map[string]interface{}{
			"user_id": c.userID.String(),
		})
	}
}

func (m *ConnectionManager) writeLoop(c *client) {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.WebSocketError("write_failed", "Failed to write to client", err, map[string]interface{}{
				"user_id": c.userID.String(),
			})
			c.conn.Close()
			go m.UnregisterClient(c.conn)
			for range c.send {
			}
			return
		}
	}
}

// Broadcast sends an event to every connected client.
func (m *ConnectionManager) Broadcast(eventType string, data interface{}) {
	m.broadcast(eventType, data, func(*client) bool { return true })
}

func (m *ConnectionManager) BroadcastToRoom(roomID, eventType string, data interface{}) {
	m.broadcast(eventType, data, func(c *client) bool { return c.roomID == roomID })
}

// Room is a broadcaster scoped to one room.
type Room struct {
	m  *ConnectionManager
	id string
}

func (m *ConnectionManager) Room(roomID string) Room {
	return Room{m: m, id: roomID}
}

func (r Room) Broadcast(eventType string, data interface{}) {
	r.m.BroadcastToRoom(r.id, eventType, data)
}

func (m *ConnectionManager) BroadcastToUser(userID uuid.UUID, eventType string, data interface{}) {
	m.broadcast(eventType, data, func(c *client) bool { return c.userID == userID })
}

func (m *ConnectionManager) broadcast(eventType string, data interface{}, match func(*client) bool) {
	payload, err := json.Marshal(Message{Type: eventType, Data: data, Timestamp: time.Now()})
	if err != nil {
		logger.WebSocketError("marshal_failed", "Failed to marshal event", err, map[string]interface{}{"type": eventType})
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			logger.Warn(logger.CategoryWebSocket, "send_dropped", "Client send buffer full, dropping event", map[string]interface{}{
				"user_id": c.userID.String(),
				"type":    eventType,
			})
		}
	}
}

func (m *ConnectionManager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// HandleWebSocketMessage answers client pings; other client messages are ignored.
func (m *ConnectionManager) HandleWebSocketMessage(conn Conn, messageType int, message []byte) {
	if messageType != websocket.TextMessage {
		return
	}

	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "ping" {
		return
	}

	payload, _ := json.Marshal(Message{Type: EventPong, Timestamp: time.Now()})

	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[conn]
	if !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
