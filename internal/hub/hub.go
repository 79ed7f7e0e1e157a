// Package hub provides connection management for call websockets.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection represents a single call websocket.
type Connection struct {
	ID      string
	CallSID string
	Conn    *websocket.Conn
	Send    chan []byte

	hub    *Hub
	mu     sync.Mutex
	wmu    sync.Mutex
	closed bool
}

// Hub tracks the open call websockets.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Calls maps call_sid to its connection ID
	calls map[string]string

	register   chan *Connection
	unregister chan *Connection
	done       chan struct{}

	logger *slog.Logger
	mu     sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		calls:       make(map[string]string),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run starts the hub's main loop. It returns when ctx is cancelled, closing
// every remaining connection's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			h.mu.Unlock()
			h.logger.Debug("connection registered", "conn_id", conn.ID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				if conn.CallSID != "" && h.calls[conn.CallSID] == conn.ID {
					delete(h.calls, conn.CallSID)
				}
				conn.close()
			}
			h.mu.Unlock()
			h.logger.Debug("connection unregistered", "conn_id", conn.ID, "call_sid", conn.CallSID)

		case <-ctx.Done():
			h.mu.Lock()
			for id, conn := range h.connections {
				conn.close()
				delete(h.connections, id)
			}
			h.calls = make(map[string]string)
			h.mu.Unlock()
			return
		}
	}
}

// NewConnection creates a new connection. It is not tracked until Register.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, 256),
		hub:  h,
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.close()
	}
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// BindCall binds a connection to the call it carries.
func (h *Hub) BindCall(conn *Connection, callSID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn.CallSID != "" && h.calls[conn.CallSID] == conn.ID {
		delete(h.calls, conn.CallSID)
	}
	conn.CallSID = callSID
	h.calls[callSID] = conn.ID
}

// ConnectionCount returns the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// CallCount returns the number of connections bound to a call.
func (h *Hub) CallCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.calls)
}

// HasCall reports whether a call currently has an open connection.
func (h *Hub) HasCall(callSID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.calls[callSID]
	return ok
}

// SendJSON queues a JSON frame for the connection's writer. It never blocks.
func (c *Connection) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the underlying websocket.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = &BufferFullError{}

// BufferFullError represents a buffer full error.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}

// ErrConnectionClosed is returned when sending on an unregistered connection.
var ErrConnectionClosed = &ConnectionClosedError{}

// ConnectionClosedError represents a send on a closed connection.
type ConnectionClosedError struct{}

func (e *ConnectionClosedError) Error() string {
	return "connection closed"
}
