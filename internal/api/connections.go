package api

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnManager tracks the live WebSocket connection for each chat session.
// A session has at most one connection; a newer one replaces the older.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewConnManager creates a new connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{active: make(map[string]*websocket.Conn)}
}

// lookup returns the active connection for a session.
func (m *ConnManager) lookup(sessionID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[sessionID]
}

// Register makes conn the session's connection, closing any previous one.
func (m *ConnManager) Register(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	existing, exists := m.active[sessionID]
	m.active[sessionID] = conn
	m.mu.Unlock()

	// Close blocks on the handshake, so it runs outside the lock.
	if exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}
	slog.Info("Chat socket registered", "session_id", sessionID)
}

// Unregister removes conn if it is still the session's connection.
func (m *ConnManager) Unregister(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, exists := m.active[sessionID]; exists && current == conn {
		delete(m.active, sessionID)
		slog.Info("Chat socket unregistered", "session_id", sessionID)
	}
}

// Len returns the number of live connections.
func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// CloseAll closes every connection, used on shutdown.
func (m *ConnManager) CloseAll(reason string) {
	m.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(m.active))
	for sid, conn := range m.active {
		conns = append(conns, conn)
		delete(m.active, sid)
	}
	m.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, reason)
	}
}
