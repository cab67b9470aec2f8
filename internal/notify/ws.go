package notify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// AllUsers subscribes a connection to every user's notifications
const AllUsers = "*"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	readLimit  = 512
	bufferSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  bufferSize,
	WriteBufferSize: bufferSize,
	CheckOrigin: func(r *http.Request) bool {
		// gateways are authenticated by token, not origin
		return true
	},
}

// Connection wraps a websocket with the user it listens for
type Connection struct {
	conn     *websocket.Conn
	userKey  string
	writeMu  sync.Mutex
	lastSeen time.Time
}

func (c *Connection) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *Connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
}

// Manager relays notifications to connected chat gateways over websockets
type Manager struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{} // user id (or AllUsers) -> connections
}

func NewManager() *Manager {
	return &Manager{
		connections: make(map[string]map[*Connection]struct{}),
	}
}

// Add registers conn for userKey
func (m *Manager) Add(userKey string, conn *websocket.Conn) *Connection {
	c := &Connection{conn: conn, userKey: userKey, lastSeen: time.Now()}

	m.mu.Lock()
	if _, ok := m.connections[userKey]; !ok {
		m.connections[userKey] = make(map[*Connection]struct{})
	}
	m.connections[userKey][c] = struct{}{}
	total := len(m.connections[userKey])
	m.mu.Unlock()

	log.Info().Str("component", "ws_manager").Str("user_key", userKey).Int("total", total).Msg("gateway connected")
	return c
}

// Remove closes and forgets a connection
func (m *Manager) Remove(c *Connection) {
	m.mu.Lock()
	if conns, ok := m.connections[c.userKey]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(m.connections, c.userKey)
		}
	}
	m.mu.Unlock()

	_ = c.conn.Close()
	log.Info().Str("component", "ws_manager").Str("user_key", c.userKey).Msg("gateway disconnected")
}

// Count returns the number of open connections
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, conns := range m.connections {
		n += len(conns)
	}
	return n
}

func (m *Manager) targets(userID string) []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Connection
	for _, key := range []string{userID, AllUsers} {
		for c := range m.connections[key] {
			out = append(out, c)
		}
	}
	return out
}

// Notify writes n to every connection listening for its user. It fails with
// ErrNoSubscriber when no connection accepted the message.
func (m *Manager) Notify(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	delivered := 0
	for _, c := range m.targets(n.UserID) {
		if err := c.writeJSON(n); err != nil {
			log.Warn().Err(err).Str("component", "ws_manager").Str("user_key", c.userKey).Msg("failed websocket send")
			go m.Remove(c)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return fmt.Errorf("%w: user %s", ErrNoSubscriber, n.UserID)
	}
	return nil
}

// Heartbeat pings every connection each interval and drops the ones that
// stopped answering. It returns when ctx is done.
func (m *Manager) Heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.mu.RLock()
		var all []*Connection
		for _, conns := range m.connections {
			for c := range conns {
				all = append(all, c)
			}
		}
		m.mu.RUnlock()

		for _, c := range all {
			c.writeMu.Lock()
			stale := time.Since(c.lastSeen) > 2*interval
			c.writeMu.Unlock()
			if stale {
				go m.Remove(c)
				continue
			}
			if err := c.ping(); err != nil {
				go m.Remove(c)
			}
		}
	}
}

// CloseAll drops every connection, used on shutdown
func (m *Manager) CloseAll() {
	m.mu.RLock()
	var all []*Connection
	for _, conns := range m.connections {
		for c := range conns {
			all = append(all, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range all {
		m.Remove(c)
	}
}

// Serve upgrades the request and keeps the connection registered for
// userKey until the peer goes away.
func (m *Manager) Serve(w http.ResponseWriter, r *http.Request, userKey string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	c := m.Add(userKey, conn)
	defer m.Remove(c)

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		c.writeMu.Lock()
		c.lastSeen = time.Now()
		c.writeMu.Unlock()
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// Handler serves the notification stream. Gateways receive every user's
// notifications unless they narrow the stream with ?user_id=.
func (m *Manager) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userKey := c.DefaultQuery("user_id", AllUsers)
		if err := m.Serve(c.Writer, c.Request, userKey); err != nil {
			log.Warn().Err(err).Str("component", "ws_manager").Msg("websocket connection rejected")
		}
	}
}
