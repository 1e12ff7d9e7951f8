package live

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"tourbooking/internal/pkg/logger"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// conn is one dashboard. Only its writePump writes to ws.
type conn struct {
	ws      *websocket.Conn
	adminID int64
	send    chan []byte
}

// Hub fans booking events out to the connected admin dashboards. Publishing
// only enqueues, so a slow dashboard never holds up the request that
// produced the event.
type Hub struct {
	connections map[string]*conn
	mutex       sync.RWMutex
	log         logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		connections: make(map[string]*conn),
		log:         logger.OrDiscard(log).WithField("component", "live"),
	}
}

// Register starts the connection's writer and returns its id.
func (h *Hub) Register(adminID int64, ws *websocket.Conn) string {
	id := uuid.NewString()
	c := &conn{ws: ws, adminID: adminID, send: make(chan []byte, sendBuffer)}
	h.mutex.Lock()
	h.connections[id] = c
	h.mutex.Unlock()

	go h.writePump(id, c)
	return id
}

// Unregister stops the writer; it closes the socket on its way out.
func (h *Hub) Unregister(id string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if c, ok := h.connections[id]; ok {
		delete(h.connections, id)
		close(c.send)
	}
}

// Publish queues ev for every connection. Connections with a full queue miss it.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).WithField("type", ev.Type).Warn("encoding live event failed")
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for _, c := range h.connections {
		select {
		case c.send <- data:
		default:
			h.log.WithField("admin_id", c.adminID).WithField("type", ev.Type).Debug("live connection too slow, event skipped")
		}
	}
}

func (h *Hub) send(id string, v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	c, ok := h.connections[id]
	if !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) writePump(id string, c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.WithError(err).WithField("admin_id", c.adminID).Debug("dropping live connection")
				h.Unregister(id)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Unregister(id)
				return
			}
		}
	}
}

func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.connections)
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for id, c := range h.connections {
		delete(h.connections, id)
		close(c.send)
	}
}
