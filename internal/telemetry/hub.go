// Package telemetry implements the websocket uplink that pushes
// heartbeat/signal/trade summaries outward and carries control
// commands inward, plus the dispatcher that routes those commands to
// the running orchestrator's mutators. Grounded on the teacher's
// internal/api/websocket.go Hub/Client pattern, generalized from a
// channel-subscription pub/sub into a single control-and-telemetry
// uplink per §4.8.
package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 16
)

// Upgrader upgrades an inbound HTTP request to the telemetry websocket
// connection; callers pass the resulting *websocket.Conn to
// Hub.ServeClient.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one connected telemetry peer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans outbound telemetry to every connected client and routes
// inbound control commands to the Dispatcher.
type Hub struct {
	log        *zap.Logger
	dispatcher *Dispatcher

	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub returns a Hub that dispatches inbound commands to d.
func NewHub(log *zap.Logger, d *Dispatcher) *Hub {
	return &Hub{
		log:        log.Named("telemetry.hub"),
		dispatcher: d,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run drives the hub's register/unregister/broadcast loop until stop
// is closed.
func (h *Hub) Run(stop <-chan struct{}) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug("telemetry client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Debug("telemetry client disconnected")

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()

		case <-stop:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Publish encodes and broadcasts msg to every connected client.
func (h *Hub) Publish(msg Message) {
	msg.TimestampMS = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal telemetry message", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("telemetry broadcast channel full, dropping message")
	}
}

// PublishHeartbeat is a convenience wrapper around Publish for the
// periodic heartbeat tick.
func (h *Hub) PublishHeartbeat(p HeartbeatPayload) {
	data, _ := json.Marshal(p)
	h.Publish(Message{Type: MsgHeartbeat, Data: data})
}

// ServeClient registers an already-upgraded websocket conn with the
// hub; it blocks, running the read and write pumps, until the
// connection closes. Registration needs Run to be running.
func (h *Hub) ServeClient(conn *websocket.Conn) {
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 64)}
	h.register <- client

	done := make(chan struct{})
	go func() {
		client.writePump()
		close(done)
	}()
	client.readPump(h.dispatcher)
	h.unregister <- client
	<-done
}

func (c *Client) readPump(d *Dispatcher) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type != MsgCommand || d == nil {
			continue
		}
		result := d.Dispatch(msg)
		data, _ := json.Marshal(result)
		c.hub.Publish(Message{Type: MsgCommandResult, CorrelationID: msg.CorrelationID, Data: data})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
