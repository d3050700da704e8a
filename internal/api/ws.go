package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonhee/argus/backend/internal/engine"
	"github.com/wonhee/argus/backend/pkg/logger"
)

const (
	// Timing
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Buffers
	clientSendBuffer = 32
	feedBuffer       = 64
)

// feedClient is one subscribed websocket connection.
type feedClient struct {
	feed *RunFeed
	conn *websocket.Conn
	send chan []byte
}

// RunFeed broadcasts run lifecycle events to websocket subscribers.
// ⭐ SSOT: 실행 이벤트 브로드캐스트는 이 허브에서만
//
// The feed implements engine.Notifier. Notify never blocks: when the
// broadcast buffer is full the event is dropped, subscribers are an
// observability surface and must not slow a run down.
type RunFeed struct {
	clients    map[*feedClient]bool
	broadcast  chan []byte
	register   chan *feedClient
	unregister chan *feedClient
	upgrader   websocket.Upgrader
	logger     *logger.Logger
}

// NewRunFeed creates a feed with initialised channels and client map.
func NewRunFeed(log *logger.Logger) *RunFeed {
	return &RunFeed{
		clients:    make(map[*feedClient]bool),
		broadcast:  make(chan []byte, feedBuffer),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API carries no credentials; all origins are accepted.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: log.WithComponent("run_feed"),
	}
}

// Run drives the feed's event loop until ctx is cancelled. It should be
// launched as a goroutine.
func (f *RunFeed) Run(ctx context.Context) {
	for {
		select {
		case client := <-f.register:
			f.clients[client] = true
			f.logger.WithField("clients", len(f.clients)).Debug("Feed client connected")

		case client := <-f.unregister:
			if _, ok := f.clients[client]; ok {
				delete(f.clients, client)
				close(client.send)
			}
			f.logger.WithField("clients", len(f.clients)).Debug("Feed client disconnected")

		case message := <-f.broadcast:
			for client := range f.clients {
				select {
				case client.send <- message:
				default:
					// A subscriber that cannot keep up is dropped.
					close(client.send)
					delete(f.clients, client)
				}
			}

		case <-ctx.Done():
			for client := range f.clients {
				close(client.send)
				delete(f.clients, client)
			}
			return
		}
	}
}

// Notify queues one engine event for broadcast. Implements
// engine.Notifier.
func (f *RunFeed) Notify(ev engine.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		f.logger.WithError(err).Warn("Failed to encode run event")
		return
	}
	select {
	case f.broadcast <- payload:
	default:
		f.logger.WithField("type", ev.Type).Debug("Run event dropped, feed buffer full")
	}
}

// ServeWS upgrades an HTTP connection and registers it with the feed.
// GET /api/runs/live
func (f *RunFeed) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := &feedClient{feed: f, conn: conn, send: make(chan []byte, clientSendBuffer)}
	f.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump discards inbound frames and watches for disconnect. The feed
// is one-way; clients only listen.
func (c *feedClient) readPump() {
	defer func() {
		c.feed.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the send channel to the connection and keeps it
// alive with pings.
func (c *feedClient) writePump() {
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
