package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vkeyboard/internal/dispatch"
	"vkeyboard/internal/keys"
	"vkeyboard/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Access is controlled by the API token, not by origin
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	writeWait  = 10 * time.Second
)

// WSManager handles WebSocket connections and broadcasting
type WSManager struct {
	server    *Server
	clients   map[*WebSocketClient]bool
	clientsMu sync.RWMutex
	broadcast chan []byte
	shutdown  chan struct{}
	stopOnce  sync.Once
}

// WebSocketClient represents a connected client
type WebSocketClient struct {
	manager *WSManager
	conn    *websocket.Conn
	send    chan []byte
	ip      string
}

func newWSManager(s *Server) *WSManager {
	return &WSManager{
		server:    s,
		clients:   make(map[*WebSocketClient]bool),
		broadcast: make(chan []byte, 64),
		shutdown:  make(chan struct{}),
	}
}

func (m *WSManager) start() {
	for {
		select {
		case message := <-m.broadcast:
			m.broadcastMessage(message)

		case <-m.shutdown:
			m.clientsMu.Lock()
			for client := range m.clients {
				close(client.send)
				delete(m.clients, client)
			}
			m.clientsMu.Unlock()
			return
		}
	}
}

func (m *WSManager) stop() {
	m.stopOnce.Do(func() { close(m.shutdown) })
}

func (m *WSManager) register(c *WebSocketClient) {
	m.clientsMu.Lock()
	m.clients[c] = true
	n := len(m.clients)
	m.clientsMu.Unlock()
	log.Printf("WS: New client registered from %s. Total clients: %d", c.ip, n)
}

func (m *WSManager) unregister(c *WebSocketClient) {
	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()
	if _, ok := m.clients[c]; ok {
		delete(m.clients, c)
		close(c.send)
		log.Printf("WS: Client unregistered from %s. Total clients: %d", c.ip, len(m.clients))
	}
}

// ClientCount returns the number of connected clients
func (m *WSManager) ClientCount() int {
	m.clientsMu.RLock()
	defer m.clientsMu.RUnlock()
	return len(m.clients)
}

func (m *WSManager) broadcastMessage(message []byte) {
	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()

	for client := range m.clients {
		select {
		case client.send <- message:
		default:
			// Slow client, drop it
			close(client.send)
			delete(m.clients, client)
		}
	}
}

// sendTo queues a message for one client if it is still connected
func (m *WSManager) sendTo(c *WebSocketClient, message []byte) {
	m.clientsMu.RLock()
	defer m.clientsMu.RUnlock()

	if !m.clients[c] {
		return
	}
	select {
	case c.send <- message:
	default:
		log.Printf("WS: Send buffer full for %s, dropping reply", c.ip)
	}
}

// BroadcastKeyEvent announces a successful press to every client
func (m *WSManager) BroadcastKeyEvent(ev dispatch.Event, origin string) {
	payload := protocol.KeyEventPayload{
		Key:    ev.Key,
		Code:   uint16(ev.Code),
		Action: ev.Action.String(),
		Origin: origin,
	}
	if ev.Modifier != keys.NoModifier {
		payload.Modifier = ev.Modifier.String()
	}

	msg, err := protocol.NewMessage(protocol.TypeKeyEvent, "", payload)
	if err != nil {
		log.Printf("WS: Failed to build key event: %v", err)
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WS: Failed to marshal broadcast message: %v", err)
		return
	}

	select {
	case m.broadcast <- data:
	case <-m.shutdown:
	}
}

func (m *WSManager) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS: Failed to upgrade connection: %v", err)
		return
	}

	client := &WebSocketClient{
		manager: m,
		conn:    conn,
		send:    make(chan []byte, 256),
		ip:      r.RemoteAddr,
	}
	m.register(client)

	go client.writePump()
	go client.readPump()
}

// readPump reads requests from the connection. Presses from one client are
// handled in order, so a down followed by an up stays in sequence.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.manager.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS: Read error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *WebSocketClient) writePump() {
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
				// The hub closed the channel.
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

func (c *WebSocketClient) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("WS: Invalid message format: %v", err)
		c.reply("", dispatch.Result{Category: dispatch.MissingField, Err: err})
		return
	}

	switch msg.Type {
	case protocol.TypePress:
		var payload protocol.PressPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Printf("WS: Invalid press payload: %v", err)
			c.reply(msg.ID, dispatch.Result{Category: dispatch.MissingField, Err: err})
			return
		}

		log.Printf("WS: [%s] Press request for %q from %s", msg.ID, payload.Key, c.ip)
		res := c.manager.server.process(dispatch.Request{
			Key:      payload.Key,
			Modifier: payload.Modifier,
			Action:   payload.Action,
		}, "ws")
		c.reply(msg.ID, res)

	default:
		log.Printf("WS: Ignoring message of type %q from %s", msg.Type, c.ip)
	}
}

func (c *WebSocketClient) reply(id string, res dispatch.Result) {
	msg, err := protocol.NewMessage(protocol.TypeResult, id, resultBody(res))
	if err != nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.manager.sendTo(c, data)
}
