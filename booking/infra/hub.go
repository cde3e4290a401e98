package infra

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"opd-booking/booking/domain"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 64
)

// Hub distribui eventos de slot para clientes websocket inscritos em
// "médico/slot". Implementa domain.EventPublisher.
//
// Publish nunca bloqueia: se o buffer do hub estiver cheio o evento é
// descartado, e clientes lentos são desconectados.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan hubMessage
	done       chan struct{}

	upgrader websocket.Upgrader
}

type hubMessage struct {
	topic   string
	payload []byte
}

type wsClient struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	topic string
}

type HubOption func(*Hub)

// WithCheckOrigin troca a verificação de Origin do upgrade (padrão: aceita tudo).
func WithCheckOrigin(fn func(r *http.Request) bool) HubOption {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:    make(map[string]map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan hubMessage, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processa inscrições e difusões até ctx encerrar; então fecha todos os
// clientes.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for topic, set := range h.clients {
				for c := range set {
					close(c.send)
				}
				delete(h.clients, topic)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.topic] == nil {
				h.clients[c.topic] = make(map[*wsClient]struct{})
			}
			h.clients[c.topic][c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(c)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients[msg.topic] {
				select {
				case c.send <- msg.payload:
				default:
					h.removeLocked(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(c *wsClient) {
	set, ok := h.clients[c.topic]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.topic)
	}
}

// Publish implementa domain.EventPublisher.
func (h *Hub) Publish(ev domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("hub: encode event: %v", err)
		return
	}
	select {
	case h.broadcast <- hubMessage{topic: slotKey(ev.Doctor, ev.Slot), payload: payload}:
	default:
		log.Printf("hub: broadcast buffer full, dropping %s event for %s/%s", ev.Type, ev.Doctor, ev.Slot)
	}
}

// Subscribers retorna quantos clientes estão inscritos no slot.
func (h *Hub) Subscribers(doctor domain.DoctorID, slot domain.SlotID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[slotKey(doctor, slot)])
}

// ServeWS faz o upgrade da conexão e inscreve o cliente em doctor/slot.
// Bloqueia até o cliente desconectar.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, doctor domain.DoctorID, slot domain.SlotID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade já respondeu ao cliente.
		log.Printf("hub: upgrade %s/%s: %v", doctor, slot, err)
		return
	}

	c := &wsClient{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, wsSendBuffer),
		topic: slotKey(doctor, slot),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	c.readPump()
}

// readPump só acompanha o fechamento da conexão; mensagens do cliente são
// ignoradas.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
