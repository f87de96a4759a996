package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"linkup-chat/internal/presence"
)

// Hub coordina las conexiones vivas del relay. El registro de presencia
// resuelve identidad→conexión; el hub además conoce todas las conexiones
// (anunciadas o no) para difundir cambios de presencia.
type Hub struct {
	logger   *zap.Logger
	registry *presence.Registry
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]bool
}

// NewHub crea el hub. allowedOrigin restringe el handshake websocket; vacío
// acepta cualquier origen.
func NewHub(logger *zap.Logger, registry *presence.Registry, allowedOrigin string) *Hub {
	return &Hub{
		logger:   logger,
		registry: registry,
		clients:  make(map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// ServeWS actualiza la petición HTTP a websocket y arranca los pumps de la
// conexión. La identidad se vincula después, con la señal user_connected.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h, conn)
	h.addClient(client)

	go client.writePump()
	go client.readPump()
}

// Online devuelve el snapshot de usuarios en línea.
func (h *Hub) Online() []string {
	return h.registry.Online()
}

// Deliver serializa el evento y lo encola en la conexión viva del receptor.
// Mejor esfuerzo: sin receptor registrado, o con su buffer lleno, el evento
// se descarta sin error.
func (h *Hub) Deliver(to string, ev any) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event failed", zap.Error(err))
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.registry.Lookup(to)
	if !ok {
		return false
	}
	client, ok := conn.(*Client)
	if !ok || !h.clients[client] {
		return false
	}
	if !client.Enqueue(payload) {
		h.logger.Warn("send buffer full, dropping event", zap.String("to", to))
		return false
	}
	return true
}

// announce registra la conexión bajo userID y difunde el nuevo snapshot de
// presencia a todas las conexiones.
func (h *Hub) announce(c *Client, userID string) {
	online := h.registry.Register(userID, c)
	h.logger.Info("user online", zap.String("user_id", userID))

	h.mu.Lock()
	h.broadcastLocked(statusEvent(online))
	h.mu.Unlock()
}

// addClient incorpora una conexión recién aceptada, todavía sin anunciar.
func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

// removeClient ejecuta la transición a cerrado: baja del registro de
// presencia, retiro del hub y cierre del canal de envío. Es idempotente y
// difunde el snapshot solo si la tabla de presencia cambió.
func (h *Hub) removeClient(c *Client) {
	userID, online, changed := h.registry.Unregister(c)

	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	if changed {
		h.broadcastLocked(statusEvent(online))
	}
	h.mu.Unlock()

	if changed {
		h.logger.Info("user offline", zap.String("user_id", userID))
	}
}

// broadcastLocked encola el evento en todas las conexiones. El caller debe
// sostener h.mu; el encolado nunca bloquea.
func (h *Hub) broadcastLocked(ev any) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event failed", zap.Error(err))
		return
	}
	for client := range h.clients {
		if !client.Enqueue(payload) {
			h.logger.Warn("send buffer full, dropping broadcast")
		}
	}
}
