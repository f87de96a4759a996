package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Client es una conexión websocket viva. Pasa por tres estados: sin anunciar
// (userID vacío), anunciada (registrada en presencia) y cerrada. userID solo
// lo escribe la goroutine de lectura de esta misma conexión.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Enqueue encola un payload sin bloquear. Devuelve false si el buffer de la
// conexión está lleno; el relay es a-lo-sumo-una-vez y descarta en ese caso.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// readPump consume señales entrantes hasta que el transporte falla o el peer
// cierra. Cualquier salida dispara la transición a cerrado: baja de presencia
// y difusión del nuevo snapshot.
func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		c.handleSignal(raw)
	}
}

// handleSignal procesa una señal entrante. Las señales malformadas o fuera de
// estado se descartan y la conexión sigue utilizable.
func (c *Client) handleSignal(raw []byte) {
	sig, err := decodeSignal(raw)
	if err != nil {
		c.hub.logger.Debug("dropping signal", zap.Error(err))
		return
	}

	switch sig.Type {
	case signalUserConnected:
		// Re-anunciar es legal: sobreescribe la entrada de presencia.
		c.userID = sig.UserID
		c.hub.announce(c, sig.UserID)
	case signalPrivateMessage:
		if c.userID == "" {
			c.hub.logger.Debug("dropping signal from unannounced connection", zap.String("type", sig.Type))
			return
		}
		from := sig.From
		if from == "" {
			from = c.userID
		}
		// Pista en vivo solamente; la escritura durable va por el API de
		// sincronización, nunca por esta señal.
		c.hub.Deliver(sig.To, hintEvent(sig.Message, from, sig.Sender))
	case signalTyping:
		if c.userID == "" {
			c.hub.logger.Debug("dropping signal from unannounced connection", zap.String("type", sig.Type))
			return
		}
		from := sig.From
		if from == "" {
			from = c.userID
		}
		c.hub.Deliver(sig.To, typingEvent(from))
	}
}

// writePump drena el canal de envío hacia el transporte y mantiene vivo el
// peer con pings. Corre en su propia goroutine; es el único escritor del
// websocket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
