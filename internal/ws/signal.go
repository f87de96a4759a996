package ws

import (
	"encoding/json"
	"errors"
	"strings"

	"linkup-chat/internal/domain"
)

// Señales entrantes soportadas por el relay.
const (
	signalUserConnected  = "user_connected"
	signalPrivateMessage = "private_message"
	signalTyping         = "typing"
)

// Eventos salientes hacia los clientes.
const (
	eventReceiveMessage   = "receive_message"
	eventUserTyping       = "user_typing"
	eventUserStatusChange = "user_status_change"
)

var (
	errSignalMalformed = errors.New("signal malformed")
	errSignalUnknown   = errors.New("signal unknown")
)

// signal es el sobre de una señal entrante. Cada variante usa un subconjunto
// de los campos; decodeSignal valida los requeridos por tipo.
type signal struct {
	Type    string          `json:"type"`
	UserID  string          `json:"user_id"`
	To      string          `json:"to"`
	From    string          `json:"from"`
	Message string          `json:"message"`
	Sender  json.RawMessage `json:"sender"`
}

// decodeSignal parsea y valida una señal entrante. Las señales malformadas o
// de tipo desconocido se reportan como error y el caller las descarta sin
// cerrar la conexión.
func decodeSignal(raw []byte) (signal, error) {
	var s signal
	if err := json.Unmarshal(raw, &s); err != nil {
		return signal{}, errSignalMalformed
	}

	s.Type = strings.TrimSpace(s.Type)
	s.UserID = strings.TrimSpace(s.UserID)
	s.To = strings.TrimSpace(s.To)
	s.From = strings.TrimSpace(s.From)

	switch s.Type {
	case signalUserConnected:
		if s.UserID == "" {
			return signal{}, errSignalMalformed
		}
	case signalPrivateMessage:
		if s.To == "" || s.Message == "" {
			return signal{}, errSignalMalformed
		}
	case signalTyping:
		if s.To == "" {
			return signal{}, errSignalMalformed
		}
	default:
		return signal{}, errSignalUnknown
	}

	return s, nil
}

// messageEvent es el payload de receive_message. Message lleva el mensaje
// persistido cuando lo empuja el API de envío, o el texto plano cuando viene
// de la señal en vivo de otro cliente.
type messageEvent struct {
	Type    string          `json:"type"`
	Message any             `json:"message"`
	From    string          `json:"from"`
	Sender  json.RawMessage `json:"sender,omitempty"`
}

type userTypingEvent struct {
	Type string `json:"type"`
	From string `json:"from"`
}

type statusChangeEvent struct {
	Type   string   `json:"type"`
	Online []string `json:"online"`
}

// MessageEvent construye el evento receive_message para un mensaje ya
// persistido. Es el payload que empuja el API de envío tras escribir en el
// store.
func MessageEvent(msg domain.Message) any {
	return messageEvent{
		Type:    eventReceiveMessage,
		Message: msg,
		From:    msg.SenderID,
	}
}

func hintEvent(content, from string, sender json.RawMessage) messageEvent {
	return messageEvent{
		Type:    eventReceiveMessage,
		Message: content,
		From:    from,
		Sender:  sender,
	}
}

func typingEvent(from string) userTypingEvent {
	return userTypingEvent{Type: eventUserTyping, From: from}
}

func statusEvent(online []string) statusChangeEvent {
	if online == nil {
		online = []string{}
	}
	return statusChangeEvent{Type: eventUserStatusChange, Online: online}
}
