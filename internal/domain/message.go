package domain

import "time"

// Message es un mensaje directo entre dos usuarios. La conversación se
// identifica por el par no ordenado {SenderID, ReceiverID}.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}
