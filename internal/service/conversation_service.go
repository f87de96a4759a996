package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"linkup-chat/internal/domain"
	"linkup-chat/internal/repository"
)

// ConversationService encapsula el camino durable de los mensajes directos:
// envío, historial por par de usuarios y marcado de lectura autorizado.
type ConversationService struct {
	repo repository.MessageRepository
}

var (
	ErrConversationNotConfigured = errors.New("conversation service not configured")
	ErrConversationInvalidInput  = errors.New("conversation invalid input")
	ErrMessageNotFound           = errors.New("message not found")
	ErrNotMessageReceiver        = errors.New("requester is not the message receiver")
)

func NewConversationService(repo repository.MessageRepository) *ConversationService {
	return &ConversationService{repo: repo}
}

// Send persiste un mensaje nuevo con id y timestamp asignados por el
// servidor. La entrega en vivo es un efecto separado que dispara el caller
// después de que esta escritura confirma.
func (s *ConversationService) Send(ctx context.Context, senderID, receiverID, content string) (domain.Message, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, ErrConversationNotConfigured
	}

	senderID = strings.TrimSpace(senderID)
	receiverID = strings.TrimSpace(receiverID)
	if senderID == "" || receiverID == "" || strings.TrimSpace(content) == "" {
		return domain.Message{}, ErrConversationInvalidInput
	}

	msg := domain.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Read:       false,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return domain.Message{}, fmt.Errorf("persist message: %w", err)
	}
	return msg, nil
}

// History devuelve la conversación del par no ordenado {requesterID,
// otherID}, ascendente por fecha de creación.
func (s *ConversationService) History(ctx context.Context, requesterID, otherID string) ([]domain.Message, error) {
	if s == nil || s.repo == nil {
		return nil, ErrConversationNotConfigured
	}

	requesterID = strings.TrimSpace(requesterID)
	otherID = strings.TrimSpace(otherID)
	if requesterID == "" || otherID == "" {
		return nil, ErrConversationInvalidInput
	}

	messages, err := s.repo.ListConversation(ctx, requesterID, otherID)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// MarkRead marca un mensaje como leído. Solo el receptor puede hacerlo, y
// repetir la operación sobre un mensaje ya leído es un éxito sin efecto.
func (s *ConversationService) MarkRead(ctx context.Context, requesterID, messageID string) (domain.Message, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, ErrConversationNotConfigured
	}

	requesterID = strings.TrimSpace(requesterID)
	messageID = strings.TrimSpace(messageID)
	if requesterID == "" || messageID == "" {
		return domain.Message{}, ErrConversationInvalidInput
	}

	msg, err := s.repo.GetByID(ctx, messageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("get message: %w", err)
	}
	if msg.ReceiverID != requesterID {
		return domain.Message{}, ErrNotMessageReceiver
	}
	if msg.Read {
		return msg, nil
	}

	updated, err := s.repo.MarkRead(ctx, messageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("mark read: %w", err)
	}
	return updated, nil
}
