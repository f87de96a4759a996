package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkup-chat/internal/service"
	"linkup-chat/internal/ws"
)

// MessageHandler mantiene dependencias para los endpoints de mensajería.
type MessageHandler struct {
	logger        *zap.Logger
	conversations *service.ConversationService
	hub           *ws.Hub
}

// NewMessageHandler crea una instancia de MessageHandler con sus dependencias.
func NewMessageHandler(logger *zap.Logger, conversations *service.ConversationService, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{
		logger:        logger,
		conversations: conversations,
		hub:           hub,
	}
}

// GetConversation maneja GET /messages/:userId.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	otherID := c.Param("userId")
	messages, err := h.conversations.History(c.Request.Context(), claims.UserID, otherID)
	if err != nil {
		if errors.Is(err, service.ErrConversationInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		h.logger.Error("fetch conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendMessage maneja POST /messages.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		ReceiverID string `json:"receiver_id" binding:"required"`
		Content    string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	msg, err := h.conversations.Send(c.Request.Context(), claims.UserID, req.ReceiverID, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrConversationInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		h.logger.Error("send message failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send message"})
		return
	}

	// Empuje en vivo tras confirmar la escritura durable. Mejor esfuerzo:
	// un receptor sin conexión lo recupera con el próximo fetch de historial.
	if h.hub != nil {
		h.hub.Deliver(msg.ReceiverID, ws.MessageEvent(msg))
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkMessageRead maneja PUT /messages/:messageId/read.
func (h *MessageHandler) MarkMessageRead(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	msg, err := h.conversations.MarkRead(c.Request.Context(), claims.UserID, c.Param("messageId"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		case errors.Is(err, service.ErrNotMessageReceiver):
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
		case errors.Is(err, service.ErrConversationInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		default:
			h.logger.Error("mark message read failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark message read"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}
