package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkup-chat/internal/service"
	"linkup-chat/internal/ws"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	messageH *MessageHandler,
	jwtSvc *service.JWTService,
	hub *ws.Hub,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging y recovery.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	messages := r.Group("/messages", JWTAuthMiddleware(jwtSvc), jsonContentTypeMiddleware())
	messages.GET("/:userId", messageH.GetConversation)
	messages.POST("", messageH.SendMessage)
	messages.PUT("/:messageId/read", messageH.MarkMessageRead)

	// La conexión viva no exige token en el handshake: la identidad se
	// vincula después, con la señal user_connected.
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
