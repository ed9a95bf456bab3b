package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fizzy/internal/repository"
	"fizzy/internal/services"
	"fizzy/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades live feed connections.
type WebSocketHandler struct {
	hub           *Hub
	authService   *services.AuthService
	notifications repository.NotificationRepository
	log           *logger.Logger
}

func NewWebSocketHandler(hub *Hub, authService *services.AuthService, notifications repository.NotificationRepository, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		authService:   authService,
		notifications: notifications,
		log:           log,
	}
}

// Handle upgrades HTTP to WebSocket
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := h.extractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := h.authService.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	u, err := h.authService.ResolveUser(c.Request.Context(), claims)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorf("websocket upgrade failed for %s: %v", u.ID, err)
		return
	}

	clientID := uuid.New().String()
	client := NewClient(h.hub, conn, u.ID, clientID, h.notifications, h.log)

	h.hub.register <- client
}

func (h *WebSocketHandler) extractToken(c *gin.Context) string {
	token := c.Query("token")
	if token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	return ""
}
