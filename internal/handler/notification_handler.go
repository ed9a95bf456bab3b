package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fizzy/internal/repository"
	"fizzy/internal/services"
	"fizzy/internal/transport/httpdto"
)

type NotificationHandler struct {
	notifications repository.NotificationRepository
}

func NewNotificationHandler(repos *repository.Repositories) *NotificationHandler {
	return &NotificationHandler{notifications: repos.Notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	unreadOnly := c.Query("unread") == "true"
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid limit", "INVALID_REQUEST"))
			return
		}
		limit = parsed
	}

	list, err := h.notifications.ListForUser(c.Request.Context(), u.ID, unreadOnly, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]httpdto.NotificationResponse, 0, len(list))
	for _, n := range list {
		resp = append(resp, httpdto.NewNotificationResponse(n))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), id, u.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if err := h.notifications.MarkAllRead(c.Request.Context(), u.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
