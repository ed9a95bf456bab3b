package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fizzy/internal/domain/user"
	"fizzy/internal/repository"
	"fizzy/internal/services"
	"fizzy/internal/transport/httpdto"
)

type PushHandler struct {
	subscriptions repository.PushSubscriptionRepository
}

func NewPushHandler(repos *repository.Repositories) *PushHandler {
	return &PushHandler{subscriptions: repos.PushSubscriptions}
}

func (h *PushHandler) Subscribe(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.CreatePushSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	sub := user.PushSubscription{
		ID:        uuid.New(),
		UserID:    u.ID,
		Endpoint:  req.Endpoint,
		P256DH:    req.P256DH,
		Auth:      req.Auth,
		CreatedAt: time.Now(),
	}
	if err := h.subscriptions.Create(c.Request.Context(), &sub); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.PushSubscriptionResponse{
		ID:        sub.ID.String(),
		Endpoint:  sub.Endpoint,
		CreatedAt: sub.CreatedAt.UTC().Format(time.RFC3339),
	}))
}

func (h *PushHandler) Unsubscribe(c *gin.Context) {
	if _, ok := services.CurrentUser(c.Request.Context()); !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	if err := h.subscriptions.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
