package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fizzy/internal/domain/webhook"
	"fizzy/internal/repository"
	"fizzy/internal/transport/httpdto"
	fizzy_errors "fizzy/pkg/errors"
)

type WebhookHandler struct {
	webhooks   repository.WebhookRepository
	deliveries repository.DeliveryRepository
	boards     repository.BoardRepository
	accounts   repository.AccountRepository
}

func NewWebhookHandler(repos *repository.Repositories) *WebhookHandler {
	return &WebhookHandler{
		webhooks:   repos.Webhooks,
		deliveries: repos.Deliveries,
		boards:     repos.Boards,
		accounts:   repos.Accounts,
	}
}

func (h *WebhookHandler) Create(c *gin.Context) {
	boardID, err := parseUUID(c.Param("board_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid board_id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	format, ok := parseFormat(req.Format)
	if !ok {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid format", "INVALID_REQUEST"))
		return
	}

	board, err := h.boards.GetByID(c.Request.Context(), boardID)
	if err != nil {
		respondError(c, err)
		return
	}

	// Cancelled tenants never dispatch, so a new webhook would be a trap.
	acct, err := h.accounts.GetByID(c.Request.Context(), board.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}
	if acct.Cancelled() {
		respondError(c, fizzy_errors.ErrAccountCancelled)
		return
	}

	now := time.Now()
	w := webhook.Webhook{
		ID:        uuid.New(),
		AccountID: board.AccountID,
		BoardID:   board.ID,
		URL:       req.URL,
		Secret:    req.Secret,
		Actions:   req.Actions,
		Format:    format,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.webhooks.Create(c.Request.Context(), &w); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewWebhookResponse(w)))
}

func (h *WebhookHandler) List(c *gin.Context) {
	boardID, err := parseUUID(c.Param("board_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid board_id", "INVALID_REQUEST"))
		return
	}

	hooks, err := h.webhooks.ListForBoard(c.Request.Context(), boardID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]httpdto.WebhookResponse, 0, len(hooks))
	for _, w := range hooks {
		resp = append(resp, httpdto.NewWebhookResponse(w))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

func (h *WebhookHandler) Get(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	w, err := h.webhooks.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewWebhookResponse(w)))
}

func (h *WebhookHandler) Update(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	w, err := h.webhooks.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.URL != nil {
		w.URL = *req.URL
	}
	if req.Secret != nil {
		w.Secret = *req.Secret
	}
	if len(req.Actions) > 0 {
		w.Actions = req.Actions
	}
	if req.Format != nil {
		format, ok := parseFormat(*req.Format)
		if !ok {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid format", "INVALID_REQUEST"))
			return
		}
		w.Format = format
	}
	w.UpdatedAt = time.Now()

	if err := h.webhooks.Update(c.Request.Context(), w); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewWebhookResponse(w)))
}

func (h *WebhookHandler) Delete(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	if err := h.webhooks.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reactivate turns a deactivated webhook back on. The failure streak was
// already reset when delinquency deactivated it, so deliveries resume
// with a clean slate.
func (h *WebhookHandler) Reactivate(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	if err := h.webhooks.SetActive(c.Request.Context(), id, true); err != nil {
		respondError(c, err)
		return
	}

	w, err := h.webhooks.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewWebhookResponse(w)))
}

func (h *WebhookHandler) Deliveries(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid limit", "INVALID_REQUEST"))
			return
		}
		limit = parsed
	}

	records, err := h.deliveries.ListForWebhook(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]httpdto.DeliveryResponse, 0, len(records))
	for _, d := range records {
		resp = append(resp, httpdto.NewDeliveryResponse(d))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

func parseFormat(raw string) (webhook.PayloadFormat, bool) {
	switch webhook.PayloadFormat(raw) {
	case webhook.FormatJSON, webhook.FormatSlack, webhook.FormatCampfire:
		return webhook.PayloadFormat(raw), true
	case "":
		return webhook.FormatJSON, true
	}
	return "", false
}
