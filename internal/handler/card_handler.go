package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fizzy/internal/services"
	"fizzy/internal/transport/httpdto"
)

// CardHandler exposes the state transitions that feed the event
// pipeline. Each route records an event as a side effect; the response
// echoes it so clients can correlate.
type CardHandler struct {
	ops *services.CardOperations
}

func NewCardHandler(ops *services.CardOperations) *CardHandler {
	return &CardHandler{ops: ops}
}

func (h *CardHandler) Publish(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	cardID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.PublishCardRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	mentioned, err := parseUUIDs(req.MentionedUserIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid mentioned_user_ids", "INVALID_REQUEST"))
		return
	}

	e, err := h.ops.Publish(c.Request.Context(), cardID, u, mentioned)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewEventResponse(e)))
}

func (h *CardHandler) Close(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	cardID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	e, err := h.ops.Close(c.Request.Context(), cardID, u)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewEventResponse(e)))
}

func (h *CardHandler) Reopen(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	cardID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	e, err := h.ops.Reopen(c.Request.Context(), cardID, u)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewEventResponse(e)))
}

func (h *CardHandler) Move(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	cardID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.MoveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	e, err := h.ops.Move(c.Request.Context(), cardID, u, req.ToColumn)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewEventResponse(e)))
}

func (h *CardHandler) Assign(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	cardID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.AssignCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	ids, err := parseUUIDs(req.UserIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid user_ids", "INVALID_REQUEST"))
		return
	}

	e, err := h.ops.Assign(c.Request.Context(), cardID, u, ids)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewEventResponse(e)))
}

func (h *CardHandler) Unassign(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	cardID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.AssignCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	ids, err := parseUUIDs(req.UserIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid user_ids", "INVALID_REQUEST"))
		return
	}

	e, err := h.ops.Unassign(c.Request.Context(), cardID, u, ids)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewEventResponse(e)))
}

func (h *CardHandler) Rename(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	cardID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.RenameCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	e, err := h.ops.Rename(c.Request.Context(), cardID, u, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewEventResponse(e)))
}

func (h *CardHandler) UpdateDescription(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	cardID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.UpdateDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	e, err := h.ops.UpdateDescription(c.Request.Context(), cardID, u, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewEventResponse(e)))
}

func (h *CardHandler) AddComment(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	cardID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	mentioned, err := parseUUIDs(req.MentionedUserIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid mentioned_user_ids", "INVALID_REQUEST"))
		return
	}

	cm, _, err := h.ops.AddComment(c.Request.Context(), cardID, u, req.Body, mentioned)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.CommentResponse{
		ID:        cm.ID.String(),
		CardID:    cm.CardID.String(),
		AuthorID:  cm.AuthorID.String(),
		Body:      cm.Body,
		CreatedAt: cm.CreatedAt.UTC().Format(time.RFC3339),
	}))
}
