package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fizzy/internal/services"
	"fizzy/internal/services/timeline"
	"fizzy/internal/transport/httpdto"
)

type TimelineHandler struct {
	projector *timeline.Projector
}

func NewTimelineHandler(projector *timeline.Projector) *TimelineHandler {
	return &TimelineHandler{projector: projector}
}

// Day serves GET /timeline?day=YYYY-MM-DD&actor_id=... Missing day
// defaults to today (UTC).
func (h *TimelineHandler) Day(c *gin.Context) {
	u, ok := services.CurrentUser(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	day := time.Now().UTC()
	if raw := c.Query("day"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid day", "INVALID_REQUEST"))
			return
		}
		day = parsed
	}

	filter := timeline.Filter{}
	if raw := c.Query("actor_id"); raw != "" {
		actorID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid actor_id", "INVALID_REQUEST"))
			return
		}
		filter.ActorID = uuid.NullUUID{UUID: actorID, Valid: true}
	}

	result, err := h.projector.EventsFor(c.Request.Context(), u.ID, day, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewTimelineResponse(result)))
}
