package middleware

import (
	"errors"
	"net/http"

	"fizzy/internal/transport/httpdto"
	fizzy_errors "fizzy/pkg/errors"
	"fizzy/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler maps domain sentinel errors pushed onto the gin context to
// HTTP statuses. Anything unrecognized is a 500 with a generic body.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.ErrorCtx(c.Request.Context(), "request error", zap.Error(err))
		}

		status, code := classify(err)
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, fizzy_errors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, fizzy_errors.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, fizzy_errors.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, fizzy_errors.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, fizzy_errors.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, "INVALID_TRANSITION"
	case errors.Is(err, fizzy_errors.ErrAccountCancelled):
		return http.StatusUnprocessableEntity, "ACCOUNT_CANCELLED"
	case errors.Is(err, fizzy_errors.ErrConflict), errors.Is(err, fizzy_errors.ErrAlreadyExists):
		return http.StatusConflict, "CONFLICT"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
