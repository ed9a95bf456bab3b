package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	fizzy_errors "fizzy/pkg/errors"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err  error
		want int
	}{
		{fizzy_errors.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("card %s: %w", uuid.New(), fizzy_errors.ErrNotFound), http.StatusNotFound},
		{fizzy_errors.ErrUnauthorized, http.StatusUnauthorized},
		{fizzy_errors.ErrForbidden, http.StatusForbidden},
		{fizzy_errors.ErrInvalidInput, http.StatusBadRequest},
		{fizzy_errors.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{fizzy_errors.ErrAccountCancelled, http.StatusUnprocessableEntity},
		{fizzy_errors.ErrConflict, http.StatusConflict},
		{fizzy_errors.ErrAlreadyExists, http.StatusConflict},
		{fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		respondError(c, tt.err)
		if rec.Code != tt.want {
			t.Errorf("respondError(%v) status = %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}

func TestParseUUIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	ids, err := parseUUIDs([]string{a.String(), b.String()})
	if err != nil {
		t.Fatalf("parseUUIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != a || ids[1] != b {
		t.Errorf("ids = %v", ids)
	}

	if _, err := parseUUIDs([]string{a.String(), "junk"}); err == nil {
		t.Error("expected error for malformed id")
	}

	ids, err = parseUUIDs(nil)
	if err != nil || len(ids) != 0 {
		t.Errorf("parseUUIDs(nil) = %v, %v", ids, err)
	}
}

func TestParseUUIDEmpty(t *testing.T) {
	if _, err := parseUUID(""); err == nil {
		t.Error("expected error for empty id")
	}
}
