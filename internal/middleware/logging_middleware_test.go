package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"fizzy/pkg/logger"
)

var errDummy = errors.New("synthetic failure")

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return &logger.Logger{Logger: zap.New(core)}, logs
}

func TestLoggingMiddlewareCarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, logs := observedLogger()

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(l))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-42" {
		t.Errorf("request_id field = %v, want req-42", fields["request_id"])
	}
	if fields["method"] != "GET" || fields["path"] != "/ping" {
		t.Errorf("fields = %v", fields)
	}
	if status, ok := fields["status"].(int64); !ok || status != http.StatusOK {
		t.Errorf("status field = %v", fields["status"])
	}
}

func TestLoggingMiddlewareGeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, logs := observedLogger()

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(l))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if got := rec.Header().Get("X-Request-Id"); got == "" {
		t.Error("no request id issued to the client")
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if id, _ := entries[0].ContextMap()["request_id"].(string); id == "" {
		t.Error("generated request id missing from the log entry")
	}
}

func TestErrorHandlerLogsWithContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, logs := observedLogger()

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(ErrorHandler(l))
	r.GET("/boom", func(c *gin.Context) {
		c.Error(errDummy)
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-Id", "req-boom")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if entries[0].ContextMap()["request_id"] != "req-boom" {
		t.Errorf("request_id field = %v", entries[0].ContextMap()["request_id"])
	}
}
