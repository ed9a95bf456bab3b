package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fizzy/internal/domain/user"
	"fizzy/internal/repository"
)

type fakePushSubscriptionRepo struct {
	created []user.PushSubscription
	deleted []uuid.UUID
}

func (r *fakePushSubscriptionRepo) Create(_ context.Context, s *user.PushSubscription) error {
	r.created = append(r.created, *s)
	return nil
}

func (r *fakePushSubscriptionRepo) ListForUser(context.Context, uuid.UUID) ([]user.PushSubscription, error) {
	return nil, nil
}

func (r *fakePushSubscriptionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	return nil
}

type pushHandlerFixture struct {
	router *gin.Engine
	repo   *fakePushSubscriptionRepo
	user   user.User
}

func newPushHandlerFixture(t *testing.T, authed bool) *pushHandlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &pushHandlerFixture{
		repo: &fakePushSubscriptionRepo{},
		user: user.User{ID: uuid.New(), AccountID: uuid.New(), DisplayName: "Ada", Kind: user.KindPerson, Active: true},
	}
	h := NewPushHandler(&repository.Repositories{PushSubscriptions: f.repo})

	f.router = gin.New()
	if authed {
		f.router.Use(asUser(f.user))
	}
	f.router.POST("/push_subscriptions", h.Subscribe)
	f.router.DELETE("/push_subscriptions/:id", h.Unsubscribe)
	return f
}

func TestPushSubscribe(t *testing.T) {
	f := newPushHandlerFixture(t, true)
	body := `{"endpoint":"https://push.example.com/sub/abc","p256dh":"key-material","auth":"auth-secret"}`

	req := httptest.NewRequest(http.MethodPost, "/push_subscriptions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(f.repo.created) != 1 {
		t.Fatalf("created %d subscriptions", len(f.repo.created))
	}
	sub := f.repo.created[0]
	if sub.UserID != f.user.ID {
		t.Errorf("subscription user = %s, want current user", sub.UserID)
	}
	if sub.Endpoint != "https://push.example.com/sub/abc" || sub.P256DH != "key-material" || sub.Auth != "auth-secret" {
		t.Errorf("subscription = %+v", sub)
	}

	var envelope struct {
		Data struct {
			ID       string `json:"id"`
			Endpoint string `json:"endpoint"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.ID != sub.ID.String() {
		t.Errorf("response id = %s, want %s", envelope.Data.ID, sub.ID)
	}
}

func TestPushSubscribeValidation(t *testing.T) {
	f := newPushHandlerFixture(t, true)
	for name, body := range map[string]string{
		"missing endpoint": `{"p256dh":"k","auth":"a"}`,
		"bad endpoint":     `{"endpoint":"not a url","p256dh":"k","auth":"a"}`,
		"missing keys":     `{"endpoint":"https://push.example.com/x"}`,
		"not json":         `endpoint=x`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/push_subscriptions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
	if len(f.repo.created) != 0 {
		t.Errorf("invalid requests created %d subscriptions", len(f.repo.created))
	}
}

func TestPushSubscribeRequiresAuth(t *testing.T) {
	f := newPushHandlerFixture(t, false)
	req := httptest.NewRequest(http.MethodPost, "/push_subscriptions", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestPushUnsubscribe(t *testing.T) {
	f := newPushHandlerFixture(t, true)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodDelete, "/push_subscriptions/"+id.String(), nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(f.repo.deleted) != 1 || f.repo.deleted[0] != id {
		t.Errorf("deleted = %v", f.repo.deleted)
	}
}

func TestPushUnsubscribeInvalidID(t *testing.T) {
	f := newPushHandlerFixture(t, true)
	req := httptest.NewRequest(http.MethodDelete, "/push_subscriptions/garbage", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
