package services

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"fizzy/internal/domain/user"
	"fizzy/internal/repository"
	fizzy_errors "fizzy/pkg/errors"
)

// AccessClaims is the token payload the main application issues. This
// service only verifies; issuing lives with the auth frontend.
type AccessClaims struct {
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

type AuthService struct {
	secret []byte
	users  repository.UserRepository
}

func NewAuthService(secret string, users repository.UserRepository) *AuthService {
	return &AuthService{secret: []byte(secret), users: users}
}

// ParseAccessToken verifies the signature and returns the claims.
func (s *AuthService) ParseAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fizzy_errors.ErrUnauthorized
	}
	return claims, nil
}

// ResolveUser loads the token's user and rejects inactive ones.
func (s *AuthService) ResolveUser(ctx context.Context, claims *AccessClaims) (user.User, error) {
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return user.User{}, fizzy_errors.ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return user.User{}, fizzy_errors.ErrUnauthorized
	}
	if !u.Active {
		return user.User{}, fizzy_errors.ErrForbidden
	}
	return u, nil
}

type currentUserKey struct{}

// WithCurrentUser stores the authenticated user on the context.
func WithCurrentUser(ctx context.Context, u user.User) context.Context {
	return context.WithValue(ctx, currentUserKey{}, u)
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(currentUserKey{}).(user.User)
	return u, ok
}
