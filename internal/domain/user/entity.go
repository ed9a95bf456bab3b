package user

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes real people from automation identities. Events
// created by a system identity never notify anyone.
type Kind string

const (
	KindPerson Kind = "PERSON"
	KindSystem Kind = "SYSTEM"
)

// EmailPreference controls how notification email is delivered
type EmailPreference string

const (
	EmailImmediate EmailPreference = "IMMEDIATE"
	EmailBundled   EmailPreference = "BUNDLED"
)

// User represents the users table
type User struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	Email           string
	DisplayName     string
	Kind            Kind
	Active          bool
	TimeZone        string // IANA name, e.g. "America/Chicago"
	EmailPreference EmailPreference
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (u User) System() bool {
	return u.Kind == KindSystem
}

// PushSubscription represents the push_subscriptions table. One user can
// hold several (one per browser). Invalid subscriptions are deleted when
// the push provider rejects them.
type PushSubscription struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Endpoint  string
	P256DH    string
	Auth      string
	CreatedAt time.Time
}
