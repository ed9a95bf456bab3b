package bundles

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"fizzy/internal/domain/notification"
	"fizzy/internal/mailer"
	"fizzy/internal/repository"
	"fizzy/pkg/logger"
)

// Clock lets tests drive the sweep's notion of now.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Sweeper delivers accumulated notification bundles as one digest email
// per user. It is invoked on a fixed schedule (every 30 minutes in
// production) by the worker binary.
type Sweeper struct {
	bundles       repository.BundleRepository
	notifications repository.NotificationRepository
	users         repository.UserRepository
	mailer        mailer.Mailer
	clock         Clock
	log           *logger.Logger
}

func NewSweeper(repos *repository.Repositories, m mailer.Mailer, clock Clock, log *logger.Logger) *Sweeper {
	if clock == nil {
		clock = systemClock{}
	}
	return &Sweeper{
		bundles:       repos.Bundles,
		notifications: repos.Notifications,
		users:         repos.Users,
		mailer:        m,
		clock:         clock,
		log:           log,
	}
}

const sweepBatchSize = 500

// Sweep processes every accumulating bundle. One bundle failing never
// blocks the rest; failed bundles return to accumulating and are retried
// by the next sweep.
func (s *Sweeper) Sweep(ctx context.Context) error {
	candidates, err := s.bundles.ListAccumulating(ctx, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("list bundles: %w", err)
	}

	for _, b := range candidates {
		if err := s.sweepOne(ctx, b); err != nil {
			s.log.Errorf("sweep bundle %s: %v", b.ID, err)
		}
	}
	return nil
}

func (s *Sweeper) sweepOne(ctx context.Context, b notification.Bundle) error {
	if err := s.bundles.MarkProcessing(ctx, b.ID); err != nil {
		if repository.ErrAlreadyClaimed(err) {
			return nil
		}
		return err
	}

	contents, err := s.notifications.ListUnreadInBundle(ctx, b.ID)
	if err != nil {
		s.release(ctx, b)
		return err
	}

	// A bundle whose contents were all read before the sweep is marked
	// delivered without sending; nobody gets an empty digest.
	if len(contents) == 0 {
		return s.bundles.MarkDelivered(ctx, b.ID)
	}

	recipient, err := s.users.GetByID(ctx, b.UserID)
	if err != nil {
		s.release(ctx, b)
		return err
	}

	subject, body := s.renderDigest(recipient.TimeZone, contents)
	if err := s.mailer.Send(ctx, recipient.Email, subject, body); err != nil {
		s.release(ctx, b)
		return err
	}

	return s.bundles.MarkDelivered(ctx, b.ID)
}

func (s *Sweeper) release(ctx context.Context, b notification.Bundle) {
	if err := s.bundles.MarkAccumulating(ctx, b.ID); err != nil {
		s.log.Errorf("release bundle %s: %v", b.ID, err)
	}
}

// renderDigest formats each entry in the recipient's local time zone.
func (s *Sweeper) renderDigest(tz string, contents []notification.Notification) (string, string) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}

	subject := fmt.Sprintf("%d new notifications", len(contents))
	if len(contents) == 1 {
		subject = "1 new notification"
	}

	var body strings.Builder
	body.WriteString("<h2>While you were away</h2><ul>")
	for _, n := range contents {
		body.WriteString(fmt.Sprintf("<li><strong>%s</strong> &mdash; %s <em>(%s)</em></li>",
			html.EscapeString(n.Title),
			html.EscapeString(n.Body),
			n.CreatedAt.In(loc).Format("Mon 3:04 PM")))
	}
	body.WriteString("</ul>")
	return subject, body.String()
}
