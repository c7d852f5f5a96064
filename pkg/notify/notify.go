// Package notify dispatches in-app notifications and best-effort email.
// It also hosts the rolling idempotency guard that keeps periodic sweeps
// from double-notifying the same subject.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gesdoc-gq/core/pkg/store"
)

// Kind names a notification category. Kind plus subject is the
// deduplication key of the idempotency guard.
type Kind string

const (
	KindDeadlineReminder   Kind = "DEADLINE_REMINDER"
	KindDeadlineOverdue    Kind = "DEADLINE_OVERDUE"
	KindSignatureCompleted Kind = "SIGNATURE_COMPLETED"
	KindResponseReminder   Kind = "RESPONSE_REMINDER"
)

// Ledger is the notification persistence the dispatcher needs. Implemented
// by store.NotificationStore.
type Ledger interface {
	Insert(ctx context.Context, rec store.NotificationRecord) (store.NotificationRecord, error)
	RecentExists(ctx context.Context, relatedID, relatedType, kind string, since time.Time) (bool, error)
}

// Mailer delivers email. Delivery is best effort everywhere in this
// module.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Dispatcher creates in-app notifications and sends email.
type Dispatcher struct {
	ledger Ledger
	mailer Mailer
	logger *slog.Logger
}

func NewDispatcher(ledger Ledger, mailer Mailer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{ledger: ledger, mailer: mailer, logger: logger}
}

// Create appends an in-app notification for a user.
func (d *Dispatcher) Create(ctx context.Context, userID string, kind Kind, title, message, relatedID, relatedType string) error {
	_, err := d.ledger.Insert(ctx, store.NotificationRecord{
		UserID:      userID,
		Kind:        string(kind),
		Title:       title,
		Message:     message,
		RelatedID:   relatedID,
		RelatedType: relatedType,
	})
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// SendEmail delivers an email, logging and swallowing failures. The
// mailer may be nil when email is not configured.
func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, body string) {
	if d.mailer == nil || to == "" {
		return
	}
	if err := d.mailer.Send(ctx, to, subject, body); err != nil {
		d.logger.Error("email delivery failed", "to", to, "subject", subject, "error", err)
	}
}

// DefaultGuardWindow is the rolling lookback within which a duplicate
// notification of the same kind for the same subject is suppressed. One
// hour shorter than the sweep cadence day so a multi-day-overdue deadline
// still gets roughly one notification per day.
const DefaultGuardWindow = 23 * time.Hour

// Guard is the rolling-window idempotency check. It is deliberately
// separate from the permanent reminders_sent counter on documents; the
// two guards have different lifetimes and must not be unified.
type Guard struct {
	ledger Ledger
	window time.Duration
}

func NewGuard(ledger Ledger) *Guard {
	return &Guard{ledger: ledger, window: DefaultGuardWindow}
}

// AlreadyNotified reports whether a notification of this kind for this
// subject exists inside the lookback window ending at now.
func (g *Guard) AlreadyNotified(ctx context.Context, relatedID, relatedType string, kind Kind, now time.Time) (bool, error) {
	hit, err := g.ledger.RecentExists(ctx, relatedID, relatedType, string(kind), now.Add(-g.window))
	if err != nil {
		return false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return hit, nil
}
