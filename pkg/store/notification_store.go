package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationRecord is one row of the append-only notification ledger.
// The ledger doubles as the idempotency source of truth: RecentExists backs
// the rolling suppression window.
type NotificationRecord struct {
	ID          string
	UserID      string
	Kind        string
	Title       string
	Message     string
	RelatedID   string
	RelatedType string
	CreatedAt   time.Time
}

// NotificationStore persists in-app notifications and the reminder log.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Insert appends a notification record.
func (s *NotificationStore) Insert(ctx context.Context, rec NotificationRecord) (NotificationRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, kind, title, message, related_id, related_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.UserID, rec.Kind, rec.Title, rec.Message, rec.RelatedID, rec.RelatedType, rec.CreatedAt)
	if err != nil {
		return NotificationRecord{}, fmt.Errorf("insert notification: %w", err)
	}
	return rec, nil
}

// RecentExists reports whether a notification of the same kind for the
// same subject was created at or after since.
func (s *NotificationStore) RecentExists(ctx context.Context, relatedID, relatedType, kind string, since time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications
		 WHERE related_id = $1 AND related_type = $2 AND kind = $3 AND created_at >= $4`,
		relatedID, relatedType, kind, since).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("recent notification lookup: %w", err)
	}
	return n > 0, nil
}

// LogReminder appends a reminder-log row for a dispatched document reminder.
func (s *NotificationStore) LogReminder(ctx context.Context, documentID, reminderType, method string, recipientIDs []string, sentAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminder_log (id, document_id, reminder_type, recipient_ids, method, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), documentID, reminderType, strings.Join(recipientIDs, ","), method, sentAt)
	if err != nil {
		return fmt.Errorf("log reminder: %w", err)
	}
	return nil
}

// ReminderCounts returns total reminders ever logged and those logged at
// or after dayStart.
func (s *NotificationStore) ReminderCounts(ctx context.Context, dayStart time.Time) (total, today int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE sent_at >= $1) FROM reminder_log`,
		dayStart).Scan(&total, &today)
	if err != nil {
		return 0, 0, fmt.Errorf("reminder counts: %w", err)
	}
	return total, today, nil
}
