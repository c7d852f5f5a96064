// Package audit is the fire-and-forget audit sink. Recording never blocks
// or fails the primary operation; persistence of the log itself is owned
// by the wider platform.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sink records who did what to which resource.
type Sink interface {
	Record(actorID, action, resourceType, resourceID string, changes map[string]any)
}

// SQLSink appends audit rows asynchronously. Failures are logged and
// dropped.
type SQLSink struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLSink(db *sql.DB, logger *slog.Logger) *SQLSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLSink{db: db, logger: logger}
}

// Record writes the entry on a separate goroutine and returns immediately.
func (s *SQLSink) Record(actorID, action, resourceType, resourceID string, changes map[string]any) {
	entryID := uuid.New().String()
	recordedAt := time.Now().UTC()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		payload, err := json.Marshal(changes)
		if err != nil {
			s.logger.Error("audit: marshal changes", "action", action, "error", err)
			payload = []byte("{}")
		}

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO audit_log (id, actor_id, action, resource_type, resource_id, changes, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entryID, actorID, action, resourceType, resourceID, string(payload), recordedAt)
		if err != nil {
			s.logger.Error("audit: record failed", "action", action, "resource_id", resourceID, "error", err)
		}
	}()
}

// Discard is a no-op sink for tests and tooling.
type Discard struct{}

func (Discard) Record(string, string, string, string, map[string]any) {}
