package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gesdoc-gq/core/pkg/domain"
)

// DocumentStore reads and mutates the workflow-, signature- and
// reminder-facing columns of the documents table. Document content CRUD is
// owned elsewhere.
type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `id, correlative_number, title, direction, requires_response,
	response_received, current_stage, workflow_completed, workflow_completed_at,
	signed_at, signed_by, digital_signature_url, physical_signature_url,
	physical_seal_file, seal_applied_at, response_deadline, reminders_sent,
	last_reminder_sent_at, created_by, responsible_id, responsible_email`

// FindByID returns a document or domain.ErrNotFound.
func (s *DocumentStore) FindByID(ctx context.Context, id string) (domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return domain.Document{}, fmt.Errorf("find document %s: %w", id, err)
	}
	return doc, nil
}

// SetCurrentStage moves current_stage from expected to next. The guard on
// the previous value serializes concurrent advances on the same document:
// the loser matches zero rows.
func (s *DocumentStore) SetCurrentStage(ctx context.Context, id string, expected, next domain.StageKey) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET current_stage = $1 WHERE id = $2 AND current_stage = $3`,
		string(next), id, string(expected))
	if err != nil {
		return false, fmt.Errorf("set current stage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set current stage: rows affected: %w", err)
	}
	return n == 1, nil
}

// InitCurrentStage sets the first stage on a freshly initialized workflow.
func (s *DocumentStore) InitCurrentStage(ctx context.Context, id string, first domain.StageKey) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET current_stage = $1 WHERE id = $2`, string(first), id)
	if err != nil {
		return fmt.Errorf("init current stage: %w", err)
	}
	return nil
}

// MarkWorkflowCompleted stamps terminal completion. current_stage is left
// untouched on purpose.
func (s *DocumentStore) MarkWorkflowCompleted(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET workflow_completed = TRUE, workflow_completed_at = $1 WHERE id = $2`,
		at, id)
	if err != nil {
		return fmt.Errorf("mark workflow completed: %w", err)
	}
	return nil
}

// SetSignature records the signature fields. The guard on signed_at keeps
// the write write-once under concurrency.
func (s *DocumentStore) SetSignature(ctx context.Context, id string, signedAt time.Time, signedBy string, digitalURL, physicalURL *string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents
		 SET signed_at = $1, signed_by = $2, digital_signature_url = $3, physical_signature_url = $4
		 WHERE id = $5 AND signed_at IS NULL`,
		signedAt, signedBy, digitalURL, physicalURL, id)
	if err != nil {
		return false, fmt.Errorf("set signature: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set signature: rows affected: %w", err)
	}
	return n == 1, nil
}

// SetSeal records the physical seal, write-once.
func (s *DocumentStore) SetSeal(ctx context.Context, id string, sealFile string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET physical_seal_file = $1, seal_applied_at = $2
		 WHERE id = $3 AND physical_seal_file IS NULL`,
		sealFile, at, id)
	if err != nil {
		return false, fmt.Errorf("set seal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set seal: rows affected: %w", err)
	}
	return n == 1, nil
}

// MarkReminderSent flips the permanent one-reminder guard. The guard on
// reminders_sent keeps the reminder at-most-once-ever even if two sweeps
// race.
func (s *DocumentStore) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET reminders_sent = 1, last_reminder_sent_at = $1
		 WHERE id = $2 AND reminders_sent = 0`,
		at, id)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: rows affected: %w", err)
	}
	return n == 1, nil
}

// ResponseReminderCandidates lists documents whose response deadline
// expired between from (exclusive lower bound, 25h ago) and to (24h ago),
// still awaiting a response, never reminded.
func (s *DocumentStore) ResponseReminderCandidates(ctx context.Context, from, to time.Time) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE response_deadline >= $1 AND response_deadline < $2
		   AND reminders_sent = 0
		   AND response_received = FALSE
		   AND requires_response = TRUE`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("response reminder candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("response reminder candidates: %w", err)
	}
	return docs, nil
}

// SignatureStats aggregates signed-document counts for the dashboard.
type SignatureStats struct {
	TotalSigned     int
	SignedToday     int
	SignedThisWeek  int
	SignedThisMonth int
	WithSeal        int
	WithoutSeal     int
}

func (s *DocumentStore) SignatureStats(ctx context.Context, now time.Time) (SignatureStats, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var st SignatureStats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE signed_at IS NOT NULL),
			COUNT(*) FILTER (WHERE signed_at >= $1),
			COUNT(*) FILTER (WHERE signed_at >= $2),
			COUNT(*) FILTER (WHERE signed_at >= $3),
			COUNT(*) FILTER (WHERE signed_at IS NOT NULL AND physical_seal_file IS NOT NULL)
		 FROM documents`,
		dayStart, weekStart, monthStart).
		Scan(&st.TotalSigned, &st.SignedToday, &st.SignedThisWeek, &st.SignedThisMonth, &st.WithSeal)
	if err != nil {
		return SignatureStats{}, fmt.Errorf("signature stats: %w", err)
	}
	st.WithoutSeal = st.TotalSigned - st.WithSeal
	return st, nil
}

// CountNeedingResponseReminder counts documents past their response
// deadline that the permanent guard has not yet covered.
func (s *DocumentStore) CountNeedingResponseReminder(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents
		 WHERE response_deadline < $1 AND reminders_sent = 0
		   AND response_received = FALSE AND requires_response = TRUE`,
		now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count needing reminder: %w", err)
	}
	return n, nil
}

// CountWithReminders counts documents already covered by the permanent guard.
func (s *DocumentStore) CountWithReminders(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE reminders_sent > 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count with reminders: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (domain.Document, error) {
	var (
		doc                                    domain.Document
		correlative, title                     sql.NullString
		direction                              string
		currentStage                           sql.NullString
		workflowCompletedAt, signedAt          sql.NullTime
		sealAppliedAt, responseDeadline        sql.NullTime
		lastReminderSentAt                     sql.NullTime
		signedBy, digitalURL, physicalURL      sql.NullString
		sealFile, createdBy, responsibleID     sql.NullString
		responsibleEmail                       sql.NullString
	)

	err := r.Scan(&doc.ID, &correlative, &title, &direction, &doc.RequiresResponse,
		&doc.ResponseReceived, &currentStage, &doc.WorkflowCompleted, &workflowCompletedAt,
		&signedAt, &signedBy, &digitalURL, &physicalURL,
		&sealFile, &sealAppliedAt, &responseDeadline, &doc.RemindersSent,
		&lastReminderSentAt, &createdBy, &responsibleID, &responsibleEmail)
	if err != nil {
		return domain.Document{}, err
	}

	doc.CorrelativeNumber = correlative.String
	doc.Title = title.String
	doc.Direction = domain.Direction(direction)
	if currentStage.Valid {
		key := domain.StageKey(currentStage.String)
		doc.CurrentStage = &key
	}
	doc.WorkflowCompletedAt = nullTimePtr(workflowCompletedAt)
	doc.SignedAt = nullTimePtr(signedAt)
	doc.SignedBy = nullStringPtr(signedBy)
	doc.DigitalSignatureURL = nullStringPtr(digitalURL)
	doc.PhysicalSignatureURL = nullStringPtr(physicalURL)
	doc.PhysicalSealFile = nullStringPtr(sealFile)
	doc.SealAppliedAt = nullTimePtr(sealAppliedAt)
	doc.ResponseDeadline = nullTimePtr(responseDeadline)
	doc.LastReminderSentAt = nullTimePtr(lastReminderSentAt)
	doc.CreatedByID = nullStringPtr(createdBy)
	doc.ResponsibleID = nullStringPtr(responsibleID)
	doc.ResponsibleEmail = nullStringPtr(responsibleEmail)
	return doc, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
