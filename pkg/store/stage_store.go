package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gesdoc-gq/core/pkg/domain"
)

// StageStore persists workflow stage rows, one per (document, stage key).
// Status transitions are conditional updates: the WHERE clause carries the
// admissible prior statuses, so a lost race surfaces as zero rows affected
// rather than a double transition.
type StageStore struct {
	db *sql.DB
}

func NewStageStore(db *sql.DB) *StageStore {
	return &StageStore{db: db}
}

const stageColumns = `id, document_id, stage, status, due_date, custom_deadline,
	deadline_hours, notes, metadata, completed_at, completed_by, is_skipped,
	skip_reason, skip_approved_by, skip_approved_at, created_at`

// Create inserts a PENDING stage row.
func (s *StageStore) Create(ctx context.Context, documentID string, stage domain.StageKey, dueDate *time.Time, metadata map[string]any) (domain.WorkflowStage, error) {
	row := domain.WorkflowStage{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		Stage:      stage,
		Status:     domain.StagePending,
		DueDate:    dueDate,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}

	meta, err := marshalMetadata(metadata)
	if err != nil {
		return domain.WorkflowStage{}, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workflow_stages (id, document_id, stage, status, due_date, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row.ID, documentID, string(stage), string(row.Status), dueDate, meta, row.CreatedAt)
	if err != nil {
		return domain.WorkflowStage{}, fmt.Errorf("create stage %s/%s: %w", documentID, stage, err)
	}
	return row, nil
}

// FindByID returns a stage row or domain.ErrNotFound.
func (s *StageStore) FindByID(ctx context.Context, id string) (domain.WorkflowStage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stageColumns+` FROM workflow_stages WHERE id = $1`, id)
	st, err := scanStage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WorkflowStage{}, fmt.Errorf("stage %s: %w", id, domain.ErrNotFound)
		}
		return domain.WorkflowStage{}, fmt.Errorf("find stage %s: %w", id, err)
	}
	return st, nil
}

// FindByKey returns the stage row for a (document, key) pair or
// domain.ErrNotFound.
func (s *StageStore) FindByKey(ctx context.Context, documentID string, key domain.StageKey) (domain.WorkflowStage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stageColumns+` FROM workflow_stages WHERE document_id = $1 AND stage = $2`,
		documentID, string(key))
	st, err := scanStage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WorkflowStage{}, fmt.Errorf("stage %s/%s: %w", documentID, key, domain.ErrNotFound)
		}
		return domain.WorkflowStage{}, fmt.Errorf("find stage %s/%s: %w", documentID, key, err)
	}
	return st, nil
}

// ByDocument lists a document's stage rows in creation order, which is
// sequence-declaration order.
func (s *StageStore) ByDocument(ctx context.Context, documentID string) ([]domain.WorkflowStage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stageColumns+` FROM workflow_stages WHERE document_id = $1 ORDER BY created_at ASC`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("stages for document %s: %w", documentID, err)
	}
	defer func() { _ = rows.Close() }()
	return collectStages(rows)
}

// ByStatus lists stage rows in a given status, newest first.
func (s *StageStore) ByStatus(ctx context.Context, status domain.StageStatus) ([]domain.WorkflowStage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stageColumns+` FROM workflow_stages WHERE status = $1 ORDER BY created_at DESC`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("stages by status %s: %w", status, err)
	}
	defer func() { _ = rows.Close() }()
	return collectStages(rows)
}

// Overdue lists PENDING and IN_PROGRESS stages past their due date.
func (s *StageStore) Overdue(ctx context.Context, now time.Time) ([]domain.WorkflowStage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stageColumns+` FROM workflow_stages
		 WHERE due_date < $1 AND status IN ('PENDING', 'IN_PROGRESS')
		 ORDER BY due_date ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("overdue stages: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectStages(rows)
}

// Start moves PENDING to IN_PROGRESS. Returns false when the row was not
// PENDING.
func (s *StageStore) Start(ctx context.Context, id string) (bool, error) {
	return s.conditionalExec(ctx,
		`UPDATE workflow_stages SET status = 'IN_PROGRESS' WHERE id = $1 AND status = 'PENDING'`,
		id)
}

// Complete stamps a stage COMPLETED from PENDING or IN_PROGRESS. Returns
// false when the prior status did not admit completion.
func (s *StageStore) Complete(ctx context.Context, id, userID string, at time.Time, notes *string, metadata map[string]any) (bool, error) {
	meta, err := marshalMetadata(metadata)
	if err != nil {
		return false, err
	}
	return s.conditionalExec(ctx,
		`UPDATE workflow_stages
		 SET status = 'COMPLETED', completed_at = $1, completed_by = $2,
		     notes = COALESCE($3, notes), metadata = COALESCE($4, metadata)
		 WHERE id = $5 AND status IN ('PENDING', 'IN_PROGRESS')`,
		at, userID, notes, meta, id)
}

// Skip stamps a stage SKIPPED with reason and approver. Returns false when
// the row was already COMPLETED or SKIPPED.
func (s *StageStore) Skip(ctx context.Context, id, reason, approvedBy string, at time.Time) (bool, error) {
	return s.conditionalExec(ctx,
		`UPDATE workflow_stages
		 SET status = 'SKIPPED', is_skipped = TRUE, skip_reason = $1,
		     skip_approved_by = $2, skip_approved_at = $3
		 WHERE id = $4 AND status NOT IN ('COMPLETED', 'SKIPPED')`,
		reason, approvedBy, at, id)
}

// SetDeadline updates a stage's deadline fields.
func (s *StageStore) SetDeadline(ctx context.Context, id string, customDeadline *time.Time, deadlineHours *int, dueDate time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE workflow_stages SET custom_deadline = $1, deadline_hours = $2, due_date = $3 WHERE id = $4`,
		customDeadline, deadlineHours, dueDate, id)
	if err != nil {
		return fmt.Errorf("set stage deadline: %w", err)
	}
	return nil
}

// SetNotes updates notes and metadata on a non-completed stage.
func (s *StageStore) SetNotes(ctx context.Context, id string, notes *string, metadata map[string]any) error {
	meta, err := marshalMetadata(metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE workflow_stages SET notes = COALESCE($1, notes), metadata = COALESCE($2, metadata) WHERE id = $3`,
		notes, meta, id)
	if err != nil {
		return fmt.Errorf("set stage notes: %w", err)
	}
	return nil
}

// Delete removes a non-completed stage row. Returns false when the row was
// COMPLETED.
func (s *StageStore) Delete(ctx context.Context, id string) (bool, error) {
	return s.conditionalExec(ctx,
		`DELETE FROM workflow_stages WHERE id = $1 AND status != 'COMPLETED'`, id)
}

func (s *StageStore) conditionalExec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("stage update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("stage update: rows affected: %w", err)
	}
	return n == 1, nil
}

func collectStages(rows *sql.Rows) ([]domain.WorkflowStage, error) {
	var stages []domain.WorkflowStage
	for rows.Next() {
		st, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return stages, nil
}

func scanStage(r rowScanner) (domain.WorkflowStage, error) {
	var (
		st                             domain.WorkflowStage
		stage, status                  string
		dueDate, customDeadline        sql.NullTime
		completedAt, skipApprovedAt    sql.NullTime
		deadlineHours                  sql.NullInt64
		notes, meta, completedBy       sql.NullString
		skipReason, skipApprovedBy     sql.NullString
	)

	err := r.Scan(&st.ID, &st.DocumentID, &stage, &status, &dueDate, &customDeadline,
		&deadlineHours, &notes, &meta, &completedAt, &completedBy, &st.IsSkipped,
		&skipReason, &skipApprovedBy, &skipApprovedAt, &st.CreatedAt)
	if err != nil {
		return domain.WorkflowStage{}, err
	}

	st.Stage = domain.StageKey(stage)
	st.Status = domain.StageStatus(status)
	st.DueDate = nullTimePtr(dueDate)
	st.CustomDeadline = nullTimePtr(customDeadline)
	if deadlineHours.Valid {
		h := int(deadlineHours.Int64)
		st.DeadlineHours = &h
	}
	st.Notes = nullStringPtr(notes)
	st.CompletedAt = nullTimePtr(completedAt)
	st.CompletedBy = nullStringPtr(completedBy)
	st.SkipReason = nullStringPtr(skipReason)
	st.SkipApprovedBy = nullStringPtr(skipApprovedBy)
	st.SkipApprovedAt = nullTimePtr(skipApprovedAt)
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &st.Metadata); err != nil {
			return domain.WorkflowStage{}, fmt.Errorf("corrupt metadata on stage %s: %w", st.ID, err)
		}
	}
	return st, nil
}

func marshalMetadata(metadata map[string]any) (*string, error) {
	if metadata == nil {
		return nil, nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	s := string(b)
	return &s, nil
}
