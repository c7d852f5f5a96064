package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gesdoc-gq/core/pkg/domain"
)

// DeadlineStore persists deadline rows for documents and case folders.
type DeadlineStore struct {
	db *sql.DB
}

func NewDeadlineStore(db *sql.DB) *DeadlineStore {
	return &DeadlineStore{db: db}
}

const deadlineColumns = `id, title, due_date, status, priority, document_id,
	expediente_id, responsible_id, created_at`

// FindByID returns a deadline or domain.ErrNotFound.
func (s *DeadlineStore) FindByID(ctx context.Context, id string) (domain.Deadline, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deadlineColumns+` FROM deadlines WHERE id = $1`, id)
	d, err := scanDeadline(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Deadline{}, fmt.Errorf("deadline %s: %w", id, domain.ErrNotFound)
		}
		return domain.Deadline{}, fmt.Errorf("find deadline %s: %w", id, err)
	}
	return d, nil
}

// MarkOverdue bulk-flips every expired deadline that is neither COMPLETED
// nor already OVERDUE. The transition is one-directional; nothing here
// ever reverts it. Returns the number of rows flipped.
func (s *DeadlineStore) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE deadlines SET status = 'OVERDUE'
		 WHERE due_date < $1 AND status NOT IN ('COMPLETED', 'OVERDUE')`,
		now)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark overdue: rows affected: %w", err)
	}
	return n, nil
}

// DueWithin lists deadlines due between now and until, excluding completed
// and overdue ones.
func (s *DeadlineStore) DueWithin(ctx context.Context, now, until time.Time) ([]domain.Deadline, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deadlineColumns+` FROM deadlines
		 WHERE due_date >= $1 AND due_date <= $2
		   AND status NOT IN ('COMPLETED', 'OVERDUE')
		 ORDER BY due_date ASC`,
		now, until)
	if err != nil {
		return nil, fmt.Errorf("deadlines due within: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectDeadlines(rows)
}

// Overdue lists all OVERDUE deadlines.
func (s *DeadlineStore) Overdue(ctx context.Context) ([]domain.Deadline, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deadlineColumns+` FROM deadlines WHERE status = 'OVERDUE' ORDER BY due_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("overdue deadlines: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectDeadlines(rows)
}

func collectDeadlines(rows *sql.Rows) ([]domain.Deadline, error) {
	var out []domain.Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deadline: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deadlines: %w", err)
	}
	return out, nil
}

func scanDeadline(r rowScanner) (domain.Deadline, error) {
	var (
		d                          domain.Deadline
		title                      sql.NullString
		status, priority           string
		docID, expID, responsible  sql.NullString
		createdAt                  sql.NullTime
	)

	err := r.Scan(&d.ID, &title, &d.DueDate, &status, &priority, &docID, &expID,
		&responsible, &createdAt)
	if err != nil {
		return domain.Deadline{}, err
	}

	d.Title = title.String
	d.Status = domain.DeadlineStatus(status)
	d.Priority = domain.Priority(priority)
	d.DocumentID = nullStringPtr(docID)
	d.ExpedienteID = nullStringPtr(expID)
	d.ResponsibleID = nullStringPtr(responsible)
	if createdAt.Valid {
		d.CreatedAt = createdAt.Time
	}
	return d, nil
}
