package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gesdoc-gq/core/pkg/audit"
	"github.com/gesdoc-gq/core/pkg/domain"
	"github.com/gesdoc-gq/core/pkg/observability"
)

// DocumentStore is the slice of document persistence the engine needs.
// Implemented by store.DocumentStore.
type DocumentStore interface {
	FindByID(ctx context.Context, id string) (domain.Document, error)
	InitCurrentStage(ctx context.Context, id string, first domain.StageKey) error
	SetCurrentStage(ctx context.Context, id string, expected, next domain.StageKey) (bool, error)
	MarkWorkflowCompleted(ctx context.Context, id string, at time.Time) error
}

// StageStore is the stage-row persistence the engine and stage service
// need. Implemented by store.StageStore.
type StageStore interface {
	Create(ctx context.Context, documentID string, stage domain.StageKey, dueDate *time.Time, metadata map[string]any) (domain.WorkflowStage, error)
	FindByID(ctx context.Context, id string) (domain.WorkflowStage, error)
	FindByKey(ctx context.Context, documentID string, key domain.StageKey) (domain.WorkflowStage, error)
	ByDocument(ctx context.Context, documentID string) ([]domain.WorkflowStage, error)
	ByStatus(ctx context.Context, status domain.StageStatus) ([]domain.WorkflowStage, error)
	Overdue(ctx context.Context, now time.Time) ([]domain.WorkflowStage, error)
	Start(ctx context.Context, id string) (bool, error)
	Complete(ctx context.Context, id, userID string, at time.Time, notes *string, metadata map[string]any) (bool, error)
	Skip(ctx context.Context, id, reason, approvedBy string, at time.Time) (bool, error)
	SetDeadline(ctx context.Context, id string, customDeadline *time.Time, deadlineHours *int, dueDate time.Time) error
	SetNotes(ctx context.Context, id string, notes *string, metadata map[string]any) error
	Delete(ctx context.Context, id string) (bool, error)
}

// Engine drives a document through its fixed stage sequence.
type Engine struct {
	documents DocumentStore
	stages    StageStore
	audit     audit.Sink
	logger    *slog.Logger
	now       func() time.Time
	obs       *observability.Provider
}

func NewEngine(documents DocumentStore, stages StageStore, sink audit.Sink, logger *slog.Logger) *Engine {
	if sink == nil {
		sink = audit.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		documents: documents,
		stages:    stages,
		audit:     sink,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithObservability attaches the stage transition counter.
func (e *Engine) WithObservability(p *observability.Provider) *Engine {
	e.obs = p
	return e
}

func (e *Engine) recordTransition(ctx context.Context, doc domain.Document, from, to domain.StageKey) {
	if e.obs != nil {
		e.obs.RecordTransition(ctx,
			observability.TransitionOperation(doc.ID, string(doc.Direction), string(from), string(to))...)
	}
}

// Status is the workflow progress snapshot for one document.
type Status struct {
	DocumentID          string                 `json:"documentId"`
	CurrentStage        *domain.StageKey       `json:"currentStage"`
	WorkflowCompleted   bool                   `json:"workflowCompleted"`
	WorkflowCompletedAt *time.Time             `json:"workflowCompletedAt,omitempty"`
	TotalStages         int                    `json:"totalStages"`
	CompletedStages     int                    `json:"completedStages"`
	Progress            int                    `json:"progress"`
	Stages              []domain.WorkflowStage `json:"stages"`
}

// Initialize creates one PENDING stage row per sequence key, points the
// document at the first stage and starts it. Not idempotent: invoking it
// twice for one document is a caller error and fails on the unique
// (document, stage) constraint.
func (e *Engine) Initialize(ctx context.Context, documentID string) (Status, error) {
	doc, err := e.documents.FindByID(ctx, documentID)
	if err != nil {
		return Status{}, err
	}

	seq := SequenceFor(doc.Direction, doc.RequiresResponse)

	for _, key := range seq {
		if _, err := e.stages.Create(ctx, documentID, key, nil, nil); err != nil {
			return Status{}, fmt.Errorf("initialize workflow for %s: %w", documentID, err)
		}
	}

	if err := e.documents.InitCurrentStage(ctx, documentID, seq[0]); err != nil {
		return Status{}, err
	}

	first, err := e.stages.FindByKey(ctx, documentID, seq[0])
	if err != nil {
		return Status{}, err
	}
	if _, err := e.stages.Start(ctx, first.ID); err != nil {
		return Status{}, err
	}

	e.audit.Record("", "WORKFLOW_INITIALIZED", "document", documentID, map[string]any{
		"direction": doc.Direction,
		"stages":    len(seq),
	})
	e.logger.Info("workflow initialized", "document_id", documentID, "direction", doc.Direction, "stages", len(seq))

	return e.GetStatus(ctx, documentID)
}

// Advance completes the document's current stage and activates the next
// non-skipped stage of the sequence. When the current stage is the last,
// or every remaining stage is skipped, the workflow is marked completed
// and currentStage is left unchanged.
func (e *Engine) Advance(ctx context.Context, documentID, userID string, notes *string, metadata map[string]any) (Status, error) {
	doc, err := e.documents.FindByID(ctx, documentID)
	if err != nil {
		return Status{}, err
	}

	if doc.WorkflowCompleted {
		return Status{}, fmt.Errorf("document %s: %w: workflow already completed", documentID, domain.ErrInvalidState)
	}
	if doc.CurrentStage == nil {
		return Status{}, fmt.Errorf("document %s: %w: no active workflow, initialize first", documentID, domain.ErrInvalidState)
	}

	current, err := e.stages.FindByKey(ctx, documentID, *doc.CurrentStage)
	if err != nil {
		return Status{}, err
	}

	if current.Status != domain.StageInProgress && current.Status != domain.StagePending {
		return Status{}, fmt.Errorf("stage %s: %w: current stage must be in progress or pending to advance",
			current.Stage, domain.ErrInvalidState)
	}

	seq := SequenceFor(doc.Direction, doc.RequiresResponse)
	currentIndex := indexOf(seq, *doc.CurrentStage)
	if currentIndex < 0 {
		return Status{}, fmt.Errorf("document %s: %w: current stage %s not in sequence",
			documentID, domain.ErrInvalidState, *doc.CurrentStage)
	}

	// Conditional update; losing a concurrent advance surfaces here.
	completed, err := e.stages.Complete(ctx, current.ID, userID, e.now(), notes, metadata)
	if err != nil {
		return Status{}, err
	}
	if !completed {
		return Status{}, fmt.Errorf("stage %s: %w: completed concurrently", current.Stage, domain.ErrInvalidState)
	}

	next, err := e.nextActive(ctx, documentID, seq, currentIndex)
	if err != nil {
		return Status{}, err
	}
	if next == nil {
		// Last stage, or everything remaining is skipped.
		if err := e.documents.MarkWorkflowCompleted(ctx, documentID, e.now()); err != nil {
			return Status{}, err
		}
		e.audit.Record(userID, "WORKFLOW_COMPLETED", "document", documentID, nil)
		e.logger.Info("workflow completed", "document_id", documentID)
		return e.GetStatus(ctx, documentID)
	}

	moved, err := e.documents.SetCurrentStage(ctx, documentID, *doc.CurrentStage, next.Stage)
	if err != nil {
		return Status{}, err
	}
	if !moved {
		return Status{}, fmt.Errorf("document %s: %w: advanced concurrently", documentID, domain.ErrInvalidState)
	}
	if _, err := e.stages.Start(ctx, next.ID); err != nil {
		return Status{}, err
	}

	e.audit.Record(userID, "STAGE_ADVANCED", "document", documentID, map[string]any{
		"from": current.Stage,
		"to":   next.Stage,
	})
	e.recordTransition(ctx, doc, current.Stage, next.Stage)
	e.logger.Info("stage advanced", "document_id", documentID, "from", current.Stage, "to", next.Stage)

	return e.GetStatus(ctx, documentID)
}

// nextActive walks the sequence forward from currentIndex and returns the
// first stage whose row is not SKIPPED, or nil when none remains. A
// missing row fails NotFound: it means initialization never ran to
// completion for this document.
func (e *Engine) nextActive(ctx context.Context, documentID string, seq []domain.StageKey, currentIndex int) (*domain.WorkflowStage, error) {
	for i := currentIndex + 1; i < len(seq); i++ {
		row, err := e.stages.FindByKey(ctx, documentID, seq[i])
		if err != nil {
			return nil, err
		}
		if row.Status != domain.StageSkipped {
			return &row, nil
		}
	}
	return nil, nil
}

// GetStatus returns the progress snapshot: skipped stages count as
// progress alongside completed ones.
func (e *Engine) GetStatus(ctx context.Context, documentID string) (Status, error) {
	doc, err := e.documents.FindByID(ctx, documentID)
	if err != nil {
		return Status{}, err
	}
	stages, err := e.stages.ByDocument(ctx, documentID)
	if err != nil {
		return Status{}, err
	}

	done := 0
	for _, st := range stages {
		if st.Status == domain.StageCompleted || st.Status == domain.StageSkipped {
			done++
		}
	}
	progress := 0
	if len(stages) > 0 {
		progress = int(math.Round(float64(done) / float64(len(stages)) * 100))
	}

	return Status{
		DocumentID:          documentID,
		CurrentStage:        doc.CurrentStage,
		WorkflowCompleted:   doc.WorkflowCompleted,
		WorkflowCompletedAt: doc.WorkflowCompletedAt,
		TotalStages:         len(stages),
		CompletedStages:     done,
		Progress:            progress,
		Stages:              stages,
	}, nil
}

// IsReadyForSignature reports whether the document sits at the signature
// protocol stage.
func (e *Engine) IsReadyForSignature(ctx context.Context, documentID string) (bool, error) {
	doc, err := e.documents.FindByID(ctx, documentID)
	if err != nil {
		return false, err
	}
	return doc.CurrentStage != nil && *doc.CurrentStage == domain.StageSignatureProtocol, nil
}

// DefaultDeadlineHours applies when a decree deadline is set with neither
// an explicit date nor an hour offset.
const DefaultDeadlineHours = 48

// SetDecreeDeadline sets the due date of the DECREED stage: an explicit
// date wins, then an hour offset, then the 48h default.
func (e *Engine) SetDecreeDeadline(ctx context.Context, documentID string, customDeadline *time.Time, deadlineHours *int) (domain.WorkflowStage, error) {
	row, err := e.stages.FindByKey(ctx, documentID, domain.StageDecreed)
	if err != nil {
		return domain.WorkflowStage{}, err
	}

	var dueDate time.Time
	switch {
	case customDeadline != nil:
		dueDate = *customDeadline
	case deadlineHours != nil:
		dueDate = e.now().Add(time.Duration(*deadlineHours) * time.Hour)
	default:
		dueDate = e.now().Add(DefaultDeadlineHours * time.Hour)
	}

	if err := e.stages.SetDeadline(ctx, row.ID, customDeadline, deadlineHours, dueDate); err != nil {
		return domain.WorkflowStage{}, err
	}
	return e.stages.FindByID(ctx, row.ID)
}
