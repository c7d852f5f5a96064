package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gesdoc-gq/core/pkg/audit"
	"github.com/gesdoc-gq/core/pkg/domain"
	"github.com/gesdoc-gq/core/pkg/identity"
)

// Stages exposes the governed operations on individual stage rows. The
// engine owns sequence-wide transitions; this service owns the rest:
// direct start/complete, deadline updates, the privileged skip and delete.
type Stages struct {
	stages StageStore
	idp    identity.Provider
	audit  audit.Sink
	logger *slog.Logger
	now    func() time.Time
}

func NewStages(stages StageStore, idp identity.Provider, sink audit.Sink, logger *slog.Logger) *Stages {
	if sink == nil {
		sink = audit.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stages{
		stages: stages,
		idp:    idp,
		audit:  sink,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Start moves a PENDING stage to IN_PROGRESS.
func (s *Stages) Start(ctx context.Context, stageID string) (domain.WorkflowStage, error) {
	row, err := s.stages.FindByID(ctx, stageID)
	if err != nil {
		return domain.WorkflowStage{}, err
	}
	if row.Status != domain.StagePending {
		return domain.WorkflowStage{}, fmt.Errorf("stage %s: %w: only pending stages can be started",
			row.Stage, domain.ErrInvalidState)
	}
	if _, err := s.stages.Start(ctx, stageID); err != nil {
		return domain.WorkflowStage{}, err
	}
	return s.stages.FindByID(ctx, stageID)
}

// Complete stamps a stage COMPLETED outside the engine's advance walk.
func (s *Stages) Complete(ctx context.Context, stageID, userID string, notes *string, metadata map[string]any) (domain.WorkflowStage, error) {
	row, err := s.stages.FindByID(ctx, stageID)
	if err != nil {
		return domain.WorkflowStage{}, err
	}
	switch row.Status {
	case domain.StageCompleted:
		return domain.WorkflowStage{}, fmt.Errorf("stage %s: %w: already completed", row.Stage, domain.ErrInvalidState)
	case domain.StageSkipped:
		return domain.WorkflowStage{}, fmt.Errorf("stage %s: %w: skipped stages cannot be completed", row.Stage, domain.ErrInvalidState)
	}

	if _, err := s.stages.Complete(ctx, stageID, userID, s.now(), notes, metadata); err != nil {
		return domain.WorkflowStage{}, err
	}

	s.audit.Record(userID, "STAGE_COMPLETED", "workflow_stage", stageID, map[string]any{"stage": row.Stage})
	return s.stages.FindByID(ctx, stageID)
}

// Skip marks a stage SKIPPED on behalf of an admin. Stages that demand a
// synchronous physical or manual action are refused outright; the
// document steps past skipped rows on its next advance.
func (s *Stages) Skip(ctx context.Context, stageID, userID, reason string) (domain.WorkflowStage, error) {
	if err := identity.RequireAdmin(ctx, s.idp, userID); err != nil {
		return domain.WorkflowStage{}, err
	}

	row, err := s.stages.FindByID(ctx, stageID)
	if err != nil {
		return domain.WorkflowStage{}, err
	}

	switch row.Status {
	case domain.StageCompleted:
		return domain.WorkflowStage{}, fmt.Errorf("stage %s: %w: cannot skip completed stage", row.Stage, domain.ErrInvalidState)
	case domain.StageSkipped:
		return domain.WorkflowStage{}, fmt.Errorf("stage %s: %w: stage already skipped", row.Stage, domain.ErrInvalidState)
	}

	if nonSkippable[row.Stage] {
		return domain.WorkflowStage{}, fmt.Errorf("stage %s: %w: stage cannot be skipped", row.Stage, domain.ErrInvalidState)
	}

	ok, err := s.stages.Skip(ctx, stageID, reason, userID, s.now())
	if err != nil {
		return domain.WorkflowStage{}, err
	}
	if !ok {
		return domain.WorkflowStage{}, fmt.Errorf("stage %s: %w: skipped concurrently", row.Stage, domain.ErrInvalidState)
	}

	s.audit.Record(userID, "STAGE_SKIPPED", "workflow_stage", stageID, map[string]any{
		"stage":  row.Stage,
		"reason": reason,
	})
	s.logger.Info("stage skipped", "stage_id", stageID, "stage", row.Stage, "approved_by", userID)

	return s.stages.FindByID(ctx, stageID)
}

// Delete removes a non-completed stage row. Admin-only, meant for
// corrections before a workflow completes.
func (s *Stages) Delete(ctx context.Context, stageID, userID string) error {
	if err := identity.RequireAdmin(ctx, s.idp, userID); err != nil {
		return err
	}

	row, err := s.stages.FindByID(ctx, stageID)
	if err != nil {
		return err
	}
	if row.Status == domain.StageCompleted {
		return fmt.Errorf("stage %s: %w: cannot delete completed stage", row.Stage, domain.ErrInvalidState)
	}

	if _, err := s.stages.Delete(ctx, stageID); err != nil {
		return err
	}

	s.audit.Record(userID, "STAGE_DELETED", "workflow_stage", stageID, map[string]any{"stage": row.Stage})
	return nil
}

// Update sets deadline fields, notes and metadata on a non-completed
// stage. An explicit deadline wins over an hour offset.
func (s *Stages) Update(ctx context.Context, stageID string, customDeadline *time.Time, deadlineHours *int, notes *string, metadata map[string]any) (domain.WorkflowStage, error) {
	row, err := s.stages.FindByID(ctx, stageID)
	if err != nil {
		return domain.WorkflowStage{}, err
	}
	if row.Status == domain.StageCompleted {
		return domain.WorkflowStage{}, fmt.Errorf("stage %s: %w: cannot update completed stage", row.Stage, domain.ErrInvalidState)
	}

	switch {
	case customDeadline != nil:
		if err := s.stages.SetDeadline(ctx, stageID, customDeadline, nil, *customDeadline); err != nil {
			return domain.WorkflowStage{}, err
		}
	case deadlineHours != nil:
		due := s.now().Add(time.Duration(*deadlineHours) * time.Hour)
		if err := s.stages.SetDeadline(ctx, stageID, nil, deadlineHours, due); err != nil {
			return domain.WorkflowStage{}, err
		}
	}

	if notes != nil || metadata != nil {
		if err := s.stages.SetNotes(ctx, stageID, notes, metadata); err != nil {
			return domain.WorkflowStage{}, err
		}
	}

	return s.stages.FindByID(ctx, stageID)
}

// ByDocument lists a document's stages in sequence order.
func (s *Stages) ByDocument(ctx context.Context, documentID string) ([]domain.WorkflowStage, error) {
	return s.stages.ByDocument(ctx, documentID)
}

// ByStatus lists stage rows across documents in a given status.
func (s *Stages) ByStatus(ctx context.Context, status domain.StageStatus) ([]domain.WorkflowStage, error) {
	return s.stages.ByStatus(ctx, status)
}

// Overdue lists active stages past their due date.
func (s *Stages) Overdue(ctx context.Context) ([]domain.WorkflowStage, error) {
	return s.stages.Overdue(ctx, s.now())
}
