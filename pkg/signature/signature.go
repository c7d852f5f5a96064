// Package signature implements the protocol gate: the single designated
// signer signs a document sitting at the signature stage, optionally
// applies the physical seal, and completes the protocol to move the
// document onward.
package signature

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gesdoc-gq/core/pkg/artifacts"
	"github.com/gesdoc-gq/core/pkg/audit"
	"github.com/gesdoc-gq/core/pkg/domain"
	"github.com/gesdoc-gq/core/pkg/identity"
	"github.com/gesdoc-gq/core/pkg/notify"
	"github.com/gesdoc-gq/core/pkg/store"
	"github.com/gesdoc-gq/core/pkg/workflow"
)

// DocumentStore is the document persistence the gate needs. Implemented
// by store.DocumentStore.
type DocumentStore interface {
	FindByID(ctx context.Context, id string) (domain.Document, error)
	SetSignature(ctx context.Context, id string, signedAt time.Time, signedBy string, digitalURL, physicalURL *string) (bool, error)
	SetSeal(ctx context.Context, id string, sealFile string, at time.Time) (bool, error)
	SignatureStats(ctx context.Context, now time.Time) (store.SignatureStats, error)
}

// Advancer is the slice of the workflow engine the gate drives after a
// completed protocol. Implemented by workflow.Engine.
type Advancer interface {
	Advance(ctx context.Context, documentID, userID string, notes *string, metadata map[string]any) (workflow.Status, error)
}

// Notifier delivers best-effort stakeholder notifications. Implemented by
// notify.Dispatcher.
type Notifier interface {
	Create(ctx context.Context, userID string, kind notify.Kind, title, message, relatedID, relatedType string) error
	SendEmail(ctx context.Context, to, subject, body string)
}

// Gate guards every signature-protocol transition.
type Gate struct {
	documents DocumentStore
	engine    Advancer
	idp       identity.Provider
	uploads   artifacts.Store
	notifier  Notifier
	audit     audit.Sink
	logger    *slog.Logger
	now       func() time.Time
}

func NewGate(documents DocumentStore, engine Advancer, idp identity.Provider, uploads artifacts.Store, notifier Notifier, sink audit.Sink, logger *slog.Logger) *Gate {
	if sink == nil {
		sink = audit.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		documents: documents,
		engine:    engine,
		idp:       idp,
		uploads:   uploads,
		notifier:  notifier,
		audit:     sink,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// File is an uploaded signature or seal image.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// SignRequest carries the artifacts of one signing act.
type SignRequest struct {
	DocumentID string
	UserID     string
	Method     domain.SignatureMethod
	Digital    *File
	Physical   *File
}

// Sign records the designated signer's signature on a document at the
// signature stage. Write-once: a second signature on the same document
// fails InvalidState regardless of who asks.
func (g *Gate) Sign(ctx context.Context, req SignRequest) (domain.Document, error) {
	if err := identity.RequireDesignatedSigner(ctx, g.idp, req.UserID); err != nil {
		return domain.Document{}, err
	}
	if err := validateMethod(req); err != nil {
		return domain.Document{}, err
	}

	doc, err := g.documents.FindByID(ctx, req.DocumentID)
	if err != nil {
		return domain.Document{}, err
	}
	if doc.SignedAt != nil {
		return domain.Document{}, fmt.Errorf("document %s: %w: already signed", doc.ID, domain.ErrInvalidState)
	}
	if err := requireSignatureStage(doc); err != nil {
		return domain.Document{}, err
	}

	var digitalURL, physicalURL *string
	if req.Digital != nil {
		url, err := g.uploads.Put(ctx, "signatures", req.Digital.Name, req.Digital.ContentType, req.Digital.Data)
		if err != nil {
			return domain.Document{}, fmt.Errorf("upload digital signature: %w", err)
		}
		digitalURL = &url
	}
	if req.Physical != nil {
		url, err := g.uploads.Put(ctx, "signatures", req.Physical.Name, req.Physical.ContentType, req.Physical.Data)
		if err != nil {
			return domain.Document{}, fmt.Errorf("upload physical signature: %w", err)
		}
		physicalURL = &url
	}

	signedAt := g.now()
	ok, err := g.documents.SetSignature(ctx, doc.ID, signedAt, req.UserID, digitalURL, physicalURL)
	if err != nil {
		return domain.Document{}, err
	}
	if !ok {
		return domain.Document{}, fmt.Errorf("document %s: %w: signed concurrently", doc.ID, domain.ErrInvalidState)
	}

	g.audit.Record(req.UserID, "DOCUMENT_SIGNED", "document", doc.ID, map[string]any{
		"method":    req.Method,
		"signed_at": signedAt,
	})
	g.logger.Info("document signed", "document_id", doc.ID, "signed_by", req.UserID, "method", req.Method)

	g.notifySigned(ctx, doc, req.UserID)

	return g.documents.FindByID(ctx, doc.ID)
}

// ApplySeal records the ministry seal on an already-signed document.
// Write-once like the signature itself.
func (g *Gate) ApplySeal(ctx context.Context, documentID, userID string, seal File) (domain.Document, error) {
	if err := identity.RequireDesignatedSigner(ctx, g.idp, userID); err != nil {
		return domain.Document{}, err
	}

	doc, err := g.documents.FindByID(ctx, documentID)
	if err != nil {
		return domain.Document{}, err
	}
	if doc.SignedAt == nil {
		return domain.Document{}, fmt.Errorf("document %s: %w: seal requires a signed document", doc.ID, domain.ErrInvalidState)
	}
	if doc.PhysicalSealFile != nil {
		return domain.Document{}, fmt.Errorf("document %s: %w: seal already applied", doc.ID, domain.ErrInvalidState)
	}

	url, err := g.uploads.Put(ctx, "seals", seal.Name, seal.ContentType, seal.Data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("upload seal: %w", err)
	}

	ok, err := g.documents.SetSeal(ctx, doc.ID, url, g.now())
	if err != nil {
		return domain.Document{}, err
	}
	if !ok {
		return domain.Document{}, fmt.Errorf("document %s: %w: seal applied concurrently", doc.ID, domain.ErrInvalidState)
	}

	g.audit.Record(userID, "SEAL_APPLIED", "document", doc.ID, map[string]any{"seal_file": url})
	g.logger.Info("seal applied", "document_id", doc.ID, "applied_by", userID)

	return g.documents.FindByID(ctx, doc.ID)
}

// CompleteProtocol closes the signature stage and advances the document:
// incoming documents move to acknowledgment, outgoing to printed-and-sent.
// Outgoing documents must carry the physical seal first.
func (g *Gate) CompleteProtocol(ctx context.Context, documentID, userID string) (workflow.Status, error) {
	if err := identity.RequireDesignatedSigner(ctx, g.idp, userID); err != nil {
		return workflow.Status{}, err
	}

	doc, err := g.documents.FindByID(ctx, documentID)
	if err != nil {
		return workflow.Status{}, err
	}
	if err := requireSignatureStage(doc); err != nil {
		return workflow.Status{}, err
	}
	if doc.SignedAt == nil {
		return workflow.Status{}, fmt.Errorf("document %s: %w: protocol requires a signature", doc.ID, domain.ErrInvalidState)
	}
	if doc.Direction == domain.DirectionOut && doc.PhysicalSealFile == nil {
		return workflow.Status{}, fmt.Errorf("document %s: %w: outgoing documents require the seal before completion", doc.ID, domain.ErrInvalidState)
	}

	status, err := g.engine.Advance(ctx, doc.ID, userID, nil, map[string]any{"protocol": "signature"})
	if err != nil {
		return workflow.Status{}, err
	}

	g.audit.Record(userID, "SIGNATURE_PROTOCOL_COMPLETED", "document", doc.ID, map[string]any{
		"direction": doc.Direction,
	})
	g.logger.Info("signature protocol completed", "document_id", doc.ID, "direction", doc.Direction)

	return status, nil
}

// Info is the signature snapshot of one document.
type Info struct {
	DocumentID           string                  `json:"documentId"`
	Signed               bool                    `json:"signed"`
	SignedAt             *time.Time              `json:"signedAt,omitempty"`
	SignedBy             *string                 `json:"signedBy,omitempty"`
	Method               *domain.SignatureMethod `json:"method,omitempty"`
	DigitalSignatureURL  *string                 `json:"digitalSignatureUrl,omitempty"`
	PhysicalSignatureURL *string                 `json:"physicalSignatureUrl,omitempty"`
	SealApplied          bool                    `json:"sealApplied"`
	SealAppliedAt        *time.Time              `json:"sealAppliedAt,omitempty"`
}

// GetInfo returns the signature snapshot. The method is derived from
// which signature artifacts exist.
func (g *Gate) GetInfo(ctx context.Context, documentID string) (Info, error) {
	doc, err := g.documents.FindByID(ctx, documentID)
	if err != nil {
		return Info{}, err
	}

	info := Info{
		DocumentID:           doc.ID,
		Signed:               doc.SignedAt != nil,
		SignedAt:             doc.SignedAt,
		SignedBy:             doc.SignedBy,
		DigitalSignatureURL:  doc.DigitalSignatureURL,
		PhysicalSignatureURL: doc.PhysicalSignatureURL,
		SealApplied:          doc.PhysicalSealFile != nil,
		SealAppliedAt:        doc.SealAppliedAt,
	}
	if m := methodOf(doc); m != "" {
		info.Method = &m
	}
	return info, nil
}

// Readiness explains whether a document can be signed right now.
type Readiness struct {
	Ready   bool     `json:"ready"`
	Reasons []string `json:"reasons,omitempty"`
}

// GetReadiness reports the blockers between a document and the signer.
func (g *Gate) GetReadiness(ctx context.Context, documentID string) (Readiness, error) {
	doc, err := g.documents.FindByID(ctx, documentID)
	if err != nil {
		return Readiness{}, err
	}

	var reasons []string
	if doc.WorkflowCompleted {
		reasons = append(reasons, "workflow already completed")
	}
	if doc.CurrentStage == nil {
		reasons = append(reasons, "workflow not initialized")
	} else if *doc.CurrentStage != domain.StageSignatureProtocol {
		reasons = append(reasons, fmt.Sprintf("document is at stage %s", *doc.CurrentStage))
	}
	if doc.SignedAt != nil {
		reasons = append(reasons, "document already signed")
	}

	return Readiness{Ready: len(reasons) == 0, Reasons: reasons}, nil
}

// GetStats returns the aggregate signing counters for the dashboard.
func (g *Gate) GetStats(ctx context.Context) (store.SignatureStats, error) {
	return g.documents.SignatureStats(ctx, g.now())
}

func requireSignatureStage(doc domain.Document) error {
	if doc.WorkflowCompleted {
		return fmt.Errorf("document %s: %w: workflow already completed", doc.ID, domain.ErrInvalidState)
	}
	if doc.CurrentStage == nil || *doc.CurrentStage != domain.StageSignatureProtocol {
		return fmt.Errorf("document %s: %w: document is not at the signature stage", doc.ID, domain.ErrInvalidState)
	}
	return nil
}

func validateMethod(req SignRequest) error {
	switch req.Method {
	case domain.SignatureDigital:
		if req.Digital == nil {
			return fmt.Errorf("%w: digital method requires a digital signature file", domain.ErrInvalidState)
		}
	case domain.SignaturePhysical:
		if req.Physical == nil {
			return fmt.Errorf("%w: physical method requires a physical signature file", domain.ErrInvalidState)
		}
	case domain.SignatureBoth:
		if req.Digital == nil || req.Physical == nil {
			return fmt.Errorf("%w: combined method requires both signature files", domain.ErrInvalidState)
		}
	default:
		return fmt.Errorf("%w: unknown signature method %q", domain.ErrInvalidState, req.Method)
	}
	return nil
}

func methodOf(doc domain.Document) domain.SignatureMethod {
	switch {
	case doc.DigitalSignatureURL != nil && doc.PhysicalSignatureURL != nil:
		return domain.SignatureBoth
	case doc.DigitalSignatureURL != nil:
		return domain.SignatureDigital
	case doc.PhysicalSignatureURL != nil:
		return domain.SignaturePhysical
	default:
		return ""
	}
}

// notifySigned informs the document stakeholders. Failures are logged and
// swallowed; the signature already happened.
func (g *Gate) notifySigned(ctx context.Context, doc domain.Document, signerID string) {
	if g.notifier == nil {
		return
	}

	title := "Documento firmado"
	message := fmt.Sprintf("El documento %s (%s) ha sido firmado.", doc.CorrelativeNumber, doc.Title)

	for _, target := range []*string{doc.CreatedByID, doc.ResponsibleID} {
		if target == nil || *target == signerID {
			continue
		}
		if err := g.notifier.Create(ctx, *target, notify.KindSignatureCompleted, title, message, doc.ID, "document"); err != nil {
			g.logger.Warn("signature notification failed", "document_id", doc.ID, "user_id", *target, "error", err)
		}
	}
	if doc.ResponsibleEmail != nil {
		g.notifier.SendEmail(ctx, *doc.ResponsibleEmail, title, message)
	}
}
