// Package domain holds the shared data model for the document lifecycle
// core: directions, stage keys, statuses, and the workflow-facing slices of
// the Document, WorkflowStage and Deadline records.
package domain

import "time"

// Direction states whether a document entered the ministry or leaves it.
// It selects which fixed stage sequence applies.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// StageKey identifies one step in a document's fixed workflow sequence.
type StageKey string

const (
	StageManualEntry       StageKey = "MANUAL_ENTRY"
	StageScanningAssigned  StageKey = "SCANNING_ASSIGNED"
	StageAISummary         StageKey = "AI_SUMMARY"
	StageDecreed           StageKey = "DECREED"
	StageDecreePrinted     StageKey = "DECREE_PRINTED"
	StageReportReceived    StageKey = "REPORT_RECEIVED"
	StageResponsePrepared  StageKey = "RESPONSE_PREPARED"
	StageSignatureProtocol StageKey = "SIGNATURE_PROTOCOL"
	StageAcknowledgment    StageKey = "ACKNOWLEDGMENT"
	StageArchived          StageKey = "ARCHIVED"
	StageDraftCreation     StageKey = "DRAFT_CREATION"
	StagePrintedSent       StageKey = "PRINTED_SENT"
	StageAwaitingResponse  StageKey = "AWAITING_RESPONSE"
	StageReminderSent      StageKey = "REMINDER_SENT"
	StageResponseReceived  StageKey = "RESPONSE_RECEIVED"
)

// StageStatus is the lifecycle state of a single workflow stage row.
type StageStatus string

const (
	StagePending    StageStatus = "PENDING"
	StageInProgress StageStatus = "IN_PROGRESS"
	StageCompleted  StageStatus = "COMPLETED"
	StageSkipped    StageStatus = "SKIPPED"
	StageFailed     StageStatus = "FAILED"
)

// DeadlineStatus is the lifecycle state of a Deadline row. The
// PENDING to OVERDUE transition is time-driven and never reverts.
type DeadlineStatus string

const (
	DeadlinePending   DeadlineStatus = "PENDING"
	DeadlineOverdue   DeadlineStatus = "OVERDUE"
	DeadlineCompleted DeadlineStatus = "COMPLETED"
)

// Priority orders deadlines for display; it carries no scheduling weight.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// SignatureMethod records how the designated signer signed a document.
type SignatureMethod string

const (
	SignatureDigital  SignatureMethod = "DIGITAL"
	SignaturePhysical SignatureMethod = "PHYSICAL"
	SignatureBoth     SignatureMethod = "BOTH"
)

// Role is the general permission level of a user. The designated signer is
// resolved separately and is not a Role.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleSecretary Role = "SECRETARY"
	RoleOfficer   Role = "OFFICER"
	RoleViewer    Role = "VIEWER"
)

// Document is the workflow-facing view of a document record. Field-level
// document CRUD lives outside this module; the engine reads and mutates
// only the workflow, signature, seal and reminder fields.
type Document struct {
	ID                   string
	CorrelativeNumber    string
	Title                string
	Direction            Direction
	RequiresResponse     bool
	ResponseReceived     bool
	CurrentStage         *StageKey
	WorkflowCompleted    bool
	WorkflowCompletedAt  *time.Time
	SignedAt             *time.Time
	SignedBy             *string
	DigitalSignatureURL  *string
	PhysicalSignatureURL *string
	PhysicalSealFile     *string
	SealAppliedAt        *time.Time
	ResponseDeadline     *time.Time
	RemindersSent        int
	LastReminderSentAt   *time.Time
	CreatedByID          *string
	ResponsibleID        *string
	ResponsibleEmail     *string
}

// WorkflowStage is one row per (document, stage key).
type WorkflowStage struct {
	ID             string
	DocumentID     string
	Stage          StageKey
	Status         StageStatus
	DueDate        *time.Time
	CustomDeadline *time.Time
	DeadlineHours  *int
	Notes          *string
	Metadata       map[string]any
	CompletedAt    *time.Time
	CompletedBy    *string
	IsSkipped      bool
	SkipReason     *string
	SkipApprovedBy *string
	SkipApprovedAt *time.Time
	CreatedAt      time.Time
}

// Deadline is a tracked due date attached to a document or case folder.
type Deadline struct {
	ID            string
	Title         string
	DueDate       time.Time
	Status        DeadlineStatus
	Priority      Priority
	DocumentID    *string
	ExpedienteID  *string
	ResponsibleID *string
	CreatedAt     time.Time
}
