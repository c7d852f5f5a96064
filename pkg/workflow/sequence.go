// Package workflow implements the document lifecycle engine: the fixed
// stage sequences, workflow initialization and advancement, and the
// governed stage operations (start, complete, skip, delete, deadlines).
package workflow

import (
	"github.com/gesdoc-gq/core/pkg/domain"
)

// Incoming is the fixed ten-stage sequence for documents entering the
// ministry. Built once; never mutated at runtime.
var Incoming = []domain.StageKey{
	domain.StageManualEntry,
	domain.StageScanningAssigned,
	domain.StageAISummary,
	domain.StageDecreed,
	domain.StageDecreePrinted,
	domain.StageReportReceived,
	domain.StageResponsePrepared,
	domain.StageSignatureProtocol,
	domain.StageAcknowledgment,
	domain.StageArchived,
}

// Outgoing is the fixed five-stage sequence for documents leaving the
// ministry. The last two stages apply only when a response is required.
var Outgoing = []domain.StageKey{
	domain.StageDraftCreation,
	domain.StageSignatureProtocol,
	domain.StagePrintedSent,
	domain.StageAwaitingResponse,
	domain.StageResponseReceived,
}

// nonSkippable lists the stages requiring a synchronous physical or
// manual action; the skip governor refuses them unconditionally.
var nonSkippable = map[domain.StageKey]bool{
	domain.StageManualEntry:       true,
	domain.StageScanningAssigned:  true,
	domain.StageSignatureProtocol: true,
	domain.StageAcknowledgment:    true,
	domain.StageArchived:          true,
}

// SequenceFor returns a copy of the stage sequence for a direction,
// dropping the response stages of outgoing documents that require none.
func SequenceFor(direction domain.Direction, requiresResponse bool) []domain.StageKey {
	if direction == domain.DirectionIn {
		out := make([]domain.StageKey, len(Incoming))
		copy(out, Incoming)
		return out
	}

	out := make([]domain.StageKey, 0, len(Outgoing))
	for _, key := range Outgoing {
		if !requiresResponse &&
			(key == domain.StageAwaitingResponse || key == domain.StageResponseReceived) {
			continue
		}
		out = append(out, key)
	}
	return out
}

// indexOf returns the position of key in seq, or -1.
func indexOf(seq []domain.StageKey, key domain.StageKey) int {
	for i, k := range seq {
		if k == key {
			return i
		}
	}
	return -1
}

// StageInfo describes one position of a sequence for display.
type StageInfo struct {
	Order       int    `json:"order"`
	Stage       string `json:"stage"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SequenceInfo returns the ordered stage metadata for a direction, for
// clients rendering the workflow timeline.
func SequenceInfo(direction domain.Direction) []StageInfo {
	seq := Incoming
	if direction == domain.DirectionOut {
		seq = Outgoing
	}

	out := make([]StageInfo, len(seq))
	for i, key := range seq {
		out[i] = StageInfo{
			Order:       i + 1,
			Stage:       string(key),
			Name:        key.Name(),
			Description: key.Description(),
		}
	}
	return out
}
