package entity

import (
	"time"

	"github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// Reason codes written by the system rather than a user
const (
	ReasonTimedTransition = "timed_transition"
)

// TransitionRecord is one immutable entry in a claim's audit trail.
// ID increases with insertion order and breaks ties between equal timestamps.
type TransitionRecord struct {
	ID         int64            `json:"id"`
	ClaimID    string           `json:"claim_id"`
	From       workflow.State   `json:"from"`
	To         workflow.State   `json:"to"`
	Event      workflow.Trigger `json:"event"`
	OccurredAt time.Time        `json:"occurred_at"`
	ReasonCode string           `json:"reason_code,omitempty"`
	ReasonText string           `json:"reason_text,omitempty"`
	AuthorID   string           `json:"author_id,omitempty"`
	SubjectID  string           `json:"subject_id,omitempty"`
}
