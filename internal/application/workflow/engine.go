package workflow

import (
	"context"

	"github.com/garyjia/legal-aid-claims/internal/domain/audit"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	domainwf "github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// Metadata is caller-supplied context stored on the transition record
type Metadata struct {
	ReasonCode string `json:"reason_code,omitempty" validate:"omitempty,max=64"`
	ReasonText string `json:"reason_text,omitempty" validate:"omitempty,max=2000"`
	AuthorID   string `json:"author_id,omitempty" validate:"omitempty,max=64"`
	SubjectID  string `json:"subject_id,omitempty" validate:"omitempty,max=64"`

	// CaseWorkerID is assigned to the claim on allocate
	CaseWorkerID string `json:"case_worker_id,omitempty" validate:"omitempty,max=64"`
}

// Result describes a completed transition. To is the edge's target; State is where the
// claim ended up, which differs from To only for deallocate.
type Result struct {
	From   domainwf.State
	To     domainwf.State
	State  domainwf.State
	Record entity.TransitionRecord
}

// Engine runs claim lifecycle transitions
type Engine interface {
	// RequestTransition fires event on the claim under the claim lock and a single transaction
	RequestTransition(ctx context.Context, claimID string, event domainwf.Trigger, meta Metadata) (*Result, error)

	// TransitionHistory returns the claim's audit trail
	TransitionHistory(ctx context.Context, claimID string) (*audit.Log, error)

	// PermittedEvents lists the events whose guards currently pass for the claim
	PermittedEvents(ctx context.Context, claimID string) ([]domainwf.Trigger, error)
}
