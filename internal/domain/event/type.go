package event

// Type identifies the type of domain event
type Type string

const (
	TypeClaimTransitioned    Type = "claim.transitioned"
	TypeTransitionFailed     Type = "claim.transition_failed"
	TypeTotalsRecomputed     Type = "claim.totals_recomputed"
	TypeAssessmentDecided    Type = "claim.assessment_decided"
	TypeClaimArchivedByTimer Type = "claim.archived_by_timer"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeClaimTransitioned,
		TypeTransitionFailed,
		TypeTotalsRecomputed,
		TypeAssessmentDecided,
		TypeClaimArchivedByTimer:
		return true
	default:
		return false
	}
}
