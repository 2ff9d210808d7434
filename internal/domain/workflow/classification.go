package workflow

import (
	"fmt"
	"sort"
)

// Classification names a static group of states used for dashboards, filters and side-effect rules
type Classification string

const (
	ExternalUserDashboardDraft          Classification = "external_user_dashboard_draft"
	ExternalUserDashboardRejected       Classification = "external_user_dashboard_rejected"
	ExternalUserDashboardSubmitted      Classification = "external_user_dashboard_submitted"
	ExternalUserDashboardPartAuthorised Classification = "external_user_dashboard_part_authorised"
	ExternalUserDashboardCompleted      Classification = "external_user_dashboard_completed"
	CaseworkerDashboardCompleted        Classification = "caseworker_dashboard_completed"
	CaseworkerDashboardUnderAssessment  Classification = "caseworker_dashboard_under_assessment"
	CaseworkerDashboardUnallocated      Classification = "caseworker_dashboard_unallocated"
	CaseworkerDashboardArchived         Classification = "caseworker_dashboard_archived"
	ValidForRedetermination             Classification = "valid_for_redetermination"
	ValidForArchival                    Classification = "valid_for_archival"
	ValidForAllocation                  Classification = "valid_for_allocation"
	ValidForDeallocation                Classification = "valid_for_deallocation"
	NonDraft                            Classification = "non_draft"
	NonValidation                       Classification = "non_validation"
	Authorised                          Classification = "authorised"
	PreviouslyAuthorised                Classification = "previously_authorised"
)

var classifications = map[Classification][]State{
	ExternalUserDashboardDraft:          {StateDraft},
	ExternalUserDashboardRejected:       {StateRejected},
	ExternalUserDashboardSubmitted:      {StateAllocated, StateSubmitted},
	ExternalUserDashboardPartAuthorised: {StatePartAuthorised},
	ExternalUserDashboardCompleted:      {StateRefused, StateAuthorised},
	CaseworkerDashboardCompleted:        {StateAuthorised, StatePartAuthorised, StateRejected, StateRefused},
	CaseworkerDashboardUnderAssessment:  {StateAllocated},
	CaseworkerDashboardUnallocated:      {StateSubmitted, StateRedetermination, StateAwaitingWrittenReasons},
	CaseworkerDashboardArchived: {
		StateAuthorised, StatePartAuthorised, StateRejected, StateRefused,
		StateArchivedPendingDelete, StateArchivedPendingReview,
	},
	ValidForRedetermination: {StateAuthorised, StatePartAuthorised, StateRefused, StateRejected},
	ValidForArchival:        {StateAuthorised, StatePartAuthorised, StateRefused, StateRejected},
	ValidForAllocation:      {StateSubmitted, StateRedetermination, StateAwaitingWrittenReasons},
	ValidForDeallocation:    {StateAllocated},
	NonDraft: {
		StateAllocated, StateAuthorised, StatePartAuthorised, StateRefused, StateRejected,
		StateSubmitted, StateAwaitingWrittenReasons, StateRedetermination,
		StateArchivedPendingDelete, StateArchivedPendingReview,
	},
	NonValidation: {
		StateAllocated, StateArchivedPendingDelete, StateArchivedPendingReview,
		StateAuthorised, StateAwaitingWrittenReasons, StateDeallocated,
		StatePartAuthorised, StateRedetermination, StateRefused, StateRejected,
	},
	Authorised:           {StatePartAuthorised, StateRefused, StateAuthorised},
	PreviouslyAuthorised: {StateAuthorised, StatePartAuthorised},
}

// StatesFor returns the states in a classification, or nil for an unknown name
func StatesFor(name Classification) []State {
	states, ok := classifications[name]
	if !ok {
		return nil
	}
	return append([]State(nil), states...)
}

// InClassification reports whether state belongs to the named classification.
// Unknown names are never satisfied.
func InClassification(name Classification, state State) bool {
	return state.In(classifications[name]...)
}

// Classifications returns every classification name, sorted
func Classifications() []Classification {
	names := make([]Classification, 0, len(classifications))
	for name := range classifications {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// DashboardDisplayableStates lists, without duplicates, every state shown on a dashboard
func DashboardDisplayableStates() []State {
	groups := []Classification{
		ExternalUserDashboardDraft,
		ExternalUserDashboardRejected,
		ExternalUserDashboardSubmitted,
		CaseworkerDashboardUnallocated,
		ExternalUserDashboardPartAuthorised,
		ExternalUserDashboardCompleted,
	}

	seen := make(map[State]bool)
	var states []State
	for _, group := range groups {
		for _, s := range classifications[group] {
			if !seen[s] {
				seen[s] = true
				states = append(states, s)
			}
		}
	}
	return states
}

// CheckConsistency verifies the classification table against a transition table:
// every referenced state is declared, every target other than draft and submitted
// is a non-validation state, and every target other than draft and deallocated is non-draft.
func CheckConsistency(edges []Edge) error {
	for name, states := range classifications {
		for _, s := range states {
			if !s.IsValid() {
				return fmt.Errorf("%w: classification %s references %q", ErrInvalidState, name, s)
			}
		}
	}

	for _, e := range edges {
		if !e.From.IsValid() || !e.To.IsValid() {
			return fmt.Errorf("%w: edge %s -%s-> %s", ErrInvalidState, e.From, e.Trigger, e.To)
		}
		if e.To != StateDraft && e.To != StateDeallocated && !InClassification(NonDraft, e.To) {
			return fmt.Errorf("target %s of %s is missing from %s", e.To, e.Trigger, NonDraft)
		}
		if e.To != StateDraft && e.To != StateSubmitted && !InClassification(NonValidation, e.To) {
			return fmt.Errorf("target %s of %s is missing from %s", e.To, e.Trigger, NonValidation)
		}
	}

	return nil
}
