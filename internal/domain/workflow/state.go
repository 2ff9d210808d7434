package workflow

// State represents a claim's position in the lifecycle
type State string

const (
	StateDraft                  State = "draft"
	StateSubmitted              State = "submitted"
	StateAllocated              State = "allocated"
	StateDeallocated            State = "deallocated"
	StateRedetermination        State = "redetermination"
	StateAwaitingWrittenReasons State = "awaiting_written_reasons"
	StateAuthorised             State = "authorised"
	StatePartAuthorised         State = "part_authorised"
	StateRefused                State = "refused"
	StateRejected               State = "rejected"
	StateArchivedPendingDelete  State = "archived_pending_delete"
	StateArchivedPendingReview  State = "archived_pending_review"
)

// InitialState is the state every new claim starts in
const InitialState = StateDraft

var allStates = []State{
	StateDraft,
	StateSubmitted,
	StateAllocated,
	StateDeallocated,
	StateRedetermination,
	StateAwaitingWrittenReasons,
	StateAuthorised,
	StatePartAuthorised,
	StateRefused,
	StateRejected,
	StateArchivedPendingDelete,
	StateArchivedPendingReview,
}

var validStates = func() map[State]bool {
	m := make(map[State]bool, len(allStates))
	for _, s := range allStates {
		m[s] = true
	}
	return m
}()

// AllStates returns every declared state in declaration order
func AllStates() []State {
	return append([]State(nil), allStates...)
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a declared lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}

// In reports whether s is one of states
func (s State) In(states ...State) bool {
	for _, candidate := range states {
		if s == candidate {
			return true
		}
	}
	return false
}
