package workflow

import "fmt"

// Trigger represents a lifecycle event that can cause a state transition
type Trigger string

const (
	TriggerSubmit                 Trigger = "submit"
	TriggerAllocate               Trigger = "allocate"
	TriggerDeallocate             Trigger = "deallocate"
	TriggerRedetermine            Trigger = "redetermine"
	TriggerAwaitWrittenReasons    Trigger = "await_written_reasons"
	TriggerAuthorise              Trigger = "authorise"
	TriggerAuthorisePart          Trigger = "authorise_part"
	TriggerRefuse                 Trigger = "refuse"
	TriggerReject                 Trigger = "reject"
	TriggerArchivePendingDelete   Trigger = "archive_pending_delete"
	TriggerArchivePendingReview   Trigger = "archive_pending_review"
	TriggerTransitionCloneToDraft Trigger = "transition_clone_to_draft"
)

var allTriggers = []Trigger{
	TriggerSubmit,
	TriggerAllocate,
	TriggerDeallocate,
	TriggerRedetermine,
	TriggerAwaitWrittenReasons,
	TriggerAuthorise,
	TriggerAuthorisePart,
	TriggerRefuse,
	TriggerReject,
	TriggerArchivePendingDelete,
	TriggerArchivePendingReview,
	TriggerTransitionCloneToDraft,
}

// AllTriggers returns every declared trigger
func AllTriggers() []Trigger {
	return append([]Trigger(nil), allTriggers...)
}

// ParseTrigger converts an event name into a Trigger
func ParseTrigger(name string) (Trigger, error) {
	for _, t := range allTriggers {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, name)
}

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
