// Package audit answers questions about a claim's transition history.
// A Log is an immutable snapshot; every query is a pure function of the records it holds.
package audit

import (
	"sort"
	"time"

	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// Log is an ordered view of a claim's transition records
type Log struct {
	records []entity.TransitionRecord
}

// NewLog builds a log from records in any order
func NewLog(records []entity.TransitionRecord) *Log {
	sorted := append([]entity.TransitionRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return before(sorted[i], sorted[j])
	})
	return &Log{records: sorted}
}

// before orders by occurrence, then insertion
func before(a, b entity.TransitionRecord) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.Before(b.OccurredAt)
	}
	return a.ID < b.ID
}

// Len returns the number of records
func (l *Log) Len() int {
	return len(l.records)
}

// OldestFirst returns the records in the order they happened
func (l *Log) OldestFirst() []entity.TransitionRecord {
	return append([]entity.TransitionRecord(nil), l.records...)
}

// NewestFirst returns the records most recent first
func (l *Log) NewestFirst() []entity.TransitionRecord {
	out := make([]entity.TransitionRecord, len(l.records))
	for i, r := range l.records {
		out[len(l.records)-1-i] = r
	}
	return out
}

// LastState returns the most recent record
func (l *Log) LastState() (entity.TransitionRecord, bool) {
	if len(l.records) == 0 {
		return entity.TransitionRecord{}, false
	}
	return l.records[len(l.records)-1], true
}

// LastStateReason returns the reason code of the most recent record
func (l *Log) LastStateReason() string {
	r, ok := l.LastState()
	if !ok {
		return ""
	}
	return r.ReasonCode
}

// LastStateTime returns when the most recent record occurred
func (l *Log) LastStateTime() (time.Time, bool) {
	r, ok := l.LastState()
	if !ok {
		return time.Time{}, false
	}
	return r.OccurredAt, true
}

// LastDecision returns the most recent record into a decision state
func (l *Log) LastDecision() (entity.TransitionRecord, bool) {
	return l.LatestInto(workflow.StatesFor(workflow.CaseworkerDashboardCompleted)...)
}

// LatestInto returns the most recent record whose target is one of states
func (l *Log) LatestInto(states ...workflow.State) (entity.TransitionRecord, bool) {
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].To.In(states...) {
			return l.records[i], true
		}
	}
	return entity.TransitionRecord{}, false
}

// Filtered returns records newest first, without allocation churn
func (l *Log) Filtered() []entity.TransitionRecord {
	var out []entity.TransitionRecord
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].To.In(workflow.StateAllocated, workflow.StateDeallocated) {
			continue
		}
		out = append(out, l.records[i])
	}
	return out
}

// PreviouslyAuthorised reports whether the claim was ever authorised in full or in part
func (l *Log) PreviouslyAuthorised() bool {
	_, ok := l.LatestInto(workflow.StatesFor(workflow.PreviouslyAuthorised)...)
	return ok
}

// RequestedRedetermination reports whether an allocated claim was last allocated out of
// redetermination and its latest redetermination entry, if any, predates being reopened.
// Deallocation returns the claim to its prior state without a record, so the allocation's
// own source state is checked rather than the record before it.
func (l *Log) RequestedRedetermination(current workflow.State, redeterminations []entity.Redetermination) bool {
	if current != workflow.StateAllocated {
		return false
	}

	allocation, ok := l.LatestInto(workflow.StateAllocated)
	if !ok || allocation.From != workflow.StateRedetermination {
		return false
	}

	reopened, ok := l.LatestInto(workflow.StateRedetermination)
	if !ok {
		return false
	}

	latest, ok := LatestRedetermination(redeterminations)
	if !ok {
		return true
	}
	return latest.CreatedAt.Before(reopened.OccurredAt)
}

// LatestRedetermination returns the most recently created redetermination entry
func LatestRedetermination(redeterminations []entity.Redetermination) (entity.Redetermination, bool) {
	if len(redeterminations) == 0 {
		return entity.Redetermination{}, false
	}
	latest := redeterminations[0]
	for _, r := range redeterminations[1:] {
		if r.CreatedAt.After(latest.CreatedAt) || (r.CreatedAt.Equal(latest.CreatedAt) && r.ID > latest.ID) {
			latest = r
		}
	}
	return latest, true
}
