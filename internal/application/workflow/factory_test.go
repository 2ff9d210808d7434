package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	domainwf "github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

func TestTransitionTable(t *testing.T) {
	count := make(map[domainwf.Trigger]int)
	for _, e := range TransitionTable() {
		count[e.Trigger]++
	}

	assert.Equal(t, map[domainwf.Trigger]int{
		domainwf.TriggerSubmit:                 2,
		domainwf.TriggerAllocate:               3,
		domainwf.TriggerDeallocate:             1,
		domainwf.TriggerRedetermine:            4,
		domainwf.TriggerAwaitWrittenReasons:    4,
		domainwf.TriggerAuthorise:              2,
		domainwf.TriggerAuthorisePart:          2,
		domainwf.TriggerRefuse:                 2,
		domainwf.TriggerReject:                 2,
		domainwf.TriggerArchivePendingDelete:   5,
		domainwf.TriggerArchivePendingReview:   4,
		domainwf.TriggerTransitionCloneToDraft: 1,
	}, count)
}

func TestCheckTransitionTable(t *testing.T) {
	require.NoError(t, CheckTransitionTable())
}

func TestBuildClaimStateMachine_GuardsReadClaimAtFireTime(t *testing.T) {
	claim := &entity.Claim{State: domainwf.StateRejected}
	machine := BuildClaimStateMachine(claim, fakePolicy{hardship: true})

	target, err := machine.Resolve(context.Background(), domainwf.TriggerArchivePendingReview)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateArchivedPendingReview, target)

	_, err = machine.Resolve(context.Background(), domainwf.TriggerArchivePendingDelete)
	assert.ErrorIs(t, err, domainwf.ErrGuardFailed)

	require.NoError(t, machine.Fire(context.Background(), domainwf.TriggerTransitionCloneToDraft))
	assert.Equal(t, domainwf.StateDraft, machine.State())
}
