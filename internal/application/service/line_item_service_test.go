package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/calculation"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/event"
	"github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

func TestLineItemService_AddRecomputesTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	claim := f.seedClaim(workflow.StateDraft, day(2016, 1, 5))

	_, err := f.items.Add(ctx, &entity.LineItem{ClaimID: claim.ID, Category: entity.CategoryFee, Amount: amt("100.00")})
	require.NoError(t, err)
	_, err = f.items.Add(ctx, &entity.LineItem{ClaimID: claim.ID, Category: entity.CategoryExpense, Amount: amt("50.00"), VatAmount: amt("10.00")})
	require.NoError(t, err)
	totals, err := f.items.Add(ctx, &entity.LineItem{ClaimID: claim.ID, Category: entity.CategoryDisbursement, Amount: amt("25.00")})
	require.NoError(t, err)

	assert.Equal(t, "100.00", totals.FeesTotal.String())
	assert.Equal(t, "50.00", totals.ExpensesTotal.String())
	assert.Equal(t, "25.00", totals.DisbursementsTotal.String())
	assert.Equal(t, "20.00", totals.FeesVat.String())
	assert.Equal(t, "10.00", totals.ExpensesVat.String())
	assert.Equal(t, "30.00", totals.VatAmount.String())
	assert.Equal(t, "175.00", totals.Total.String())
	assert.Equal(t, 10, totals.ValueBandID)
	assert.Equal(t, testNow, totals.CalculatedAt)

	stored := f.store.claim(claim.ID)
	assert.True(t, stored.Totals.SameFigures(totals), "stored snapshot must match returned totals")

	cached, ok := f.cache.Get(claim.ID)
	require.True(t, ok)
	assert.True(t, cached.SameFigures(totals))

	assert.Equal(t, []int{10, 10, 10}, f.metrics.bands)
	assert.Equal(t, 3, f.dispatcher.count())
	assert.Equal(t, event.TypeTotalsRecomputed, f.dispatcher.events[0].Type)
}

func TestLineItemService_VatUsesOriginalSubmissionDate(t *testing.T) {
	f := newFixture(t)
	claim := f.seedClaim(workflow.StateDraft, day(2009, 6, 1))

	totals, err := f.items.Add(context.Background(), &entity.LineItem{
		ClaimID: claim.ID, Category: entity.CategoryFee, Amount: amt("100.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "15.00", totals.FeesVat.String())
}

func TestLineItemService_SetApplyVat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	claim := f.seedClaim(workflow.StateDraft, day(2016, 1, 5))

	_, err := f.items.Add(ctx, &entity.LineItem{ClaimID: claim.ID, Category: entity.CategoryFee, Amount: amt("100.00")})
	require.NoError(t, err)

	totals, err := f.items.SetApplyVat(ctx, claim.ID, false)
	require.NoError(t, err)
	assert.True(t, totals.FeesVat.IsZero())
	assert.Equal(t, "100.00", totals.TotalWithVat().String())
	assert.False(t, f.store.claim(claim.ID).ApplyVat)

	totals, err = f.items.SetApplyVat(ctx, claim.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "120.00", totals.TotalWithVat().String())
}

func TestLineItemService_UpdateAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	claim := f.seedClaim(workflow.StateDraft, day(2016, 1, 5))

	item := &entity.LineItem{ClaimID: claim.ID, Category: entity.CategoryFee, Amount: amt("100.00")}
	_, err := f.items.Add(ctx, item)
	require.NoError(t, err)

	item.Amount = amt("200.00")
	totals, err := f.items.Update(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, "200.00", totals.FeesTotal.String())
	assert.Equal(t, "40.00", totals.FeesVat.String())

	totals, err = f.items.Remove(ctx, claim.ID, item.ID)
	require.NoError(t, err)
	assert.True(t, totals.Total.IsZero())
	assert.True(t, totals.VatAmount.IsZero())
	assert.Equal(t, 0, f.store.itemCount())
}

func TestLineItemService_ItemOfAnotherClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	claim := f.seedClaim(workflow.StateDraft, day(2016, 1, 5))
	other := f.seedClaim(workflow.StateDraft, day(2016, 1, 5))

	item := &entity.LineItem{ClaimID: claim.ID, Category: entity.CategoryFee, Amount: amt("100.00")}
	_, err := f.items.Add(ctx, item)
	require.NoError(t, err)

	_, err = f.items.Remove(ctx, other.ID, item.ID)
	assert.ErrorIs(t, err, port.ErrNotFound)
	assert.Equal(t, 1, f.store.itemCount())
}

func TestLineItemService_RejectsInvalidItem(t *testing.T) {
	f := newFixture(t)
	claim := f.seedClaim(workflow.StateDraft, day(2016, 1, 5))

	_, err := f.items.Add(context.Background(), &entity.LineItem{ClaimID: claim.ID, Category: "travel"})
	require.Error(t, err)
	assert.Equal(t, 0, f.store.itemCount())
}

func TestLineItemService_UnknownClaim(t *testing.T) {
	f := newFixture(t)

	_, err := f.items.Add(context.Background(), &entity.LineItem{ClaimID: "missing", Category: entity.CategoryFee})
	assert.ErrorIs(t, err, port.ErrNotFound)
	assert.Equal(t, 0, f.store.itemCount())
}

func TestLineItemService_RollsBackWhenRecomputeFails(t *testing.T) {
	t.Run("no applicable rate", func(t *testing.T) {
		f := newFixture(t)
		f.store.rates = ukRates()[3:]
		claim := f.seedClaim(workflow.StateDraft, day(2010, 6, 1))

		_, err := f.items.Add(context.Background(), &entity.LineItem{
			ClaimID: claim.ID, Category: entity.CategoryFee, Amount: amt("100.00"),
		})

		var rateErr *calculation.NoApplicableRateError
		require.ErrorAs(t, err, &rateErr)
		assert.ErrorIs(t, err, calculation.ErrNoApplicableRate)
		assert.Equal(t, day(2010, 6, 1), rateErr.Date)
		assert.Equal(t, 0, f.store.itemCount(), "mutation must roll back with the recomputation")
		assert.True(t, f.store.claim(claim.ID).Totals.CalculatedAt.IsZero())
	})

	t.Run("band overflow", func(t *testing.T) {
		f := newFixture(t)
		claim := f.seedClaim(workflow.StateDraft, day(2016, 1, 5))

		_, err := f.items.Add(context.Background(), &entity.LineItem{
			ClaimID: claim.ID, Category: entity.CategoryDisbursement, Amount: amt("100000000.00"),
		})
		assert.ErrorIs(t, err, calculation.ErrBandOverflow)
		assert.Equal(t, 0, f.store.itemCount())
	})

	t.Run("store failure drops cached totals", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		claim := f.seedClaim(workflow.StateDraft, day(2016, 1, 5))

		_, err := f.items.Add(ctx, &entity.LineItem{ClaimID: claim.ID, Category: entity.CategoryFee, Amount: amt("100.00")})
		require.NoError(t, err)
		_, ok := f.cache.Get(claim.ID)
		require.True(t, ok)

		f.store.saveTotalsErr = errors.New("disk full")
		_, err = f.items.Add(ctx, &entity.LineItem{ClaimID: claim.ID, Category: entity.CategoryFee, Amount: amt("50.00")})
		require.Error(t, err)

		assert.Equal(t, 1, f.store.itemCount())
		assert.Equal(t, "100.00", f.store.claim(claim.ID).Totals.FeesTotal.String())
		_, ok = f.cache.Get(claim.ID)
		assert.False(t, ok)
		assert.NotEmpty(t, f.logger.errors)
	})
}

func TestTotalsService_CurrentTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	claim := f.seedClaim(workflow.StateDraft, day(2016, 1, 5))

	totals, err := f.totals.CurrentTotals(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, testNow, totals.CalculatedAt, "a claim without a snapshot is computed on first read")
	assert.Equal(t, 10, totals.ValueBandID)

	f.cache.Invalidate(claim.ID)
	again, err := f.totals.CurrentTotals(ctx, claim.ID)
	require.NoError(t, err)
	assert.True(t, again.SameFigures(totals))
	assert.Len(t, f.metrics.bands, 1, "stored snapshot must be read, not recomputed")

	_, err = f.totals.CurrentTotals(ctx, "missing")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestTotalsService_RecomputeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	claim := f.seedClaim(workflow.StateDraft, day(2016, 1, 5))

	_, err := f.items.Add(ctx, &entity.LineItem{ClaimID: claim.ID, Category: entity.CategoryFee, Amount: amt("33.33")})
	require.NoError(t, err)

	first, err := f.totals.RecomputeTotals(ctx, claim.ID)
	require.NoError(t, err)
	second, err := f.totals.RecomputeTotals(ctx, claim.ID)
	require.NoError(t, err)

	assert.True(t, first.SameFigures(second))
	assert.Equal(t, "6.67", first.FeesVat.String())
	assert.Equal(t, "40.00", first.TotalWithVat().String())
}
