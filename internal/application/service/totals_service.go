package service

import (
	"context"
	"fmt"

	"github.com/garyjia/legal-aid-claims/internal/application/dispatcher"
	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/application/workflow"
	"github.com/garyjia/legal-aid-claims/internal/domain/calculation"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/event"
)

// TotalsService keeps each claim's totals snapshot consistent with its line items
type TotalsService interface {
	// CurrentTotals returns the stored snapshot, computing it first if the claim never had one
	CurrentTotals(ctx context.Context, claimID string) (entity.ClaimTotals, error)

	// RecomputeTotals recomputes and stores the snapshot under the claim lock
	RecomputeTotals(ctx context.Context, claimID string) (entity.ClaimTotals, error)

	// Recompute computes and stores the snapshot inside the caller's transaction.
	// The caller must hold the claim lock and call Publish once the transaction commits,
	// still holding the lock.
	Recompute(ctx context.Context, claimID string) (entity.ClaimTotals, error)

	// Publish caches a committed snapshot and announces it
	Publish(ctx context.Context, claimID string, totals entity.ClaimTotals)

	// Discard drops any cached snapshot, used when a transaction rolls back
	Discard(claimID string)
}

// TotalsDeps groups the collaborators of TotalsService
type TotalsDeps struct {
	Claims     port.ClaimRepository
	LineItems  port.LineItemRepository
	VatRates   port.VatRateRepository
	TxManager  port.TransactionManager
	Locker     port.Locker
	LockTiming workflow.LockTiming
	Bands      *calculation.BandClassifier
	Cache      port.TotalsCache
	Clock      port.Clock
	Dispatcher dispatcher.Dispatcher
	Metrics    port.Metrics
	Logger     Logger
}

type totalsServiceImpl struct {
	TotalsDeps
}

// NewTotalsService creates a new TotalsService
func NewTotalsService(deps TotalsDeps) TotalsService {
	if deps.Bands == nil {
		deps.Bands = calculation.MustBandClassifier(calculation.DefaultBands())
	}
	if deps.Clock == nil {
		deps.Clock = port.SystemClock{}
	}
	deps.Logger = orNop(deps.Logger)
	return &totalsServiceImpl{TotalsDeps: deps}
}

// CurrentTotals returns the cached or stored snapshot. A miss is filled under the claim
// lock so a mutation cannot publish between the read and the cache write.
func (s *totalsServiceImpl) CurrentTotals(ctx context.Context, claimID string) (entity.ClaimTotals, error) {
	if s.Cache != nil {
		if totals, ok := s.Cache.Get(claimID); ok {
			return totals, nil
		}
	}

	var totals entity.ClaimTotals
	err := workflow.WithClaimLock(ctx, s.Locker, s.LockTiming, claimID, func(ctx context.Context) error {
		claim, err := s.Claims.GetByID(ctx, claimID)
		if err != nil {
			return fmt.Errorf("failed to load claim %s: %w", claimID, err)
		}

		if claim.Totals.CalculatedAt.IsZero() {
			t, err := s.RecomputeTotals(ctx, claimID)
			if err != nil {
				return err
			}
			totals = t
			return nil
		}

		totals = claim.Totals
		if s.Cache != nil {
			s.Cache.Set(claimID, totals)
		}
		return nil
	})
	if err != nil {
		return entity.ClaimTotals{}, err
	}
	return totals, nil
}

// RecomputeTotals recomputes, stores and publishes the snapshot.
// Publishing happens before the claim lock is released.
func (s *totalsServiceImpl) RecomputeTotals(ctx context.Context, claimID string) (entity.ClaimTotals, error) {
	var totals entity.ClaimTotals
	err := workflow.WithClaimLock(ctx, s.Locker, s.LockTiming, claimID, func(ctx context.Context) error {
		err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
			t, err := s.Recompute(txCtx, claimID)
			if err != nil {
				return err
			}
			totals = t
			return nil
		})
		if err != nil {
			return err
		}
		s.Publish(ctx, claimID, totals)
		return nil
	})
	if err != nil {
		s.Discard(claimID)
		s.Logger.Error("Failed to recompute totals", "error", err, "claim_id", claimID)
		return entity.ClaimTotals{}, err
	}
	return totals, nil
}

// Recompute runs the calculation against the current line items and rate table
func (s *totalsServiceImpl) Recompute(ctx context.Context, claimID string) (entity.ClaimTotals, error) {
	claim, err := s.Claims.GetByID(ctx, claimID)
	if err != nil {
		return entity.ClaimTotals{}, fmt.Errorf("failed to load claim %s: %w", claimID, err)
	}

	items, err := s.LineItems.ListByClaimID(ctx, claimID)
	if err != nil {
		return entity.ClaimTotals{}, fmt.Errorf("failed to load line items: %w", err)
	}

	rates, err := s.VatRates.List(ctx)
	if err != nil {
		return entity.ClaimTotals{}, fmt.Errorf("failed to load vat rates: %w", err)
	}

	calc := calculation.NewTotalsCalculator(
		calculation.NewVatCalculator(calculation.NewRateTable(rates)),
		s.Bands,
	)

	now := s.Clock.Now()
	totals, err := calc.Compute(calculation.Input{
		Items:    items,
		ApplyVat: claim.ApplyVat,
		VatDate:  claim.VatDate(now),
		Now:      now,
	})
	if err != nil {
		return entity.ClaimTotals{}, fmt.Errorf("failed to compute totals for claim %s: %w", claimID, err)
	}

	if err := s.Claims.SaveTotals(ctx, claimID, totals); err != nil {
		return entity.ClaimTotals{}, fmt.Errorf("failed to save totals: %w", err)
	}

	return totals, nil
}

// Publish caches the committed snapshot, records metrics and dispatches an event
func (s *totalsServiceImpl) Publish(ctx context.Context, claimID string, totals entity.ClaimTotals) {
	if s.Cache != nil {
		s.Cache.Set(claimID, totals)
	}
	if s.Metrics != nil {
		s.Metrics.TotalsRecomputed(totals.ValueBandID)
	}
	if s.Dispatcher != nil {
		s.Dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeTotalsRecomputed, claimID, map[string]interface{}{
			"total":         totals.Total.String(),
			"vat_amount":    totals.VatAmount.String(),
			"value_band_id": totals.ValueBandID,
		}))
	}
	s.Logger.Info("Totals recomputed",
		"claim_id", claimID,
		"total", totals.Total.String(),
		"vat_amount", totals.VatAmount.String(),
		"value_band_id", totals.ValueBandID,
	)
}

// Discard drops the cached snapshot
func (s *totalsServiceImpl) Discard(claimID string) {
	if s.Cache != nil {
		s.Cache.Invalidate(claimID)
	}
}
