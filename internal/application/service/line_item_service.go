package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/application/workflow"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
)

// LineItemService mutates fees, expenses and disbursements. Every mutation and the
// resulting totals recomputation commit together or not at all.
type LineItemService interface {
	Add(ctx context.Context, item *entity.LineItem) (entity.ClaimTotals, error)
	Update(ctx context.Context, item *entity.LineItem) (entity.ClaimTotals, error)
	Remove(ctx context.Context, claimID string, itemID int64) (entity.ClaimTotals, error)
	SetApplyVat(ctx context.Context, claimID string, applyVat bool) (entity.ClaimTotals, error)
}

type lineItemServiceImpl struct {
	itemRepo   port.LineItemRepository
	claimRepo  port.ClaimRepository
	txManager  port.TransactionManager
	locker     port.Locker
	lockTiming workflow.LockTiming
	totals     TotalsService
	clock      port.Clock
	validate   *validator.Validate
	logger     Logger
}

// NewLineItemService creates a new LineItemService
func NewLineItemService(
	itemRepo port.LineItemRepository,
	claimRepo port.ClaimRepository,
	txManager port.TransactionManager,
	locker port.Locker,
	lockTiming workflow.LockTiming,
	totals TotalsService,
	clock port.Clock,
	logger Logger,
) LineItemService {
	if clock == nil {
		clock = port.SystemClock{}
	}
	return &lineItemServiceImpl{
		itemRepo:   itemRepo,
		claimRepo:  claimRepo,
		txManager:  txManager,
		locker:     locker,
		lockTiming: lockTiming,
		totals:     totals,
		clock:      clock,
		validate:   validator.New(),
		logger:     orNop(logger),
	}
}

// Add stores a new line item and recomputes the claim totals
func (s *lineItemServiceImpl) Add(ctx context.Context, item *entity.LineItem) (entity.ClaimTotals, error) {
	if err := s.validate.Struct(item); err != nil {
		return entity.ClaimTotals{}, fmt.Errorf("invalid line item: %w", err)
	}

	return s.mutate(ctx, item.ClaimID, "add", func(txCtx context.Context) error {
		if _, err := s.claimRepo.GetByID(txCtx, item.ClaimID); err != nil {
			return fmt.Errorf("failed to load claim %s: %w", item.ClaimID, err)
		}
		now := s.clock.Now()
		item.CreatedAt = now
		item.UpdatedAt = now
		if err := s.itemRepo.Create(txCtx, item); err != nil {
			return fmt.Errorf("create line item: %w", err)
		}
		return nil
	})
}

// Update replaces a line item's category, description and amounts
func (s *lineItemServiceImpl) Update(ctx context.Context, item *entity.LineItem) (entity.ClaimTotals, error) {
	if err := s.validate.Struct(item); err != nil {
		return entity.ClaimTotals{}, fmt.Errorf("invalid line item: %w", err)
	}

	return s.mutate(ctx, item.ClaimID, "update", func(txCtx context.Context) error {
		existing, err := s.itemRepo.GetByID(txCtx, item.ID)
		if err != nil {
			return fmt.Errorf("failed to load line item %d: %w", item.ID, err)
		}
		if existing.ClaimID != item.ClaimID {
			return fmt.Errorf("line item %d: %w", item.ID, port.ErrNotFound)
		}
		item.CreatedAt = existing.CreatedAt
		item.UpdatedAt = s.clock.Now()
		if err := s.itemRepo.Update(txCtx, item); err != nil {
			return fmt.Errorf("update line item: %w", err)
		}
		return nil
	})
}

// Remove deletes a line item from the claim
func (s *lineItemServiceImpl) Remove(ctx context.Context, claimID string, itemID int64) (entity.ClaimTotals, error) {
	return s.mutate(ctx, claimID, "remove", func(txCtx context.Context) error {
		existing, err := s.itemRepo.GetByID(txCtx, itemID)
		if err != nil {
			return fmt.Errorf("failed to load line item %d: %w", itemID, err)
		}
		if existing.ClaimID != claimID {
			return fmt.Errorf("line item %d: %w", itemID, port.ErrNotFound)
		}
		if err := s.itemRepo.Delete(txCtx, itemID); err != nil {
			return fmt.Errorf("delete line item: %w", err)
		}
		return nil
	})
}

// SetApplyVat changes whether fees attract VAT
func (s *lineItemServiceImpl) SetApplyVat(ctx context.Context, claimID string, applyVat bool) (entity.ClaimTotals, error) {
	return s.mutate(ctx, claimID, "set_apply_vat", func(txCtx context.Context) error {
		if err := s.claimRepo.SetApplyVat(txCtx, claimID, applyVat); err != nil {
			return fmt.Errorf("set apply vat: %w", err)
		}
		return nil
	})
}

// mutate runs change and the eager recomputation in one transaction under the claim lock,
// publishing the committed totals before the lock is released
func (s *lineItemServiceImpl) mutate(ctx context.Context, claimID, action string, change func(ctx context.Context) error) (entity.ClaimTotals, error) {
	var totals entity.ClaimTotals
	err := workflow.WithClaimLock(ctx, s.locker, s.lockTiming, claimID, func(ctx context.Context) error {
		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := change(txCtx); err != nil {
				return err
			}
			t, err := s.totals.Recompute(txCtx, claimID)
			if err != nil {
				return err
			}
			totals = t
			return nil
		})
		if err != nil {
			return err
		}
		s.totals.Publish(ctx, claimID, totals)
		return nil
	})
	if err != nil {
		s.totals.Discard(claimID)
		s.logger.Error("Line item change failed", "error", err, "claim_id", claimID, "action", action)
		return entity.ClaimTotals{}, err
	}

	s.logger.Info("Line items changed", "claim_id", claimID, "action", action)
	return totals, nil
}
