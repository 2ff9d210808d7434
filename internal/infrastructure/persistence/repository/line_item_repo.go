package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/persistence/sqlite"
)

// LineItemRepository implements port.LineItemRepository
type LineItemRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewLineItemRepository creates a new line item repository
func NewLineItemRepository(db *sqlite.DB, logger *zap.Logger) port.LineItemRepository {
	return &LineItemRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a line item and sets its ID
func (r *LineItemRepository) Create(ctx context.Context, item *entity.LineItem) error {
	query := `
		INSERT INTO line_items (
			claim_id, category, description, amount, vat_amount, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		item.ClaimID,
		string(item.Category),
		nullString(item.Description),
		nullAmount(item.Amount),
		nullAmount(item.VatAmount),
		item.CreatedAt.UTC(),
		item.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create line item", zap.String("claim_id", item.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create line item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	item.ID = id
	return nil
}

// GetByID retrieves a line item
func (r *LineItemRepository) GetByID(ctx context.Context, id int64) (*entity.LineItem, error) {
	query := `
		SELECT id, claim_id, category, description, amount, vat_amount, created_at, updated_at
		FROM line_items
		WHERE id = ?
	`

	item, err := scanLineItem(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("line item %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get line item", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get line item: %w", err)
	}
	return item, nil
}

// Update replaces the mutable fields of a line item
func (r *LineItemRepository) Update(ctx context.Context, item *entity.LineItem) error {
	query := `
		UPDATE line_items
		SET category = ?, description = ?, amount = ?, vat_amount = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		string(item.Category),
		nullString(item.Description),
		nullAmount(item.Amount),
		nullAmount(item.VatAmount),
		item.UpdatedAt.UTC(),
		item.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update line item", zap.Int64("id", item.ID), zap.Error(err))
		return fmt.Errorf("failed to update line item: %w", err)
	}
	return requireRow(result, "line item", item.ID)
}

// Delete removes a line item
func (r *LineItemRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM line_items WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete line item", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete line item: %w", err)
	}
	return requireRow(result, "line item", id)
}

// ListByClaimID returns a claim's line items in insertion order
func (r *LineItemRepository) ListByClaimID(ctx context.Context, claimID string) ([]entity.LineItem, error) {
	query := `
		SELECT id, claim_id, category, description, amount, vat_amount, created_at, updated_at
		FROM line_items
		WHERE claim_id = ?
		ORDER BY id
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to list line items", zap.String("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	defer rows.Close()

	var items []entity.LineItem
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanLineItem(row rowScanner) (*entity.LineItem, error) {
	var (
		item        entity.LineItem
		category    string
		description sql.NullString
		amount      sql.NullString
		vat         sql.NullString
	)

	if err := row.Scan(
		&item.ID,
		&item.ClaimID,
		&category,
		&description,
		&amount,
		&vat,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}

	c, err := entity.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	item.Category = c
	item.Description = description.String

	if item.Amount, err = amountPtr(amount); err != nil {
		return nil, err
	}
	if item.VatAmount, err = amountPtr(vat); err != nil {
		return nil, err
	}
	return &item, nil
}
