package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/persistence/sqlite"
)

// VatRateRepository implements port.VatRateRepository
type VatRateRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewVatRateRepository creates a new VAT rate repository
func NewVatRateRepository(db *sqlite.DB, logger *zap.Logger) port.VatRateRepository {
	return &VatRateRepository{
		db:     db,
		logger: logger,
	}
}

// List returns every rate ordered by start date
func (r *VatRateRepository) List(ctx context.Context) ([]entity.VatRate, error) {
	query := `
		SELECT id, rate, effective_from, effective_to
		FROM vat_rates
		ORDER BY effective_from, id
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list vat rates", zap.Error(err))
		return nil, fmt.Errorf("failed to list vat rates: %w", err)
	}
	defer rows.Close()

	var rates []entity.VatRate
	for rows.Next() {
		var (
			rate entity.VatRate
			raw  string
			to   sql.NullTime
		)
		if err := rows.Scan(&rate.ID, &raw, &rate.EffectiveFrom, &to); err != nil {
			return nil, fmt.Errorf("failed to scan vat rate: %w", err)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid vat rate %q: %w", raw, err)
		}
		rate.Rate = d
		rate.EffectiveTo = timePtr(to)
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}
