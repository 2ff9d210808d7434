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

// AssessmentRepository implements port.AssessmentRepository
type AssessmentRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *sqlite.DB, logger *zap.Logger) port.AssessmentRepository {
	return &AssessmentRepository{
		db:     db,
		logger: logger,
	}
}

// GetByClaimID retrieves the claim's assessment
func (r *AssessmentRepository) GetByClaimID(ctx context.Context, claimID string) (*entity.Assessment, error) {
	query := `
		SELECT id, claim_id, fees, expenses, disbursements, updated_at
		FROM assessments
		WHERE claim_id = ?
	`

	var a entity.Assessment
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, claimID).Scan(
		&a.ID,
		&a.ClaimID,
		&a.Fees,
		&a.Expenses,
		&a.Disbursements,
		&a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assessment for claim %s: %w", claimID, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get assessment", zap.String("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return &a, nil
}

// Save inserts the assessment or replaces the claim's existing one
func (r *AssessmentRepository) Save(ctx context.Context, a *entity.Assessment) error {
	query := `
		INSERT INTO assessments (claim_id, fees, expenses, disbursements, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(claim_id) DO UPDATE SET
			fees = excluded.fees,
			expenses = excluded.expenses,
			disbursements = excluded.disbursements,
			updated_at = excluded.updated_at
	`

	exec := r.db.Executor(ctx)
	if _, err := exec.ExecContext(ctx, query,
		a.ClaimID,
		a.Fees,
		a.Expenses,
		a.Disbursements,
		a.UpdatedAt.UTC(),
	); err != nil {
		r.logger.Error("Failed to save assessment", zap.String("claim_id", a.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to save assessment: %w", err)
	}

	if err := exec.QueryRowContext(ctx, `SELECT id FROM assessments WHERE claim_id = ?`, a.ClaimID).Scan(&a.ID); err != nil {
		return fmt.Errorf("failed to read assessment id: %w", err)
	}
	return nil
}
