package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/persistence/sqlite"
)

// RedeterminationRepository implements port.RedeterminationRepository
type RedeterminationRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRedeterminationRepository creates a new redetermination repository
func NewRedeterminationRepository(db *sqlite.DB, logger *zap.Logger) port.RedeterminationRepository {
	return &RedeterminationRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a redetermination entry
func (r *RedeterminationRepository) Create(ctx context.Context, rd *entity.Redetermination) error {
	query := `
		INSERT INTO redeterminations (claim_id, fees, expenses, disbursements, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		rd.ClaimID,
		rd.Fees,
		rd.Expenses,
		rd.Disbursements,
		rd.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create redetermination", zap.String("claim_id", rd.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create redetermination: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rd.ID = id
	return nil
}

// ListByClaimID returns redeterminations oldest first
func (r *RedeterminationRepository) ListByClaimID(ctx context.Context, claimID string) ([]entity.Redetermination, error) {
	query := `
		SELECT id, claim_id, fees, expenses, disbursements, created_at
		FROM redeterminations
		WHERE claim_id = ?
		ORDER BY created_at, id
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to list redeterminations", zap.String("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to list redeterminations: %w", err)
	}
	defer rows.Close()

	var out []entity.Redetermination
	for rows.Next() {
		var rd entity.Redetermination
		if err := rows.Scan(&rd.ID, &rd.ClaimID, &rd.Fees, &rd.Expenses, &rd.Disbursements, &rd.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan redetermination: %w", err)
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}
