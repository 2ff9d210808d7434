package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/workflow"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/persistence/sqlite"
)

const claimColumns = `
	id, state, case_number, hardship, fixed_fee, allocation_type, apply_vat,
	last_submitted_at, original_submission_date, authorised_at, valid_until, case_worker_ids,
	fees_total, expenses_total, disbursements_total, fees_vat, expenses_vat, disbursements_vat,
	vat_amount, total, value_band_id, totals_calculated_at,
	lock_version, created_at, updated_at`

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sqlite.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new claim
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	workers, err := encodeCaseWorkers(claim.CaseWorkerIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO claims (
			id, state, case_number, hardship, fixed_fee, allocation_type, apply_vat,
			last_submitted_at, original_submission_date, authorised_at, valid_until,
			case_worker_ids, lock_version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Executor(ctx).ExecContext(ctx, query,
		claim.ID,
		claim.State.String(),
		claim.CaseNumber,
		claim.Hardship,
		claim.FixedFee,
		nullString(claim.AllocationType),
		claim.ApplyVat,
		nullTime(claim.LastSubmittedAt),
		nullTime(claim.OriginalSubmissionDate),
		nullTime(claim.AuthorisedAt),
		nullTime(claim.ValidUntil),
		workers,
		claim.LockVersion,
		claim.CreatedAt.UTC(),
		claim.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.String("claim_id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

// GetByID retrieves a claim with its totals snapshot
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = ?`

	claim, err := scanClaim(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get claim", zap.String("claim_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// Update writes lifecycle fields guarded by the optimistic lock version
func (r *ClaimRepository) Update(ctx context.Context, claim *entity.Claim) error {
	workers, err := encodeCaseWorkers(claim.CaseWorkerIDs)
	if err != nil {
		return err
	}

	query := `
		UPDATE claims SET
			state = ?, case_number = ?, hardship = ?, fixed_fee = ?, allocation_type = ?,
			last_submitted_at = ?, original_submission_date = ?, authorised_at = ?, valid_until = ?,
			case_worker_ids = ?, lock_version = lock_version + 1, updated_at = ?
		WHERE id = ? AND lock_version = ?
	`

	exec := r.db.Executor(ctx)
	result, err := exec.ExecContext(ctx, query,
		claim.State.String(),
		claim.CaseNumber,
		claim.Hardship,
		claim.FixedFee,
		nullString(claim.AllocationType),
		nullTime(claim.LastSubmittedAt),
		nullTime(claim.OriginalSubmissionDate),
		nullTime(claim.AuthorisedAt),
		nullTime(claim.ValidUntil),
		workers,
		claim.UpdatedAt.UTC(),
		claim.ID,
		claim.LockVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update claim", zap.String("claim_id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to update claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		var exists int
		err := exec.QueryRowContext(ctx, `SELECT 1 FROM claims WHERE id = ?`, claim.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("claim %s: %w", claim.ID, port.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check claim: %w", err)
		}
		return fmt.Errorf("claim %s at version %d: %w", claim.ID, claim.LockVersion, workflow.ErrConcurrentModification)
	}

	claim.LockVersion++
	return nil
}

// SetApplyVat changes the VAT flag
func (r *ClaimRepository) SetApplyVat(ctx context.Context, id string, applyVat bool) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE claims SET apply_vat = ? WHERE id = ?`, applyVat, id)
	if err != nil {
		r.logger.Error("Failed to set apply_vat", zap.String("claim_id", id), zap.Error(err))
		return fmt.Errorf("failed to set apply_vat: %w", err)
	}
	return requireRow(result, "claim", id)
}

// SaveTotals replaces the stored totals snapshot
func (r *ClaimRepository) SaveTotals(ctx context.Context, id string, totals entity.ClaimTotals) error {
	query := `
		UPDATE claims SET
			fees_total = ?, expenses_total = ?, disbursements_total = ?,
			fees_vat = ?, expenses_vat = ?, disbursements_vat = ?,
			vat_amount = ?, total = ?, value_band_id = ?, totals_calculated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		totals.FeesTotal,
		totals.ExpensesTotal,
		totals.DisbursementsTotal,
		totals.FeesVat,
		totals.ExpensesVat,
		totals.DisbursementsVat,
		totals.VatAmount,
		totals.Total,
		totals.ValueBandID,
		totals.CalculatedAt.UTC(),
		id,
	)
	if err != nil {
		r.logger.Error("Failed to save totals", zap.String("claim_id", id), zap.Error(err))
		return fmt.Errorf("failed to save totals: %w", err)
	}
	return requireRow(result, "claim", id)
}

// ListIdleInStates returns claims in states whose latest transition, or last update when
// there is none, happened before cutoff. Results are keyed by id after afterID.
func (r *ClaimRepository) ListIdleInStates(ctx context.Context, states []workflow.State, cutoff time.Time, afterID string, limit int) ([]string, error) {
	if len(states) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(states)), ",")
	query := `
		SELECT c.id FROM claims c
		WHERE c.state IN (` + placeholders + `)
		AND COALESCE(
			(SELECT MAX(t.occurred_at) FROM claim_transitions t WHERE t.claim_id = c.id),
			c.updated_at
		) < ?
		AND c.id > ?
		ORDER BY c.id
		LIMIT ?
	`

	args := make([]interface{}, 0, len(states)+3)
	for _, s := range states {
		args = append(args, s.String())
	}
	args = append(args, cutoff.UTC(), afterID, limit)

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list idle claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list idle claims: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan claim id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanClaim(row rowScanner) (*entity.Claim, error) {
	var (
		claim          entity.Claim
		state          string
		allocationType sql.NullString
		lastSubmitted  sql.NullTime
		originalDate   sql.NullTime
		authorisedAt   sql.NullTime
		validUntil     sql.NullTime
		workers        string
		calculatedAt   sql.NullTime
	)

	err := row.Scan(
		&claim.ID,
		&state,
		&claim.CaseNumber,
		&claim.Hardship,
		&claim.FixedFee,
		&allocationType,
		&claim.ApplyVat,
		&lastSubmitted,
		&originalDate,
		&authorisedAt,
		&validUntil,
		&workers,
		&claim.Totals.FeesTotal,
		&claim.Totals.ExpensesTotal,
		&claim.Totals.DisbursementsTotal,
		&claim.Totals.FeesVat,
		&claim.Totals.ExpensesVat,
		&claim.Totals.DisbursementsVat,
		&claim.Totals.VatAmount,
		&claim.Totals.Total,
		&claim.Totals.ValueBandID,
		&calculatedAt,
		&claim.LockVersion,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	claim.State = workflow.State(state)
	claim.AllocationType = allocationType.String
	claim.LastSubmittedAt = timePtr(lastSubmitted)
	claim.OriginalSubmissionDate = timePtr(originalDate)
	claim.AuthorisedAt = timePtr(authorisedAt)
	claim.ValidUntil = timePtr(validUntil)
	if calculatedAt.Valid {
		claim.Totals.CalculatedAt = calculatedAt.Time
	}
	if err := json.Unmarshal([]byte(workers), &claim.CaseWorkerIDs); err != nil {
		return nil, fmt.Errorf("failed to decode case workers: %w", err)
	}
	if len(claim.CaseWorkerIDs) == 0 {
		claim.CaseWorkerIDs = nil
	}

	return &claim, nil
}

func encodeCaseWorkers(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode case workers: %w", err)
	}
	return string(data), nil
}

// requireRow maps an update that touched nothing to port.ErrNotFound
func requireRow(result sql.Result, kind string, id interface{}) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %v: %w", kind, id, port.ErrNotFound)
	}
	return nil
}
