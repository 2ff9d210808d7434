package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/workflow"
	"github.com/garyjia/legal-aid-claims/internal/infrastructure/persistence/sqlite"
)

// TransitionRepository implements port.TransitionRepository. Records are never updated or deleted.
type TransitionRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewTransitionRepository creates a new transition repository
func NewTransitionRepository(db *sqlite.DB, logger *zap.Logger) port.TransitionRepository {
	return &TransitionRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores a transition record and sets its ID
func (r *TransitionRepository) Append(ctx context.Context, record *entity.TransitionRecord) error {
	query := `
		INSERT INTO claim_transitions (
			claim_id, from_state, to_state, event,
			reason_code, reason_text, author_id, subject_id, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		record.ClaimID,
		record.From.String(),
		record.To.String(),
		record.Event.String(),
		nullString(record.ReasonCode),
		nullString(record.ReasonText),
		nullString(record.AuthorID),
		nullString(record.SubjectID),
		record.OccurredAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to append transition",
			zap.String("claim_id", record.ClaimID),
			zap.String("event", record.Event.String()),
			zap.Error(err))
		return fmt.Errorf("failed to append transition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// ListByClaimID returns a claim's records in the order they happened
func (r *TransitionRepository) ListByClaimID(ctx context.Context, claimID string) ([]entity.TransitionRecord, error) {
	query := `
		SELECT id, claim_id, from_state, to_state, event,
			reason_code, reason_text, author_id, subject_id, occurred_at
		FROM claim_transitions
		WHERE claim_id = ?
		ORDER BY occurred_at, id
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to list transitions", zap.String("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer rows.Close()

	var records []entity.TransitionRecord
	for rows.Next() {
		var rec entity.TransitionRecord
		var from, to, evt string
		var reasonCode, reasonText, author, subject sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.ClaimID,
			&from,
			&to,
			&evt,
			&reasonCode,
			&reasonText,
			&author,
			&subject,
			&rec.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		rec.From = workflow.State(from)
		rec.To = workflow.State(to)
		rec.Event = workflow.Trigger(evt)
		rec.ReasonCode = reasonCode.String
		rec.ReasonText = reasonText.String
		rec.AuthorID = author.String
		rec.SubjectID = subject.String
		records = append(records, rec)
	}

	return records, rows.Err()
}
