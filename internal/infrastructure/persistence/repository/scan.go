package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/legal-aid-claims/internal/domain/money"
)

// nullString stores empty strings as NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// nullAmount stores a nil amount as NULL
func nullAmount(a *money.Amount) sql.NullString {
	if a == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: a.Decimal().String(), Valid: true}
}

func amountPtr(ns sql.NullString) (*money.Amount, error) {
	if !ns.Valid {
		return nil, nil
	}
	a, err := money.Parse(ns.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored amount: %w", err)
	}
	return &a, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}
