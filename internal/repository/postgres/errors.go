package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/jwalitptl/scheduling-api/internal/repository"
)

const (
	codeExclusionViolation = "23P01"
	codeUniqueViolation    = "23505"
)

// translate maps driver errors onto repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeExclusionViolation {
		return repository.ErrOverlap
	}
	return err
}

// IsOverlap reports whether err came from the double-booking constraint.
func IsOverlap(err error) bool {
	return errors.Is(translate(err), repository.ErrOverlap)
}
