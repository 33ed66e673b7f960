package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/tddproof/tddproof-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "public_key_length"):
		return errors.Validation(map[string]string{
			"public_key": "must be a 65-byte uncompressed P-256 point",
		})

	case strings.Contains(constraint, "ca_id_format"):
		return errors.Validation(map[string]string{
			"ca_id": "must be 1 to 4 uppercase alphanumeric characters",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

func formatConstraintMessage(pqErr *pq.Error) string {
	if strings.Contains(pqErr.Constraint, "trust_anchors_active") {
		return "an active trust anchor already exists for this certificate"
	}
	return "a record with these values already exists"
}
