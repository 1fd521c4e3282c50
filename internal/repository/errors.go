package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/nanotrace/certification-backend/internal/observability"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotPending reports a lifecycle update against a certificate that already left pending.
	ErrNotPending = errors.New("certificate is not pending")
)

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err):
		return ErrDuplicate
	default:
		return err
	}
}

// isUniqueViolation catches drivers whose errors gorm cannot translate.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

func recordOp(ctx context.Context, repo, op string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrDuplicate):
		outcome = "duplicate"
	case errors.Is(err, ErrNotPending):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	observability.RecordRepositoryOperation(ctx, repo, op, outcome)
}

// likePattern builds a case-insensitive substring pattern with LIKE wildcards escaped.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(term)) + "%"
}
