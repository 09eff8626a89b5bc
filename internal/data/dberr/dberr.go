// Package dberr classifies driver failures into sentinel errors so services
// branch on errors.Is without importing driver types.
package dberr

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate indicates a unique-constraint violation.
	ErrDuplicate = errors.New("duplicate row")
	// ErrForeignKey indicates a missing referenced row.
	ErrForeignKey = errors.New("foreign key violation")
	// ErrNotNull indicates a required column left empty.
	ErrNotNull = errors.New("not-null violation")
)

// Classify wraps err with the matching sentinel, or returns it unchanged.
// SQLite errors carry no SQLSTATE through this driver, so the message
// fallbacks cover that path.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return errors.Join(ErrDuplicate, err)
		case "23503":
			return errors.Join(ErrForeignKey, err)
		case "23502":
			return errors.Join(ErrNotNull, err)
		}
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"),
		strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "already exists"):
		return errors.Join(ErrDuplicate, err)
	case strings.Contains(msg, "foreign key constraint"):
		return errors.Join(ErrForeignKey, err)
	case strings.Contains(msg, "not null constraint"),
		strings.Contains(msg, "null constraint failed"):
		return errors.Join(ErrNotNull, err)
	}
	return err
}

func IsDuplicate(err error) bool {
	return errors.Is(Classify(err), ErrDuplicate)
}
