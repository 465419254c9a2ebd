package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	ErrUniqueViolation     = errors.New("unique constraint violated")
	ErrCheckViolation      = errors.New("check constraint violated")
	ErrForeignKeyViolation = errors.New("foreign key constraint violated")
)

// PostgreSQL SQLSTATE codes for integrity violations
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// Classify maps a driver constraint error onto one of the package
// sentinels, keeping the driver message. Other errors are returned as is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUniqueViolation) || errors.Is(err, ErrCheckViolation) || errors.Is(err, ErrForeignKeyViolation) {
		return err
	}
	if sentinel := constraintKind(err); sentinel != nil {
		return fmt.Errorf("%w: %s", sentinel, err.Error())
	}
	return err
}

func constraintKind(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrUniqueViolation
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrForeignKeyViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrUniqueViolation
		case pgCheckViolation:
			return ErrCheckViolation
		case pgForeignKeyViolation:
			return ErrForeignKeyViolation
		}
		return nil
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return ErrUniqueViolation
		case sqlite3.ErrConstraintCheck:
			return ErrCheckViolation
		case sqlite3.ErrConstraintForeignKey:
			return ErrForeignKeyViolation
		}
	}
	return nil
}

func IsUniqueViolation(err error) bool {
	return errors.Is(Classify(err), ErrUniqueViolation)
}

func IsCheckViolation(err error) bool {
	return errors.Is(Classify(err), ErrCheckViolation)
}

func IsForeignKeyViolation(err error) bool {
	return errors.Is(Classify(err), ErrForeignKeyViolation)
}
