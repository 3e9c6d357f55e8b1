package store

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every failure is a terminal, caller-visible rejection of a
// single operation; no partial mutation is ever observable.

// NotFoundError reports a missing system, player, transaction or settlement.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFound builds a NotFoundError for the given entity kind and id.
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ReferentialError reports a write that references a nonexistent parent.
type ReferentialError struct {
	Entity string
	ID     string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("referential violation: %s %s does not exist", e.Entity, e.ID)
}

// ErrTransactionLocked rejects mutation of a settlement-protected transaction.
var ErrTransactionLocked = errors.New("transaction is locked by a completed settlement")

// ErrInvalidRange rejects a settlement whose startDate is after its endDate,
// or which overlaps another pending settlement for the same system.
var ErrInvalidRange = errors.New("invalid settlement date range")
