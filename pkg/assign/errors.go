// Package assign owns barcode membership in the location tree
package assign

import (
	"errors"

	"github.com/nainya/shelftrack/pkg/location"
)

var (
	// ErrInvalidPath indicates an empty path or empty segment
	ErrInvalidPath = location.ErrInvalidPath

	// ErrInvalidBarcode indicates an empty barcode string
	ErrInvalidBarcode = errors.New("assign: invalid barcode")

	// ErrNotFound indicates the barcode is not assigned anywhere
	ErrNotFound = errors.New("assign: barcode not found")

	// ErrNotFoundAtSource indicates a move whose source no longer holds the barcode
	ErrNotFoundAtSource = errors.New("assign: barcode not at source location")

	// ErrPersistFailed indicates the mutation succeeded in memory but could not be saved
	ErrPersistFailed = errors.New("assign: persist failed")

	// ErrInvariantViolation indicates a bug: an attempted transition the state machine forbids
	ErrInvariantViolation = errors.New("assign: invariant violation")
)
