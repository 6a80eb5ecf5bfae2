package assign

import (
	"errors"

	"github.com/nainya/shelftrack/pkg/location"
	"github.com/nainya/shelftrack/pkg/persist"
)

// Outcome tags the result of an engine operation for presentation layers
type Outcome int

const (
	Unknown Outcome = iota
	Added
	AlreadyPresent
	ConflictAt
	Moved
	Removed
	Cleared
	Created
	NotFound
	NotFoundAtSource
	PersistFailed
	CorruptState
	InvalidPath
	InvalidBarcode
	Unrecognized
	InvariantViolation
)

var outcomeNames = map[Outcome]string{
	Unknown:            "unknown",
	Added:              "added",
	AlreadyPresent:     "already_present",
	ConflictAt:         "conflict",
	Moved:              "moved",
	Removed:            "removed",
	Cleared:            "cleared",
	Created:            "created",
	NotFound:           "not_found",
	NotFoundAtSource:   "not_found_at_source",
	PersistFailed:      "persist_failed",
	CorruptState:       "corrupt_state",
	InvalidPath:        "invalid_path",
	InvalidBarcode:     "invalid_barcode",
	Unrecognized:       "unrecognized",
	InvariantViolation: "invariant_violation",
}

// String returns the stable snake_case name used in logs, metrics and APIs
func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

// ParseOutcome is the inverse of String
func ParseOutcome(s string) Outcome {
	for o, name := range outcomeNames {
		if name == s {
			return o
		}
	}
	return Unknown
}

// Mutated reports whether the outcome changed barcode membership or structure
func (o Outcome) Mutated() bool {
	switch o {
	case Added, Moved, Removed, Cleared, Created:
		return true
	}
	return false
}

// Result describes what an operation did
type Result struct {
	Outcome Outcome
	Barcode string

	// Path is where the barcode is after the operation, or the location
	// the operation targeted
	Path location.Path

	// Conflict holds the current location when Outcome is ConflictAt
	Conflict location.Path

	// Applied holds the in-memory outcome when Outcome is PersistFailed
	Applied Outcome

	// RolledBack is set when a PersistFailed mutation was undone in memory
	RolledBack bool
}

// OutcomeForError maps an error returned by the engine, gateway or session
// to its taxonomy member. A nil error maps to Unknown.
func OutcomeForError(err error) Outcome {
	switch {
	case err == nil:
		return Unknown
	case errors.Is(err, ErrInvariantViolation):
		return InvariantViolation
	case errors.Is(err, ErrPersistFailed):
		return PersistFailed
	case errors.Is(err, persist.ErrCorruptState):
		return CorruptState
	case errors.Is(err, ErrInvalidPath):
		return InvalidPath
	case errors.Is(err, ErrInvalidBarcode):
		return InvalidBarcode
	case errors.Is(err, ErrNotFoundAtSource):
		return NotFoundAtSource
	case errors.Is(err, ErrNotFound):
		return NotFound
	case errors.Is(err, persist.ErrIO):
		return PersistFailed
	}
	return Unknown
}
