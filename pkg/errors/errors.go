// Package errors provides the domain error types shared across prepbrief.
//
// Sentinel errors describe conditions callers branch on with errors.Is.
// Failures of external collaborators (history stores, calendars, the LLM)
// are wrapped in a *SourceError carrying a classified ErrorCode.
//
// Usage:
//
//	import pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
//
//	if pberrors.IsMissingColumn(err) {
//	    // the history export's layout changed
//	}
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrMissingColumn indicates a history source lacks a required header.
	ErrMissingColumn = errors.New("missing required column")

	// ErrSourceUnavailable indicates an external collaborator could not be reached.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrInvalidState indicates the operation is not valid for the current state.
	ErrInvalidState = errors.New("invalid state")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsMissingColumn reports whether any error in err's chain is ErrMissingColumn.
func IsMissingColumn(err error) bool {
	return errors.Is(err, ErrMissingColumn)
}

// IsSourceUnavailable reports whether any error in err's chain is ErrSourceUnavailable.
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}
