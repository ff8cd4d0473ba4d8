package entities

import (
	"errors"
	"fmt"
)

// Content errors. These are row-local: the row is skipped and the run
// continues.
var (
	ErrNotAPDF          = errors.New("document is not a pdf")
	ErrCorruptDocument  = errors.New("document is corrupt")
	ErrDocumentTooLarge = errors.New("document exceeds the download limit")
	ErrMalformedRow     = errors.New("malformed log row")
	ErrMissingRoot      = errors.New("case chain has no root event")
)

// Invariant violations. These abort the operation that raised them and the
// rest of the run for that case.
var (
	ErrChainAlreadyLinked = errors.New("event already has a successor")
	ErrDuplicateRoot      = errors.New("case already has a root event")
	ErrRelinkNotSupported = errors.New("re-link not supported for this event pair")
	ErrCrossCase          = errors.New("events belong to different cases")
	ErrCrossBranch        = errors.New("branch already cross-linked")
	ErrCaseNotFound       = errors.New("case not found")
	ErrEventNotFound      = errors.New("event not found")
)

// ErrSuggestionNotFound is returned when a suggestion id cannot be resolved.
var ErrSuggestionNotFound = errors.New("suggestion not found")

// IsInvariantViolation reports whether err must abort the current case run.
func IsInvariantViolation(err error) bool {
	for _, target := range []error{
		ErrChainAlreadyLinked,
		ErrDuplicateRoot,
		ErrRelinkNotSupported,
		ErrCrossCase,
		ErrCrossBranch,
		ErrCaseNotFound,
		ErrEventNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// RowStage names the reconciliation step at which a row failed.
type RowStage string

const (
	StageValidate RowStage = "validate"
	StageFetch    RowStage = "fetch"
	StageGenerate RowStage = "generate"
	StageAppend   RowStage = "append"
	StageDispatch RowStage = "dispatch"
)

// RowError records a row-local failure.
type RowError struct {
	Folio string
	Tag   string
	Stage RowStage
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("folio %s (%s) failed at %s: %v", e.Folio, e.Tag, e.Stage, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
