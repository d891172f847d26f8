package result

import (
	"errors"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Outcome classifies how processing of one unit (document, chunk, batch) ended.
type Outcome string

// Outcome values.
const (
	// OK means the unit was fully processed.
	OK Outcome = "ok"
	// Skipped means the unit failed recoverably; the run continues without it.
	Skipped Outcome = "skipped"
	// Fatal means a configuration problem; the run must stop.
	Fatal Outcome = "fatal"
)

// Result is the outcome of processing one unit.
type Result struct {
	id      string
	outcome Outcome
	err     error
}

// NewOK creates a successful result.
func NewOK(id string) Result { return Result{id: id, outcome: OK} }

// NewSkipped creates a recoverable-skip result.
func NewSkipped(id string, err error) Result { return Result{id: id, outcome: Skipped, err: err} }

// NewFatal creates a fatal result.
func NewFatal(id string, err error) Result { return Result{id: id, outcome: Fatal, err: err} }

// Classify turns an error into a result: nil is OK, configuration errors are
// fatal, everything else is skipped.
func Classify(id string, err error) Result {
	switch {
	case err == nil:
		return NewOK(id)
	case errors.Is(err, domain.ErrConfig):
		return NewFatal(id, err)
	default:
		return NewSkipped(id, err)
	}
}

// ID returns the unit identifier.
func (r Result) ID() string { return r.id }

// Outcome returns how processing ended.
func (r Result) Outcome() Outcome { return r.outcome }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
