package pipeline

import (
	"errors"
	"fmt"
)

// ErrConfig marks a fatal configuration failure such as a missing provider
// client. It is never retried.
var ErrConfig = errors.New("pipeline: configuration error")

// ErrInvalidDomain is returned when the input cannot be normalized to a
// registrable domain.
var ErrInvalidDomain = errors.New("pipeline: invalid domain")

// StageError is the single user-visible failure of a run. It names the
// domain and stage so the caller can retry.
type StageError struct {
	Domain string
	Stage  string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s failed for %s: %v", e.Stage, e.Domain, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
