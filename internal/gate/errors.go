package gate

import (
	"errors"
	"fmt"
)

// Sentinel errors for input validation. These are the only errors surfaced
// to the caller before any processing happens; detector and classifier
// failures are recovered locally (degrade, continue), and BLOCK/WARN/ALLOW
// are data, never errors.
var (
	ErrEmptyInput     = errors.New("input text is empty")
	ErrOversizedInput = errors.New("input text exceeds configured ceiling")
)

// InputError wraps a validation failure on the raw input. No spans are
// computed and no audit record is written for a rejected input.
type InputError struct {
	Reason error
	Length int
	Limit  int
}

func (e *InputError) Error() string {
	if errors.Is(e.Reason, ErrOversizedInput) {
		return fmt.Sprintf("invalid input: %v (%d chars, limit %d)", e.Reason, e.Length, e.Limit)
	}
	return fmt.Sprintf("invalid input: %v", e.Reason)
}

func (e *InputError) Unwrap() error { return e.Reason }
