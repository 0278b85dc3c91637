package catalog

import (
	"fmt"
)

// FetchError describes one failed upstream fetch. It is logged and counted,
// never returned to callers: a failing source degrades to an empty result.
type FetchError struct {
	Label      string
	Class      ErrorClass
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog %s error for %q: %v", e.Class, e.Label, e.Err)
	}
	return fmt.Sprintf("catalog %s error for %q (status %d)", e.Class, e.Label, e.StatusCode)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}
