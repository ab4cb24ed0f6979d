package upstream

import (
	"errors"
	"fmt"
)

// Category classifies a fetch failure for the retry policy.
type Category string

const (
	// Transient failures (timeouts, 5xx, connection resets) are retryable
	// within the attempt budget.
	Transient Category = "transient"
	// Permanent failures (structural 4xx other than rate limiting) are not
	// retried.
	Permanent Category = "permanent"
)

// FetchError is the well-defined failure an upstream client returns after
// its own budget is exhausted. The category tells the scheduler whether a
// batch-level retry would have been worthwhile.
type FetchError struct {
	Category   Category
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s failure (status %d): %v", e.Category, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream %s failure: %v", e.Category, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsFetchError unwraps err into a *FetchError when possible.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
