package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"

	"github.com/presenca/discovery-audit/internal/resilience"
)

// FatalError marks an API failure that no retry or fallback can fix, such as
// a bad key or exhausted quota. The audit fails rather than degrading.
type FatalError struct {
	Err        error
	StatusCode int
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("anthropic: unrecoverable (status %d): %v", e.StatusCode, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err is an unrecoverable API failure.
func IsFatal(err error) bool {
	var fe *FatalError
	return eris.As(err, &fe)
}

// classifyError maps SDK errors onto the pipeline's failure taxonomy.
// Auth and quota problems are fatal. Timeouts and server errors are
// transient; the caller may retry or degrade the stage.
func classifyError(wrapped, raw error) error {
	var apierr *sdk.Error
	if errors.As(raw, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusPaymentRequired:
			return &FatalError{Err: wrapped, StatusCode: apierr.StatusCode}
		case http.StatusTooManyRequests:
			return &FatalError{Err: wrapped, StatusCode: apierr.StatusCode}
		}
		if resilience.IsTransientHTTPStatus(apierr.StatusCode) {
			return resilience.NewTransientError(wrapped, apierr.StatusCode)
		}
		return wrapped
	}
	if errors.Is(raw, context.DeadlineExceeded) || resilience.IsTransient(raw) {
		return resilience.NewTransientError(wrapped, 0)
	}
	return wrapped
}
