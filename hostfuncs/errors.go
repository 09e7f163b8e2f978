package hostfuncs

import (
	"fmt"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/domain/errors"
)

// NewStatusError returns an error that hands code to the guest unchanged.
// Host-defined codes should be negative and below CRITICAL_ERROR.
func NewStatusError(code int32) error {
	return &errors.StatusError{Code: entities.CallStatus(code)}
}

// NewPanicError converts a recovered panic value into a CRITICAL_ERROR.
func NewPanicError(panicValue any) error {
	var msg string
	if err, ok := panicValue.(error); ok {
		msg = err.Error()
	} else if s, ok := panicValue.(string); ok {
		msg = s
	} else {
		msg = "panic recovered"
	}
	return fmt.Errorf("%w: panic: %s", errors.ErrCritical, msg)
}
