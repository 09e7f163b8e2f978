// Package errors provides domain-specific error types for the SDK.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/cfxwasm/sdk/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// Sentinels for the call status codes defined by the ABI.
var (
	ErrNoSpace     = &StatusError{Code: entities.StatusNoSpace}
	ErrNoResult    = &StatusError{Code: entities.StatusNoReturnValue}
	ErrTooManyArgs = &StatusError{Code: entities.StatusTooManyArgs}
	ErrNullResult  = &StatusError{Code: entities.StatusNullResult}
	ErrWrongArgs   = &StatusError{Code: entities.StatusWrongArgs}
	ErrCritical    = &StatusError{Code: entities.StatusCritical}
)

// Lifecycle errors.
var (
	ErrModuleLoaded    = stdErrors.New("module already loaded")
	ErrModuleNotLoaded = stdErrors.New("module not loaded")
	ErrNotInTask       = stdErrors.New("not running inside a scheduler task")
)

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    entities.ErrorTypeInternal,
	}
}

// StatusError carries a call status code across the boundary. Codes outside
// the ABI's own set are host-defined and passed through untouched.
type StatusError struct {
	Code entities.CallStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("native call status %d (%s)", int32(e.Code), e.Code)
}

// Is matches any StatusError with the same code, so a passed-through code
// compares equal to the corresponding sentinel.
func (e *StatusError) Is(target error) bool {
	t, ok := target.(*StatusError)
	return ok && t.Code == e.Code
}

// ToErrorDetail implements DetailedError.
func (e *StatusError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeNative, Code: e.Code.String()}
}

// Status returns the code carried by err: 0 for nil, the embedded code for a
// StatusError, and StatusCritical for anything else.
func Status(err error) entities.CallStatus {
	if err == nil {
		return entities.StatusSuccess
	}
	var se *StatusError
	if stdErrors.As(err, &se) {
		return se.Code
	}
	return entities.StatusCritical
}

// FromStatus maps a negative status to an error. Non-negative codes are
// success and yield nil.
func FromStatus(code int32) error {
	if code >= 0 {
		return nil
	}
	switch entities.CallStatus(code) {
	case entities.StatusNoSpace:
		return ErrNoSpace
	case entities.StatusNoReturnValue:
		return ErrNoResult
	case entities.StatusTooManyArgs:
		return ErrTooManyArgs
	case entities.StatusNullResult:
		return ErrNullResult
	case entities.StatusWrongArgs:
		return ErrWrongArgs
	case entities.StatusCritical:
		return ErrCritical
	default:
		return &StatusError{Code: entities.CallStatus(code)}
	}
}

// NativeError wraps a failed native invocation.
type NativeError struct {
	Err  error
	Hash uint64
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("native 0x%X failed: %v", e.Hash, e.Err)
}

func (e *NativeError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *NativeError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    entities.ErrorTypeNative,
		Code:    Status(e.Err).String(),
		Wrapped: ToErrorDetail(e.Err),
	}
}

// GuestError reports a failed call into a guest export.
type GuestError struct {
	Err    error
	Export string
}

func (e *GuestError) Error() string {
	return fmt.Sprintf("guest export %s: %v", e.Export, e.Err)
}

func (e *GuestError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *GuestError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeGuest, Code: e.Export}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeConfig, Code: e.Field}
}
