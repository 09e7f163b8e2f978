package entities

import "fmt"

// Error categories carried in ErrorDetail.Type.
const (
	ErrorTypeNative   = "native"
	ErrorTypeGuest    = "guest"
	ErrorTypeConfig   = "config"
	ErrorTypeInternal = "internal"
)

// ErrorDetail is the structured form of a host or guest error, as printed by
// the CLI and attached to logs. Code is the call status name for native
// errors, the export for guest errors and the field for config errors.
type ErrorDetail struct {
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`
	Message string       `json:"message"`
	Type    string       `json:"type"`
	Code    string       `json:"code,omitempty"`
}

func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s %s)", e.Message, e.Type, e.Code)
}

// Root returns the innermost detail of the chain.
func (e *ErrorDetail) Root() *ErrorDetail {
	for e != nil && e.Wrapped != nil {
		e = e.Wrapped
	}
	return e
}
