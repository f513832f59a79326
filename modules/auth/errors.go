package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an auth failure so transports can map it to a status.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
	KindUnexpected     Kind = "unexpected"
)

// Client-facing messages.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgEmailInUse         = "Email already in use"
	MsgPhoneInUse         = "Phone number already in use"
	MsgValidationFailed   = "Validation failed"
	MsgNotAuthenticated   = "Not authenticated"
	MsgUserNotFound       = "User not found"
	MsgForbidden          = "Admin access required"
	MsgUnexpected         = "An internal error occurred"
)

// Error is the typed failure returned by the auth service.
// Fields is only populated for KindValidation.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		if e.cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.Join(parts, "; "))
}

// Unwrap exposes the underlying cause of unexpected errors.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewValidationError reports every violated field.
func NewValidationError(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: MsgValidationFailed, Fields: fields}
}

// NewAuthenticationError reports a missing or unusable identity.
func NewAuthenticationError(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

// NewAuthorizationError reports a valid identity without sufficient privilege.
func NewAuthorizationError(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// NewConflictError reports a uniqueness conflict detected before writing.
func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// NewNotFoundError reports a missing record on an administrative operation.
func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// NewUnexpectedError wraps a store or infrastructure failure. The cause is
// kept for server-side logging and never sent to clients.
func NewUnexpectedError(cause error) *Error {
	return &Error{Kind: KindUnexpected, Message: MsgUnexpected, cause: cause}
}

// AsError extracts an *Error from err. Errors of any other type are
// reported as unexpected.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewUnexpectedError(err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// ServiceError carries an *Error across the request-reply boundary.
type ServiceError struct {
	Kind    Kind              `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// toServiceError converts err into its wire form. Unexpected causes are
// dropped so they never leave the auth module.
func toServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	e := AsError(err)
	return &ServiceError{Kind: e.Kind, Message: e.Message, Fields: e.Fields}
}

// Err rebuilds the typed error from its wire form.
func (s *ServiceError) Err() error {
	if s == nil {
		return nil
	}
	return &Error{Kind: s.Kind, Message: s.Message, Fields: s.Fields}
}
