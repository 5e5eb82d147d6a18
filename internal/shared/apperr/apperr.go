package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so transports can map it to a status.
type Kind int

const (
	KindProcessing Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "processing"
	}
}

// CodeServiceUnavailable marks a Processing failure caused by a missing collaborator.
const CodeServiceUnavailable = "service_unavailable"

// Error is the typed failure shared by every feature package.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Code != "" {
		b.WriteString(" [")
		b.WriteString(e.Code)
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Details, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports caller input that can never succeed as given.
func Validation(code, message string, details ...string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message, Details: details}
}

// Validationf is Validation with a formatted message.
func Validationf(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a referenced entity that does not exist.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Conflict reports a uniqueness or state conflict.
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Processing reports an internal failure; cause is kept for logs.
func Processing(code, message string, cause error) *Error {
	return &Error{Kind: KindProcessing, Code: code, Message: message, Err: cause}
}

// As returns the typed failure in err's chain, if any.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsKind reports whether err carries a typed failure of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// HasCode reports whether err carries a typed failure with the given code.
func HasCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// Wrap passes typed failures through unchanged and wraps anything else as Processing.
func Wrap(operation string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return Processing("internal", operation+" failed", err)
}
