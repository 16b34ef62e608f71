package amber

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed request. Every kind is recoverable: the adapter
// keeps serving after any of them.
type Kind string

const (
	KindNotFound         Kind = "NotFoundError"
	KindTooLarge         Kind = "TooLargeError"
	KindInvalidParameter Kind = "InvalidParameterError"
	KindTimeout          Kind = "TimeoutError"
	KindExternalTool     Kind = "ExternalToolError"
	KindMissingOutput    Kind = "MissingOutputError"
	KindInfrastructure   Kind = "InfrastructureError"
)

// Error is the typed failure returned by the adapter.
type Error struct {
	Kind    Kind
	Message string
	// RunID identifies the invocation that failed.
	RunID string
	// Tool, ExitCode and Stderr are set for failures of an external binary.
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		b.WriteString(": ")
		b.WriteString(stderr)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf reports the kind of err. Errors that did not originate from the
// adapter are infrastructure failures; nil has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfrastructure
}

// IsKind reports whether err is an adapter error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// AsError returns err as an *Error, wrapping foreign errors as
// infrastructure failures.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInfrastructure, Message: err.Error()}
}
