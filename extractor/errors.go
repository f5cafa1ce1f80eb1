package extractor

import (
	"errors"
	"net/http"
)

// Kind classifies extraction failures.
type Kind int

const (
	// MissingInput means no file bytes were provided.
	MissingInput Kind = iota + 1
	// UnsupportedFormat means the caller asked for an output kind we do not produce.
	UnsupportedFormat
	// ParseFailure means the chosen extractor could not make sense of the bytes.
	ParseFailure
	// InternalFailure is any other fault, such as scratch storage errors.
	InternalFailure
)

func (k Kind) String() string {
	switch k {
	case MissingInput:
		return "missing_input"
	case UnsupportedFormat:
		return "unsupported_format"
	case ParseFailure:
		return "parse_failure"
	case InternalFailure:
		return "internal_failure"
	}
	return "unknown"
}

// ClientError reports whether the failure is the caller's to fix.
func (k Kind) ClientError() bool {
	return k == MissingInput || k == UnsupportedFormat
}

// HTTPStatus maps the kind to a response status.
func (k Kind) HTTPStatus() int {
	if k.ClientError() {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error is the typed failure returned by Router.Extract.
type Error struct {
	Kind   Kind
	Detail string // human-readable, safe to return to callers
	Err    error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Detail == ""
}

var (
	ErrMissingInput      = &Error{Kind: MissingInput}
	ErrUnsupportedFormat = &Error{Kind: UnsupportedFormat}
	ErrParseFailure      = &Error{Kind: ParseFailure}
	ErrInternalFailure   = &Error{Kind: InternalFailure}
)

func newError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf returns the kind of err. Untyped errors count as InternalFailure;
// nil has kind 0.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalFailure
}

// DetailOf returns the caller-facing message for err.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	if err == nil {
		return ""
	}
	return "internal error"
}
