// README: Error kinds shared by all modules; HTTP handlers map kinds to status codes.
package types

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindNotFound        ErrorKind = "not_found"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindForbidden       ErrorKind = "forbidden"
	KindDomain          ErrorKind = "domain"
)

// Error is an expected failure. Anything that is not an *Error is an
// infrastructure failure.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return e.Msg
}

// Is matches kind sentinels (an *Error without message) by kind, and any
// other *Error by identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Msg == "" {
		return t.Kind == e.Kind
	}
	return t == e
}

var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrDomain          = &Error{Kind: KindDomain}
)

func InvalidArgument(field string) *Error {
	return &Error{Kind: KindInvalidArgument, Msg: "invalid argument: " + field}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Msg: "item not found: " + entity}
}

func Unauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Msg: "unauthorized access"}
}

func Forbidden() *Error {
	return &Error{Kind: KindForbidden, Msg: "operation not allowed"}
}

func Domain(format string, args ...any) *Error {
	return &Error{Kind: KindDomain, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of an expected failure, or "" for infrastructure errors.
func KindOf(err error) ErrorKind {
	for _, k := range []*Error{ErrInvalidArgument, ErrNotFound, ErrUnauthorized, ErrForbidden, ErrDomain} {
		if errors.Is(err, k) {
			return k.Kind
		}
	}
	return ""
}
