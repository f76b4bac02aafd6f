package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a domain failure so controllers can map it to an HTTP status
// without inspecting message strings.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindState
	KindAuthorization
	KindExhausted
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error    { return newf(KindValidation, format, args...) }
func NotFound(format string, args ...any) error      { return newf(KindNotFound, format, args...) }
func Conflict(format string, args ...any) error      { return newf(KindConflict, format, args...) }
func State(format string, args ...any) error         { return newf(KindState, format, args...) }
func Authorization(format string, args ...any) error { return newf(KindAuthorization, format, args...) }
func Exhausted(format string, args ...any) error     { return newf(KindExhausted, format, args...) }

// Wrap keeps the original error reachable through errors.Unwrap while
// attaching a kind and a caller-facing message.
func Wrap(kind Kind, err error, msg string) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or KindInternal for plain errors
// (storage failures propagate unchanged and are treated as internal).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// StatusOf maps a domain error to the HTTP status the API layer responds with.
func StatusOf(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	case KindState:
		return fiber.StatusUnprocessableEntity
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindExhausted:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}
