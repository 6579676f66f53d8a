package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kinds. Match with errors.Is against any *Error.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrConflict        = errors.New("conflict")
	ErrGenerationParse = errors.New("generation output could not be parsed")
	ErrUnavailable     = errors.New("dependency unavailable")
)

type Error struct {
	Status int
	Code   string
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return e != nil && e.Kind != nil && e.Kind == target
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Kind: kindForStatus(status), Err: err}
}

func Validation(code, msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: code, Kind: ErrValidation, Err: errors.New(msg)}
}

func NotFound(code, msg string) *Error {
	return &Error{Status: http.StatusNotFound, Code: code, Kind: ErrNotFound, Err: errors.New(msg)}
}

func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Code: "forbidden", Kind: ErrForbidden, Err: errors.New(msg)}
}

func Unauthorized(code string, err error) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: code, Kind: ErrUnauthorized, Err: err}
}

func Conflict(code string, err error) *Error {
	return &Error{Status: http.StatusConflict, Code: code, Kind: ErrConflict, Err: err}
}

func GenerationParse(err error) *Error {
	return &Error{Status: http.StatusBadGateway, Code: "generation_parse_failed", Kind: ErrGenerationParse, Err: err}
}

func Unavailable(code string, err error) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Code: code, Kind: ErrUnavailable, Err: err}
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadGateway:
		return ErrGenerationParse
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return nil
	}
}
