package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies an error for HTTP mapping and logging.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
)

// Error is the application error type carried from domain services to the
// HTTP layer. Message is safe to return to clients; Err holds internal cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// Status maps an error to an HTTP status code. Database errors are mapped by
// SQLSTATE where possible; anything unclassified is a 500.
func Status(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case KindValidation:
			return http.StatusBadRequest
		case KindUnauthorized:
			return http.StatusUnauthorized
		case KindNotFound:
			return http.StatusNotFound
		case KindConflict:
			return http.StatusConflict
		}
		return http.StatusInternalServerError
	}
	return pgStatus(err)
}

// Message returns the client-facing message for an error. Internal errors and
// raw database errors collapse to a generic message so details never leak.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	switch pgStatus(err) {
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusConflict:
		return "conflicting resource"
	}
	return "internal server error"
}

// FromPostgres wraps a database error, classifying unique and foreign key
// violations as conflicts.
func FromPostgres(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &Error{Kind: KindNotFound, Message: "resource not found", Err: fmt.Errorf("%s: %w", op, err)}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &Error{Kind: KindConflict, Message: "conflicting resource", Err: fmt.Errorf("%s: %w", op, err)}
		case "23503":
			return &Error{Kind: KindConflict, Message: "conflicting resource", Err: fmt.Errorf("%s: %w", op, err)}
		}
	}
	return &Error{Kind: KindInternal, Message: "internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

func pgStatus(err error) int {
	if errors.Is(err, pgx.ErrNoRows) {
		return http.StatusNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503":
			return http.StatusConflict
		case "P0001":
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}
