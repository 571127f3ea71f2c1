package services

import (
	"errors"
	"fmt"

	"github.com/storefront/apiserver/internal/store"
)

// Error kinds returned by the services. Match them with errors.Is.
var (
	ErrValidation         = errors.New("invalid request")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrStorage            = errors.New("storage error")
)

// Error carries a client-facing message alongside its kind.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapError(kind error, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Message returns the client-facing message of err, or "" when err carries
// none.
func Message(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Msg
	}
	for _, kind := range []error{ErrValidation, ErrInvalidCredentials, ErrUnauthorized, ErrForbidden, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return ""
}

// notFound translates store.ErrNotFound into ErrNotFound with msg.
func notFound(err error, msg string) error {
	if isStoreNotFound(err) {
		return newError(ErrNotFound, msg)
	}
	return err
}

func isStoreNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func storageError(op string, err error) error {
	return wrapError(ErrStorage, fmt.Sprintf("failed to %s", op), err)
}
