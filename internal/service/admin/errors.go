package admin

import (
	"errors"
	"fmt"
)

// Kind identifies why a registry operation failed.
type Kind string

const (
	KindAdminNotFound       Kind = "AdminNotFound"
	KindAdminAlreadyExists  Kind = "AdminAlreadyExists"
	KindInvalidEmailFormat  Kind = "InvalidEmailFormat"
	KindSuperAdminProtected Kind = "SuperAdminProtected"
	KindInvalidStatus       Kind = "InvalidStatus"
)

// Error is a registry rule violation. Store failures are returned as-is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind carried by err, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ErrRecordNotFound is returned by a Store when no record has the requested id.
var ErrRecordNotFound = errors.New("admin record not found")
