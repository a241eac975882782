package jobfs

import (
	"errors"
	"fmt"
	"os"
)

// Common storage errors. Where possible, these alias os package errors
// for compatibility with os.IsNotExist, os.IsPermission, etc.
var (
	ErrNotFound     = os.ErrNotExist
	ErrExist        = os.ErrExist
	ErrPermission   = os.ErrPermission
	ErrInvalid      = os.ErrInvalid
	ErrIsDir        = errors.New("jobfs: is a directory")
	ErrClosed       = errors.New("jobfs: already closed")
	ErrNotSupported = errors.New("jobfs: feature not supported by this backend")

	// ErrParse is wrapped by every [ParseError].
	ErrParse = errors.New("jobfs: malformed address")

	// ErrUnknownKind is returned for a backend kind no driver registered for.
	ErrUnknownKind = errors.New("jobfs: unknown backend kind")
)

// ParseError reports an address string that cannot be resolved.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("jobfs: parse address %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }
