package storage

import "errors"

// Error represents a domain error from storage operations.
//
// These are business logic errors (entry not found, path escapes its jail,
// creation denied) as opposed to infrastructure errors. Backends translate
// their library-specific failures (os.PathError, badger errors, aws API
// errors) into Error at the backend boundary; nothing above the storage
// packages inspects library error types.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the storage path related to the error (if applicable)
	Path string

	// Cause is the underlying backend error, kept for logging
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// Unwrap exposes the backend cause to errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorCode represents the category of a storage error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested entry does not exist.
	// Also returned by the folder manager when a container folder is
	// absent and provisioning was not requested.
	ErrNotFound ErrorCode = iota

	// ErrNotPermitted indicates the backend denied folder creation or a
	// skeleton copy.
	ErrNotPermitted

	// ErrInvalidPath indicates a path failed jail translation (escapes the
	// jailed subtree, or is malformed).
	ErrInvalidPath

	// ErrAlreadyExists indicates an entry with the name already exists.
	// Creation races treat this code as success and re-resolve.
	ErrAlreadyExists

	// ErrNotFolder indicates a folder operation was applied to a file.
	ErrNotFolder

	// ErrFatalConfiguration indicates required process configuration is
	// missing (the instance identifier). Unrecoverable; never retried.
	ErrFatalConfiguration

	// ErrIOError indicates an infrastructure failure in the backend.
	ErrIOError
)

// NotFound builds an ErrNotFound error for a path.
func NotFound(path string) *Error {
	return &Error{Code: ErrNotFound, Message: "entry not found", Path: path}
}

// NotPermitted builds an ErrNotPermitted error wrapping the backend cause.
func NotPermitted(path string, cause error) *Error {
	return &Error{Code: ErrNotPermitted, Message: "operation not permitted", Path: path, Cause: cause}
}

// InvalidPath builds an ErrInvalidPath error for a path.
func InvalidPath(path string) *Error {
	return &Error{Code: ErrInvalidPath, Message: "invalid path", Path: path}
}

// AlreadyExists builds an ErrAlreadyExists error for a path.
func AlreadyExists(path string) *Error {
	return &Error{Code: ErrAlreadyExists, Message: "entry already exists", Path: path}
}

// NotFolder builds an ErrNotFolder error for a path.
func NotFolder(path string) *Error {
	return &Error{Code: ErrNotFolder, Message: "not a folder", Path: path}
}

// FatalConfiguration builds an ErrFatalConfiguration error.
func FatalConfiguration(message string) *Error {
	return &Error{Code: ErrFatalConfiguration, Message: message}
}

// IOError builds an ErrIOError error wrapping the backend cause.
func IOError(path string, cause error) *Error {
	return &Error{Code: ErrIOError, Message: "storage I/O error", Path: path, Cause: cause}
}

// codeIs reports whether err is (or wraps) a *Error carrying the given code.
func codeIs(err error, code ErrorCode) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == code
}

// IsNotFound reports whether err is a domain not-found error.
func IsNotFound(err error) bool { return codeIs(err, ErrNotFound) }

// IsNotPermitted reports whether err is a domain not-permitted error.
func IsNotPermitted(err error) bool { return codeIs(err, ErrNotPermitted) }

// IsInvalidPath reports whether err is a domain invalid-path error.
func IsInvalidPath(err error) bool { return codeIs(err, ErrInvalidPath) }

// IsAlreadyExists reports whether err is a domain already-exists error.
func IsAlreadyExists(err error) bool { return codeIs(err, ErrAlreadyExists) }

// IsFatalConfiguration reports whether err is a fatal configuration error.
func IsFatalConfiguration(err error) bool { return codeIs(err, ErrFatalConfiguration) }
