package agent

import "errors"

var (
	// ErrUnauthenticated signals a request without a resolvable user.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden signals an authenticated user touching a resource
	// they do not own.
	ErrForbidden = errors.New("access denied")
	// ErrInvalidScope signals a scope shape that does not match the
	// requested agent type.
	ErrInvalidScope = errors.New("invalid agent scope")
	// ErrInvalidRequest signals a missing or malformed request field.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound signals a scoped entity that does not exist.
	ErrNotFound = errors.New("not found")
)
