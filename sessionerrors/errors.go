package sessionerrors

import "errors"

// Session lookup and admission sentinel errors. Used by the lobby, ws and api
// packages to avoid circular imports.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
	ErrTooManySessions = errors.New("too many open sessions")
	ErrUnauthorized    = errors.New("host is not authorized")
)
