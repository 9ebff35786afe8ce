// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across transport/session/reconciler layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a 401 response; the session is cleared as a side effect.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation indicates client-side validation failure; the request never reached the network.
	ErrValidation = errors.New("validation failed")

	// ErrNoSession indicates an operation that requires an authenticated session.
	ErrNoSession = errors.New("no active session")
)
