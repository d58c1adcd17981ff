package domain

import (
	"github.com/allisson/videogate/internal/errors"
)

// Authentication errors.
var (
	// ErrNoPrincipal indicates no authenticated principal is present on the request.
	ErrNoPrincipal = errors.Wrap(errors.ErrUnauthorized, "no authenticated principal")

	// ErrInvalidToken indicates the bearer token failed validation.
	ErrInvalidToken = errors.Wrap(errors.ErrUnauthorized, "invalid bearer token")

	// ErrMissingScope indicates the token lacks the required delegated scope.
	ErrMissingScope = errors.Wrap(errors.ErrForbidden, "missing required scope")
)
