package service

import (
	"context"
	"crypto/rsa"

	authDomain "github.com/allisson/videogate/internal/auth/domain"
)

// TokenVerifier validates an inbound bearer access token and extracts the
// calling principal.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*authDomain.Principal, error)
}

// KeySource resolves a token signing key by its key id.
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}
