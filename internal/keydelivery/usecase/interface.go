package usecase

import (
	"context"

	keyDomain "github.com/allisson/videogate/internal/keydelivery/domain"
)

// KeyClient performs the upstream key delivery call for an authorized
// request.
type KeyClient interface {
	// Fetch returns the raw key or license bytes from the key delivery host.
	Fetch(ctx context.Context, request *keyDomain.KeyRequest) ([]byte, error)
}

// KeyUseCase brokers content-key requests. Every request re-validates
// authorization against the catalog before any upstream call is made.
type KeyUseCase interface {
	// GetKey runs the full authorization pipeline for a key request and, on
	// success, proxies it upstream:
	//
	// 1. Resolve the video; unknown ids yield ErrUnauthorized, never
	//    ErrNotFound, so responses do not reveal catalog contents
	// 2. Check the caller's identity tokens against the video's viewer list
	// 3. Establish the content key id (PlayReady: extracted from the SOAP
	//    challenge; malformed challenges fail with ErrMalformedChallenge
	//    before the ownership check) and verify the video owns it
	// 4. Proxy the request upstream with the service bearer token
	//
	// No upstream call happens unless every check passes.
	GetKey(ctx context.Context, request *keyDomain.KeyRequest, identityTokens map[string]struct{}) ([]byte, error)
}
