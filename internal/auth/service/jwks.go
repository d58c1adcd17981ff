package service

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// minRefreshInterval throttles JWKS refetches triggered by unknown kids so a
// flood of bad tokens cannot hammer the discovery endpoint.
const minRefreshInterval = time.Minute

// jwksKey is one signing key from the discovery document.
type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// jwksDocument is the JSON shape of the discovery keys endpoint.
type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

// JWKSKeySource fetches and caches the identity provider's token signing keys.
// Keys are cached by kid; an unknown kid triggers a throttled refetch to pick
// up key rollover.
type JWKSKeySource struct {
	url    string
	client *retryablehttp.Client
	logger *slog.Logger

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastRefresh time.Time
}

// NewJWKSKeySource creates a key source backed by the given JWKS endpoint.
func NewJWKSKeySource(url string, client *retryablehttp.Client, logger *slog.Logger) *JWKSKeySource {
	return &JWKSKeySource{
		url:    url,
		client: client,
		logger: logger,
		keys:   make(map[string]*rsa.PublicKey),
	}
}

// Key returns the RSA public key for the given kid, refreshing the key set
// when the kid is unknown.
func (s *JWKSKeySource) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key, ok := s.keys[kid]
	s.mu.RUnlock()
	if ok {
		return key, nil
	}

	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	key, ok = s.keys[kid]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

// refresh fetches the JWKS document and replaces the cached key set.
func (s *JWKSKeySource) refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if time.Since(s.lastRefresh) < minRefreshInterval && len(s.keys) > 0 {
		return nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create jwks request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read jwks response: %w", err)
	}

	var document jwksDocument
	if err := json.Unmarshal(body, &document); err != nil {
		return fmt.Errorf("failed to parse jwks response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(document.Keys))
	for _, jwk := range document.Keys {
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		key, err := parseRSAKey(jwk)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping malformed jwks key",
					slog.String("kid", jwk.Kid),
					slog.Any("error", err))
			}
			continue
		}
		keys[jwk.Kid] = key
	}

	s.keys = keys
	s.lastRefresh = time.Now()

	if s.logger != nil {
		s.logger.Debug("refreshed jwks key set", slog.Int("keys", len(keys)))
	}

	return nil
}

// parseRSAKey builds an *rsa.PublicKey from base64url modulus and exponent.
func parseRSAKey(jwk jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("invalid exponent value")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
