// Package token caches the service-to-service bearer credential used for
// outbound calls to the directory and key delivery services.
package token

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/allisson/videogate/internal/errors"
)

// DefaultRefreshMargin is how long before expiry a cached credential is
// considered stale and refreshed.
const DefaultRefreshMargin = 5 * time.Minute

// acquireTimeout bounds a single upstream credential acquisition. The fetch is
// shared by every waiter, so it must not inherit any one caller's deadline.
const acquireTimeout = 30 * time.Second

// Credential is a bearer access token with its expiry.
type Credential struct {
	AccessToken string
	ExpiresOn   time.Time
}

// Provider acquires a fresh credential from the upstream identity provider.
type Provider interface {
	Acquire(ctx context.Context) (Credential, error)
}

// Cache holds zero or one credential and refreshes it when less than the
// margin remains before expiry.
//
// The read path takes only an RLock. Concurrent refreshes collapse into a
// single upstream call through singleflight; waiters that disconnect stop
// waiting without cancelling the shared fetch, so the refreshed credential
// still lands in the cache for everyone else.
type Cache struct {
	provider Provider
	margin   time.Duration

	mu    sync.RWMutex
	cred  Credential
	group singleflight.Group
}

// NewCache creates a credential cache. A margin of zero falls back to
// DefaultRefreshMargin.
func NewCache(provider Provider, margin time.Duration) *Cache {
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	return &Cache{provider: provider, margin: margin}
}

// Token returns a valid bearer token, refreshing it if absent or within the
// refresh margin of expiry. Acquisition failures surface as ErrUpstream.
func (c *Cache) Token(ctx context.Context) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	ch := c.group.DoChan("credential", func() (any, error) {
		// Re-check under the flight: a racing caller may have refreshed
		// between our fast-path miss and joining the flight.
		if token, ok := c.cached(); ok {
			return token, nil
		}

		acquireCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), acquireTimeout)
		defer cancel()

		cred, err := c.provider.Acquire(acquireCtx)
		if err != nil {
			return "", apperrors.Wrapf(apperrors.ErrUpstream, "credential acquisition failed: %v", err)
		}

		c.mu.Lock()
		c.cred = cred
		c.mu.Unlock()

		return cred.AccessToken, nil
	})

	select {
	case result := <-ch:
		if result.Err != nil {
			return "", result.Err
		}
		return result.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// cached returns the current token when more than the margin remains.
func (c *Cache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cred.AccessToken != "" && time.Until(c.cred.ExpiresOn) > c.margin {
		return c.cred.AccessToken, true
	}
	return "", false
}
