package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	gobreaker "github.com/sony/gobreaker/v2"

	apperrors "github.com/allisson/videogate/internal/errors"
	keyDomain "github.com/allisson/videogate/internal/keydelivery/domain"
)

// TokenSource supplies the service bearer token attached to upstream key
// delivery calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// KeyDeliveryClient proxies content-key requests to the external key
// delivery host. One POST per request, parameterized by DRM kind:
//
//	envelope:  https://{host}/?kid={contentKeyId}
//	PlayReady: https://{host}/PlayReady/ with the text/xml challenge body
//	Widevine:  https://{host}/Widevine/?kid={contentKeyId} with binary body
//
// Transient failures are retried by the retryablehttp policy (network errors
// and 5xx only); a circuit breaker sheds load when the upstream stays down.
// Non-2xx upstream responses propagate their status code verbatim.
type KeyDeliveryClient struct {
	host        string
	client      *retryablehttp.Client
	tokenSource TokenSource
	breaker     *gobreaker.CircuitBreaker[[]byte]
	logger      *slog.Logger
}

// NewKeyDeliveryClient creates the key delivery client for the given host
// (hostname only, no scheme).
func NewKeyDeliveryClient(
	host string,
	client *retryablehttp.Client,
	tokenSource TokenSource,
	logger *slog.Logger,
) *KeyDeliveryClient {
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "key-delivery",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx responses are the upstream rejecting one request, not the
		// upstream being down. Only transport errors and 5xx count.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var statusErr *apperrors.StatusError
			if apperrors.As(err, &statusErr) {
				return statusErr.Code < http.StatusInternalServerError
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("key delivery circuit breaker state change",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &KeyDeliveryClient{
		host:        host,
		client:      client,
		tokenSource: tokenSource,
		breaker:     breaker,
		logger:      logger,
	}
}

// Fetch performs the upstream key delivery call for an already-authorized
// request and returns the raw key or license bytes.
//
// Errors:
//   - StatusError{Code}: upstream answered with a non-2xx status
//   - ErrUpstream: network failure, retries exhausted, or open breaker
func (c *KeyDeliveryClient) Fetch(ctx context.Context, request *keyDomain.KeyRequest) ([]byte, error) {
	requestURL, contentType, body, err := c.buildUpstreamCall(request)
	if err != nil {
		return nil, err
	}

	// Acquire the token outside the breaker: a credential failure is not a
	// key delivery host failure.
	serviceToken, err := c.tokenSource.Token(ctx)
	if err != nil {
		return nil, err
	}

	keyBytes, err := c.breaker.Execute(func() ([]byte, error) {
		return c.post(ctx, requestURL, contentType, body, serviceToken)
	})
	if err != nil {
		if apperrors.Is(err, gobreaker.ErrOpenState) || apperrors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.Wrap(apperrors.ErrUpstream, "key delivery circuit breaker is open")
		}
		return nil, err
	}

	return keyBytes, nil
}

// buildUpstreamCall maps a key request to its upstream URL, content type and
// body.
func (c *KeyDeliveryClient) buildUpstreamCall(request *keyDomain.KeyRequest) (string, string, []byte, error) {
	switch request.Kind {
	case keyDomain.KindEnvelope:
		requestURL := fmt.Sprintf("https://%s/?kid=%s", c.host, url.QueryEscape(request.ContentKeyID))
		return requestURL, "", nil, nil
	case keyDomain.KindPlayReady:
		requestURL := fmt.Sprintf("https://%s/PlayReady/", c.host)
		return requestURL, "text/xml; charset=utf-8", request.Challenge, nil
	case keyDomain.KindWidevine:
		requestURL := fmt.Sprintf("https://%s/Widevine/?kid=%s", c.host, url.QueryEscape(request.ContentKeyID))
		return requestURL, "application/octet-stream", request.Challenge, nil
	default:
		return "", "", nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown key kind %q", request.Kind)
	}
}

func (c *KeyDeliveryClient) post(ctx context.Context, requestURL, contentType string, body []byte, serviceToken string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, requestURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create key delivery request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+serviceToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrUpstream, "key delivery request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, apperrors.Wrap(&apperrors.StatusError{Code: resp.StatusCode}, "key delivery")
	}

	keyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrUpstream, "failed to read key delivery response: %v", err)
	}

	return keyBytes, nil
}
