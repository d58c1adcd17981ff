// Package repository provides the HTTP client for the external directory service.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"

	authUseCase "github.com/allisson/videogate/internal/auth/usecase"
	apperrors "github.com/allisson/videogate/internal/errors"
)

// TokenSource supplies a service bearer token for directory calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// GraphDirectoryRepository queries the directory's transitive security group
// membership endpoint. Retries are bounded and apply only to network errors
// and 5xx responses (the retryablehttp default policy); 4xx responses are
// returned immediately with their status preserved.
type GraphDirectoryRepository struct {
	endpoint    string
	client      *retryablehttp.Client
	tokenSource TokenSource
}

// NewGraphDirectoryRepository creates the directory client.
// The endpoint is the API base URL, e.g. "https://graph.microsoft.com/v1.0".
func NewGraphDirectoryRepository(
	endpoint string,
	client *retryablehttp.Client,
	tokenSource TokenSource,
) *GraphDirectoryRepository {
	return &GraphDirectoryRepository{
		endpoint:    endpoint,
		client:      client,
		tokenSource: tokenSource,
	}
}

// memberGroupsResponse is the JSON shape of a membership page.
type memberGroupsResponse struct {
	Value    []string `json:"value"`
	NextLink string   `json:"@odata.nextLink"`
}

// GetMemberGroups fetches one page of transitive security group memberships.
//
// The first page is a POST to /users/{id}/getMemberGroups with
// securityEnabledOnly set; continuation pages follow the @odata.nextLink
// returned by the previous page.
func (r *GraphDirectoryRepository) GetMemberGroups(
	ctx context.Context,
	principalID, nextLink string,
) (*authUseCase.GroupPage, error) {
	serviceToken, err := r.tokenSource.Token(ctx)
	if err != nil {
		return nil, err
	}

	var req *retryablehttp.Request
	if nextLink == "" {
		body, err := json.Marshal(map[string]bool{"securityEnabledOnly": true})
		if err != nil {
			return nil, fmt.Errorf("failed to encode membership request: %w", err)
		}

		requestURL := fmt.Sprintf("%s/users/%s/getMemberGroups", r.endpoint, url.PathEscape(principalID))
		req, err = retryablehttp.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create membership request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = retryablehttp.NewRequestWithContext(ctx, http.MethodGet, nextLink, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create continuation request: %w", err)
		}
	}

	req.Header.Set("Authorization", "Bearer "+serviceToken)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrUpstream, "directory request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Wrap(&apperrors.StatusError{Code: resp.StatusCode}, "directory query")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrUpstream, "failed to read directory response: %v", err)
	}

	var page memberGroupsResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrUpstream, "failed to parse directory response: %v", err)
	}

	return &authUseCase.GroupPage{
		IDs:      page.Value,
		NextLink: page.NextLink,
	}, nil
}
