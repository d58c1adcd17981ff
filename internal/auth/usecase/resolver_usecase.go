// Package usecase implements per-request identity resolution.
package usecase

import (
	"context"

	authDomain "github.com/allisson/videogate/internal/auth/domain"
	apperrors "github.com/allisson/videogate/internal/errors"
)

// identityResolver implements IdentityResolver over a paginated directory API.
type identityResolver struct {
	directoryRepo DirectoryRepository
}

// NewIdentityResolver creates the resolver.
func NewIdentityResolver(directoryRepo DirectoryRepository) IdentityResolver {
	return &identityResolver{directoryRepo: directoryRepo}
}

// ResolveIdentityTokens seeds the result with the principal's own object id,
// then drains every continuation page of the transitive group membership
// query before returning. No page is skipped; an empty first page with no
// continuation yields just the principal id.
//
// Resolution happens on every request and is the dominant latency cost of
// authorized routes; results are never cached across requests.
func (r *identityResolver) ResolveIdentityTokens(
	ctx context.Context,
	principalID string,
) (authDomain.IdentityTokens, error) {
	if principalID == "" {
		return nil, authDomain.ErrNoPrincipal
	}

	identityTokens := authDomain.NewIdentityTokens(principalID)

	nextLink := ""
	for {
		page, err := r.directoryRepo.GetMemberGroups(ctx, principalID, nextLink)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to resolve group memberships")
		}

		for _, groupID := range page.IDs {
			identityTokens.Add(groupID)
		}

		if page.NextLink == "" {
			return identityTokens, nil
		}
		nextLink = page.NextLink
	}
}
