package usecase

import (
	"context"

	authDomain "github.com/allisson/videogate/internal/auth/domain"
)

// GroupPage is one page of transitive group ids from the directory service.
type GroupPage struct {
	IDs      []string // Group ids on this page
	NextLink string   // Continuation link; empty on the last page
}

// DirectoryRepository queries the external directory for group memberships.
type DirectoryRepository interface {
	// GetMemberGroups returns one page of the principal's transitive security
	// group memberships. Pass an empty nextLink for the first page and the
	// previous page's NextLink for continuations.
	GetMemberGroups(ctx context.Context, principalID, nextLink string) (*GroupPage, error)
}

// IdentityResolver derives the full identity token set for a caller.
type IdentityResolver interface {
	// ResolveIdentityTokens returns the principal's object id plus every
	// security group id it transitively belongs to.
	ResolveIdentityTokens(ctx context.Context, principalID string) (authDomain.IdentityTokens, error)
}
