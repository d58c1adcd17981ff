package usecase

import (
	"context"

	catalogDomain "github.com/allisson/videogate/internal/catalog/domain"
)

// VideoRepository defines catalog read access.
type VideoRepository interface {
	// Get returns the video with the given id, or ErrVideoNotFound.
	Get(ctx context.Context, id string) (*catalogDomain.Video, error)

	// List returns every video in the catalog.
	List(ctx context.Context) ([]*catalogDomain.Video, error)
}

// VideoUseCase exposes catalog reads for the public and authorized variants.
type VideoUseCase interface {
	// List returns the full catalog (public mode).
	List(ctx context.Context) ([]*catalogDomain.Video, error)

	// Get returns a video by id, or ErrVideoNotFound (public mode).
	Get(ctx context.Context, id string) (*catalogDomain.Video, error)

	// ListViewable returns the subset of the catalog the caller may view.
	ListViewable(ctx context.Context, identityTokens map[string]struct{}) ([]*catalogDomain.Video, error)

	// GetViewable returns a video only when the caller may view it. Unknown
	// ids and non-viewable videos both yield ErrUnauthorized so responses
	// never reveal whether the id exists.
	GetViewable(ctx context.Context, id string, identityTokens map[string]struct{}) (*catalogDomain.Video, error)
}
