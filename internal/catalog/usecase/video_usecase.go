// Package usecase implements catalog read operations with view authorization.
package usecase

import (
	"context"

	catalogDomain "github.com/allisson/videogate/internal/catalog/domain"
	apperrors "github.com/allisson/videogate/internal/errors"
)

// videoUseCase implements VideoUseCase on top of an immutable catalog repository.
type videoUseCase struct {
	videoRepo VideoRepository
}

// NewVideoUseCase creates the catalog use case.
func NewVideoUseCase(videoRepo VideoRepository) VideoUseCase {
	return &videoUseCase{videoRepo: videoRepo}
}

// List returns the full catalog without authorization filtering.
func (v *videoUseCase) List(ctx context.Context) ([]*catalogDomain.Video, error) {
	return v.videoRepo.List(ctx)
}

// Get returns a video by id without authorization filtering.
func (v *videoUseCase) Get(ctx context.Context, id string) (*catalogDomain.Video, error) {
	return v.videoRepo.Get(ctx, id)
}

// ListViewable filters the catalog down to videos the caller may view.
func (v *videoUseCase) ListViewable(
	ctx context.Context,
	identityTokens map[string]struct{},
) ([]*catalogDomain.Video, error) {
	videos, err := v.videoRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	viewable := make([]*catalogDomain.Video, 0, len(videos))
	for _, video := range videos {
		if video.ViewableBy(identityTokens) {
			viewable = append(viewable, video)
		}
	}

	return viewable, nil
}

// GetViewable returns a video only when the caller may view it.
//
// Unknown ids are folded into ErrUnauthorized rather than ErrNotFound so the
// response does not leak whether a video exists in the catalog. The key
// delivery broker relies on the same behavior for its first pipeline step.
func (v *videoUseCase) GetViewable(
	ctx context.Context,
	id string,
	identityTokens map[string]struct{},
) (*catalogDomain.Video, error) {
	video, err := v.videoRepo.Get(ctx, id)
	if err != nil {
		if apperrors.Is(err, catalogDomain.ErrVideoNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "video not viewable")
		}
		return nil, err
	}

	if !video.ViewableBy(identityTokens) {
		return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "video not viewable")
	}

	return video, nil
}
