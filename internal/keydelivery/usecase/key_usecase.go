// Package usecase implements the content-key brokering pipeline.
package usecase

import (
	"context"
	"log/slog"

	catalogUseCase "github.com/allisson/videogate/internal/catalog/usecase"
	apperrors "github.com/allisson/videogate/internal/errors"
	keyDomain "github.com/allisson/videogate/internal/keydelivery/domain"
	"github.com/allisson/videogate/internal/keydelivery/service"
	customValidation "github.com/allisson/videogate/internal/validation"
)

// keyUseCase implements KeyUseCase. It re-checks viewing rights and
// content-key ownership on every request; the catalog listing a video to a
// caller earlier in the session grants nothing here.
type keyUseCase struct {
	videoUseCase catalogUseCase.VideoUseCase
	keyClient    KeyClient
	logger       *slog.Logger
}

// NewKeyUseCase creates the key brokering use case.
func NewKeyUseCase(
	videoUseCase catalogUseCase.VideoUseCase,
	keyClient KeyClient,
	logger *slog.Logger,
) KeyUseCase {
	return &keyUseCase{
		videoUseCase: videoUseCase,
		keyClient:    keyClient,
		logger:       logger,
	}
}

// GetKey runs the authorization pipeline and proxies the request upstream.
func (u *keyUseCase) GetKey(
	ctx context.Context,
	request *keyDomain.KeyRequest,
	identityTokens map[string]struct{},
) ([]byte, error) {
	if err := request.Validate(); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}

	// Resolve and authorize the video before anything else. Unknown ids and
	// non-viewable videos both come back as ErrUnauthorized.
	video, err := u.videoUseCase.GetViewable(ctx, request.VideoID, identityTokens)
	if err != nil {
		return nil, err
	}

	// Establish the content key id. PlayReady embeds it in the challenge, so
	// a challenge that cannot be parsed fails as malformed input before the
	// ownership check ever runs.
	contentKeyID := request.ContentKeyID
	if request.Kind == keyDomain.KindPlayReady {
		contentKeyID, err = service.ExtractPlayReadyKeyID(request.Challenge)
		if err != nil {
			return nil, err
		}
	}

	// The key must belong to the requested video. Without this, a caller
	// authorized for one video could request keys for content ids belonging
	// to videos it cannot view.
	if !video.OwnsContentKey(contentKeyID) {
		u.logger.Warn("content key ownership check failed",
			slog.String("video_id", request.VideoID),
			slog.String("content_key_id", contentKeyID),
			slog.String("kind", request.Kind.String()))
		return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "content key does not belong to video")
	}

	upstream := *request
	upstream.ContentKeyID = contentKeyID

	return u.keyClient.Fetch(ctx, &upstream)
}
