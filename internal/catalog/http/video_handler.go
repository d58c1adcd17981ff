// Package http provides HTTP handlers for catalog browsing.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authHTTP "github.com/allisson/videogate/internal/auth/http"
	authUseCase "github.com/allisson/videogate/internal/auth/usecase"
	catalogUseCase "github.com/allisson/videogate/internal/catalog/usecase"
	apperrors "github.com/allisson/videogate/internal/errors"
	"github.com/allisson/videogate/internal/httputil"
)

// VideoHandler handles catalog browsing requests.
//
// In public mode every caller sees the full catalog and unknown ids are 404.
// In authorized mode the caller's identity tokens are resolved fresh per
// request, listings are filtered down to viewable videos, and unknown or
// non-viewable ids are an opaque 401.
type VideoHandler struct {
	videoUseCase     catalogUseCase.VideoUseCase
	identityResolver authUseCase.IdentityResolver
	authEnabled      bool
	logger           *slog.Logger
}

// NewVideoHandler creates a new video handler. The identity resolver may be
// nil when authEnabled is false.
func NewVideoHandler(
	videoUseCase catalogUseCase.VideoUseCase,
	identityResolver authUseCase.IdentityResolver,
	authEnabled bool,
	logger *slog.Logger,
) *VideoHandler {
	return &VideoHandler{
		videoUseCase:     videoUseCase,
		identityResolver: identityResolver,
		authEnabled:      authEnabled,
		logger:           logger,
	}
}

// ListVideosHandler returns the videos the caller may browse.
// GET /videos
// Returns 200 with a JSON array of videos.
func (h *VideoHandler) ListVideosHandler(c *gin.Context) {
	if !h.authEnabled {
		videos, err := h.videoUseCase.List(c.Request.Context())
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		c.JSON(http.StatusOK, videos)
		return
	}

	identityTokens, ok := h.resolveIdentityTokens(c)
	if !ok {
		return
	}

	videos, err := h.videoUseCase.ListViewable(c.Request.Context(), identityTokens)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, videos)
}

// GetVideoHandler returns a single video record.
// GET /videos/:videoId
// Returns 200 with the video, 404 for unknown ids in public mode, and 401
// for unknown or non-viewable ids in authorized mode.
func (h *VideoHandler) GetVideoHandler(c *gin.Context) {
	videoID := c.Param("videoId")

	if !h.authEnabled {
		video, err := h.videoUseCase.Get(c.Request.Context(), videoID)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		c.JSON(http.StatusOK, video)
		return
	}

	identityTokens, ok := h.resolveIdentityTokens(c)
	if !ok {
		return
	}

	video, err := h.videoUseCase.GetViewable(c.Request.Context(), videoID, identityTokens)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, video)
}

// resolveIdentityTokens derives the caller's identity token set from the
// authenticated principal. A false return means the response has already
// been written.
func (h *VideoHandler) resolveIdentityTokens(c *gin.Context) (map[string]struct{}, bool) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return nil, false
	}

	identityTokens, err := h.identityResolver.ResolveIdentityTokens(c.Request.Context(), principal.ObjectID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return nil, false
	}

	return identityTokens, true
}
