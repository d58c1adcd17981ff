// Package http provides HTTP handlers for content-key brokering.
// Every endpoint re-validates per-video authorization before the upstream
// key delivery call.
package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authHTTP "github.com/allisson/videogate/internal/auth/http"
	authUseCase "github.com/allisson/videogate/internal/auth/usecase"
	apperrors "github.com/allisson/videogate/internal/errors"
	"github.com/allisson/videogate/internal/httputil"
	keyDomain "github.com/allisson/videogate/internal/keydelivery/domain"
	keyUseCase "github.com/allisson/videogate/internal/keydelivery/usecase"
)

// maxChallengeBytes bounds the license challenge body size.
const maxChallengeBytes = 1 << 20

// KeyHandler handles content-key requests for the three DRM protocols. Each
// request resolves the caller's identity tokens fresh and runs the full
// authorization pipeline in the use case before any bytes leave the upstream.
type KeyHandler struct {
	keyUseCase       keyUseCase.KeyUseCase
	identityResolver authUseCase.IdentityResolver
	logger           *slog.Logger
}

// NewKeyHandler creates a new key handler with required dependencies.
func NewKeyHandler(
	keyUseCase keyUseCase.KeyUseCase,
	identityResolver authUseCase.IdentityResolver,
	logger *slog.Logger,
) *KeyHandler {
	return &KeyHandler{
		keyUseCase:       keyUseCase,
		identityResolver: identityResolver,
		logger:           logger,
	}
}

// GetEnvelopeKeyHandler proxies an AES envelope key request.
// POST /envelopeKey?videoId=&contentKeyId=
// Returns the raw key bytes, 401 when not authorized, or the upstream status.
func (h *KeyHandler) GetEnvelopeKeyHandler(c *gin.Context) {
	request := &keyDomain.KeyRequest{
		Kind:         keyDomain.KindEnvelope,
		VideoID:      c.Query("videoId"),
		ContentKeyID: c.Query("contentKeyId"),
	}
	h.brokerKey(c, request)
}

// GetPlayReadyKeyHandler proxies a PlayReady license request. The content key
// id is extracted from the SOAP challenge body, not supplied by the caller.
// POST /playReadyKey?videoId= with a text/xml challenge body
// Returns the raw license bytes, 400 for a malformed challenge, 401 when not
// authorized, or the upstream status.
func (h *KeyHandler) GetPlayReadyKeyHandler(c *gin.Context) {
	challenge, ok := h.readChallenge(c)
	if !ok {
		return
	}

	request := &keyDomain.KeyRequest{
		Kind:      keyDomain.KindPlayReady,
		VideoID:   c.Query("videoId"),
		Challenge: challenge,
	}
	h.brokerKey(c, request)
}

// GetWidevineKeyHandler proxies a Widevine license request.
// POST /widevineKey?videoId=&contentKeyId= with a binary challenge body
// Returns the raw license bytes, 401 when not authorized, or the upstream
// status.
func (h *KeyHandler) GetWidevineKeyHandler(c *gin.Context) {
	challenge, ok := h.readChallenge(c)
	if !ok {
		return
	}

	request := &keyDomain.KeyRequest{
		Kind:         keyDomain.KindWidevine,
		VideoID:      c.Query("videoId"),
		ContentKeyID: c.Query("contentKeyId"),
		Challenge:    challenge,
	}
	h.brokerKey(c, request)
}

// brokerKey resolves the caller's identity tokens and runs one key request
// through the authorization pipeline.
func (h *KeyHandler) brokerKey(c *gin.Context, request *keyDomain.KeyRequest) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	identityTokens, err := h.identityResolver.ResolveIdentityTokens(c.Request.Context(), principal.ObjectID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	keyBytes, err := h.keyUseCase.GetKey(c.Request.Context(), request, identityTokens)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", keyBytes)
}

// readChallenge reads the bounded request body. A false return means the
// response has already been written.
func (h *KeyHandler) readChallenge(c *gin.Context) ([]byte, bool) {
	reader := http.MaxBytesReader(c.Writer, c.Request.Body, maxChallengeBytes)
	challenge, err := io.ReadAll(reader)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return nil, false
	}
	return challenge, true
}
