package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	authDomain "github.com/allisson/videogate/internal/auth/domain"
	authHTTP "github.com/allisson/videogate/internal/auth/http"
	apperrors "github.com/allisson/videogate/internal/errors"
	keyDomain "github.com/allisson/videogate/internal/keydelivery/domain"
	"github.com/allisson/videogate/internal/testutil"
)

// mockKeyUseCase is a mock implementation of usecase.KeyUseCase.
type mockKeyUseCase struct {
	mock.Mock
}

func (m *mockKeyUseCase) GetKey(
	ctx context.Context,
	request *keyDomain.KeyRequest,
	identityTokens map[string]struct{},
) ([]byte, error) {
	args := m.Called(ctx, request, identityTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// mockIdentityResolver is a mock implementation of usecase.IdentityResolver.
type mockIdentityResolver struct {
	mock.Mock
}

func (m *mockIdentityResolver) ResolveIdentityTokens(
	ctx context.Context,
	principalID string,
) (authDomain.IdentityTokens, error) {
	args := m.Called(ctx, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(authDomain.IdentityTokens), args.Error(1)
}

// setupKeyRouter builds a router with a fixed authenticated principal.
func setupKeyRouter(handler *KeyHandler, principal *authDomain.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if principal != nil {
			ctx := authHTTP.WithPrincipal(c.Request.Context(), principal)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	})
	router.POST("/envelopeKey", handler.GetEnvelopeKeyHandler)
	router.POST("/playReadyKey", handler.GetPlayReadyKeyHandler)
	router.POST("/widevineKey", handler.GetWidevineKeyHandler)
	return router
}

func TestKeyHandler(t *testing.T) {
	principal := &authDomain.Principal{ObjectID: "u1"}
	tokens := authDomain.NewIdentityTokens("u1")
	tokens.Add("g1")

	t.Run("Success_EnvelopeKey", func(t *testing.T) {
		keyUseCase := &mockKeyUseCase{}
		resolver := &mockIdentityResolver{}

		resolver.On("ResolveIdentityTokens", mock.Anything, "u1").Return(tokens, nil)
		keyUseCase.On("GetKey", mock.Anything, mock.MatchedBy(func(r *keyDomain.KeyRequest) bool {
			return r.Kind == keyDomain.KindEnvelope && r.VideoID == "v1" && r.ContentKeyID == "k1"
		}), mock.Anything).Return([]byte("key-bytes"), nil)

		handler := NewKeyHandler(keyUseCase, resolver, testutil.NewLogger())
		router := setupKeyRouter(handler, principal)

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/envelopeKey?videoId=v1&contentKeyId=k1", nil)
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "application/octet-stream", recorder.Header().Get("Content-Type"))
		assert.Equal(t, []byte("key-bytes"), recorder.Body.Bytes())
	})

	t.Run("Success_PlayReadyKeyPassesChallengeBody", func(t *testing.T) {
		keyUseCase := &mockKeyUseCase{}
		resolver := &mockIdentityResolver{}

		resolver.On("ResolveIdentityTokens", mock.Anything, "u1").Return(tokens, nil)
		keyUseCase.On("GetKey", mock.Anything, mock.MatchedBy(func(r *keyDomain.KeyRequest) bool {
			return r.Kind == keyDomain.KindPlayReady &&
				r.VideoID == "v1" &&
				string(r.Challenge) == "<challenge/>"
		}), mock.Anything).Return([]byte("license"), nil)

		handler := NewKeyHandler(keyUseCase, resolver, testutil.NewLogger())
		router := setupKeyRouter(handler, principal)

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/playReadyKey?videoId=v1", bytes.NewBufferString("<challenge/>"))
		req.Header.Set("Content-Type", "text/xml")
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, []byte("license"), recorder.Body.Bytes())
	})

	t.Run("Success_WidevineKeyPassesBinaryBody", func(t *testing.T) {
		keyUseCase := &mockKeyUseCase{}
		resolver := &mockIdentityResolver{}

		resolver.On("ResolveIdentityTokens", mock.Anything, "u1").Return(tokens, nil)
		keyUseCase.On("GetKey", mock.Anything, mock.MatchedBy(func(r *keyDomain.KeyRequest) bool {
			return r.Kind == keyDomain.KindWidevine &&
				r.ContentKeyID == "k2" &&
				bytes.Equal(r.Challenge, []byte{0x01, 0x02})
		}), mock.Anything).Return([]byte("license"), nil)

		handler := NewKeyHandler(keyUseCase, resolver, testutil.NewLogger())
		router := setupKeyRouter(handler, principal)

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/widevineKey?videoId=v1&contentKeyId=k2", bytes.NewBuffer([]byte{0x01, 0x02}))
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("Error_NoPrincipal", func(t *testing.T) {
		keyUseCase := &mockKeyUseCase{}
		resolver := &mockIdentityResolver{}

		handler := NewKeyHandler(keyUseCase, resolver, testutil.NewLogger())
		router := setupKeyRouter(handler, nil)

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/envelopeKey?videoId=v1&contentKeyId=k1", nil)
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		keyUseCase.AssertNotCalled(t, "GetKey", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_ResolverFailure", func(t *testing.T) {
		keyUseCase := &mockKeyUseCase{}
		resolver := &mockIdentityResolver{}

		resolver.On("ResolveIdentityTokens", mock.Anything, "u1").
			Return(nil, apperrors.Wrap(apperrors.ErrUpstream, "directory request failed"))

		handler := NewKeyHandler(keyUseCase, resolver, testutil.NewLogger())
		router := setupKeyRouter(handler, principal)

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/envelopeKey?videoId=v1&contentKeyId=k1", nil)
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusBadGateway, recorder.Code)
		keyUseCase.AssertNotCalled(t, "GetKey", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_UnauthorizedKeyRequest", func(t *testing.T) {
		keyUseCase := &mockKeyUseCase{}
		resolver := &mockIdentityResolver{}

		resolver.On("ResolveIdentityTokens", mock.Anything, "u1").Return(tokens, nil)
		keyUseCase.On("GetKey", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperrors.Wrap(apperrors.ErrUnauthorized, "content key does not belong to video"))

		handler := NewKeyHandler(keyUseCase, resolver, testutil.NewLogger())
		router := setupKeyRouter(handler, principal)

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/envelopeKey?videoId=v1&contentKeyId=k1", nil)
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Error_MalformedChallenge", func(t *testing.T) {
		keyUseCase := &mockKeyUseCase{}
		resolver := &mockIdentityResolver{}

		resolver.On("ResolveIdentityTokens", mock.Anything, "u1").Return(tokens, nil)
		keyUseCase.On("GetKey", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperrors.Wrap(apperrors.ErrMalformedChallenge, "challenge is not a well-formed license envelope"))

		handler := NewKeyHandler(keyUseCase, resolver, testutil.NewLogger())
		router := setupKeyRouter(handler, principal)

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/playReadyKey?videoId=v1", bytes.NewBufferString("junk"))
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("Error_UpstreamStatusPropagated", func(t *testing.T) {
		keyUseCase := &mockKeyUseCase{}
		resolver := &mockIdentityResolver{}

		resolver.On("ResolveIdentityTokens", mock.Anything, "u1").Return(tokens, nil)
		keyUseCase.On("GetKey", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperrors.Wrap(&apperrors.StatusError{Code: http.StatusForbidden}, "key delivery"))

		handler := NewKeyHandler(keyUseCase, resolver, testutil.NewLogger())
		router := setupKeyRouter(handler, principal)

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/envelopeKey?videoId=v1&contentKeyId=k1", nil)
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})
}
