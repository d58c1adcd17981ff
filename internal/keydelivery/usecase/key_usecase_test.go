package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	catalogDomain "github.com/allisson/videogate/internal/catalog/domain"
	apperrors "github.com/allisson/videogate/internal/errors"
	keyDomain "github.com/allisson/videogate/internal/keydelivery/domain"
	"github.com/allisson/videogate/internal/testutil"
)

// mockVideoUseCase is a mock implementation of catalog usecase.VideoUseCase.
type mockVideoUseCase struct {
	mock.Mock
}

func (m *mockVideoUseCase) List(ctx context.Context) ([]*catalogDomain.Video, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*catalogDomain.Video), args.Error(1)
}

func (m *mockVideoUseCase) Get(ctx context.Context, id string) (*catalogDomain.Video, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogDomain.Video), args.Error(1)
}

func (m *mockVideoUseCase) ListViewable(ctx context.Context, identityTokens map[string]struct{}) ([]*catalogDomain.Video, error) {
	args := m.Called(ctx, identityTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*catalogDomain.Video), args.Error(1)
}

func (m *mockVideoUseCase) GetViewable(ctx context.Context, id string, identityTokens map[string]struct{}) (*catalogDomain.Video, error) {
	args := m.Called(ctx, id, identityTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogDomain.Video), args.Error(1)
}

// mockKeyClient is a mock implementation of KeyClient.
type mockKeyClient struct {
	mock.Mock
}

func (m *mockKeyClient) Fetch(ctx context.Context, request *keyDomain.KeyRequest) ([]byte, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

const (
	testKeyGUID = "04030201-0605-0807-090a-0b0c0d0e0f10"
	otherGUID   = "11111111-2222-3333-4444-555555555555"
)

// playReadyChallenge embeds the base64 form of testKeyGUID's bytes.
func playReadyChallenge() []byte {
	return []byte(fmt.Sprintf(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <AcquireLicense xmlns="http://schemas.microsoft.com/DRM/2007/03/protocols">
      <challenge>
        <Challenge xmlns="http://schemas.microsoft.com/DRM/2007/03/protocols/messages">
          <LA xmlns="http://schemas.microsoft.com/DRM/2007/03/protocols">
            <ContentHeader>
              <WRMHEADER xmlns="http://schemas.microsoft.com/DRM/2007/03/PlayReadyHeader" version="4.0.0.0">
                <DATA>
                  <KID>%s</KID>
                </DATA>
              </WRMHEADER>
            </ContentHeader>
          </LA>
        </Challenge>
      </challenge>
    </AcquireLicense>
  </soap:Body>
</soap:Envelope>`, "AQIDBAUGBwgJCgsMDQ4PEA=="))
}

func testVideo(contentKeyIDs ...string) *catalogDomain.Video {
	return &catalogDomain.Video{
		ID:            "v1",
		Title:         "Test Video",
		Locator:       "https://example.com/v1.ism/manifest",
		Viewers:       []string{"g1"},
		ContentKeyIDs: contentKeyIDs,
	}
}

func TestKeyUseCase_GetKey(t *testing.T) {
	ctx := context.Background()
	tokens := map[string]struct{}{"u1": {}, "g1": {}}

	t.Run("Success_EnvelopeKey", func(t *testing.T) {
		videoUseCase := &mockVideoUseCase{}
		keyClient := &mockKeyClient{}

		videoUseCase.On("GetViewable", ctx, "v1", tokens).Return(testVideo(testKeyGUID), nil)
		keyClient.On("Fetch", ctx, mock.MatchedBy(func(r *keyDomain.KeyRequest) bool {
			return r.Kind == keyDomain.KindEnvelope && r.ContentKeyID == testKeyGUID
		})).Return([]byte("key-bytes"), nil)

		useCase := NewKeyUseCase(videoUseCase, keyClient, testutil.NewLogger())

		keyBytes, err := useCase.GetKey(ctx, &keyDomain.KeyRequest{
			Kind:         keyDomain.KindEnvelope,
			VideoID:      "v1",
			ContentKeyID: testKeyGUID,
		}, tokens)

		require.NoError(t, err)
		assert.Equal(t, []byte("key-bytes"), keyBytes)
		videoUseCase.AssertExpectations(t)
		keyClient.AssertExpectations(t)
	})

	t.Run("Success_PlayReadyKeyIDExtractedFromChallenge", func(t *testing.T) {
		videoUseCase := &mockVideoUseCase{}
		keyClient := &mockKeyClient{}

		videoUseCase.On("GetViewable", ctx, "v1", tokens).Return(testVideo(testKeyGUID), nil)
		keyClient.On("Fetch", ctx, mock.MatchedBy(func(r *keyDomain.KeyRequest) bool {
			return r.Kind == keyDomain.KindPlayReady && r.ContentKeyID == testKeyGUID
		})).Return([]byte("license-bytes"), nil)

		useCase := NewKeyUseCase(videoUseCase, keyClient, testutil.NewLogger())

		keyBytes, err := useCase.GetKey(ctx, &keyDomain.KeyRequest{
			Kind:      keyDomain.KindPlayReady,
			VideoID:   "v1",
			Challenge: playReadyChallenge(),
		}, tokens)

		require.NoError(t, err)
		assert.Equal(t, []byte("license-bytes"), keyBytes)
		keyClient.AssertExpectations(t)
	})

	t.Run("Error_VideoNotViewable_NoUpstreamCall", func(t *testing.T) {
		videoUseCase := &mockVideoUseCase{}
		keyClient := &mockKeyClient{}

		videoUseCase.On("GetViewable", ctx, "v1", tokens).
			Return(nil, apperrors.Wrap(apperrors.ErrUnauthorized, "video not viewable"))

		useCase := NewKeyUseCase(videoUseCase, keyClient, testutil.NewLogger())

		_, err := useCase.GetKey(ctx, &keyDomain.KeyRequest{
			Kind:         keyDomain.KindEnvelope,
			VideoID:      "v1",
			ContentKeyID: testKeyGUID,
		}, tokens)

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		keyClient.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("Error_ContentKeyNotOwned_EvenWhenViewable", func(t *testing.T) {
		videoUseCase := &mockVideoUseCase{}
		keyClient := &mockKeyClient{}

		videoUseCase.On("GetViewable", ctx, "v1", tokens).Return(testVideo(otherGUID), nil)

		useCase := NewKeyUseCase(videoUseCase, keyClient, testutil.NewLogger())

		_, err := useCase.GetKey(ctx, &keyDomain.KeyRequest{
			Kind:         keyDomain.KindEnvelope,
			VideoID:      "v1",
			ContentKeyID: testKeyGUID,
		}, tokens)

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		keyClient.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("Error_PlayReadyKeyNotOwned", func(t *testing.T) {
		videoUseCase := &mockVideoUseCase{}
		keyClient := &mockKeyClient{}

		videoUseCase.On("GetViewable", ctx, "v1", tokens).Return(testVideo(otherGUID), nil)

		useCase := NewKeyUseCase(videoUseCase, keyClient, testutil.NewLogger())

		_, err := useCase.GetKey(ctx, &keyDomain.KeyRequest{
			Kind:      keyDomain.KindPlayReady,
			VideoID:   "v1",
			Challenge: playReadyChallenge(),
		}, tokens)

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		keyClient.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("Error_MalformedChallengeBeforeOwnershipCheck", func(t *testing.T) {
		videoUseCase := &mockVideoUseCase{}
		keyClient := &mockKeyClient{}

		videoUseCase.On("GetViewable", ctx, "v1", tokens).Return(testVideo(testKeyGUID), nil)

		useCase := NewKeyUseCase(videoUseCase, keyClient, testutil.NewLogger())

		_, err := useCase.GetKey(ctx, &keyDomain.KeyRequest{
			Kind:      keyDomain.KindPlayReady,
			VideoID:   "v1",
			Challenge: []byte("not a license challenge"),
		}, tokens)

		assert.ErrorIs(t, err, apperrors.ErrMalformedChallenge)
		keyClient.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("Error_InvalidRequest_NoCatalogLookup", func(t *testing.T) {
		videoUseCase := &mockVideoUseCase{}
		keyClient := &mockKeyClient{}

		useCase := NewKeyUseCase(videoUseCase, keyClient, testutil.NewLogger())

		_, err := useCase.GetKey(ctx, &keyDomain.KeyRequest{
			Kind:         keyDomain.KindEnvelope,
			ContentKeyID: testKeyGUID,
		}, tokens)

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		videoUseCase.AssertNotCalled(t, "GetViewable", mock.Anything, mock.Anything, mock.Anything)
		keyClient.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("Error_UpstreamFailurePropagated", func(t *testing.T) {
		videoUseCase := &mockVideoUseCase{}
		keyClient := &mockKeyClient{}

		videoUseCase.On("GetViewable", ctx, "v1", tokens).Return(testVideo(testKeyGUID), nil)
		keyClient.On("Fetch", ctx, mock.Anything).
			Return(nil, apperrors.Wrap(&apperrors.StatusError{Code: 500}, "key delivery"))

		useCase := NewKeyUseCase(videoUseCase, keyClient, testutil.NewLogger())

		_, err := useCase.GetKey(ctx, &keyDomain.KeyRequest{
			Kind:         keyDomain.KindEnvelope,
			VideoID:      "v1",
			ContentKeyID: testKeyGUID,
		}, tokens)

		var statusErr *apperrors.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 500, statusErr.Code)
	})
}
