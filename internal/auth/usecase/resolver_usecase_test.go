package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/videogate/internal/auth/domain"
	apperrors "github.com/allisson/videogate/internal/errors"
)

// mockDirectoryRepository is a mock implementation of DirectoryRepository for testing.
type mockDirectoryRepository struct {
	mock.Mock
}

func (m *mockDirectoryRepository) GetMemberGroups(
	ctx context.Context,
	principalID, nextLink string,
) (*GroupPage, error) {
	args := m.Called(ctx, principalID, nextLink)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GroupPage), args.Error(1)
}

func TestIdentityResolver_ResolveIdentityTokens(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_DrainsAllContinuationPages", func(t *testing.T) {
		repo := &mockDirectoryRepository{}
		repo.On("GetMemberGroups", ctx, "u1", "").
			Return(&GroupPage{IDs: []string{"g1", "g2"}, NextLink: "page-2"}, nil)
		repo.On("GetMemberGroups", ctx, "u1", "page-2").
			Return(&GroupPage{IDs: []string{"g3"}, NextLink: "page-3"}, nil)
		repo.On("GetMemberGroups", ctx, "u1", "page-3").
			Return(&GroupPage{IDs: []string{}}, nil)

		resolver := NewIdentityResolver(repo)

		identityTokens, err := resolver.ResolveIdentityTokens(ctx, "u1")
		require.NoError(t, err)

		assert.Len(t, identityTokens, 4)
		for _, id := range []string{"u1", "g1", "g2", "g3"} {
			assert.True(t, identityTokens.Contains(id), "expected %s in token set", id)
		}

		repo.AssertExpectations(t)
	})

	t.Run("Success_EmptyFirstPageYieldsPrincipalOnly", func(t *testing.T) {
		repo := &mockDirectoryRepository{}
		repo.On("GetMemberGroups", ctx, "u1", "").Return(&GroupPage{}, nil)

		resolver := NewIdentityResolver(repo)

		identityTokens, err := resolver.ResolveIdentityTokens(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, identityTokens, 1)
		assert.True(t, identityTokens.Contains("u1"))
	})

	t.Run("Error_EmptyPrincipal", func(t *testing.T) {
		resolver := NewIdentityResolver(&mockDirectoryRepository{})

		_, err := resolver.ResolveIdentityTokens(ctx, "")
		assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
	})

	t.Run("Error_DirectoryFailurePropagates", func(t *testing.T) {
		repo := &mockDirectoryRepository{}
		repo.On("GetMemberGroups", ctx, "u1", "").
			Return(nil, apperrors.Wrap(apperrors.ErrUpstream, "directory query failed"))

		resolver := NewIdentityResolver(repo)

		_, err := resolver.ResolveIdentityTokens(ctx, "u1")
		assert.True(t, apperrors.Is(err, apperrors.ErrUpstream))
	})

	t.Run("Error_FailureOnContinuationPage", func(t *testing.T) {
		repo := &mockDirectoryRepository{}
		repo.On("GetMemberGroups", ctx, "u1", "").
			Return(&GroupPage{IDs: []string{"g1"}, NextLink: "page-2"}, nil)
		repo.On("GetMemberGroups", ctx, "u1", "page-2").
			Return(nil, apperrors.Wrap(apperrors.ErrUpstream, "directory query failed"))

		resolver := NewIdentityResolver(repo)

		_, err := resolver.ResolveIdentityTokens(ctx, "u1")
		assert.True(t, apperrors.Is(err, apperrors.ErrUpstream))
	})
}

func TestNewIdentityTokens(t *testing.T) {
	identityTokens := authDomain.NewIdentityTokens("u1")
	assert.True(t, identityTokens.Contains("u1"))
	identityTokens.Add("g1")
	assert.True(t, identityTokens.Contains("g1"))
	assert.False(t, identityTokens.Contains("g2"))
}
