package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	catalogDomain "github.com/allisson/videogate/internal/catalog/domain"
	apperrors "github.com/allisson/videogate/internal/errors"
	"github.com/allisson/videogate/internal/metrics"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

func TestVideoUseCaseMetricsDecorator(t *testing.T) {
	ctx := context.Background()
	tokens := map[string]struct{}{"u1": {}}
	video := &catalogDomain.Video{ID: "v1", Title: "Video One"}

	t.Run("List_RecordsSuccessMetrics", func(t *testing.T) {
		repo := &mockVideoRepository{}
		repo.On("List", ctx).Return([]*catalogDomain.Video{video}, nil)

		mockMetrics := &mockBusinessMetrics{}
		mockMetrics.On("RecordOperation", ctx, "catalog", "video_list", "success").Return()
		mockMetrics.On("RecordDuration", ctx, "catalog", "video_list", mock.Anything, "success").Return()

		decorator := NewVideoUseCaseWithMetrics(NewVideoUseCase(repo), mockMetrics)

		videos, err := decorator.List(ctx)

		require.NoError(t, err)
		assert.Len(t, videos, 1)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Get_RecordsErrorMetrics", func(t *testing.T) {
		repo := &mockVideoRepository{}
		repo.On("Get", ctx, "missing").Return(nil, catalogDomain.ErrVideoNotFound)

		mockMetrics := &mockBusinessMetrics{}
		mockMetrics.On("RecordOperation", ctx, "catalog", "video_get", "error").Return()
		mockMetrics.On("RecordDuration", ctx, "catalog", "video_get", mock.Anything, "error").Return()

		decorator := NewVideoUseCaseWithMetrics(NewVideoUseCase(repo), mockMetrics)

		_, err := decorator.Get(ctx, "missing")

		assert.ErrorIs(t, err, catalogDomain.ErrVideoNotFound)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("GetViewable_RecordsErrorMetrics", func(t *testing.T) {
		repo := &mockVideoRepository{}
		repo.On("Get", ctx, "v1").Return(nil, catalogDomain.ErrVideoNotFound)

		mockMetrics := &mockBusinessMetrics{}
		mockMetrics.On("RecordOperation", ctx, "catalog", "video_get_viewable", "error").Return()
		mockMetrics.On("RecordDuration", ctx, "catalog", "video_get_viewable", mock.Anything, "error").Return()

		decorator := NewVideoUseCaseWithMetrics(NewVideoUseCase(repo), mockMetrics)

		_, err := decorator.GetViewable(ctx, "v1", tokens)

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("ListViewable_RecordsSuccessMetrics", func(t *testing.T) {
		repo := &mockVideoRepository{}
		repo.On("List", ctx).Return([]*catalogDomain.Video{video}, nil)

		mockMetrics := &mockBusinessMetrics{}
		mockMetrics.On("RecordOperation", ctx, "catalog", "video_list_viewable", "success").Return()
		mockMetrics.On("RecordDuration", ctx, "catalog", "video_list_viewable", mock.Anything, "success").Return()

		decorator := NewVideoUseCaseWithMetrics(NewVideoUseCase(repo), mockMetrics)

		_, err := decorator.ListViewable(ctx, tokens)

		require.NoError(t, err)
		mockMetrics.AssertExpectations(t)
	})
}
