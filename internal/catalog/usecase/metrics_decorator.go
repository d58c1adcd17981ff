package usecase

import (
	"context"
	"time"

	catalogDomain "github.com/allisson/videogate/internal/catalog/domain"
	"github.com/allisson/videogate/internal/metrics"
)

// videoUseCaseWithMetrics decorates VideoUseCase with metrics instrumentation.
type videoUseCaseWithMetrics struct {
	next    VideoUseCase
	metrics metrics.BusinessMetrics
}

// NewVideoUseCaseWithMetrics wraps a VideoUseCase with metrics recording.
func NewVideoUseCaseWithMetrics(useCase VideoUseCase, m metrics.BusinessMetrics) VideoUseCase {
	return &videoUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (v *videoUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	v.metrics.RecordOperation(ctx, "catalog", operation, status)
	v.metrics.RecordDuration(ctx, "catalog", operation, time.Since(start), status)
}

func (v *videoUseCaseWithMetrics) List(ctx context.Context) ([]*catalogDomain.Video, error) {
	start := time.Now()
	videos, err := v.next.List(ctx)
	v.record(ctx, "video_list", start, err)
	return videos, err
}

func (v *videoUseCaseWithMetrics) Get(ctx context.Context, id string) (*catalogDomain.Video, error) {
	start := time.Now()
	video, err := v.next.Get(ctx, id)
	v.record(ctx, "video_get", start, err)
	return video, err
}

func (v *videoUseCaseWithMetrics) ListViewable(
	ctx context.Context,
	identityTokens map[string]struct{},
) ([]*catalogDomain.Video, error) {
	start := time.Now()
	videos, err := v.next.ListViewable(ctx, identityTokens)
	v.record(ctx, "video_list_viewable", start, err)
	return videos, err
}

func (v *videoUseCaseWithMetrics) GetViewable(
	ctx context.Context,
	id string,
	identityTokens map[string]struct{},
) (*catalogDomain.Video, error) {
	start := time.Now()
	video, err := v.next.GetViewable(ctx, id, identityTokens)
	v.record(ctx, "video_get_viewable", start, err)
	return video, err
}
