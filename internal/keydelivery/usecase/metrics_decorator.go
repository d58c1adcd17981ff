package usecase

import (
	"context"
	"time"

	keyDomain "github.com/allisson/videogate/internal/keydelivery/domain"
	"github.com/allisson/videogate/internal/metrics"
)

// keyUseCaseWithMetrics decorates KeyUseCase with metrics instrumentation.
type keyUseCaseWithMetrics struct {
	next    KeyUseCase
	metrics metrics.BusinessMetrics
}

// NewKeyUseCaseWithMetrics wraps a KeyUseCase with metrics recording.
func NewKeyUseCaseWithMetrics(useCase KeyUseCase, m metrics.BusinessMetrics) KeyUseCase {
	return &keyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// GetKey records metrics for key brokering operations, labeled by DRM kind.
func (k *keyUseCaseWithMetrics) GetKey(
	ctx context.Context,
	request *keyDomain.KeyRequest,
	identityTokens map[string]struct{},
) ([]byte, error) {
	start := time.Now()
	keyBytes, err := k.next.GetKey(ctx, request, identityTokens)

	status := "success"
	if err != nil {
		status = "error"
	}

	operation := "key_" + request.Kind.String()
	k.metrics.RecordOperation(ctx, "keydelivery", operation, status)
	k.metrics.RecordDuration(ctx, "keydelivery", operation, time.Since(start), status)

	return keyBytes, err
}
