package handler

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/warehouse/internal/core/domain"
	"github.com/rl1809/warehouse/internal/port"
)

// guarded runs op at most once per request id. The id is claimed before op
// runs and released again when op fails, so a corrected retry with the same
// id is applied. An empty id or a nil guard skips the check.
func guarded(ctx context.Context, guard port.RequestGuard, log logrus.FieldLogger, requestID string, op func() domain.Result) (result domain.Result, duplicate bool, err error) {
	if requestID == "" || guard == nil {
		return op(), false, nil
	}

	entry := log.WithField("request_id", requestID)
	ok, err := guard.SetIdempotency(ctx, requestID)
	if err != nil {
		entry.WithError(err).Error("idempotency check failed")
		return domain.Result{}, false, err
	}
	if !ok {
		return domain.Result{}, true, nil
	}

	result = op()
	if !result.Success {
		if err := guard.Release(ctx, requestID); err != nil {
			entry.WithError(err).Error("failed to release request id")
		}
	}
	return result, false, nil
}
