package handler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/rl1809/warehouse/internal/adapter/storage"
	"github.com/rl1809/warehouse/internal/core/catalog"
	"github.com/rl1809/warehouse/internal/core/ledger"
	"github.com/rl1809/warehouse/internal/core/service"
)

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func newTestInventory() *service.InventoryService {
	repo := storage.NewMemoryAdapter()
	logger, _ := test.NewNullLogger()
	return service.NewInventoryService(
		catalog.New(repo, nil),
		ledger.New(repo, nil),
		service.WithClock(func() time.Time { return fixedNow }),
		service.WithLogger(logger),
	)
}

type failingGuard struct{}

func (failingGuard) SetIdempotency(ctx context.Context, key string) (bool, error) {
	return false, context.DeadlineExceeded
}

func (failingGuard) Release(ctx context.Context, key string) error {
	return context.DeadlineExceeded
}
