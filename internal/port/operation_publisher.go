package port

import (
	"context"

	"github.com/rl1809/warehouse/internal/core/domain"
)

type OperationPublisher interface {
	// Publish announces a committed ledger entry
	Publish(ctx context.Context, record domain.OperationRecord) error
}
