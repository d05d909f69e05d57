package port

import (
	"context"

	"github.com/rl1809/warehouse/internal/core/domain"
)

type ProductSaver interface {
	// SaveProducts rewrites the whole product collection
	SaveProducts(ctx context.Context, products []domain.Product) error
}

type OperationSaver interface {
	// SaveOperations rewrites the whole ledger, in insertion order
	SaveOperations(ctx context.Context, operations []domain.OperationRecord) error
}

type SnapshotLoader interface {
	// LoadAll reads both collections; a store that does not exist yet is empty
	LoadAll(ctx context.Context) ([]domain.Product, []domain.OperationRecord, error)
}

type SnapshotRepository interface {
	SnapshotLoader
	ProductSaver
	OperationSaver
}
