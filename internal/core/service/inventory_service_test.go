package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/warehouse/internal/core/catalog"
	"github.com/rl1809/warehouse/internal/core/domain"
	"github.com/rl1809/warehouse/internal/core/ledger"
)

var (
	now       = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	today     = now.Add(-time.Hour)
	yesterday = now.Add(-24 * time.Hour)
	tomorrow  = now.Add(24 * time.Hour)
)

// Mock snapshot store
type mockSnapshotRepo struct {
	mu         sync.Mutex
	products   []domain.Product
	operations []domain.OperationRecord
	fail       error
}

func (m *mockSnapshotRepo) SaveProducts(ctx context.Context, products []domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.products = products
	return nil
}

func (m *mockSnapshotRepo) SaveOperations(ctx context.Context, operations []domain.OperationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.operations = operations
	return nil
}

type mockPublisher struct {
	mu      sync.Mutex
	records []domain.OperationRecord
	err     error
}

func (m *mockPublisher) Publish(ctx context.Context, record domain.OperationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return m.err
}

func newTestService(t *testing.T, opts ...Option) (*InventoryService, *mockSnapshotRepo) {
	t.Helper()
	repo := &mockSnapshotRepo{}
	logger, _ := test.NewNullLogger()
	opts = append([]Option{WithClock(func() time.Time { return now }), WithLogger(logger)}, opts...)
	svc := NewInventoryService(catalog.New(repo, nil), ledger.New(repo, nil), opts...)
	return svc, repo
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func widgetReceipt() ReceiveRequest {
	return ReceiveRequest{
		SKU:          "SKU1",
		Name:         "Widget",
		Quantity:     10,
		UnitPrice:    price("2.50"),
		Supplier:     "Acme",
		DeliveryDate: yesterday,
	}
}

func TestReceive_Success(t *testing.T) {
	svc, repo := newTestService(t)

	result := svc.Receive(context.Background(), widgetReceipt())

	require.True(t, result.Success, result.Message)
	assert.Empty(t, result.Kind)
	assert.True(t, result.AllSatisfied())
	require.Len(t, result.PostConditions, 6)

	products := svc.ListAllProducts()
	require.Len(t, products, 1)
	assert.Equal(t, 10, products[0].Quantity)
	assert.Equal(t, "Acme", products[0].Supplier)
	assert.True(t, svc.TotalInventoryValue().Equal(price("25.00")))

	require.NotNil(t, result.Record)
	assert.Equal(t, domain.OperationReceive, result.Record.Type)
	assert.Equal(t, int64(1), result.Record.Sequence)
	assert.Equal(t, 10, result.Record.Difference)
	assert.Contains(t, result.Record.Reason, "Acme")
	assert.Equal(t, yesterday, result.Record.OperationDate)
	assert.Equal(t, now, result.Record.RecordedAt)

	assert.Len(t, repo.products, 1)
	assert.Len(t, repo.operations, 1)
}

func TestReceive_Duplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.True(t, svc.Receive(ctx, widgetReceipt()).Success)

	again := widgetReceipt()
	again.Quantity = 99
	result := svc.Receive(ctx, again)

	assert.False(t, result.Success)
	assert.Equal(t, domain.KindConflict, result.Kind)
	assert.Empty(t, result.PostConditions)
	assert.Nil(t, result.Record)

	products := svc.ListAllProducts()
	require.Len(t, products, 1)
	assert.Equal(t, 10, products[0].Quantity)
	assert.Len(t, svc.ListAllOperations(), 1)
}

func TestReceive_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *ReceiveRequest)
		message string
	}{
		{"empty sku", func(r *ReceiveRequest) { r.SKU = "" }, "sku is required"},
		{"blank name", func(r *ReceiveRequest) { r.Name = "  " }, "name is required"},
		{"empty supplier", func(r *ReceiveRequest) { r.Supplier = "" }, "supplier is required"},
		{"zero quantity", func(r *ReceiveRequest) { r.Quantity = 0 }, "quantity must be greater than 0"},
		{"negative quantity", func(r *ReceiveRequest) { r.Quantity = -3 }, "quantity must be greater than 0"},
		{"zero price", func(r *ReceiveRequest) { r.UnitPrice = decimal.Zero }, "unit price must be greater than 0"},
		{"negative price", func(r *ReceiveRequest) { r.UnitPrice = price("-1") }, "unit price must be greater than 0"},
		{"too many decimals", func(r *ReceiveRequest) { r.UnitPrice = price("0.00001") }, "more than 4 decimal places"},
		{"price too large", func(r *ReceiveRequest) { r.UnitPrice = price("100000000000000") }, "unit price must be less than"},
		{"future date", func(r *ReceiveRequest) { r.DeliveryDate = tomorrow }, "delivery date cannot be in the future"},
		{"missing date", func(r *ReceiveRequest) { r.DeliveryDate = time.Time{} }, "delivery date is required"},
		{"first failure wins", func(r *ReceiveRequest) { r.Name = ""; r.Quantity = 0 }, "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t)
			req := widgetReceipt()
			tt.mutate(&req)

			result := svc.Receive(context.Background(), req)

			assert.False(t, result.Success)
			assert.Equal(t, domain.KindValidation, result.Kind)
			assert.Contains(t, result.Message, tt.message)
			assert.Empty(t, svc.ListAllProducts())
			assert.Empty(t, svc.ListAllOperations())
			assert.Nil(t, repo.products)
		})
	}
}

func TestReceive_PricePrecision(t *testing.T) {
	for _, p := range []string{"0.0001", "2.500000", "99999999999999.9999"} {
		t.Run(p, func(t *testing.T) {
			svc, _ := newTestService(t)
			req := widgetReceipt()
			req.UnitPrice = price(p)

			result := svc.Receive(context.Background(), req)

			require.True(t, result.Success, result.Message)
			product, _ := svc.GetProduct("SKU1")
			assert.True(t, product.UnitPrice.Equal(price(p)))
		})
	}
}

func TestWriteOff_Success(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.True(t, svc.Receive(ctx, widgetReceipt()).Success)

	result := svc.WriteOff(ctx, WriteOffRequest{SKU: "SKU1", Quantity: 4, Reason: "damaged", WriteOffDate: today})

	require.True(t, result.Success, result.Message)
	assert.True(t, result.AllSatisfied())
	require.Len(t, result.PostConditions, 4)

	product, ok := svc.GetProduct("SKU1")
	require.True(t, ok)
	assert.Equal(t, 6, product.Quantity)
	assert.True(t, svc.TotalInventoryValue().Equal(price("15.00")))

	entries := svc.ListOperationsBySKU("SKU1")
	require.Len(t, entries, 2)
	assert.Equal(t, domain.OperationWriteOff, entries[1].Type)
	assert.Equal(t, 4, entries[1].Quantity)
	assert.Equal(t, -4, entries[1].Difference)
	assert.Equal(t, 6, entries[1].Balance)
	assert.Equal(t, "damaged", entries[1].Reason)
	assert.True(t, entries[1].UnitPrice.Equal(price("2.50")))
}

func TestWriteOff_EntireStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.True(t, svc.Receive(ctx, widgetReceipt()).Success)

	result := svc.WriteOff(ctx, WriteOffRequest{SKU: "SKU1", Quantity: 10, Reason: "expired", WriteOffDate: today})

	require.True(t, result.Success)
	assert.True(t, result.AllSatisfied())
	product, _ := svc.GetProduct("SKU1")
	assert.Equal(t, 0, product.Quantity)
	assert.True(t, svc.TotalInventoryValue().IsZero())
}

func TestWriteOff_Failures(t *testing.T) {
	tests := []struct {
		name string
		req  WriteOffRequest
		kind domain.ErrorKind
	}{
		{"insufficient stock", WriteOffRequest{SKU: "SKU1", Quantity: 11, Reason: "lost", WriteOffDate: today}, domain.KindInsufficientStock},
		{"unknown sku", WriteOffRequest{SKU: "NOPE", Quantity: 1, Reason: "lost", WriteOffDate: today}, domain.KindNotFound},
		{"empty sku", WriteOffRequest{Quantity: 1, Reason: "lost", WriteOffDate: today}, domain.KindValidation},
		{"zero quantity", WriteOffRequest{SKU: "SKU1", Reason: "lost", WriteOffDate: today}, domain.KindValidation},
		{"empty reason", WriteOffRequest{SKU: "SKU1", Quantity: 1, WriteOffDate: today}, domain.KindValidation},
		{"future date", WriteOffRequest{SKU: "SKU1", Quantity: 1, Reason: "lost", WriteOffDate: tomorrow}, domain.KindValidation},
		{"validation before lookup", WriteOffRequest{SKU: "NOPE", Quantity: 1, Reason: "lost", WriteOffDate: tomorrow}, domain.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			ctx := context.Background()
			require.True(t, svc.Receive(ctx, widgetReceipt()).Success)

			result := svc.WriteOff(ctx, tt.req)

			assert.False(t, result.Success)
			assert.Equal(t, tt.kind, result.Kind)
			product, _ := svc.GetProduct("SKU1")
			assert.Equal(t, 10, product.Quantity)
			assert.Len(t, svc.ListAllOperations(), 1)
		})
	}
}

func TestInventoryAdjustment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.True(t, svc.Receive(ctx, widgetReceipt()).Success)
	require.True(t, svc.WriteOff(ctx, WriteOffRequest{SKU: "SKU1", Quantity: 4, Reason: "damaged", WriteOffDate: today}).Success)

	t.Run("Same quantity still recorded", func(t *testing.T) {
		result := svc.InventoryAdjustment(ctx, AdjustmentRequest{SKU: "SKU1", ActualQuantity: 6, Reason: "recount", AdjustmentDate: today})

		require.True(t, result.Success, result.Message)
		assert.True(t, result.AllSatisfied())
		product, _ := svc.GetProduct("SKU1")
		assert.Equal(t, 6, product.Quantity)

		entries := svc.ListOperationsBySKU("SKU1")
		require.Len(t, entries, 3)
		assert.Equal(t, domain.OperationAdjustment, entries[2].Type)
		assert.Equal(t, 6, entries[2].Quantity)
		assert.Equal(t, 0, entries[2].Difference)
	})

	t.Run("Increase", func(t *testing.T) {
		result := svc.InventoryAdjustment(ctx, AdjustmentRequest{SKU: "SKU1", ActualQuantity: 9, Reason: "found a box", AdjustmentDate: today})

		require.True(t, result.Success)
		require.NotNil(t, result.Record)
		assert.Equal(t, 9, result.Record.Quantity)
		assert.Equal(t, 3, result.Record.Difference)
		assert.Equal(t, 9, result.Record.Balance)
		assert.True(t, svc.TotalInventoryValue().Equal(price("22.50")))
	})

	t.Run("Down to zero", func(t *testing.T) {
		result := svc.InventoryAdjustment(ctx, AdjustmentRequest{SKU: "SKU1", ActualQuantity: 0, Reason: "theft", AdjustmentDate: today})

		require.True(t, result.Success)
		assert.Equal(t, -9, result.Record.Difference)
		product, _ := svc.GetProduct("SKU1")
		assert.Equal(t, 0, product.Quantity)
	})
}

func TestInventoryAdjustment_Failures(t *testing.T) {
	tests := []struct {
		name string
		req  AdjustmentRequest
		kind domain.ErrorKind
	}{
		{"empty sku", AdjustmentRequest{ActualQuantity: 5, Reason: "recount", AdjustmentDate: today}, domain.KindValidation},
		{"blank sku", AdjustmentRequest{SKU: "  ", ActualQuantity: 5, Reason: "recount", AdjustmentDate: today}, domain.KindValidation},
		{"negative quantity", AdjustmentRequest{SKU: "SKU1", ActualQuantity: -1, Reason: "recount", AdjustmentDate: today}, domain.KindValidation},
		{"empty reason", AdjustmentRequest{SKU: "SKU1", ActualQuantity: 5, AdjustmentDate: today}, domain.KindValidation},
		{"blank reason", AdjustmentRequest{SKU: "SKU1", ActualQuantity: 5, Reason: "\t", AdjustmentDate: today}, domain.KindValidation},
		{"missing date", AdjustmentRequest{SKU: "SKU1", ActualQuantity: 5, Reason: "recount"}, domain.KindValidation},
		{"future date", AdjustmentRequest{SKU: "SKU1", ActualQuantity: 5, Reason: "recount", AdjustmentDate: tomorrow}, domain.KindValidation},
		{"unknown sku", AdjustmentRequest{SKU: "NOPE", ActualQuantity: 5, Reason: "recount", AdjustmentDate: today}, domain.KindNotFound},
		{"validation before lookup", AdjustmentRequest{SKU: "NOPE", ActualQuantity: 5, AdjustmentDate: today}, domain.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t)
			ctx := context.Background()
			require.True(t, svc.Receive(ctx, widgetReceipt()).Success)

			result := svc.InventoryAdjustment(ctx, tt.req)

			assert.False(t, result.Success)
			assert.Equal(t, tt.kind, result.Kind)
			assert.Nil(t, result.Record)
			product, _ := svc.GetProduct("SKU1")
			assert.Equal(t, 10, product.Quantity)
			assert.Len(t, svc.ListAllProducts(), 1)
			assert.Len(t, svc.ListAllOperations(), 1)
			assert.Len(t, repo.operations, 1)
		})
	}
}

func TestTotalInventoryValue_MatchesProducts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	receipts := []ReceiveRequest{
		{SKU: "A", Name: "Bolt", Quantity: 100, UnitPrice: price("0.15"), Supplier: "Acme", DeliveryDate: yesterday},
		{SKU: "B", Name: "Nut", Quantity: 250, UnitPrice: price("0.07"), Supplier: "Acme", DeliveryDate: yesterday},
		{SKU: "C", Name: "Drill", Quantity: 3, UnitPrice: price("89.99"), Supplier: "Tools Ltd", DeliveryDate: yesterday},
	}
	for _, r := range receipts {
		require.True(t, svc.Receive(ctx, r).Success)
	}
	require.True(t, svc.WriteOff(ctx, WriteOffRequest{SKU: "C", Quantity: 1, Reason: "demo unit", WriteOffDate: today}).Success)

	expected := decimal.Zero
	for _, p := range svc.ListAllProducts() {
		expected = expected.Add(decimal.NewFromInt(int64(p.Quantity)).Mul(p.UnitPrice))
	}
	assert.True(t, svc.TotalInventoryValue().Equal(expected))
	assert.True(t, expected.Equal(price("212.48")))
}

func TestPersistenceFailure_KeepsMemoryState(t *testing.T) {
	svc, repo := newTestService(t)
	repo.fail = errors.New("disk full")

	result := svc.Receive(context.Background(), widgetReceipt())

	assert.True(t, result.Success)
	assert.False(t, result.AllSatisfied())
	last := result.PostConditions[len(result.PostConditions)-1]
	assert.Equal(t, "snapshot persisted", last.Description)
	assert.False(t, last.Satisfied)
	assert.Contains(t, last.Details, "disk full")
	assert.Contains(t, result.Message, "not persisted")

	assert.Len(t, svc.ListAllProducts(), 1)
	assert.Len(t, svc.ListAllOperations(), 1)
}

func TestPublisher(t *testing.T) {
	publisher := &mockPublisher{}
	svc, _ := newTestService(t, WithPublisher(publisher))
	ctx := context.Background()

	require.True(t, svc.Receive(ctx, widgetReceipt()).Success)
	svc.WriteOff(ctx, WriteOffRequest{SKU: "SKU1", Quantity: 50, Reason: "lost", WriteOffDate: today})

	require.Len(t, publisher.records, 1)
	assert.Equal(t, domain.OperationReceive, publisher.records[0].Type)

	publisher.err = errors.New("broker down")
	result := svc.WriteOff(ctx, WriteOffRequest{SKU: "SKU1", Quantity: 1, Reason: "lost", WriteOffDate: today})
	assert.True(t, result.Success)
	assert.Len(t, publisher.records, 2)
}

func TestPublisher_LedgerOrderUnderConcurrency(t *testing.T) {
	publisher := &mockPublisher{}
	svc, _ := newTestService(t, WithPublisher(publisher))
	ctx := context.Background()
	req := widgetReceipt()
	req.Quantity = 100
	require.True(t, svc.Receive(ctx, req).Success)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				svc.WriteOff(ctx, WriteOffRequest{SKU: "SKU1", Quantity: 1, Reason: "sold", WriteOffDate: today})
			} else {
				svc.InventoryAdjustment(ctx, AdjustmentRequest{SKU: "SKU1", ActualQuantity: 50 + n, Reason: "recount", AdjustmentDate: today})
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, publisher.records, 41)
	for i, r := range publisher.records {
		assert.Equal(t, int64(i+1), r.Sequence)
	}
}

func TestLogsFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	svc, _ := newTestService(t, WithLogger(logger))

	svc.WriteOff(context.Background(), WriteOffRequest{SKU: "SKU1", Quantity: 1, Reason: "lost", WriteOffDate: today})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, domain.KindNotFound, entry.Data["kind"])
}

func TestWriteOff_Concurrent(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	svc, _ := newTestService(t)
	ctx := context.Background()
	req := widgetReceipt()
	req.Quantity = initialStock
	require.True(t, svc.Receive(ctx, req).Success)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := svc.WriteOff(ctx, WriteOffRequest{SKU: "SKU1", Quantity: 1, Reason: "sold", WriteOffDate: today})
			if result.Success {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(initialStock), successCount.Load())
	product, _ := svc.GetProduct("SKU1")
	assert.Equal(t, 0, product.Quantity)
	assert.Len(t, svc.ListAllOperations(), initialStock+1)

	var seq int64
	for _, r := range svc.ListAllOperations() {
		seq++
		assert.Equal(t, seq, r.Sequence)
	}
}
