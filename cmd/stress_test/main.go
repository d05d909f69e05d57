package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/warehouse/internal/adapter/storage"
	"github.com/rl1809/warehouse/internal/core/catalog"
	"github.com/rl1809/warehouse/internal/core/ledger"
	"github.com/rl1809/warehouse/internal/core/service"
)

const (
	sku           = "stress-item"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()
	log.SetLevel(log.ErrorLevel)

	repo := storage.NewMemoryAdapter()
	inventory := service.NewInventoryService(
		catalog.New(repo, nil),
		ledger.New(repo, nil),
		service.WithLogger(log.StandardLogger()),
	)

	now := time.Now()
	result := inventory.Receive(ctx, service.ReceiveRequest{
		SKU:          sku,
		Name:         "Stress item",
		Quantity:     initialStock,
		UnitPrice:    decimal.NewFromInt(10),
		Supplier:     "stress",
		DeliveryDate: now,
	})
	if !result.Success {
		log.Fatalf("failed to receive initial stock: %s", result.Message)
	}

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			result := inventory.WriteOff(ctx, service.WriteOffRequest{
				SKU:          sku,
				Quantity:     1,
				Reason:       fmt.Sprintf("stress-%d", n),
				WriteOffDate: now,
			})
			if result.Success {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d write-offs succeeded, %d failed\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	product, _ := inventory.GetProduct(sku)
	fmt.Printf("Final Stock:      %d\n", product.Quantity)
	if product.Quantity == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", product.Quantity)
	}

	entries := len(inventory.ListOperationsBySKU(sku))
	fmt.Printf("Ledger Entries:   %d\n", entries)
	if entries == initialStock+1 {
		fmt.Println("PASS: One ledger entry per successful operation")
	} else {
		fmt.Printf("FAIL: Expected %d ledger entries, got %d\n", initialStock+1, entries)
	}
}
