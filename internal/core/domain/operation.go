package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OperationType string

const (
	OperationReceive    OperationType = "receive"
	OperationWriteOff   OperationType = "write_off"
	OperationAdjustment OperationType = "inventory_adjustment"
)

func (t OperationType) Valid() bool {
	switch t {
	case OperationReceive, OperationWriteOff, OperationAdjustment:
		return true
	}
	return false
}

// OperationRecord is an immutable ledger entry.
//
// Quantity is the amount the caller asked for: units received, units written
// off, or the counted stock for an adjustment. Difference is always the signed
// change applied to the product and Balance the stock left afterwards.
type OperationRecord struct {
	ID            string
	Sequence      int64 // ledger insertion position, starts at 1
	SKU           string
	Type          OperationType
	Quantity      int
	Difference    int
	Balance       int
	UnitPrice     decimal.Decimal
	Reason        string
	OperationDate time.Time
	RecordedAt    time.Time
}
