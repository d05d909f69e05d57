package storage

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/rl1809/warehouse/internal/core/domain"
)

// productRecord and operationRecord are the flat rows shared by the file and
// MySQL adapters. Prices are kept as decimal strings.
type productRecord struct {
	SKU              string    `yaml:"sku" db:"sku"`
	Name             string    `yaml:"name" db:"name"`
	Quantity         int       `yaml:"quantity" db:"quantity"`
	UnitPrice        string    `yaml:"unit_price" db:"unit_price"`
	Supplier         string    `yaml:"supplier" db:"supplier"`
	LastDeliveryDate time.Time `yaml:"last_delivery_date" db:"last_delivery_date"`
}

type operationRecord struct {
	Sequence      int64     `yaml:"sequence" db:"seq"`
	ID            string    `yaml:"id" db:"id"`
	SKU           string    `yaml:"sku" db:"sku"`
	Type          string    `yaml:"type" db:"type"`
	Quantity      int       `yaml:"quantity" db:"quantity"`
	Difference    int       `yaml:"difference" db:"difference"`
	Balance       int       `yaml:"balance" db:"balance"`
	UnitPrice     string    `yaml:"unit_price" db:"unit_price"`
	Reason        string    `yaml:"reason" db:"reason"`
	OperationDate time.Time `yaml:"operation_date" db:"operation_date"`
	RecordedAt    time.Time `yaml:"recorded_at" db:"recorded_at"`
}

func toProductRecords(products []domain.Product) []productRecord {
	out := make([]productRecord, 0, len(products))
	for _, p := range products {
		out = append(out, productRecord{
			SKU:              p.SKU,
			Name:             p.Name,
			Quantity:         p.Quantity,
			UnitPrice:        p.UnitPrice.String(),
			Supplier:         p.Supplier,
			LastDeliveryDate: p.LastDeliveryDate.UTC(),
		})
	}
	return out
}

func fromProductRecords(records []productRecord) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(records))
	for _, r := range records {
		price, err := decimal.NewFromString(r.UnitPrice)
		if err != nil {
			return nil, errors.Wrapf(err, "product %s: unit price", r.SKU)
		}
		out = append(out, domain.Product{
			SKU:              r.SKU,
			Name:             r.Name,
			Quantity:         r.Quantity,
			UnitPrice:        price,
			Supplier:         r.Supplier,
			LastDeliveryDate: r.LastDeliveryDate,
		})
	}
	return out, nil
}

func toOperationRecords(operations []domain.OperationRecord) []operationRecord {
	out := make([]operationRecord, 0, len(operations))
	for _, o := range operations {
		out = append(out, operationRecord{
			Sequence:      o.Sequence,
			ID:            o.ID,
			SKU:           o.SKU,
			Type:          string(o.Type),
			Quantity:      o.Quantity,
			Difference:    o.Difference,
			Balance:       o.Balance,
			UnitPrice:     o.UnitPrice.String(),
			Reason:        o.Reason,
			OperationDate: o.OperationDate.UTC(),
			RecordedAt:    o.RecordedAt.UTC(),
		})
	}
	return out
}

func fromOperationRecords(records []operationRecord) ([]domain.OperationRecord, error) {
	out := make([]domain.OperationRecord, 0, len(records))
	for _, r := range records {
		opType := domain.OperationType(r.Type)
		if !opType.Valid() {
			return nil, errors.Errorf("operation %s: unknown type %q", r.ID, r.Type)
		}
		price, err := decimal.NewFromString(r.UnitPrice)
		if err != nil {
			return nil, errors.Wrapf(err, "operation %s: unit price", r.ID)
		}
		out = append(out, domain.OperationRecord{
			ID:            r.ID,
			Sequence:      r.Sequence,
			SKU:           r.SKU,
			Type:          opType,
			Quantity:      r.Quantity,
			Difference:    r.Difference,
			Balance:       r.Balance,
			UnitPrice:     price,
			Reason:        r.Reason,
			OperationDate: r.OperationDate,
			RecordedAt:    r.RecordedAt,
		})
	}
	return out, nil
}
