package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of fractional digits a unit price may carry.
const PriceScale = 4

// MaxUnitPrice is the exclusive upper bound of a unit price.
var MaxUnitPrice = decimal.New(1, 14)

type Product struct {
	SKU              string
	Name             string
	Quantity         int
	UnitPrice        decimal.Decimal
	Supplier         string
	LastDeliveryDate time.Time
}

// Value returns the stock value of the product (quantity * unit price).
func (p Product) Value() decimal.Decimal {
	return decimal.NewFromInt(int64(p.Quantity)).Mul(p.UnitPrice)
}

// TotalValue sums Value over products.
func TotalValue(products []Product) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.Value())
	}
	return total
}
