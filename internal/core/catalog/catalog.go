// Package catalog holds the current stock of every product, keyed by SKU.
package catalog

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/rl1809/warehouse/internal/core/domain"
	"github.com/rl1809/warehouse/internal/port"
)

// Catalog is not safe for concurrent use. InventoryService serializes access.
type Catalog struct {
	products map[string]domain.Product
	saver    port.ProductSaver
}

func New(saver port.ProductSaver, products []domain.Product) *Catalog {
	c := &Catalog{
		products: make(map[string]domain.Product, len(products)),
		saver:    saver,
	}
	for _, p := range products {
		c.products[p.SKU] = p
	}
	return c
}

// Add inserts a new product. The product is kept in memory even when the
// snapshot write fails; that case returns a *domain.PersistError.
func (c *Catalog) Add(ctx context.Context, product domain.Product) error {
	if _, ok := c.products[product.SKU]; ok {
		return errors.Wrapf(domain.ErrConflict, "sku %s", product.SKU)
	}
	c.products[product.SKU] = product
	return c.flush(ctx)
}

func (c *Catalog) Get(sku string) (domain.Product, bool) {
	p, ok := c.products[sku]
	return p, ok
}

// Update replaces the whole stored record.
func (c *Catalog) Update(ctx context.Context, product domain.Product) error {
	if _, ok := c.products[product.SKU]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "sku %s", product.SKU)
	}
	c.products[product.SKU] = product
	return c.flush(ctx)
}

// ListAll returns a copy ordered by SKU.
func (c *Catalog) ListAll() []domain.Product {
	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

func (c *Catalog) Len() int { return len(c.products) }

func (c *Catalog) flush(ctx context.Context) error {
	if c.saver == nil {
		return nil
	}
	if err := c.saver.SaveProducts(ctx, c.ListAll()); err != nil {
		return &domain.PersistError{Collection: "products", Err: err}
	}
	return nil
}
