// Package catalog holds the read-only list of products sold at the café.
package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is a sellable item.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
}

// Catalog is an immutable, ordered set of products.
type Catalog struct {
	products []Product
	byID     map[string]int
}

// New builds a catalog. Product ids must be unique and prices non-negative.
func New(products ...Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}

	for _, p := range products {
		if p.ID == "" {
			return nil, errors.New("catalog: product id is required")
		}
		if _, ok := c.byID[p.ID]; ok {
			return nil, fmt.Errorf("catalog: duplicate product id %q", p.ID)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("catalog: product %q has a negative price", p.ID)
		}

		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}

	return c, nil
}

// MustNew is like New but panics on invalid input.
func MustNew(products ...Product) *Catalog {
	c, err := New(products...)
	if err != nil {
		panic(err)
	}

	return c
}

// Default returns the café menu.
func Default() *Catalog {
	return MustNew(
		Product{ID: "1", Name: "Espresso Simple", Description: "A pure, strong shot of coffee.", Price: decimal.RequireFromString("2.50")},
		Product{ID: "2", Name: "Latte Vainilla", Description: "Steamed milk with vanilla syrup.", Price: decimal.RequireFromString("4.50")},
		Product{ID: "3", Name: "Cappuccino", Description: "A shot of coffee with milk foam.", Price: decimal.RequireFromString("4.00")},
		Product{ID: "4", Name: "Americano", Description: "Espresso with hot water.", Price: decimal.RequireFromString("3.00")},
		Product{ID: "5", Name: "Mocha", Description: "Espresso with chocolate and milk.", Price: decimal.RequireFromString("5.00")},
	)
}

// Find looks a product up by id.
func (c *Catalog) Find(id string) (Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}

	return c.products[i], true
}

// Products returns a copy of the products in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)

	return out
}

func (c *Catalog) Len() int {
	return len(c.products)
}
