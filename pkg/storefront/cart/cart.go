// Package cart is the client-held shopping cart.
package cart

import (
	"sync"

	"github.com/corray333/backend-labs/cafe/pkg/catalog"
	"github.com/shopspring/decimal"
)

// Item is a cart line. Price is copied from the catalog when first added.
type Item struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

// LineTotal returns price × quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart holds at most one line per product, in insertion order.
type Cart struct {
	mu      sync.RWMutex
	catalog *catalog.Catalog
	items   []Item
}

func New(c *catalog.Catalog) *Cart {
	return &Cart{catalog: c}
}

// Add puts one unit of the product in the cart. Unknown ids are ignored.
func (c *Cart) Add(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(productID); i >= 0 {
		c.items[i].Quantity++
		return
	}

	p, ok := c.catalog.Find(productID)
	if !ok {
		return
	}

	c.items = append(c.items, Item{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  1,
	})
}

// Remove takes one unit out. The line disappears when its quantity reaches zero.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if i < 0 {
		return
	}

	if c.items[i].Quantity > 1 {
		c.items[i].Quantity--
		return
	}

	c.items = append(c.items[:i], c.items[i+1:]...)
}

// Total is recomputed from the lines on every call.
func (c *Cart) Total() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}

	return total
}

// Items returns a copy of the lines.
func (c *Cart) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Item, len(c.items))
	copy(out, c.items)

	return out
}

// Quantity returns how many units of the product are in the cart.
func (c *Cart) Quantity(productID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.indexOf(productID); i >= 0 {
		return c.items[i].Quantity
	}

	return 0
}

func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}

	return -1
}
