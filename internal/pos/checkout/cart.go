package checkout

import (
	"math"
	"sync"

	"github.com/spidlabs/spidpos/internal/pos/store"
)

// CartItem is a denormalized line in the cart. Price and VAT are
// snapshotted at add time so later catalog edits never change a cart
// in progress.
type CartItem struct {
	ProductID      string
	Name           string
	UnitPriceCents int64
	VATRate        float64
	Qty            int
}

// LineTotalCents is qty times the snapshotted unit price
func (i *CartItem) LineTotalCents() int64 {
	return int64(i.Qty) * i.UnitPriceCents
}

// Cart is the in-memory sale being rung up. Safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	items []CartItem
}

// NewCart creates an empty cart
func NewCart() *Cart {
	return &Cart{}
}

// Add puts one unit of the product in the cart, merging with an
// existing line for the same product.
func (c *Cart) Add(p *store.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ProductID == p.ID {
			c.items[i].Qty++
			return
		}
	}
	c.items = append(c.items, CartItem{
		ProductID:      p.ID,
		Name:           p.Name,
		UnitPriceCents: p.PriceCents,
		VATRate:        p.VATRate,
		Qty:            1,
	})
}

// Increase bumps a line's quantity by one
func (c *Cart) Increase(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items[i].Qty++
			return
		}
	}
}

// Decrease lowers a line's quantity by one, removing the line at zero
func (c *Cart) Decrease(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items[i].Qty--
			if c.items[i].Qty <= 0 {
				c.items = append(c.items[:i], c.items[i+1:]...)
			}
			return
		}
	}
}

// Remove deletes a line regardless of quantity
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Items returns a copy of the cart lines in insertion order
func (c *Cart) Items() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]CartItem, len(c.items))
	copy(items, c.items)
	return items
}

// Empty reports whether the cart has no lines
func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

// Totals is the arithmetic summary of a cart or receipt
type Totals struct {
	SubtotalCents int64
	TaxCents      int64
	TotalCents    int64
	// TaxByRate maps each VAT rate to the tax collected at that rate
	TaxByRate map[float64]int64
}

// ComputeTotals sums the cart. VAT rounds once per rate group, not per
// line, so two half-cent lines at one rate do not round twice.
func ComputeTotals(items []CartItem) Totals {
	totals := Totals{TaxByRate: make(map[float64]int64)}
	subtotalByRate := make(map[float64]int64)

	for _, item := range items {
		line := item.LineTotalCents()
		totals.SubtotalCents += line
		subtotalByRate[item.VATRate] += line
	}

	for rate, rateSubtotal := range subtotalByRate {
		tax := int64(math.Round(float64(rateSubtotal) * rate / 100))
		totals.TaxByRate[rate] = tax
		totals.TaxCents += tax
	}

	totals.TotalCents = totals.SubtotalCents + totals.TaxCents
	return totals
}
