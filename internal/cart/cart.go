// Package cart holds the shopping-session cart aggregate.
package cart

import (
	"encoding/json"

	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/shopspring/decimal"
)

// Cart is an ordered list of product lines. Adding the same product twice
// gives two lines; nothing is merged.
type Cart struct {
	lines []domain.Product
}

func New(lines ...domain.Product) *Cart {
	c := &Cart{}
	for _, p := range lines {
		c.Add(p)
	}
	return c
}

func (c *Cart) Add(p domain.Product) {
	c.lines = append(c.lines, p)
}

// Remove drops the first line equal to p. It reports whether a line was removed;
// a missing product is not an error.
func (c *Cart) Remove(p domain.Product) bool {
	for i, line := range c.lines {
		if line.Equal(p) {
			c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
			return true
		}
	}
	return false
}

// Total is recomputed on every call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Price)
	}
	return total
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy in insertion order.
func (c *Cart) Lines() []domain.Product {
	out := make([]domain.Product, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Find returns the first line for the given catalog id.
func (c *Cart) Find(productID int64) (domain.Product, bool) {
	for _, line := range c.lines {
		if line.ID == productID {
			return line, true
		}
	}
	return domain.Product{}, false
}

type snapshot struct {
	Lines []domain.Product `json:"lines"`
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	lines := c.lines
	if lines == nil {
		lines = []domain.Product{}
	}
	return json.Marshal(snapshot{Lines: lines})
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	c.lines = s.Lines
	return nil
}
