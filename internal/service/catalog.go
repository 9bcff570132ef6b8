package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CatalogItem is one fixed menu entry.
type CatalogItem struct {
	Code     int
	Name     string
	Price    decimal.Decimal
	Category string
}

// CategoryGroup is a category with its items in definition order.
type CategoryGroup struct {
	Category string
	Items    []CatalogItem
}

// Catalog is an immutable item table. It is safe for concurrent reads.
type Catalog struct {
	items  []CatalogItem
	byCode map[int]int
}

// NewCatalog validates items and builds a catalog preserving their order.
func NewCatalog(items []CatalogItem) (*Catalog, error) {
	c := &Catalog{
		items:  make([]CatalogItem, 0, len(items)),
		byCode: make(map[int]int, len(items)),
	}
	for i, it := range items {
		if it.Code <= 0 {
			return nil, fmt.Errorf("item[%d]: code must be > 0: %w", i, ErrInvalidInput)
		}
		if it.Name == "" {
			return nil, fmt.Errorf("item[%d]: name is required: %w", i, ErrInvalidInput)
		}
		if it.Price.IsNegative() {
			return nil, fmt.Errorf("item[%d]: price must be >= 0: %w", i, ErrInvalidInput)
		}
		if _, dup := c.byCode[it.Code]; dup {
			return nil, fmt.Errorf("item[%d]: duplicate code %d: %w", i, it.Code, ErrInvalidInput)
		}
		c.byCode[it.Code] = len(c.items)
		c.items = append(c.items, it)
	}
	return c, nil
}

// Lookup returns the item with the given code.
func (c *Catalog) Lookup(code int) (CatalogItem, error) {
	idx, ok := c.byCode[code]
	if !ok {
		return CatalogItem{}, fmt.Errorf("code %d: %w", code, ErrUnknownItem)
	}
	return c.items[idx], nil
}

// Items returns every item in definition order.
func (c *Catalog) Items() []CatalogItem {
	out := make([]CatalogItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// ListByCategory groups items by category. Categories appear in the order
// their first item was defined; items are not sorted.
func (c *Catalog) ListByCategory() []CategoryGroup {
	var groups []CategoryGroup
	pos := make(map[string]int)
	for _, it := range c.items {
		i, ok := pos[it.Category]
		if !ok {
			i = len(groups)
			pos[it.Category] = i
			groups = append(groups, CategoryGroup{Category: it.Category})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}
