// Package catalog serves the read-only product list the cart prices against.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

//go:embed seed.json
var seed []byte

// Product is a catalog entry. The cart snapshots Price and OriginalPrice when a line is added.
type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Category      string           `json:"category"`
	Unit          string           `json:"unit"`
	InStock       bool             `json:"inStock"`
	Rating        float64          `json:"rating,omitempty"`
	Reviews       int              `json:"reviews,omitempty"`
	Image         string           `json:"image,omitempty"`
	Description   string           `json:"description,omitempty"`
}

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	products []Product
	byID     map[string]int
}

// Load reads the catalog from path, or the embedded seed when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(seed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a JSON product array.
func Parse(data []byte) (*Catalog, error) {
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(products)
}

// New validates products and builds the lookup index.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("product %d: id is required", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("product %s: duplicate id", p.ID)
		}
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("product %s: name is required", p.ID)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("product %s: price must be non-negative", p.ID)
		}
		if p.OriginalPrice != nil && p.OriginalPrice.LessThan(p.Price) {
			return nil, fmt.Errorf("product %s: original price below price", p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// List returns the products in catalog order, optionally filtered by category (case-insensitive).
func (c *Catalog) List(category string) []Product {
	category = strings.TrimSpace(category)
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Get looks a product up by id.
func (c *Catalog) Get(id string) (Product, bool) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}

// Categories returns the distinct categories in first-seen order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range c.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// Len reports the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}
