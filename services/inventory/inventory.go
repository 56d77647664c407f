// Package inventory holds the product catalog and the stock lookups served
// by the inventory tool server.
package inventory

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultLowStockThreshold is used when get_low_stock_products is called
// without a threshold.
const DefaultLowStockThreshold = 20

//go:embed catalog.yaml
var catalogYAML []byte

// Product is one catalog entry.
type Product struct {
	ID    string  `yaml:"id" json:"product_id"`
	Name  string  `yaml:"name" json:"name"`
	Stock int     `yaml:"stock" json:"stock"`
	Price float64 `yaml:"price" json:"price"`
}

// Catalog is an immutable product index. It is safe for concurrent use.
type Catalog struct {
	byID map[string]Product
	ids  []string
}

// StockInfo is the check_stock result for a known product.
type StockInfo struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Stock     int     `json:"stock"`
	Price     float64 `json:"price"`
	InStock   bool    `json:"in_stock"`
}

// LowStockReport is the get_low_stock_products result.
type LowStockReport struct {
	Threshold int       `json:"threshold"`
	Count     int       `json:"count"`
	Products  []Product `json:"products"`
}

// NotFound is returned to callers in place of a result for unknown ids.
type NotFound struct {
	Error string `json:"error"`
}

// LoadCatalog parses a YAML product list.
func LoadCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Products []Product `yaml:"products"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{byID: make(map[string]Product, len(doc.Products))}
	for _, p := range doc.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry %q has no id", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %s", p.ID)
		}
		c.byID[p.ID] = p
		c.ids = append(c.ids, p.ID)
	}
	sort.Strings(c.ids)
	return c, nil
}

// DefaultCatalog returns the embedded demo catalog.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(catalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// CheckStock returns a StockInfo for id, or a NotFound.
func (c *Catalog) CheckStock(id string) any {
	p, ok := c.byID[id]
	if !ok {
		return NotFound{Error: fmt.Sprintf("Product %s not found", id)}
	}
	return StockInfo{
		ProductID: p.ID,
		Name:      p.Name,
		Stock:     p.Stock,
		Price:     p.Price,
		InStock:   p.Stock > 0,
	}
}

// LowStock lists products with stock strictly below threshold, ordered by id.
func (c *Catalog) LowStock(threshold int) LowStockReport {
	report := LowStockReport{Threshold: threshold, Products: []Product{}}
	for _, id := range c.ids {
		if p := c.byID[id]; p.Stock < threshold {
			report.Products = append(report.Products, p)
		}
	}
	report.Count = len(report.Products)
	return report
}

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.ids) }
