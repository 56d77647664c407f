// Package shipping holds the shipment table and the tracking lookups served
// by the shipping tool server.
package shipping

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// StatusDelivered marks a shipment as complete.
const StatusDelivered = "delivered"

//go:embed catalog.yaml
var catalogYAML []byte

// Shipment is one tracked shipment. It is also the track_shipment result.
type Shipment struct {
	TrackingNumber string `yaml:"tracking_number" json:"tracking_number"`
	OrderID        string `yaml:"order_id" json:"order_id"`
	Status         string `yaml:"status" json:"status"`
	Location       string `yaml:"location" json:"location"`
}

// ActiveReport is the get_active_shipments result.
type ActiveReport struct {
	Count     int        `json:"count"`
	Shipments []Shipment `json:"shipments"`
}

// NotFound is returned to callers in place of a result for unknown ids.
type NotFound struct {
	Error string `json:"error"`
}

// Catalog is an immutable shipment index. It is safe for concurrent use.
type Catalog struct {
	byNumber map[string]Shipment
	numbers  []string
}

// LoadCatalog parses a YAML shipment list.
func LoadCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Shipments []Shipment `yaml:"shipments"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse shipments: %w", err)
	}
	c := &Catalog{byNumber: make(map[string]Shipment, len(doc.Shipments))}
	for _, s := range doc.Shipments {
		if s.TrackingNumber == "" {
			return nil, fmt.Errorf("shipment for order %q has no tracking number", s.OrderID)
		}
		if _, dup := c.byNumber[s.TrackingNumber]; dup {
			return nil, fmt.Errorf("duplicate tracking number %s", s.TrackingNumber)
		}
		c.byNumber[s.TrackingNumber] = s
		c.numbers = append(c.numbers, s.TrackingNumber)
	}
	sort.Strings(c.numbers)
	return c, nil
}

// DefaultCatalog returns the embedded demo shipments.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(catalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Track returns the Shipment for number, or a NotFound.
func (c *Catalog) Track(number string) any {
	s, ok := c.byNumber[number]
	if !ok {
		return NotFound{Error: fmt.Sprintf("Tracking number %s not found", number)}
	}
	return s
}

// Active lists shipments that are not delivered, ordered by tracking number.
func (c *Catalog) Active() ActiveReport {
	report := ActiveReport{Shipments: []Shipment{}}
	for _, n := range c.numbers {
		if s := c.byNumber[n]; s.Status != StatusDelivered {
			report.Shipments = append(report.Shipments, s)
		}
	}
	report.Count = len(report.Shipments)
	return report
}

// Len returns the number of shipments.
func (c *Catalog) Len() int { return len(c.numbers) }
