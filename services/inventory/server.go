package inventory

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// ServerName is the MCP implementation name advertised by the server.
const ServerName = "inventory-server"

// CheckStockInput is the check_stock argument object.
type CheckStockInput struct {
	ProductID string `json:"product_id" jsonschema:"the product id, for example PROD-001"`
}

// LowStockInput is the get_low_stock_products argument object.
type LowStockInput struct {
	Threshold *int `json:"threshold,omitempty" jsonschema:"stock level below which a product is reported, default 20"`
}

// NewServer returns an MCP server exposing check_stock and
// get_low_stock_products over catalog.
func NewServer(catalog *Catalog, version string, logger zerolog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_stock",
		Description: "Check the stock level, price and availability of a product by its id.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in CheckStockInput) (*mcp.CallToolResult, any, error) {
		logger.Debug().Str("tool", "check_stock").Str("product_id", in.ProductID).Msg("tool called")
		return nil, catalog.CheckStock(in.ProductID), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_low_stock_products",
		Description: "List products whose stock is below a threshold.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in LowStockInput) (*mcp.CallToolResult, any, error) {
		threshold := DefaultLowStockThreshold
		if in.Threshold != nil {
			threshold = *in.Threshold
		}
		logger.Debug().Str("tool", "get_low_stock_products").Int("threshold", threshold).Msg("tool called")
		return nil, catalog.LowStock(threshold), nil
	})

	return server
}
