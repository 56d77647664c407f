package shipping

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// ServerName is the MCP implementation name advertised by the server.
const ServerName = "shipping-server"

// TrackInput is the track_shipment argument object.
type TrackInput struct {
	TrackingNumber string `json:"tracking_number" jsonschema:"the tracking number, for example SHIP-001"`
}

// NewServer returns an MCP server exposing track_shipment and
// get_active_shipments over catalog.
func NewServer(catalog *Catalog, version string, logger zerolog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "track_shipment",
		Description: "Look up the status and current location of a shipment by tracking number.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in TrackInput) (*mcp.CallToolResult, any, error) {
		logger.Debug().Str("tool", "track_shipment").Str("tracking_number", in.TrackingNumber).Msg("tool called")
		return nil, catalog.Track(in.TrackingNumber), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_active_shipments",
		Description: "List all shipments that have not been delivered yet.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		logger.Debug().Str("tool", "get_active_shipments").Msg("tool called")
		return nil, catalog.Active(), nil
	})

	return server
}
