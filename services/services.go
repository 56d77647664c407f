// Package services hosts the customer-service tool servers. Each server is
// an MCP server over a static catalog and is normally run as a child
// process speaking the protocol on stdin and stdout.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/services/inventory"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/services/shipping"
)

var constructors = map[string]func(version string, logger zerolog.Logger) *mcp.Server{
	"inventory": func(v string, l zerolog.Logger) *mcp.Server {
		return inventory.NewServer(inventory.DefaultCatalog(), v, l)
	},
	"shipping": func(v string, l zerolog.Logger) *mcp.Server {
		return shipping.NewServer(shipping.DefaultCatalog(), v, l)
	},
}

// Names lists the servers NewServer knows.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewServer builds the named server over its embedded catalog.
func NewServer(name, version string, logger zerolog.Logger) (*mcp.Server, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool server %q (known: %v)", name, Names())
	}
	return ctor(version, logger.With().Str("server", name).Logger()), nil
}

// ServeStdio runs the named server on stdin/stdout until the client
// disconnects or ctx is done. Logs must not go to stdout.
func ServeStdio(ctx context.Context, name, version string, logger zerolog.Logger) error {
	server, err := NewServer(name, version, logger)
	if err != nil {
		return err
	}
	logger.Info().Str("server", name).Str("version", version).Msg("serving over stdio")
	err = server.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}
