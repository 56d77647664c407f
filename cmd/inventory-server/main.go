// Command inventory-server serves the inventory tools over MCP on stdin and stdout.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/observability"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/services"
)

var version = "dev"

func main() {
	// stdout carries the protocol
	logger, err := observability.NewLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("logger")
	}
	observability.SetGlobalLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := services.ServeStdio(ctx, "inventory", version, logger); err != nil {
		logger.Fatal().Err(err).Msg("inventory server stopped")
	}
}
