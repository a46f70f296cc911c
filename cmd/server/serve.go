// file: cmd/server/serve.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkoosis/mcpcore/internal/config"
	"github.com/dkoosis/mcpcore/internal/endpoint"
	"github.com/dkoosis/mcpcore/internal/logging"
	"github.com/dkoosis/mcpcore/internal/mcp"
	"github.com/dkoosis/mcpcore/internal/mcpserver"
	"github.com/dkoosis/mcpcore/internal/transport"
)

// serveCommand starts the reference MCP server over stdio, or over HTTP/SSE
// when the config's server transport is "http", blocking until an interrupt
// signal arrives.
func serveCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	debugMode := fs.Bool("debug", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("fs.Parse: %w", err)
	}

	cfg, err := config.Load(findConfigFile(*configPath))
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	if *debugMode {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.NewZapLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("logging.NewZapLogger: %w", err)
	}
	logging.SetDefaultLogger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	switch cfg.Server.Transport {
	case "http":
		return serveHTTP(ctx, cfg, logger, sigCh)
	default:
		return serveStdio(ctx, cfg, logger, sigCh)
	}
}

// serveStdio wires one Server to the process's own stdin/stdout, blocking
// until an interrupt signal arrives.
func serveStdio(ctx context.Context, cfg *config.Settings, logger logging.Logger, sigCh chan os.Signal) error {
	srv := newReferenceServer(cfg, logger)

	t := transport.NewNDJSONTransport(os.Stdin, os.Stdout, os.Stdin, logger)
	ep := endpoint.New(t, srv, logger)
	srv.Attach(ep)

	if err := ep.Start(ctx); err != nil {
		return fmt.Errorf("endpoint.Start: %w", err)
	}

	logger.Info("mcpcore: serving over stdio", "name", cfg.Server.Name, "version", cfg.Server.Version)
	<-sigCh

	logger.Info("mcpcore: shutting down")
	return ep.Close(context.Background())
}

// newReferenceServer builds the Server every transport mode shares: same
// identity, same instructions, same registered tools/prompts/resources.
func newReferenceServer(cfg *config.Settings, logger logging.Logger) *mcpserver.Server {
	info := mcp.Implementation{Name: cfg.Server.Name, Version: cfg.Server.Version}
	srv := mcpserver.New(info, logger)
	srv.Instructions("A reference MCP server exposing an echo tool, a long-running operation with progress reporting, and a small set of demo resources.")
	registerReferenceCapabilities(srv)
	return srv
}
