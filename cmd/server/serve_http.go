// file: cmd/server/serve_http.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/dkoosis/mcpcore/internal/config"
	"github.com/dkoosis/mcpcore/internal/endpoint"
	"github.com/dkoosis/mcpcore/internal/logging"
	"github.com/dkoosis/mcpcore/internal/transporthttp"
)

// serveHTTP wires one Server per SSE session, serving the GET event stream
// plus POST /messages pair on cfg.Server.ListenAddr (spec.md §4.C), blocking
// until an interrupt signal arrives.
func serveHTTP(ctx context.Context, cfg *config.Settings, logger logging.Logger, sigCh chan os.Signal) error {
	const messagePath = "/messages"

	onSession := func(t *transporthttp.SSETransport) {
		srv := newReferenceServer(cfg, logger)
		ep := endpoint.New(t, srv, logger)
		srv.Attach(ep)
		if err := ep.Start(ctx); err != nil {
			logger.Error("mcpcore: failed to start session endpoint", "session", t.ID(), "error", err)
			return
		}
		logger.Info("mcpcore: new HTTP session", "session", t.ID())
	}

	handler := transporthttp.NewHandler(transporthttp.SessionModeStateful, messagePath, onSession, logger)

	mux := http.NewServeMux()
	mux.Handle("/sse", handler)
	mux.Handle(messagePath, handler)

	httpServer := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mcpcore: serving over HTTP/SSE", "addr", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http.ListenAndServe: %w", err)
	case <-sigCh:
	}

	logger.Info("mcpcore: shutting down")
	return httpServer.Shutdown(context.Background())
}
