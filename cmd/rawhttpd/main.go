// Command rawhttpd runs the HTTP server with the default
// configuration. It exists as thin wiring; everything interesting
// lives in the server package.
package main

import (
	"log/slog"
	"os"

	"github.com/benbjohnson/clock"

	"rawhttp/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	srv, err := server.New(server.DefaultConfig(), logger, clock.New())
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	if err := srv.Listen(); err != nil {
		logger.Error("failed to bind", "error", err)
		os.Exit(1)
	}
	defer srv.Close()

	if err := srv.Serve(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
