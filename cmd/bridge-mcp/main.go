// cmd/bridge-mcp is the entry point for the bridge MCP (Model Context
// Protocol) server.  It exposes the coordination store — agent registry,
// mailbox, file locks, and shared memory — as MCP tools over stdio.
//
// Startup sequence:
//  1. Load configuration from environment variables.
//  2. Open the shared database, creating the schema if needed.
//  3. Create the MCP server around the store.
//  4. Serve JSON-RPC 2.0 requests from stdin, writing responses to stdout.
//
// CRITICAL: ALL logging MUST go to stderr.  Any bytes written to stdout that
// are not valid JSON-RPC 2.0 response frames will corrupt the protocol.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/api/mcp"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/config"
	"github.com/goldbar123467/claude-code-to-open-code-bridge/internal/storage/sqlite"
)

func main() {
	// Redirect the default logger to stderr so that any incidental log calls
	// (e.g. from imported packages) never pollute the stdout JSON-RPC stream.
	log.SetOutput(os.Stderr)
	log.SetPrefix("bridge-mcp: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Ensure the data directory exists.
	if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
		log.Fatalf("failed to create data directory %q: %v", cfg.Storage.DataPath, err)
	}

	store, err := sqlite.New(cfg.DBPath(), sqlite.WithStrictRecipients(cfg.Bridge.StrictRecipients))
	if err != nil {
		log.Fatalf("failed to open database at %q: %v", cfg.DBPath(), err)
	}
	defer store.Close()

	// Set up a root context that is cancelled on SIGINT / SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	srv := mcp.NewServer(store, mcp.WithConfig(cfg))

	// Wrap the server in a StdioTransport that reads line-delimited JSON-RPC
	// from stdin and writes responses to stdout.  All logging inside the
	// transport is directed to stderr.
	transport := mcp.NewStdioTransport(srv, os.Stdin, os.Stdout)

	log.Printf("ready — serving JSON-RPC 2.0 on stdin/stdout (db=%s)", cfg.DBPath())

	if err := transport.Serve(ctx); err != nil {
		// A non-nil error here is normal (context cancellation) or indicates a
		// fatal stdin/stdout problem.  Either way it is informational only.
		log.Printf("transport stopped: %v", err)
	}
}
