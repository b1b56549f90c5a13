package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mindbreaker/mindbreaker/internal/cache"
	"github.com/mindbreaker/mindbreaker/internal/catalog"
	"github.com/mindbreaker/mindbreaker/internal/config"
	"github.com/mindbreaker/mindbreaker/internal/daemon"
	mcpserver "github.com/mindbreaker/mindbreaker/internal/mcp"
)

// cmdMCP starts the MCP server on stdio. Duplicate checks against stored
// content are enabled when the database is reachable.
func cmdMCP() error {
	// stdout carries the protocol, so logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := signalContext()
	defer cancel()

	cfg := &mcpserver.Config{Version: Version}

	if appCfg, err := config.Load(); err != nil {
		logger.Warn("config unavailable, content tools disabled", "error", err)
	} else if storage, err := daemon.OpenStorage(ctx, appCfg); err != nil {
		logger.Warn("storage unavailable, content tools disabled", "error", err)
	} else {
		defer storage.Close()
		c, err := cache.New(appCfg.CacheSize, logger)
		if err != nil {
			return fmt.Errorf("create cache: %w", err)
		}
		cfg.Catalog = catalog.NewService(storage.Content, c)
	}

	return mcpserver.NewServer(*cfg).ServeStdio(ctx)
}
