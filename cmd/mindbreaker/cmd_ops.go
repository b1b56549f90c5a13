package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mindbreaker/mindbreaker/internal/config"
	"github.com/mindbreaker/mindbreaker/internal/daemon"
	"gopkg.in/yaml.v3"
)

// cmdMigrate opens the configured database, which applies pending migrations
func cmdMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	storage, err := daemon.OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	fmt.Printf("Migrations applied (%s)\n", cfg.StorageDriver)
	return nil
}

// cmdWorker runs the event consumer until interrupted
func cmdWorker() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := signalContext()
	defer cancel()

	return daemon.RunWorker(ctx, cfg, logger)
}

// cmdConfig prints the effective configuration or writes it to a file
func cmdConfig(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if len(args) > 0 && args[0] == "init" {
		path := os.Getenv(config.FileEnv)
		if path == "" {
			dir, err := config.DataDir()
			if err != nil {
				return err
			}
			path = filepath.Join(dir, "config.yaml")
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.WriteFile(path, cfg); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Print(string(data))
	if cfg.JWTSecret != "" {
		fmt.Println("# jwt secret: set (hidden)")
	}
	return nil
}
