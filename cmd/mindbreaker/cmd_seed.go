package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mindbreaker/mindbreaker/internal/config"
	"github.com/mindbreaker/mindbreaker/internal/daemon"
	"github.com/mindbreaker/mindbreaker/internal/seed"
)

// cmdSeed inserts content packs from a YAML file or a directory of them
func cmdSeed(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: mindbreaker seed <file-or-directory>")
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}

	var packs []*seed.PackFile
	if info.IsDir() {
		if packs, err = seed.LoadDir(args[0]); err != nil {
			return err
		}
	} else {
		pack, err := seed.LoadPack(args[0])
		if err != nil {
			return err
		}
		packs = append(packs, pack)
	}

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

	var total seed.Summary
	for _, pack := range packs {
		sum, err := seed.Apply(ctx, storage.Seed, pack)
		total.Organizations += sum.Organizations
		total.Expeditions += sum.Expeditions
		total.Quests += sum.Quests
		total.Exercises += sum.Exercises
		if err != nil {
			return fmt.Errorf("seed stopped after %s: %w", total, err)
		}
	}

	fmt.Printf("Seeded %s\n", total)
	return nil
}
