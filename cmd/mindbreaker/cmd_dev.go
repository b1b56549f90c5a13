package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/auth"
	"github.com/mindbreaker/mindbreaker/internal/config"
	"github.com/mindbreaker/mindbreaker/internal/leveling"
)

// cmdToken issues an access token for a user id
func cmdToken(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: mindbreaker token <user-id> [ttl]")
	}

	userID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ttl := cfg.TokenTTL
	if len(args) > 1 {
		if ttl, err = time.ParseDuration(args[1]); err != nil {
			return fmt.Errorf("invalid ttl: %w", err)
		}
	}

	token, err := auth.IssueToken(userID, cfg.Secret(), ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// cmdLevel prints the level and progress for an XP total
func cmdLevel(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: mindbreaker level <xp>")
	}

	xp, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid xp: %w", err)
	}

	fmt.Print(formatLevel(xp))
	return nil
}

func formatLevel(xp int) string {
	xp = max(xp, 0)
	level := leveling.LevelFromXP(xp)
	progress := leveling.LevelProgress(xp, level)

	return fmt.Sprintf("Level %d  %s %d/%d XP (%.0f%%)\n",
		level,
		renderProgressBar(progress.Percent/100, 20),
		progress.CurrentLevelXP,
		progress.RequiredXP,
		progress.Percent,
	)
}
