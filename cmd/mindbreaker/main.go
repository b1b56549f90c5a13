package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "migrate":
		err = cmdMigrate()
	case "worker":
		err = cmdWorker()
	case "seed":
		err = cmdSeed(os.Args[2:])
	case "mcp":
		err = cmdMCP()
	case "token":
		err = cmdToken(os.Args[2:])
	case "level":
		err = cmdLevel(os.Args[2:])
	case "config":
		err = cmdConfig(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("mindbreaker %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`MindBreaker - Gamified Learning Platform

Usage:
  mindbreaker <command> [arguments]

Operations:
  migrate           Apply database migrations
  worker            Consume events from RabbitMQ and record notifications
  seed <path>       Insert content packs from YAML
  config            Show the effective configuration
  config init       Write a config file with the current settings

Development:
  token <user-id>   Issue an access token (optional TTL, e.g. 2h)
  level <xp>        Show the level and progress for an XP total

Integration:
  mcp               Start MCP server on stdio

Other:
  help              Show this help message
  version           Show version information

The HTTP server is started with mindbreakerd. Settings come from
MINDBREAKER_* environment variables and the YAML file named by
MINDBREAKER_CONFIG.`)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// renderProgressBar creates a visual progress bar
func renderProgressBar(value float64, width int) string {
	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	empty := width - filled

	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}
