package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/mindbreaker/mindbreaker/internal/catalog"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/leveling"
	"github.com/mindbreaker/mindbreaker/internal/similarity"
)

// Server wraps the MCP server with MindBreaker functionality
type Server struct {
	mcpServer *server.Server
	catalog   *catalog.Service
}

// Config contains configuration for the MCP server
type Config struct {
	// Catalog enables mindbreaker_duplicates. May be nil.
	Catalog *catalog.Service
	Version string
}

// NewServer creates a new MCP server for MindBreaker
func NewServer(cfg Config) *Server {
	s := &Server{catalog: cfg.Catalog}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "mindbreaker",
		Version: version,
	}, server.WithInstructions(`
MindBreaker is a gamified learning platform. Learners earn XP by completing
quests; contributors propose quests, organizations and expeditions that
admins validate.

Available tools:
- mindbreaker_level: Level and progress for an XP total
- mindbreaker_apply: Outcome of adding or removing XP
- mindbreaker_similar: Compare a proposed name against a list of names
- mindbreaker_duplicates: Compare a proposed name against stored content

Every level takes 1000 XP; level N starts at 1000 * (N-1) XP.
`))

	s.registerTools()

	return s
}

// registerTools registers all MindBreaker MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("mindbreaker_level").
		Description("Compute the level and progress toward the next level for an XP total.").
		Handler(s.handleLevel)

	s.mcpServer.Tool("mindbreaker_apply").
		Description("Apply an XP delta to a total and report whether the level changed.").
		Handler(s.handleApply)

	s.mcpServer.Tool("mindbreaker_similar").
		Description("Check a proposed name for an exact match or near-duplicates among candidate names.").
		Handler(s.handleSimilar)

	if s.catalog != nil {
		s.mcpServer.Tool("mindbreaker_duplicates").
			Description("Check a proposed name against existing organizations, quests or expeditions.").
			Handler(s.handleDuplicates)
	}
}

// Input/Output types for tools

type LevelInput struct {
	TotalXP int `json:"total_xp" jsonschema:"description=Total experience points (negative values count as 0)"`
}

type LevelOutput struct {
	TotalXP  int               `json:"total_xp"`
	Level    int               `json:"level"`
	Progress leveling.Progress `json:"progress"`
	Summary  string            `json:"summary"`
}

type ApplyInput struct {
	TotalXP int `json:"total_xp" jsonschema:"description=Current total experience points"`
	Delta   int `json:"delta" jsonschema:"description=XP to add (positive) or remove (negative)"`
}

type SimilarInput struct {
	Query      string   `json:"query" jsonschema:"description=Proposed name"`
	Candidates []string `json:"candidates" jsonschema:"description=Existing names to compare against"`
}

type DuplicatesInput struct {
	Type  string `json:"type" jsonschema:"description=Content type,enum=organizations,enum=quests,enum=expeditions"`
	Query string `json:"query" jsonschema:"description=Proposed name"`
}

// Tool handlers

func (s *Server) handleLevel(ctx context.Context, input LevelInput) (LevelOutput, error) {
	total := max(input.TotalXP, 0)
	level := leveling.LevelFromXP(total)
	progress := leveling.LevelProgress(total, level)

	return LevelOutput{
		TotalXP:  total,
		Level:    level,
		Progress: progress,
		Summary: fmt.Sprintf("Level %d: %d / %d XP (%.0f%%)",
			level, progress.CurrentLevelXP, progress.RequiredXP, progress.Percent),
	}, nil
}

func (s *Server) handleApply(ctx context.Context, input ApplyInput) (leveling.Change, error) {
	return leveling.Apply(input.TotalXP, input.Delta), nil
}

func (s *Server) handleSimilar(ctx context.Context, input SimilarInput) (similarity.Result, error) {
	candidates := make([]similarity.Candidate, 0, len(input.Candidates))
	for i, name := range input.Candidates {
		if strings.TrimSpace(name) == "" {
			continue
		}
		candidates = append(candidates, similarity.Candidate{ID: fmt.Sprint(i), Name: name})
	}
	return similarity.Check(input.Query, candidates), nil
}

func (s *Server) handleDuplicates(ctx context.Context, input DuplicatesInput) (similarity.Result, error) {
	if s.catalog == nil {
		return similarity.Result{}, errors.New("content lookups are not configured")
	}
	result, err := s.catalog.Similar(ctx, domain.EntityType(input.Type), input.Query)
	if err != nil {
		return similarity.Result{}, fmt.Errorf("check duplicates: %w", err)
	}
	return result, nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
