// Package seed loads content packs from YAML and inserts them as
// validated, published records.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"gopkg.in/yaml.v3"
)

// PackFile represents the YAML structure for a content pack
type PackFile struct {
	Organizations []OrganizationFile `yaml:"organizations"`
	Expeditions   []ExpeditionFile   `yaml:"expeditions"`
	Quests        []QuestFile        `yaml:"quests"`
}

// OrganizationFile is an organization entry. Key is how the rest of the
// pack refers to it.
type OrganizationFile struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	WebsiteURL  string `yaml:"website_url"`
}

// ExpeditionFile is an expedition entry
type ExpeditionFile struct {
	Key          string `yaml:"key"`
	Title        string `yaml:"title"`
	Summary      string `yaml:"summary"`
	Organization string `yaml:"organization"`
}

// QuestFile is a quest entry with its ordered exercises
type QuestFile struct {
	Title            string   `yaml:"title"`
	Summary          string   `yaml:"summary"`
	Description      string   `yaml:"description"`
	Difficulty       string   `yaml:"difficulty"`
	XPReward         int      `yaml:"xp_reward"`
	EstimatedMinutes int      `yaml:"estimated_minutes"`
	Organization     string   `yaml:"organization"`
	Expedition       string   `yaml:"expedition"`
	Exercises        []string `yaml:"exercises"`
}

// Writer inserts seeded records
type Writer interface {
	CreateOrganization(ctx context.Context, o *domain.Organization) error
	CreateExpedition(ctx context.Context, e *domain.Expedition) error
	CreateQuest(ctx context.Context, q *domain.Quest) error
	AddExercise(ctx context.Context, questID uuid.UUID, title string, position int) (uuid.UUID, error)
}

// Summary counts what a pack inserted
type Summary struct {
	Organizations int
	Expeditions   int
	Quests        int
	Exercises     int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d organizations, %d expeditions, %d quests, %d exercises",
		s.Organizations, s.Expeditions, s.Quests, s.Exercises)
}

// LoadPack reads and checks a pack file
func LoadPack(path string) (*PackFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pack file: %w", err)
	}

	var pack PackFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse pack file %s: %w", path, err)
	}
	if err := pack.Validate(); err != nil {
		return nil, fmt.Errorf("pack %s: %w", path, err)
	}
	return &pack, nil
}

// LoadDir loads every .yaml and .yml file in dir, in name order
func LoadDir(dir string) ([]*PackFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read pack directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	packs := make([]*PackFile, 0, len(names))
	for _, name := range names {
		pack, err := LoadPack(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		packs = append(packs, pack)
	}
	return packs, nil
}

// Validate reports missing names and dangling keys
func (p *PackFile) Validate() error {
	orgs := make(map[string]bool)
	for i, o := range p.Organizations {
		if strings.TrimSpace(o.Name) == "" {
			return fmt.Errorf("organization %d: name is required", i+1)
		}
		if o.Key != "" {
			if orgs[o.Key] {
				return fmt.Errorf("organization key %q is used twice", o.Key)
			}
			orgs[o.Key] = true
		}
	}

	expeditions := make(map[string]bool)
	for i, e := range p.Expeditions {
		if strings.TrimSpace(e.Title) == "" {
			return fmt.Errorf("expedition %d: title is required", i+1)
		}
		if e.Organization != "" && !orgs[e.Organization] {
			return fmt.Errorf("expedition %q: unknown organization %q", e.Title, e.Organization)
		}
		if e.Key != "" {
			if expeditions[e.Key] {
				return fmt.Errorf("expedition key %q is used twice", e.Key)
			}
			expeditions[e.Key] = true
		}
	}

	for i, q := range p.Quests {
		if strings.TrimSpace(q.Title) == "" {
			return fmt.Errorf("quest %d: title is required", i+1)
		}
		if q.XPReward < 0 {
			return fmt.Errorf("quest %q: xp_reward must not be negative", q.Title)
		}
		if q.Organization != "" && !orgs[q.Organization] {
			return fmt.Errorf("quest %q: unknown organization %q", q.Title, q.Organization)
		}
		if q.Expedition != "" && !expeditions[q.Expedition] {
			return fmt.Errorf("quest %q: unknown expedition %q", q.Title, q.Expedition)
		}
	}
	return nil
}

// Apply inserts the pack. Inserts are not transactional; a failure
// leaves the records written so far in place.
func Apply(ctx context.Context, w Writer, p *PackFile) (Summary, error) {
	var sum Summary
	if p == nil {
		return sum, errors.New("nil pack")
	}

	orgIDs := make(map[string]*uuid.UUID)
	for _, of := range p.Organizations {
		o := &domain.Organization{
			Name:        of.Name,
			Description: of.Description,
			WebsiteURL:  of.WebsiteURL,
			Status:      domain.StatusPublished,
			IsValidated: true,
		}
		if err := w.CreateOrganization(ctx, o); err != nil {
			return sum, fmt.Errorf("organization %q: %w", of.Name, err)
		}
		if of.Key != "" {
			orgIDs[of.Key] = &o.ID
		}
		sum.Organizations++
	}

	expeditionIDs := make(map[string]*uuid.UUID)
	for _, ef := range p.Expeditions {
		e := &domain.Expedition{
			Title:          ef.Title,
			Summary:        ef.Summary,
			OrganizationID: orgIDs[ef.Organization],
			Status:         domain.StatusPublished,
			IsValidated:    true,
		}
		if err := w.CreateExpedition(ctx, e); err != nil {
			return sum, fmt.Errorf("expedition %q: %w", ef.Title, err)
		}
		if ef.Key != "" {
			expeditionIDs[ef.Key] = &e.ID
		}
		sum.Expeditions++
	}

	for _, qf := range p.Quests {
		q := &domain.Quest{
			Title:            qf.Title,
			Summary:          qf.Summary,
			Description:      qf.Description,
			Difficulty:       qf.Difficulty,
			XPReward:         qf.XPReward,
			EstimatedMinutes: qf.EstimatedMinutes,
			OrganizationID:   orgIDs[qf.Organization],
			ExpeditionID:     expeditionIDs[qf.Expedition],
			Status:           domain.StatusPublished,
			IsValidated:      true,
		}
		if err := w.CreateQuest(ctx, q); err != nil {
			return sum, fmt.Errorf("quest %q: %w", qf.Title, err)
		}
		sum.Quests++

		for i, title := range qf.Exercises {
			if _, err := w.AddExercise(ctx, q.ID, title, i+1); err != nil {
				return sum, fmt.Errorf("quest %q exercise %d: %w", qf.Title, i+1, err)
			}
			sum.Exercises++
		}
	}

	return sum, nil
}
