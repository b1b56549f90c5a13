// Package catalog serves the public read side of the content tables.
// Listings are cached under the route that renders them and tagged by
// content type so validation transitions can drop them.
package catalog

import (
	"context"
	"strings"

	"github.com/mindbreaker/mindbreaker/internal/cache"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/similarity"
	"github.com/sahilm/fuzzy"
)

// MaxSearchResults caps Search
const MaxSearchResults = 20

// Store reads published content
type Store interface {
	// ListQuests returns published, validated quests
	ListQuests(ctx context.Context) ([]domain.Quest, error)
	// ListExpeditions returns published, validated expeditions
	ListExpeditions(ctx context.Context) ([]domain.Expedition, error)
	// ListOrganizations returns validated organizations
	ListOrganizations(ctx context.Context) ([]domain.Organization, error)
	// ListNames returns every non-archived record of type t with its display name
	ListNames(ctx context.Context, t domain.EntityType) ([]domain.Entity, error)
}

// SearchResult is a quest matched by Search
type SearchResult struct {
	Quest          domain.Quest `json:"quest"`
	Score          int          `json:"score"`
	MatchedIndexes []int        `json:"matched_indexes"`
}

// Service handles catalog reads
type Service struct {
	store Store
	cache *cache.Cache
}

// NewService creates a new catalog service
func NewService(store Store, c *cache.Cache) *Service {
	return &Service{store: store, cache: c}
}

// ListQuests returns the published quest catalog
func (s *Service) ListQuests(ctx context.Context) ([]domain.Quest, error) {
	return cache.Load(s.cache, "/quests", []string{cache.TagQuests}, func() ([]domain.Quest, error) {
		return s.store.ListQuests(ctx)
	})
}

// ListExpeditions returns the published expeditions
func (s *Service) ListExpeditions(ctx context.Context) ([]domain.Expedition, error) {
	return cache.Load(s.cache, "/expeditions", []string{cache.TagExpeditions}, func() ([]domain.Expedition, error) {
		return s.store.ListExpeditions(ctx)
	})
}

// ListOrganizations returns the validated organizations
func (s *Service) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	return cache.Load(s.cache, "/organizations", []string{cache.TagOrganizations}, func() ([]domain.Organization, error) {
		return s.store.ListOrganizations(ctx)
	})
}

type questTitles []domain.Quest

func (q questTitles) String(i int) string { return q[i].Title }
func (q questTitles) Len() int            { return len(q) }

// Search ranks published quests whose titles contain the query's
// characters in order. Matching ignores case.
func (s *Service) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}

	quests, err := s.ListQuests(ctx)
	if err != nil {
		return nil, err
	}

	matches := fuzzy.FindFrom(query, questTitles(quests))
	if len(matches) > MaxSearchResults {
		matches = matches[:MaxSearchResults]
	}

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Quest:          quests[m.Index],
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		}
	}
	return results, nil
}

// Candidates returns the existing names of type t for duplicate detection
func (s *Service) Candidates(ctx context.Context, t domain.EntityType) ([]similarity.Candidate, error) {
	key := "/similar/" + string(t)
	return cache.Load(s.cache, key, []string{string(t)}, func() ([]similarity.Candidate, error) {
		entities, err := s.store.ListNames(ctx, t)
		if err != nil {
			return nil, err
		}
		out := make([]similarity.Candidate, len(entities))
		for i, e := range entities {
			out[i] = similarity.Candidate{ID: e.ID.String(), Name: e.Name}
		}
		return out, nil
	})
}

// Similar checks a proposed name against existing records of type t
func (s *Service) Similar(ctx context.Context, t domain.EntityType, query string) (similarity.Result, error) {
	if _, ok := domain.ParseEntityType(string(t)); !ok {
		return similarity.Result{}, domain.NewInputError("Invalid type")
	}
	candidates, err := s.Candidates(ctx, t)
	if err != nil {
		return similarity.Result{}, err
	}
	return similarity.Check(query, candidates), nil
}
