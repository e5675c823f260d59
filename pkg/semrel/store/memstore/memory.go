package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/semrel/pkg/semrel/ontology"
	"github.com/cognicore/semrel/pkg/semrel/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu          sync.RWMutex
	extractions map[string]store.Extraction
	rules       map[string]store.RuleRecord
	tax         *ontology.Taxonomy
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		extractions: make(map[string]store.Extraction),
		rules:       make(map[string]store.RuleRecord),
		tax:         ontology.NewTaxonomy(),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveExtraction stores e under a fresh ID unless it already carries one.
func (s *Store) SaveExtraction(ctx context.Context, e store.Extraction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = store.NewID(e.CreatedAt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.extractions[e.ID] = copyExtraction(e)
	return e.ID, nil
}

// GetExtraction returns an extraction by ID.
func (s *Store) GetExtraction(ctx context.Context, id string) (store.Extraction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.extractions[id]
	if !ok {
		return store.Extraction{}, false, nil
	}
	return copyExtraction(e), true, nil
}

// ListExtractions returns the most recent extractions first.
func (s *Store) ListExtractions(ctx context.Context, limit int) ([]store.Extraction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	ids := make([]string, 0, len(s.extractions))
	for id := range s.extractions {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	if len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]store.Extraction, len(ids))
	for i, id := range ids {
		out[i] = copyExtraction(s.extractions[id])
	}
	return out, nil
}

// UpsertRule inserts or replaces a rule keyed by its text.
func (s *Store) UpsertRule(ctx context.Context, r store.RuleRecord) error {
	if r.Rule == "" {
		return nil
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[r.Rule] = r
	return nil
}

// ListRules returns rules at or above minConfidence, most confident first.
func (s *Store) ListRules(ctx context.Context, minConfidence float64) ([]store.RuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.RuleRecord
	for _, r := range s.rules {
		if r.Confidence >= minConfidence {
			out = append(out, r)
		}
	}
	store.SortRules(out)
	return out, nil
}

// AddEdge asserts a taxonomy fact.
func (s *Store) AddEdge(ctx context.Context, e ontology.Edge) error {
	return s.tax.Add(e)
}

// Edges lists every taxonomy fact.
func (s *Store) Edges(ctx context.Context) ([]ontology.Edge, error) {
	return s.tax.Edges(), nil
}

// Ontology returns a live view of the stored taxonomy.
func (s *Store) Ontology() ontology.Oracle {
	return s.tax
}

func copyExtraction(e store.Extraction) store.Extraction {
	e.Relations = append([]string(nil), e.Relations...)
	e.Formulas = append([]string(nil), e.Formulas...)
	return e
}

var _ store.Store = (*Store)(nil)
