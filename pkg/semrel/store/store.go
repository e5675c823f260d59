package store

import (
	"context"
	"sort"
	"time"

	"github.com/cognicore/semrel/pkg/semrel/ontology"
)

// Store is the main interface for persisting extraction results, induced
// rules and the taxonomy they are checked against.
type Store interface {
	Close() error

	// Extractions
	SaveExtraction(ctx context.Context, e Extraction) (string, error)
	GetExtraction(ctx context.Context, id string) (Extraction, bool, error)
	ListExtractions(ctx context.Context, limit int) ([]Extraction, error)

	// Induced rules, keyed by rule text
	UpsertRule(ctx context.Context, r RuleRecord) error
	ListRules(ctx context.Context, minConfidence float64) ([]RuleRecord, error)

	// Taxonomy
	AddEdge(ctx context.Context, e ontology.Edge) error
	Edges(ctx context.Context) ([]ontology.Edge, error)
	Ontology() ontology.Oracle
}

// Extraction is the stored outcome of interpreting one sentence. CNF values
// are kept in their textual form.
type Extraction struct {
	ID        string
	Source    string // caller-supplied label, e.g. "doc-7:3"
	Input     string
	Facts     string
	Relations []string
	Formulas  []string
	Passes    int
	CreatedAt time.Time
}

// RuleRecord is an induced rule with its evidence.
type RuleRecord struct {
	Rule       string
	Group      string
	Support    int
	Confidence float64
	UpdatedAt  time.Time
}

// SortRules orders rules by descending confidence, then support, then text.
func SortRules(rs []RuleRecord) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Confidence != rs[j].Confidence {
			return rs[i].Confidence > rs[j].Confidence
		}
		if rs[i].Support != rs[j].Support {
			return rs[i].Support > rs[j].Support
		}
		return rs[i].Rule < rs[j].Rule
	})
}
