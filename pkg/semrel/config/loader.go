package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/semrel/pkg/semrel/interpret"
	"github.com/cognicore/semrel/pkg/semrel/ontology"
	"github.com/cognicore/semrel/pkg/semrel/procedures"
	"github.com/cognicore/semrel/pkg/semrel/rules"
)

// KnowledgeBase is an ontology that accepts new facts.
type KnowledgeBase interface {
	ontology.Oracle
	ontology.Writer
}

// Loader loads all configuration files and constructs components.
type Loader struct {
	RulesPath    string
	TaxonomyPath string // .yaml/.yml or one relation(child, parent) per line
	DictPath     string

	Oracle         string // OracleTaxonomy (default) or OracleProlog
	CoverageIgnore []string
	Procedures     *procedures.Registry
	Logger         *slog.Logger
}

// FromConfig returns a Loader for the paths and options in cfg.
func FromConfig(cfg *Config, logger *slog.Logger) *Loader {
	return &Loader{
		RulesPath:      cfg.Paths.Rules,
		TaxonomyPath:   cfg.Paths.Taxonomy,
		DictPath:       cfg.Paths.Dictionary,
		Oracle:         cfg.Engine.Oracle,
		CoverageIgnore: cfg.Engine.CoverageIgnore,
		Logger:         logger,
	}
}

// Components holds all loaded configuration components.
type Components struct {
	Rules    *rules.RuleSet
	Ontology KnowledgeBase
	Spans    *interpret.SpanConsolidator
}

// Load reads all configuration files and returns initialized components.
// Missing paths yield empty components.
func (l *Loader) Load() (*Components, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	comp := &Components{}

	// Load taxonomy
	kb, err := l.newKnowledgeBase()
	if err != nil {
		return nil, err
	}
	comp.Ontology = kb
	if l.TaxonomyPath != "" {
		if err := loadTaxonomyInto(kb, l.TaxonomyPath); err != nil {
			return nil, fmt.Errorf("load taxonomy: %w", err)
		}
		logger.Debug("taxonomy loaded", slog.String("path", l.TaxonomyPath), slog.String("oracle", l.oracleName()))
	}

	// Load dictionary
	if l.DictPath != "" {
		dict, err := LoadDict(l.DictPath)
		if err != nil {
			return nil, fmt.Errorf("load dictionary: %w", err)
		}
		entries := make([]interpret.DictEntry, len(dict.Entries))
		for i, e := range dict.Entries {
			entries[i] = interpret.DictEntry{
				Canonical: e.Canonical,
				Variants:  e.Variants,
				Category:  e.Category,
			}
		}
		comp.Spans = interpret.NewSpanConsolidator(entries)
	}

	// Load rules
	if l.RulesPath != "" {
		rs, err := rules.Load(l.RulesPath, rules.Options{
			Procedures:     l.Procedures,
			CoverageIgnore: l.CoverageIgnore,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		comp.Rules = rs
	} else {
		comp.Rules = &rules.RuleSet{Name: "empty"}
	}

	return comp, nil
}

func (l *Loader) oracleName() string {
	if l.Oracle == "" {
		return OracleTaxonomy
	}
	return l.Oracle
}

func (l *Loader) newKnowledgeBase() (KnowledgeBase, error) {
	switch l.oracleName() {
	case OracleTaxonomy:
		return ontology.NewTaxonomy(), nil
	case OracleProlog:
		return ontology.NewPrologOracle()
	}
	return nil, invalid(fmt.Sprintf("unknown oracle %q", l.Oracle))
}

func loadTaxonomyInto(kb KnowledgeBase, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		tax, err := LoadTaxonomy(path)
		if err != nil {
			return err
		}
		return ontology.Load(kb, tax.Edges())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return ontology.LoadText(kb, string(data))
}
