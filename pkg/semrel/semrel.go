// Package semrel is the engine facade: it wires the rule interpreter, the
// anti-unifier and rule induction to one ontology and an optional store.
package semrel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/config"
	"github.com/cognicore/semrel/pkg/semrel/generalize"
	"github.com/cognicore/semrel/pkg/semrel/induce"
	"github.com/cognicore/semrel/pkg/semrel/internalerr"
	"github.com/cognicore/semrel/pkg/semrel/interpret"
	"github.com/cognicore/semrel/pkg/semrel/maintenance"
	"github.com/cognicore/semrel/pkg/semrel/ontology"
	"github.com/cognicore/semrel/pkg/semrel/rules"
	"github.com/cognicore/semrel/pkg/semrel/store"
	"github.com/cognicore/semrel/pkg/semrel/store/memstore"
	"github.com/cognicore/semrel/pkg/semrel/store/sqlite"
	"github.com/cognicore/semrel/pkg/semrel/unify"
)

// Engine is the main extraction facade
type Engine struct {
	cfg    *config.Config
	rules  *rules.RuleSet
	kb     config.KnowledgeBase
	cached *ontology.Cached // nil when caching is disabled
	interp *interpret.Interpreter
	gen    *generalize.Generalizer
	store  store.Store
	logger *slog.Logger
}

// Options configures an Engine
type Options struct {
	Config     *config.Config     // defaults when nil
	Components *config.Components // loaded from Config paths when nil
	Store      store.Store        // opened from Config.Store when nil
	Logger     *slog.Logger
}

// New creates an Engine. Taxonomy edges already in the store are asserted
// into the loaded ontology.
func New(ctx context.Context, opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	comp := opts.Components
	if comp == nil {
		var err error
		comp, err = config.FromConfig(cfg, logger).Load()
		if err != nil {
			return nil, err
		}
	}
	if comp.Ontology == nil {
		comp.Ontology = ontology.NewTaxonomy()
	}

	st := opts.Store
	if st == nil {
		var err error
		st, err = openStore(ctx, cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}
	edges, err := st.Edges(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load stored taxonomy: %w", err)
	}
	if err := ontology.Load(comp.Ontology, edges); err != nil {
		st.Close()
		return nil, fmt.Errorf("load stored taxonomy: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		rules:  comp.Rules,
		kb:     comp.Ontology,
		store:  st,
		logger: logger,
	}

	var oracle ontology.Oracle = comp.Ontology
	if cfg.Engine.CacheSize > 0 {
		e.cached, err = ontology.NewCached(comp.Ontology, cfg.Engine.CacheSize)
		if err != nil {
			st.Close()
			return nil, err
		}
		oracle = e.cached
	}

	u := unify.New(unify.Options{
		Oracle:         oracle,
		TypePredicates: cfg.Engine.TypePredicates,
		MaxSteps:       cfg.Engine.MaxSteps,
		Logger:         logger,
	})
	e.interp, err = interpret.New(interpret.Options{
		Rules:           comp.Rules,
		Unifier:         u,
		Spans:           comp.Spans,
		MaxPasses:       cfg.Engine.MaxPasses,
		AllowDegenerate: cfg.Engine.AllowDegenerate,
		Logger:          logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	e.gen = generalize.New(generalize.Options{
		Oracle:           oracle,
		TypePredicates:   cfg.Engine.TypePredicates,
		IgnorePredicates: cfg.Generalize.IgnorePredicates,
		ExcludeAncestors: cfg.Generalize.ExcludeAncestors,
		MaxSteps:         cfg.Generalize.MaxSteps,
		Logger:           logger,
	})

	logger.Debug("engine ready",
		slog.String("rules", comp.Rules.Name),
		slog.Int("rule_count", len(comp.Rules.Rules)),
		slog.Int("stored_edges", len(edges)))
	return e, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	if cfg.Path == "" {
		return memstore.New(), nil
	}
	return sqlite.OpenSQLite(ctx, cfg.Path, sqlite.Options{CacheTTL: cfg.CacheTTL})
}

// Close cleanly shuts down the engine and its store
func (e *Engine) Close() error {
	return e.store.Close()
}

// Config returns the effective configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Rules returns the loaded rule set.
func (e *Engine) Rules() *rules.RuleSet { return e.rules }

// Ontology returns the oracle the engine consults.
func (e *Engine) Ontology() ontology.Oracle {
	if e.cached != nil {
		return e.cached
	}
	return e.kb
}

// Extraction is an interpreted sentence and the ID it was stored under.
// ID is empty when no rule fired.
type Extraction struct {
	ID string
	interpret.Result
}

// Extract interprets one sentence and stores the outcome when any rule fired.
func (e *Engine) Extract(ctx context.Context, source string, facts cnf.CNF, spans ...interpret.Span) (Extraction, error) {
	res, err := e.interp.Interpret(ctx, facts, spans...)
	if err != nil {
		return Extraction{}, err
	}
	out := Extraction{Result: res}
	if res.NoExtraction() {
		e.logger.Debug("no extraction", slog.String("source", source))
		return out, nil
	}

	rec := store.Extraction{
		Source:    source,
		Input:     res.Input.String(),
		Facts:     res.Facts.String(),
		Formulas:  res.Formulas,
		Passes:    res.Passes,
		CreatedAt: time.Now().UTC(),
	}
	for _, l := range res.Relations {
		rec.Relations = append(rec.Relations, l.String())
	}
	out.ID, err = e.store.SaveExtraction(ctx, rec)
	if err != nil {
		return Extraction{}, fmt.Errorf("save extraction: %w", err)
	}
	return out, nil
}

// ExtractText parses a sentence in clause notation and extracts from it.
func (e *Engine) ExtractText(ctx context.Context, source, text string) (Extraction, error) {
	facts, err := cnf.ParseCNF(text)
	if err != nil {
		return Extraction{}, err
	}
	return e.Extract(ctx, source, facts)
}

// Generalize lifts the tokens of every input into variables and returns
// their common form.
func (e *Engine) Generalize(ctx context.Context, inputs []cnf.CNF, mode generalize.Mode) (generalize.Generalization, error) {
	lifted := generalize.LiftTokens(inputs)
	if mode == generalize.MostSpecific {
		return e.gen.MostSpecificForm(ctx, lifted)
	}
	return e.gen.FindOneCommonCNF(ctx, lifted)
}

// InduceOptions tunes Induce.
type InduceOptions struct {
	Thresholds induce.Thresholds
	Reviewer   induce.Reviewer
}

// Induce proposes rules from example groups and records them in the store.
func (e *Engine) Induce(ctx context.Context, groups []induce.Group, opts InduceOptions) ([]induce.Suggestion, error) {
	in := &induce.Inducer{
		Generalizer: e.gen,
		Thresholds:  opts.Thresholds,
		Reviewer:    opts.Reviewer,
		Logger:      e.logger,
	}
	suggs, err := in.Run(ctx, groups)
	if err != nil {
		return nil, err
	}
	for _, s := range suggs {
		err := e.store.UpsertRule(ctx, store.RuleRecord{
			Rule:       s.Rule(),
			Group:      s.Group,
			Support:    s.Support,
			Confidence: s.Confidence,
		})
		if err != nil {
			return nil, fmt.Errorf("save rule: %w", err)
		}
	}
	e.logger.Info("rules induced", slog.Int("groups", len(groups)), slog.Int("rules", len(suggs)))
	return suggs, nil
}

// InducedRules lists stored rules at or above minConfidence.
func (e *Engine) InducedRules(ctx context.Context, minConfidence float64) ([]store.RuleRecord, error) {
	return e.store.ListRules(ctx, minConfidence)
}

// StoredExtraction returns one stored extraction, or ErrNotFound.
func (e *Engine) StoredExtraction(ctx context.Context, id string) (store.Extraction, error) {
	rec, ok, err := e.store.GetExtraction(ctx, id)
	if err != nil {
		return store.Extraction{}, err
	}
	if !ok {
		return store.Extraction{}, fmt.Errorf("extraction %s: %w", id, internalerr.ErrNotFound)
	}
	return rec, nil
}

// Extractions lists the most recent stored extractions.
func (e *Engine) Extractions(ctx context.Context, limit int) ([]store.Extraction, error) {
	return e.store.ListExtractions(ctx, limit)
}

// Replay re-interprets the latest stored extractions with the current rules
// and taxonomy, rewriting records whose output changed.
func (e *Engine) Replay(ctx context.Context, limit int) (maintenance.Result, error) {
	r := &maintenance.Replayer{Store: e.store, Interpreter: e.interp, Logger: e.logger}
	res, err := r.Replay(ctx, limit)
	if err != nil {
		return res, err
	}
	e.logger.Info("replay complete",
		slog.Int("processed", res.Processed),
		slog.Int("updated", res.Updated),
		slog.Int("errors", res.Errors))
	return res, nil
}

// StoredEdges lists the taxonomy facts persisted through AddEdge.
func (e *Engine) StoredEdges(ctx context.Context) ([]ontology.Edge, error) {
	return e.store.Edges(ctx)
}

// AddEdge asserts a taxonomy fact into the ontology and persists it.
func (e *Engine) AddEdge(ctx context.Context, edge ontology.Edge) error {
	if err := e.kb.Add(edge); err != nil {
		return err
	}
	if err := e.store.AddEdge(ctx, edge); err != nil {
		return fmt.Errorf("persist edge: %w", err)
	}
	if e.cached != nil {
		e.cached.Purge()
	}
	return nil
}
