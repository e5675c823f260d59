package rules

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/internalerr"
	"github.com/cognicore/semrel/pkg/semrel/procedures"
)

// DefaultCoverageIgnore lists predicates left out of the coverage pre-filter:
// type literals match by subsumption and the rest are annotator tags that
// rules test but never need to find verbatim.
var DefaultCoverageIgnore = []string{"typeOf", "sumo", "sumoInstance", "tense", "number", "attribute", "root"}

// Options configures rule loading.
type Options struct {
	Procedures     *procedures.Registry
	CoverageIgnore []string
	Logger         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Procedures == nil {
		o.Procedures = procedures.Default()
	}
	if o.CoverageIgnore == nil {
		o.CoverageIgnore = DefaultCoverageIgnore
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// RuleSet is an ordered list of rules from one source.
type RuleSet struct {
	Name     string
	Rules    []*Rule
	Warnings []string
}

// Facts returns the permanent facts asserted with "/-".
func (rs *RuleSet) Facts() []cnf.Literal {
	var out []cnf.Literal
	for _, r := range rs.Rules {
		if r.Op == OpFact {
			out = append(out, r.Fact)
		}
	}
	return out
}

// Rewrites returns the rules that are not permanent facts.
func (rs *RuleSet) Rewrites() []*Rule {
	var out []*Rule
	for _, r := range rs.Rules {
		if r.Op != OpFact {
			out = append(out, r)
		}
	}
	return out
}

// Load reads a rule file.
func Load(path string, opts Options) (*RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules: %w", err)
	}
	defer f.Close()
	return Parse(filepath.Base(path), f, opts)
}

// ParseString parses rules held in memory.
func ParseString(name, src string, opts Options) (*RuleSet, error) {
	return Parse(name, strings.NewReader(src), opts)
}

// Parse reads rules from r. The first malformed rule or unknown procedure
// aborts the load.
func Parse(name string, r io.Reader, opts Options) (*RuleSet, error) {
	opts = opts.withDefaults()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	ignore := make(map[string]bool, len(opts.CoverageIgnore))
	for _, p := range opts.CoverageIgnore {
		ignore[p] = true
	}
	l := &loader{
		name:   name,
		p:      cnf.NewParser(string(data), name),
		procs:  opts.Procedures,
		ignore: func(pred string) bool { return ignore[pred] },
		logger: opts.Logger.With(slog.String("rules", name)),
		rs:     &RuleSet{Name: name},
	}
	l.p.IsProcedure = opts.Procedures.Has

	for {
		lx, err := l.p.Peek()
		if err != nil {
			return nil, err
		}
		if lx.Kind == cnf.LexEOF {
			break
		}
		rule, err := l.rule()
		if err != nil {
			return nil, err
		}
		l.rs.Rules = append(l.rs.Rules, rule)
	}

	l.logger.Debug("rules loaded", slog.Int("count", len(l.rs.Rules)), slog.Int("warnings", len(l.rs.Warnings)))
	return l.rs, nil
}

type loader struct {
	name   string
	p      *cnf.Parser
	procs  *procedures.Registry
	ignore func(string) bool
	logger *slog.Logger
	rs     *RuleSet
}

func (l *loader) warn(r *Rule, msg string) {
	l.rs.Warnings = append(l.rs.Warnings, fmt.Sprintf("%s: %s", r.ID, msg))
	l.logger.Warn(msg, slog.String("rule", r.ID), slog.Int("line", r.Line))
}

func (l *loader) rule() (*Rule, error) {
	start, _ := l.p.Peek()
	r := &Rule{
		ID:   fmt.Sprintf("%s:%d", l.name, start.Line),
		File: l.name,
		Line: start.Line,
	}

	if start.Kind == cnf.LexFact {
		l.p.Next()
		lit, err := l.p.ParseLiteral()
		if err != nil {
			return nil, err
		}
		if !lit.IsGround() {
			return nil, l.p.Errorf(start.Line, lit.String(), "permanent fact must be ground")
		}
		if _, err := l.p.Expect(cnf.LexPeriod); err != nil {
			return nil, err
		}
		lit.Proc = false
		r.Op = OpFact
		r.Fact = lit
		r.preds, r.terms = cnf.CNF{}.Coverage(nil)
		return r, nil
	}

	ante, err := l.p.ParseCNF()
	if err != nil {
		return nil, err
	}
	if err := l.checkProcedures(ante, start.Line); err != nil {
		return nil, err
	}
	r.Antecedent = ante

	op, err := l.p.Next()
	if err != nil {
		return nil, err
	}
	switch op.Kind {
	case cnf.LexRewrite:
		r.Op = OpRewrite
	case cnf.LexOptional:
		r.Op = OpOptional
	default:
		return nil, l.p.Errorf(op.Line, op.Text, fmt.Sprintf("expected '==>' or '?=>', got %s", op.Kind))
	}

	if r.RHS, err = l.rhs(); err != nil {
		return nil, err
	}
	if _, err := l.p.Expect(cnf.LexPeriod); err != nil {
		return nil, err
	}

	r.preds, r.terms = ante.Coverage(l.ignore)
	if r.Degenerate() {
		l.warn(r, "degenerate rule: empty antecedent matches every sentence")
	}
	if vars := r.unboundConsequentVars(); len(vars) > 0 {
		l.warn(r, "consequent variables never bound by antecedent: ?"+strings.Join(vars, ", ?"))
	}
	return r, nil
}

func (l *loader) rhs() (RHS, error) {
	lx, err := l.p.Next()
	if err != nil {
		return RHS{}, err
	}
	switch {
	case lx.Kind == cnf.LexLParen:
		rel, err := l.p.ParseCNF()
		if err != nil {
			return RHS{}, err
		}
		if _, err := l.p.Expect(cnf.LexRParen); err != nil {
			return RHS{}, err
		}
		if rel.Empty() {
			return RHS{}, l.p.Errorf(lx.Line, "()", "empty consequent, use '!' to delete")
		}
		return RHS{Kind: RHSRelations, Relations: rel}, nil
	case lx.Kind == cnf.LexLBrace:
		text, err := l.p.Raw()
		if err != nil {
			return RHS{}, err
		}
		return RHS{Kind: RHSFormula, Formula: text}, nil
	case lx.Kind == cnf.LexBang:
		return RHS{Kind: RHSEmpty}, nil
	case lx.Kind == cnf.LexWord && lx.Text == "stop":
		return RHS{Kind: RHSStop}, nil
	}
	return RHS{}, l.p.Errorf(lx.Line, lx.Text, fmt.Sprintf("expected consequent, got %s", lx.Kind))
}

// checkProcedures rejects brace-marked calls to unregistered procedures.
func (l *loader) checkProcedures(c cnf.CNF, line int) error {
	for _, lit := range c.Literals() {
		if lit.Proc && !l.procs.Has(lit.Pred) {
			return &internalerr.ProcedureNotFoundError{Name: lit.Pred, File: l.name, Line: line}
		}
	}
	return nil
}
