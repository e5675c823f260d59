package interpret

import (
	"sort"
	"strings"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
)

// SpanSource tells where a span came from. Dictionary spans win over
// annotator spans when they overlap.
type SpanSource int

const (
	SpanDictionary SpanSource = iota
	SpanNER
)

// Span covers the tokens with indexes Start..End inclusive.
type Span struct {
	Start  int
	End    int
	Form   string // merged surface form; built from the covered tokens when empty
	Source SpanSource
}

func (s Span) overlaps(o Span) bool { return s.Start <= o.End && o.Start <= s.End }

// DictEntry is a multi-word expression with optional variants.
type DictEntry struct {
	Canonical string
	Category  string
	Variants  []string
}

// SpanConsolidator merges multi-word expressions into single tokens.
type SpanConsolidator struct {
	dict   map[string]DictEntry // lower-cased phrase → entry
	maxLen int
}

// NewSpanConsolidator builds a consolidator over a multi-word dictionary.
func NewSpanConsolidator(entries []DictEntry) *SpanConsolidator {
	dict := make(map[string]DictEntry)
	maxLen := 1
	for _, e := range entries {
		for _, phrase := range append([]string{e.Canonical}, e.Variants...) {
			key := strings.ToLower(strings.Join(strings.Fields(phrase), " "))
			if key == "" {
				continue
			}
			dict[key] = e
			if l := len(strings.Fields(key)); l > maxLen {
				maxLen = l
			}
		}
	}
	return &SpanConsolidator{dict: dict, maxLen: maxLen}
}

// Find applies greedy longest-match over a run of tokens ordered by index.
// Only consecutive indexes can form a phrase.
func (c *SpanConsolidator) Find(tokens []cnf.Token) []Span {
	var spans []Span
	i := 0
	for i < len(tokens) {
		matchLen := 0
		var entry DictEntry

		maxPhrase := c.maxLen
		if remaining := len(tokens) - i; maxPhrase > remaining {
			maxPhrase = remaining
		}
		for n := maxPhrase; n >= 2; n-- {
			if !consecutive(tokens[i : i+n]) {
				continue
			}
			forms := make([]string, n)
			for k, tok := range tokens[i : i+n] {
				forms[k] = tok.Form
			}
			if e, ok := c.dict[strings.ToLower(strings.Join(forms, " "))]; ok {
				entry = e
				matchLen = n
				break
			}
		}

		if matchLen == 0 {
			i++
			continue
		}
		spans = append(spans, Span{
			Start:  tokens[i].Index,
			End:    tokens[i+matchLen-1].Index,
			Form:   strings.Join(strings.Fields(entry.Canonical), "_"),
			Source: SpanDictionary,
		})
		i += matchLen
	}
	return spans
}

func consecutive(tokens []cnf.Token) bool {
	for k := 1; k < len(tokens); k++ {
		if tokens[k].Index != tokens[k-1].Index+1 {
			return false
		}
	}
	return true
}

// sentenceTokens recovers the token sequence of a sentence from its literals.
func sentenceTokens(facts cnf.CNF) []cnf.Token {
	byIndex := make(map[int]cnf.Token)
	for _, l := range facts.Literals() {
		for _, t := range [2]cnf.Term{l.Arg1, l.Arg2} {
			if tok, ok := t.Token(); ok {
				if _, seen := byIndex[tok.Index]; !seen {
					byIndex[tok.Index] = tok
				}
			}
		}
	}
	out := make([]cnf.Token, 0, len(byIndex))
	for _, tok := range byIndex {
		out = append(out, tok)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Consolidate rewrites every literal argument that falls inside a span to a
// single span token, drops literals internal to a span and removes the
// duplicates this creates. Dictionary spans are found with Find; annotator
// spans are added where they do not overlap a dictionary span. A nil
// consolidator applies the annotated spans only.
func (c *SpanConsolidator) Consolidate(facts cnf.CNF, annotated []Span) cnf.CNF {
	tokens := sentenceTokens(facts)
	var spans []Span
	if c != nil {
		spans = c.Find(tokens)
	}
	for _, s := range annotated {
		if s.End < s.Start {
			continue
		}
		clash := false
		for _, have := range spans {
			if have.overlaps(s) {
				clash = true
				break
			}
		}
		if !clash {
			spans = append(spans, s)
		}
	}
	if len(spans) == 0 {
		return facts
	}

	forms := make(map[int]string, len(tokens))
	for _, tok := range tokens {
		forms[tok.Index] = tok.Form
	}
	replacement := make(map[int]cnf.Term)
	for _, s := range spans {
		form := s.Form
		if form == "" {
			var words []string
			for i := s.Start; i <= s.End; i++ {
				if f, ok := forms[i]; ok {
					words = append(words, f)
				}
			}
			form = strings.Join(words, "_")
		}
		for i := s.Start; i <= s.End; i++ {
			replacement[i] = cnf.Tok(form, s.Start)
		}
	}

	rewrite := func(t cnf.Term) cnf.Term {
		if t.Kind != cnf.KindToken {
			return t
		}
		if r, ok := replacement[t.Index]; ok {
			return r
		}
		return t
	}

	var out []cnf.Literal
	for _, l := range facts.Literals() {
		nl := l.Map(rewrite)
		// internal to a span, e.g. compound(Washington-2,George-1)
		if nl.Arg1 == nl.Arg2 {
			continue
		}
		out = append(out, nl)
	}
	return cnf.FromLiterals(out...).Dedup()
}
