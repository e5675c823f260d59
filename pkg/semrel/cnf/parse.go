package cnf

import (
	"fmt"
	"strings"

	"github.com/cognicore/semrel/pkg/semrel/internalerr"
)

// Parser reads literals, clauses and CNFs from clause notation. The rule
// loader drives it directly; the package level helpers cover the common
// single-CNF case.
type Parser struct {
	lex    *Lexer
	peeked *Lexeme
	file   string

	// IsProcedure marks bare literals whose predicate is a registered
	// procedure. Literals written in braces are always procedures.
	IsProcedure func(pred string) bool
}

// NewParser returns a parser over src. file is used in error messages only.
func NewParser(src, file string) *Parser {
	return &Parser{lex: NewLexer(src), file: file}
}

// Peek returns the next lexeme without consuming it.
func (p *Parser) Peek() (Lexeme, error) {
	if p.peeked != nil {
		return *p.peeked, nil
	}
	lx, err := p.lex.Next()
	if err != nil {
		return Lexeme{}, p.Errorf(p.lex.Line(), "", err.Error())
	}
	p.peeked = &lx
	return lx, nil
}

// Next consumes the next lexeme.
func (p *Parser) Next() (Lexeme, error) {
	lx, err := p.Peek()
	if err != nil {
		return Lexeme{}, err
	}
	p.peeked = nil
	return lx, nil
}

// Expect consumes a lexeme of kind k or fails.
func (p *Parser) Expect(k LexKind) (Lexeme, error) {
	lx, err := p.Next()
	if err != nil {
		return Lexeme{}, err
	}
	if lx.Kind != k {
		return Lexeme{}, p.Errorf(lx.Line, lx.Text, fmt.Sprintf("expected %s, got %s", k, lx.Kind))
	}
	return lx, nil
}

// Raw consumes raw text up to the close brace matching an already consumed
// open brace.
func (p *Parser) Raw() (string, error) {
	if p.peeked != nil {
		return "", p.Errorf(p.peeked.Line, p.peeked.Text, "raw text requested after lookahead")
	}
	line := p.lex.Line()
	text, err := p.lex.Raw()
	if err != nil {
		return "", p.Errorf(line, "", err.Error())
	}
	return text, nil
}

// Errorf builds a MalformedClauseError at line.
func (p *Parser) Errorf(line int, input, reason string) error {
	return &internalerr.MalformedClauseError{File: p.file, Line: line, Input: input, Reason: reason}
}

// ParseLiteral reads one literal with its optional '+', '~' or '-' markers.
func (p *Parser) ParseLiteral() (Literal, error) {
	var lit Literal
	for {
		lx, err := p.Peek()
		if err != nil {
			return Literal{}, err
		}
		switch lx.Kind {
		case LexPlus:
			lit.Preserve = true
			p.Next()
			continue
		case LexTilde:
			lit.Negated = true
			p.Next()
			continue
		case LexLBrace:
			p.Next()
			inner, err := p.ParseLiteral()
			if err != nil {
				return Literal{}, err
			}
			if _, err := p.Expect(LexRBrace); err != nil {
				return Literal{}, err
			}
			inner.Proc = true
			inner.Preserve = inner.Preserve || lit.Preserve
			inner.Negated = inner.Negated != lit.Negated
			return inner, nil
		}
		break
	}

	head, err := p.Next()
	if err != nil {
		return Literal{}, err
	}
	if head.Kind != LexWord {
		return Literal{}, p.Errorf(head.Line, head.Text, fmt.Sprintf("expected predicate, got %s", head.Kind))
	}
	pred := head.Text
	if len(pred) > 1 && pred[0] == '-' {
		lit.Negated = !lit.Negated
		pred = pred[1:]
	}
	lit.Pred = pred

	if _, err := p.Expect(LexLParen); err != nil {
		return Literal{}, err
	}
	var args []Term
	for {
		lx, err := p.Next()
		if err != nil {
			return Literal{}, err
		}
		switch lx.Kind {
		case LexWord:
			args = append(args, ParseTerm(lx.Text))
		case LexQuoted:
			args = append(args, Quoted(lx.Text))
		case LexToken:
			args = append(args, Tok(lx.Text, lx.Index))
		case LexEOF:
			return Literal{}, p.Errorf(lx.Line, pred, "unbalanced parentheses")
		default:
			return Literal{}, p.Errorf(lx.Line, pred, fmt.Sprintf("expected argument, got %s", lx.Kind))
		}
		sep, err := p.Next()
		if err != nil {
			return Literal{}, err
		}
		if sep.Kind == LexComma {
			continue
		}
		if sep.Kind == LexRParen {
			break
		}
		if sep.Kind == LexEOF {
			return Literal{}, p.Errorf(sep.Line, pred, "unbalanced parentheses")
		}
		return Literal{}, p.Errorf(sep.Line, pred, fmt.Sprintf("expected ',' or ')', got %s", sep.Kind))
	}
	if len(args) != 2 {
		return Literal{}, p.Errorf(head.Line, pred, fmt.Sprintf("expected 2 arguments, got %d", len(args)))
	}
	lit.Arg1, lit.Arg2 = args[0], args[1]
	if !lit.Proc && p.IsProcedure != nil && p.IsProcedure(lit.Pred) {
		lit.Proc = true
	}
	return lit, nil
}

// ParseClause reads a literal or a parenthesised disjunction.
func (p *Parser) ParseClause() (Clause, error) {
	lx, err := p.Peek()
	if err != nil {
		return Clause{}, err
	}
	if lx.Kind != LexLParen {
		lit, err := p.ParseLiteral()
		if err != nil {
			return Clause{}, err
		}
		return Unit(lit), nil
	}
	p.Next()
	var cl Clause
	for {
		lit, err := p.ParseLiteral()
		if err != nil {
			return Clause{}, err
		}
		cl.Disjuncts = append(cl.Disjuncts, lit)
		sep, err := p.Next()
		if err != nil {
			return Clause{}, err
		}
		switch sep.Kind {
		case LexBar:
			continue
		case LexRParen:
			return cl, nil
		case LexEOF:
			return Clause{}, p.Errorf(sep.Line, cl.String(), "unbalanced parentheses")
		default:
			return Clause{}, p.Errorf(sep.Line, sep.Text, fmt.Sprintf("expected '|' or ')', got %s", sep.Kind))
		}
	}
}

// startsClause reports whether a lexeme can begin a clause.
func startsClause(k LexKind) bool {
	switch k {
	case LexWord, LexPlus, LexTilde, LexLBrace, LexLParen:
		return true
	}
	return false
}

// ParseCNF reads clauses until a lexeme that cannot start a clause. Commas
// between clauses are optional so newline separated literal streams parse
// too.
func (p *Parser) ParseCNF() (CNF, error) {
	var out CNF
	for {
		lx, err := p.Peek()
		if err != nil {
			return CNF{}, err
		}
		if !startsClause(lx.Kind) {
			return out, nil
		}
		cl, err := p.ParseClause()
		if err != nil {
			return CNF{}, err
		}
		out.Clauses = append(out.Clauses, cl)
		if lx, err = p.Peek(); err != nil {
			return CNF{}, err
		}
		if lx.Kind == LexComma {
			p.Next()
		}
	}
}

// ParseCNF parses a complete CNF with an optional trailing period.
func ParseCNF(s string) (CNF, error) {
	p := NewParser(s, "")
	c, err := p.ParseCNF()
	if err != nil {
		return CNF{}, err
	}
	lx, err := p.Next()
	if err != nil {
		return CNF{}, err
	}
	if lx.Kind == LexPeriod {
		if lx, err = p.Next(); err != nil {
			return CNF{}, err
		}
	}
	if lx.Kind != LexEOF {
		return CNF{}, p.Errorf(lx.Line, lx.Text, fmt.Sprintf("unexpected %s", lx.Kind))
	}
	return c, nil
}

// MustParseCNF is ParseCNF for fixtures; it panics on error.
func MustParseCNF(s string) CNF {
	c, err := ParseCNF(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseLiteral parses a single literal.
func ParseLiteral(s string) (Literal, error) {
	c, err := ParseCNF(s)
	if err != nil {
		return Literal{}, err
	}
	if len(c.Clauses) != 1 || len(c.Clauses[0].Disjuncts) != 1 {
		return Literal{}, &internalerr.MalformedClauseError{Input: strings.TrimSpace(s), Reason: "expected a single literal"}
	}
	return c.Clauses[0].Disjuncts[0], nil
}
