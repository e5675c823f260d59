// Package cnf holds the clause data model shared by the rule engine: tokens,
// terms, literals, disjunctive clauses and conjunctive normal forms, plus the
// textual notation used by rule files and annotator output.
package cnf

import (
	"strconv"
	"strings"
)

// Kind classifies a literal argument.
type Kind uint8

const (
	// KindConst is a bare constant, usually an ontology class name.
	KindConst Kind = iota
	// KindToken is a sentence token, written form-index.
	KindToken
	// KindVar is a logic variable, written ?name.
	KindVar
	// KindWord matches any token with the given surface form, written form*.
	KindWord
	// KindQuoted is a quoted string literal.
	KindQuoted
)

func (k Kind) String() string {
	switch k {
	case KindConst:
		return "const"
	case KindToken:
		return "token"
	case KindVar:
		return "var"
	case KindWord:
		return "word"
	case KindQuoted:
		return "quoted"
	}
	return "unknown"
}

// Token identifies one word of a sentence by surface form and position.
type Token struct {
	Form  string
	Index int
}

// String writes form-index. A form that the notation could not read back,
// such as "3,000" or one holding spaces or brackets, is quoted: "3,000"-5.
func (t Token) String() string {
	form := t.Form
	if needsQuoting(form) {
		form = strconv.Quote(form)
	}
	return form + "-" + strconv.Itoa(t.Index)
}

func needsQuoting(form string) bool {
	if form == "" || strings.ContainsAny(form, " \t\r\n(),|{}\"") {
		return true
	}
	switch form[0] {
	case '?', '+', '~', '!', '/':
		return true
	}
	return strings.Contains(form, "==>") || strings.Contains(form, "?=>")
}

// ParseToken splits s on its last dash when everything after the dash is a
// decimal index. Forms may themselves contain dashes and digits.
func ParseToken(s string) (Token, bool) {
	i := strings.LastIndexByte(s, '-')
	if i <= 0 || i == len(s)-1 {
		return Token{}, false
	}
	digits := s[i+1:]
	for j := 0; j < len(digits); j++ {
		if digits[j] < '0' || digits[j] > '9' {
			return Token{}, false
		}
	}
	idx, err := strconv.Atoi(digits)
	if err != nil {
		return Token{}, false
	}
	return Token{Form: s[:i], Index: idx}, true
}

// Term is one argument of a literal.
type Term struct {
	Kind  Kind
	Name  string // form for tokens and word patterns, bare name for variables
	Index int    // token index, only meaningful for KindToken
}

// Const returns a constant term.
func Const(name string) Term { return Term{Kind: KindConst, Name: name} }

// Tok returns a token term.
func Tok(form string, index int) Term { return Term{Kind: KindToken, Name: form, Index: index} }

// Var returns a variable term. A leading '?' is stripped.
func Var(name string) Term { return Term{Kind: KindVar, Name: strings.TrimPrefix(name, "?")} }

// Word returns a word pattern term. A trailing '*' is stripped.
func Word(form string) Term { return Term{Kind: KindWord, Name: strings.TrimSuffix(form, "*")} }

// Quoted returns a quoted string term holding s without the quotes.
func Quoted(s string) Term { return Term{Kind: KindQuoted, Name: s} }

// ParseTerm classifies a raw argument string.
func ParseTerm(s string) Term {
	switch {
	case len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"':
		return Quoted(s[1 : len(s)-1])
	case len(s) > 1 && s[0] == '?':
		return Var(s[1:])
	case len(s) > 1 && s[len(s)-1] == '*':
		return Word(s)
	}
	if tok, ok := ParseToken(s); ok {
		return Tok(tok.Form, tok.Index)
	}
	return Const(s)
}

func (t Term) String() string {
	switch t.Kind {
	case KindToken:
		return Token{Form: t.Name, Index: t.Index}.String()
	case KindVar:
		return "?" + t.Name
	case KindWord:
		return t.Name + "*"
	case KindQuoted:
		return strconv.Quote(t.Name)
	}
	return t.Name
}

// IsVar reports whether t is a logic variable.
func (t Term) IsVar() bool { return t.Kind == KindVar }

// IsGround reports whether t denotes a single value.
func (t Term) IsGround() bool { return t.Kind != KindVar && t.Kind != KindWord }

// Token returns the token identity of a token term.
func (t Term) Token() (Token, bool) {
	if t.Kind != KindToken {
		return Token{}, false
	}
	return Token{Form: t.Name, Index: t.Index}, true
}

// Form is the lower-cased surface form used for coverage and word matching.
// Variables have no form.
func (t Term) Form() string {
	if t.Kind == KindVar {
		return ""
	}
	return strings.ToLower(t.Name)
}
