package cnf

import (
	"fmt"
	"strconv"
	"strings"
)

// LexKind is the kind of a lexeme in clause notation.
type LexKind int

const (
	LexEOF LexKind = iota
	LexWord
	LexQuoted
	LexToken // quoted form followed by -index
	LexLParen
	LexRParen
	LexComma
	LexBar
	LexLBrace
	LexRBrace
	LexPlus
	LexTilde
	LexBang
	LexPeriod
	LexRewrite  // ==>
	LexOptional // ?=>
	LexFact     // /-
)

var lexNames = map[LexKind]string{
	LexEOF:      "end of input",
	LexWord:     "word",
	LexQuoted:   "quoted string",
	LexToken:    "quoted token",
	LexLParen:   "'('",
	LexRParen:   "')'",
	LexComma:    "','",
	LexBar:      "'|'",
	LexLBrace:   "'{'",
	LexRBrace:   "'}'",
	LexPlus:     "'+'",
	LexTilde:    "'~'",
	LexBang:     "'!'",
	LexPeriod:   "'.'",
	LexRewrite:  "'==>'",
	LexOptional: "'?=>'",
	LexFact:     "'/-'",
}

func (k LexKind) String() string {
	if s, ok := lexNames[k]; ok {
		return s
	}
	return fmt.Sprintf("lexeme(%d)", int(k))
}

// Lexeme is one scanned unit with its source line. Index is set for
// LexToken only.
type Lexeme struct {
	Kind  LexKind
	Text  string
	Line  int
	Index int
}

// Lexer scans clause notation. Lines whose first non-blank character is ';'
// or '#' are comments.
type Lexer struct {
	src       string
	pos       int
	line      int
	lineStart bool
}

// NewLexer scans src starting at line 1.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, lineStart: true}
}

// Line returns the current line.
func (lx *Lexer) Line() int { return lx.line }

func (lx *Lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			lx.line++
			lx.pos++
			lx.lineStart = true
		case c == ' ' || c == '\t' || c == '\r':
			lx.pos++
		case lx.lineStart && (c == ';' || c == '#'):
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		default:
			return
		}
	}
}

func (lx *Lexer) hasPrefix(p string) bool {
	return strings.HasPrefix(lx.src[lx.pos:], p)
}

func isDelim(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '(', ')', ',', '|', '{', '}', '"':
		return true
	}
	return false
}

// atBoundary reports whether position i ends a word: end of input or
// whitespace.
func (lx *Lexer) atBoundary(i int) bool {
	if i >= len(lx.src) {
		return true
	}
	switch lx.src[i] {
	case ' ', '\t', '\r', '\n':
		return true
	}
	return false
}

// Next returns the next lexeme.
func (lx *Lexer) Next() (Lexeme, error) {
	lx.skipSpace()
	lx.lineStart = false
	if lx.pos >= len(lx.src) {
		return Lexeme{Kind: LexEOF, Line: lx.line}, nil
	}
	line := lx.line
	single := func(k LexKind) (Lexeme, error) {
		text := lx.src[lx.pos : lx.pos+1]
		lx.pos++
		return Lexeme{Kind: k, Text: text, Line: line}, nil
	}
	switch c := lx.src[lx.pos]; c {
	case '(':
		return single(LexLParen)
	case ')':
		return single(LexRParen)
	case ',':
		return single(LexComma)
	case '|':
		return single(LexBar)
	case '{':
		return single(LexLBrace)
	case '}':
		return single(LexRBrace)
	case '+':
		return single(LexPlus)
	case '~':
		return single(LexTilde)
	case '!':
		return single(LexBang)
	case '.':
		if lx.atBoundary(lx.pos + 1) {
			return single(LexPeriod)
		}
	case '"':
		return lx.quoted(line)
	}
	switch {
	case lx.hasPrefix("==>"):
		lx.pos += 3
		return Lexeme{Kind: LexRewrite, Text: "==>", Line: line}, nil
	case lx.hasPrefix("?=>"):
		lx.pos += 3
		return Lexeme{Kind: LexOptional, Text: "?=>", Line: line}, nil
	case lx.hasPrefix("/-"):
		lx.pos += 2
		return Lexeme{Kind: LexFact, Text: "/-", Line: line}, nil
	}
	start := lx.pos
	for lx.pos < len(lx.src) && !isDelim(lx.src[lx.pos]) {
		if lx.src[lx.pos] == '.' && lx.atBoundary(lx.pos+1) {
			break
		}
		if lx.pos > start && (lx.hasPrefix("==>") || lx.hasPrefix("?=>")) {
			break
		}
		lx.pos++
	}
	return Lexeme{Kind: LexWord, Text: lx.src[start:lx.pos], Line: line}, nil
}

func (lx *Lexer) quoted(line int) (Lexeme, error) {
	start := lx.pos
	lx.pos++
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case '\\':
			lx.pos += 2
			continue
		case '\n':
			lx.line++
		case '"':
			lx.pos++
			raw := lx.src[start:lx.pos]
			text, err := strconv.Unquote(raw)
			if err != nil {
				text = raw[1 : len(raw)-1]
			}
			if idx, ok := lx.tokenIndex(); ok {
				return Lexeme{Kind: LexToken, Text: text, Line: line, Index: idx}, nil
			}
			return Lexeme{Kind: LexQuoted, Text: text, Line: line}, nil
		}
		lx.pos++
	}
	lx.pos = len(lx.src)
	return Lexeme{}, fmt.Errorf("unterminated quoted string")
}

// tokenIndex consumes a -index suffix directly after a closing quote. The
// digits must end at a delimiter, a terminating period or the end of input.
func (lx *Lexer) tokenIndex() (int, bool) {
	i := lx.pos
	if i >= len(lx.src) || lx.src[i] != '-' {
		return 0, false
	}
	j := i + 1
	for j < len(lx.src) && lx.src[j] >= '0' && lx.src[j] <= '9' {
		j++
	}
	if j == i+1 {
		return 0, false
	}
	if j < len(lx.src) && !isDelim(lx.src[j]) && !(lx.src[j] == '.' && lx.atBoundary(j+1)) {
		return 0, false
	}
	idx, err := strconv.Atoi(lx.src[i+1 : j])
	if err != nil {
		return 0, false
	}
	lx.pos = j
	return idx, true
}

// Raw returns the text up to the matching close brace, honouring nested
// braces, and consumes the brace. It is used for formula consequents.
func (lx *Lexer) Raw() (string, error) {
	depth := 0
	start := lx.pos
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case '\n':
			lx.line++
		case '{':
			depth++
		case '}':
			if depth == 0 {
				text := lx.src[start:lx.pos]
				lx.pos++
				return strings.TrimSpace(text), nil
			}
			depth--
		}
		lx.pos++
	}
	return "", fmt.Errorf("unterminated '{'")
}
