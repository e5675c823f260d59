package internalerr

import (
	"fmt"
	"strings"
)

// MalformedClauseError reports text that could not be parsed as a literal,
// clause or rule. File and Line are zero when the input did not come from a file.
type MalformedClauseError struct {
	File   string
	Line   int
	Input  string
	Reason string
}

func (e *MalformedClauseError) Error() string {
	var b strings.Builder
	b.WriteString("malformed clause")
	if e.File != "" {
		fmt.Fprintf(&b, " in %s", e.File)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Input != "" {
		fmt.Fprintf(&b, " (%q)", truncate(e.Input, 80))
	}
	return b.String()
}

func (e *MalformedClauseError) Unwrap() error { return ErrMalformedClause }

// ProcedureNotFoundError is returned when a rule names a procedure that is
// not registered.
type ProcedureNotFoundError struct {
	Name string
	File string
	Line int
}

func (e *ProcedureNotFoundError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("procedure %q not found (%s line %d)", e.Name, e.File, e.Line)
	}
	return fmt.Sprintf("procedure %q not found", e.Name)
}

func (e *ProcedureNotFoundError) Unwrap() error { return ErrProcedureNotFound }

// BindingConflictError is returned when a variable is re-bound to a
// different value.
type BindingConflictError struct {
	Var  string
	Have string
	Want string
}

func (e *BindingConflictError) Error() string {
	return fmt.Sprintf("binding conflict on ?%s: bound to %s, got %s", e.Var, e.Have, e.Want)
}

func (e *BindingConflictError) Unwrap() error { return ErrBindingConflict }

// BindingCoverageWarning records consequent variables left unbound after a
// rule fired. It is not an error: the relation is still emitted.
type BindingCoverageWarning struct {
	Rule string
	Line int
	Vars []string
}

func (w BindingCoverageWarning) String() string {
	return fmt.Sprintf("rule %s (line %d): unbound consequent variables %s",
		w.Rule, w.Line, strings.Join(w.Vars, ", "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
