package induce

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// RuleWriter persists approved rules to a destination (file, DB, etc.).
type RuleWriter interface {
	WriteRules(ctx context.Context, content string) error
}

// RuleExporter renders suggestions as a loadable rule file.
type RuleExporter struct {
	Writer RuleWriter
}

// Export writes every suggestion preceded by a comment with its statistics.
func (e *RuleExporter) Export(ctx context.Context, suggs []Suggestion) error {
	if e.Writer == nil {
		return fmt.Errorf("rule exporter: nil writer")
	}
	return e.Writer.WriteRules(ctx, Render(suggs))
}

// Render formats suggestions in rule file notation.
func Render(suggs []Suggestion) string {
	var b strings.Builder
	for _, sugg := range suggs {
		fmt.Fprintf(&b, "; %s: support %d confidence %.2f\n", sanitize(sugg.Group), sugg.Support, sugg.Confidence)
		b.WriteString(sugg.Rule())
		b.WriteByte('\n')
	}
	return b.String()
}

// sanitize keeps a group name on one comment line.
func sanitize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FileWriter writes rules to a file, replacing its content.
type FileWriter struct {
	Path string
}

func (w FileWriter) WriteRules(_ context.Context, content string) error {
	if err := os.WriteFile(w.Path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write rules: %w", err)
	}
	return nil
}
