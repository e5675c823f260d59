package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wearsRules = `; wearing
nsubj(wears*,?A), dobj(wears*,?O), +sumo(Clothing,?O) ==> (wears(?A,?O)).
`
	taxonomy = `
subclass:
  Shirt: [Clothing]
  Kicking: [Impelling]
  Pushing: [Impelling]
`
	sentences = `# two sentences
nsubj(wears-2,Robert-1), dobj(wears-2,shirt-4), sumo(Shirt,shirt-4)

nsubj(reads-2,Mary-1), dobj(reads-2,book-4)
`
)

type fixture struct {
	dir   string
	rules string
	tax   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{dir: dir, rules: filepath.Join(dir, "wears.rules"), tax: filepath.Join(dir, "taxonomy.yaml")}
	require.NoError(t, os.WriteFile(f.rules, []byte(wearsRules), 0o644))
	require.NoError(t, os.WriteFile(f.tax, []byte(taxonomy), 0o644))
	return f
}

func (f fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestExtractText(t *testing.T) {
	f := newFixture(t)
	out, err := run(t, sentences, "extract", "--rules", f.rules, "--taxonomy", f.tax)
	require.NoError(t, err)
	assert.Equal(t, "line 2: wears(Robert-1,shirt-4)\nline 4: no extraction\n", out)
}

func TestExtractJSON(t *testing.T) {
	f := newFixture(t)
	input := f.write(t, "sentences.txt", sentences)

	out, err := run(t, "", "extract", input, "--json", "--rules", f.rules, "--taxonomy", f.tax)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var rec extractRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, 2, rec.Line)
	assert.Equal(t, []string{"wears(Robert-1,shirt-4)"}, rec.Relations)
	assert.NotEmpty(t, rec.ID)

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Empty(t, rec.Relations)
}

func TestExtractMalformedInput(t *testing.T) {
	f := newFixture(t)
	_, err := run(t, "nsubj(wears-2\n", "extract", "--rules", f.rules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestGeneralize(t *testing.T) {
	f := newFixture(t)
	in := "typeOf(Kicking,kicks-2), nsubj(kicks-2,John-1)\ntypeOf(Pushing,pushes-2), nsubj(pushes-2,Susan-1)\n"

	out, err := run(t, in, "generalize", "--taxonomy", f.tax)
	require.NoError(t, err)
	assert.Equal(t, "typeOf(Impelling,?V1), nsubj(?V1,?V2)\n", out)

	out, err = run(t, in, "generalize", "--taxonomy", f.tax, "--mode", "greedy", "--maps")
	require.NoError(t, err)
	assert.Contains(t, out, "line 1:\n")
	assert.Contains(t, out, "-> ?V1")

	_, err = run(t, in, "generalize", "--mode", "fuzzy")
	assert.Error(t, err)
}

func TestInduceAndListRules(t *testing.T) {
	f := newFixture(t)
	examples := f.write(t, "examples.yaml", `
groups:
  - name: agent
    examples:
      - facts: "typeOf(Kicking,kicks-2), nsubj(kicks-2,John-1), dobj(kicks-2,cart-4)"
        consequent: "agent(kicks-2,John-1)"
      - facts: "typeOf(Pushing,pushes-2), nsubj(pushes-2,Susan-1), dobj(pushes-2,wagon-4)"
        consequent: "agent(pushes-2,Susan-1)"
`)
	db := filepath.Join(f.dir, "semrel.db")
	rulesOut := filepath.Join(f.dir, "induced.rules")

	out, err := run(t, "", "induce", examples, "--taxonomy", f.tax, "--store", db, "--out", rulesOut)
	require.NoError(t, err)
	assert.Equal(t, "Wrote 1 rules to "+rulesOut+"\n", out)

	data, err := os.ReadFile(rulesOut)
	require.NoError(t, err)
	assert.Contains(t, string(data), "==> (agent(?V1,?V2)).")

	out, err = run(t, "", "rules", "--store", db)
	require.NoError(t, err)
	assert.Contains(t, out, "; agent: support 2")

	// The induced file is itself a valid rule set.
	out, err = run(t, "", "check", "--rules", rulesOut, "--taxonomy", f.tax)
	require.NoError(t, err)
	assert.Contains(t, out, "Rewrites:   1 (0 degenerate)")
}

func TestTaxonomyCommands(t *testing.T) {
	f := newFixture(t)
	db := filepath.Join(f.dir, "semrel.db")

	_, err := run(t, "", "taxonomy", "add", "subclass", "Hat", "Clothing", "--store", db)
	require.NoError(t, err)

	out, err := run(t, "", "taxonomy", "list", "--store", db)
	require.NoError(t, err)
	assert.Equal(t, "subclass(Hat, Clothing)\n", out)

	out, err = run(t, "", "taxonomy", "is", "Hat", "Clothing", "--store", db)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = run(t, "", "taxonomy", "is", "Shirt", "Hat", "--store", db, "--taxonomy", f.tax)
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	_, err = run(t, "", "taxonomy", "add", "likes", "a", "b", "--store", db)
	assert.Error(t, err)
}

func TestConfigFileAndEnv(t *testing.T) {
	f := newFixture(t)
	cfgPath := f.write(t, "semrel.yaml", "engine:\n  max_passes: 4\npaths:\n  rules: "+f.rules+"\n")

	out, err := run(t, "", "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "max_passes: 4")
	assert.Contains(t, out, "rules: "+f.rules)

	t.Setenv("SEMREL_ENGINE_MAX_PASSES", "7")
	out, err = run(t, "", "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "max_passes: 7")

	_, err = run(t, "", "config", "show", "--config", filepath.Join(f.dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "semrel.yaml")
	_, err := run(t, "", "config", "init", path)
	require.NoError(t, err)

	_, err = run(t, "", "config", "init", path)
	assert.Error(t, err, "existing file needs --force")

	_, err = run(t, "", "config", "init", path, "--force")
	assert.NoError(t, err)

	out, err := run(t, "", "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "oracle: taxonomy")
}

func TestCheckStrict(t *testing.T) {
	f := newFixture(t)
	rules := f.write(t, "unbound.rules", "nsubj(?X,?Y) ==> (rel(?X,?Z)).\n")

	_, err := run(t, "", "check", "--rules", rules, "--strict")
	assert.Error(t, err)

	out, err := run(t, "", "check", "--rules", rules)
	require.NoError(t, err)
	assert.Contains(t, out, "Warnings:   1")
}

func TestReplay(t *testing.T) {
	f := newFixture(t)
	db := filepath.Join(f.dir, "semrel.db")

	_, err := run(t, sentences, "extract", "--rules", f.rules, "--taxonomy", f.tax, "--store", db)
	require.NoError(t, err)

	out, err := run(t, "", "replay", "--rules", f.rules, "--taxonomy", f.tax, "--store", db)
	require.NoError(t, err)
	assert.Equal(t, "Processed 1, updated 0, errors 0\n", out)
}
