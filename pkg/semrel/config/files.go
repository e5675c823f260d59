package config

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/semrel/pkg/semrel/ontology"
)

// Taxonomy is the YAML form of a class hierarchy. Each map goes from a term to
// its direct parents.
//
//	subclass:
//	  Shirt: [Clothing]
//	instance:
//	  Robert: [Human]
type Taxonomy struct {
	Subclass     map[string][]string `yaml:"subclass"`
	Instance     map[string][]string `yaml:"instance"`
	SubAttribute map[string][]string `yaml:"subAttribute"`
}

// LoadTaxonomy loads a taxonomy from a YAML file.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tax Taxonomy
	if err := yaml.Unmarshal(data, &tax); err != nil {
		return nil, err
	}
	return &tax, nil
}

// Edges lists the taxonomy facts in a stable order.
func (t *Taxonomy) Edges() []ontology.Edge {
	var out []ontology.Edge
	add := func(rel string, m map[string][]string) {
		children := make([]string, 0, len(m))
		for c := range m {
			children = append(children, c)
		}
		sort.Strings(children)
		for _, c := range children {
			for _, p := range m[c] {
				out = append(out, ontology.Edge{Relation: rel, Child: c, Parent: p})
			}
		}
	}
	add(ontology.RelSubclass, t.Subclass)
	add(ontology.RelInstance, t.Instance)
	add(ontology.RelSubAttribute, t.SubAttribute)
	return out
}

// Dict is the multi-word dictionary.
type Dict struct {
	Entries []DictEntry
}

// DictEntry is one dictionary line.
type DictEntry struct {
	Canonical string
	Variants  []string
	Category  string
}

// LoadDict loads the multi-word dictionary.
// Format: canonical|variant1|variant2|category
func LoadDict(path string) (*Dict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dict := &Dict{Entries: []DictEntry{}}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		entry := DictEntry{Canonical: parts[0]}
		if len(parts) >= 2 {
			entry.Variants = parts[1 : len(parts)-1]
			entry.Category = parts[len(parts)-1]
		}
		dict.Entries = append(dict.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return dict, nil
}
