package induce

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
)

// groupsFile is the YAML layout of annotated examples:
//
//	groups:
//	  - name: agent
//	    examples:
//	      - facts: "nsubj(kicked-3,Ann-1), dobj(kicked-3,ball-5)"
//	        consequent: "agent(kicked-3,Ann-1)"
type groupsFile struct {
	Groups []struct {
		Name     string `yaml:"name"`
		Examples []struct {
			Facts      string `yaml:"facts"`
			Consequent string `yaml:"consequent"`
		} `yaml:"examples"`
	} `yaml:"groups"`
}

// LoadGroups reads example groups from a YAML file.
func LoadGroups(path string) ([]Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read examples: %w", err)
	}
	return ParseGroups(data)
}

// ParseGroups decodes example groups from YAML.
func ParseGroups(data []byte) ([]Group, error) {
	var f groupsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse examples: %w", err)
	}

	groups := make([]Group, 0, len(f.Groups))
	for gi, g := range f.Groups {
		grp := Group{Name: g.Name}
		if grp.Name == "" {
			grp.Name = fmt.Sprintf("group-%d", gi+1)
		}
		for ei, ex := range g.Examples {
			facts, err := cnf.ParseCNF(ex.Facts)
			if err != nil {
				return nil, fmt.Errorf("%s example %d facts: %w", grp.Name, ei+1, err)
			}
			cons, err := cnf.ParseCNF(ex.Consequent)
			if err != nil {
				return nil, fmt.Errorf("%s example %d consequent: %w", grp.Name, ei+1, err)
			}
			grp.Examples = append(grp.Examples, Example{Facts: facts, Consequent: cons})
		}
		groups = append(groups, grp)
	}
	return groups, nil
}
