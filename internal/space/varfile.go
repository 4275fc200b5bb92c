package space

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// varFileEntry is one variable declaration in a variable file
type varFileEntry struct {
	Name   string `yaml:"name"`
	Values []any  `yaml:"values"`
}

// LoadVariablesFile loads variable declarations from a YAML file. The file
// is a list of entries so that declaration order, which fixes the
// permutation enumeration, is preserved:
//
//	- name: x
//	  values: [1, 2, 3]
//	- name: y
//	  values: [a, b]
func LoadVariablesFile(path string) ([]Variable, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variable file '%s': %w", path, err)
	}

	var entries []varFileEntry
	if err := yaml.Unmarshal(contents, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse variable file '%s': %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no variables found in '%s'", path)
	}

	variables := make([]Variable, 0, len(entries))
	for i, entry := range entries {
		if !namePattern.MatchString(entry.Name) {
			return nil, fmt.Errorf("entry %d in '%s': variable %q does not conform to [a-z_][a-z0-9_]*", i+1, path, entry.Name)
		}
		if len(entry.Values) == 0 {
			return nil, fmt.Errorf("entry %d in '%s': variable %q has no values", i+1, path, entry.Name)
		}
		variables = append(variables, Variable{Name: entry.Name, Values: entry.Values})
	}
	return variables, nil
}
