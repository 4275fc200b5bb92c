// Package space models the variable space whose Cartesian product defines
// the permutations of a run.
package space

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// namePattern is the grammar variable names must conform to.
var namePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Variable represents one named axis of the parameter space
type Variable struct {
	Name   string // Variable name, matching [a-z_][a-z0-9_]*
	Values []any  // Ordered value list; never empty
}

// Space is an ordered list of variables. Permutation indices enumerate the
// Cartesian product of the value lists in declaration order, with the
// last-declared variable varying fastest. The enumeration depends only on
// the declared variables, so a worker that receives just an index
// reconstructs the same permutation as the process that planned it.
type Space struct {
	variables []Variable
	size      int
}

// New creates a space from the declared variables after validating them
func New(variables []Variable) (*Space, error) {
	if len(variables) == 0 {
		return nil, fmt.Errorf("at least one variable must be set")
	}

	seen := make(map[string]bool, len(variables))
	size := 1
	for _, variable := range variables {
		if !namePattern.MatchString(variable.Name) {
			return nil, fmt.Errorf("variable %q does not conform to [a-z_][a-z0-9_]*", variable.Name)
		}
		if seen[variable.Name] {
			return nil, fmt.Errorf("variable %q is defined multiple times", variable.Name)
		}
		seen[variable.Name] = true

		if len(variable.Values) == 0 {
			return nil, fmt.Errorf("variable %q has no values", variable.Name)
		}
		size *= len(variable.Values)
	}

	return &Space{
		variables: variables,
		size:      size,
	}, nil
}

// Size returns the total number of permutations
func (s *Space) Size() int {
	return s.size
}

// Variables returns the declared variables in declaration order
func (s *Space) Variables() []Variable {
	return s.variables
}

// Permutation materializes permutation i as one value per variable, in
// declaration order. The index is decomposed mixed-radix over the value
// list lengths, last variable fastest, matching nested-loop order.
func (s *Space) Permutation(i int) ([]any, error) {
	if i < 0 || i >= s.size {
		return nil, fmt.Errorf("permutation index %d out of range [0, %d)", i, s.size)
	}

	values := make([]any, len(s.variables))
	for pos := len(s.variables) - 1; pos >= 0; pos-- {
		radix := len(s.variables[pos].Values)
		values[pos] = s.variables[pos].Values[i%radix]
		i /= radix
	}
	return values, nil
}

// ParseVariable parses a "name=literal" specification. The literal is a
// YAML flow sequence (e.g. "[1, 2, 3]" or "[a, b]") so that the rendered
// form round-trips across a process boundary.
func ParseVariable(spec string) (Variable, error) {
	name, literal, found := strings.Cut(spec, "=")
	if !found {
		return Variable{}, fmt.Errorf("failed to parse --variable %q: missing '='", spec)
	}
	if !namePattern.MatchString(name) {
		return Variable{}, fmt.Errorf("variable %q does not conform to [a-z_][a-z0-9_]*", name)
	}

	var values []any
	if err := yaml.Unmarshal([]byte(literal), &values); err != nil {
		return Variable{}, fmt.Errorf("failed to parse values %q for variable %q: %w", literal, name, err)
	}
	if values == nil {
		return Variable{}, fmt.Errorf("values for variable %q must be a non-empty list, got %q", name, literal)
	}

	return Variable{Name: name, Values: values}, nil
}

// ParseVariables parses a list of "name=literal" specifications
func ParseVariables(specs []string) ([]Variable, error) {
	variables := make([]Variable, 0, len(specs))
	for _, spec := range specs {
		variable, err := ParseVariable(spec)
		if err != nil {
			return nil, err
		}
		variables = append(variables, variable)
	}
	return variables, nil
}

// FormatValues renders a value list as a YAML flow sequence. The output
// parses back into the same value list via ParseVariable.
func FormatValues(values []any) (string, error) {
	var node yaml.Node
	if err := node.Encode(values); err != nil {
		return "", fmt.Errorf("failed to encode value list: %w", err)
	}
	node.Style = yaml.FlowStyle

	rendered, err := yaml.Marshal(&node)
	if err != nil {
		return "", fmt.Errorf("failed to render value list: %w", err)
	}
	return strings.TrimSpace(string(rendered)), nil
}

// FormatValue renders a single value the way it appears in an execution
// script assignment line.
func FormatValue(value any) string {
	return fmt.Sprintf("%v", value)
}
