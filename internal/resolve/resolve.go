// Package resolve loads named symbols from external Go source files.
//
// The file is evaluated in an embedded interpreter, so the symbol's value
// is available without compiling or linking the user's code into this
// program.
package resolve

import (
	"fmt"
	"os"
	"regexp"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/justinnhli/clusterun/internal/errors"
)

// packagePattern extracts the package clause from a source file.
var packagePattern = regexp.MustCompile(`(?m)^package\s+([A-Za-z_][A-Za-z0-9_]*)`)

// Resolver defines the symbol resolution collaborator: given a file path
// and a symbol name, return that symbol's value.
type Resolver interface {
	Resolve(path string, name string) (any, error)
}

// YaegiResolver implements Resolver with the yaegi Go interpreter
type YaegiResolver struct{}

// NewResolver creates the default resolver
func NewResolver() Resolver {
	return &YaegiResolver{}
}

// Resolve evaluates the Go source file at path and returns the value of
// the named symbol. Failures to load the file or find the symbol are
// resolution errors, reported immediately with no partial execution.
func (r *YaegiResolver) Resolve(path string, name string) (any, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewResolutionError(fmt.Sprintf("failed to load '%s': %v", path, err), err)
	}

	match := packagePattern.FindSubmatch(source)
	if match == nil {
		return nil, errors.NewResolutionError(fmt.Sprintf("'%s' has no package clause", path), nil)
	}
	packageName := string(match[1])

	interpreter := interp.New(interp.Options{})
	if err := interpreter.Use(stdlib.Symbols); err != nil {
		return nil, errors.NewResolutionError(fmt.Sprintf("failed to load interpreter stdlib: %v", err), err)
	}

	if _, err := interpreter.Eval(string(source)); err != nil {
		return nil, errors.NewResolutionError(fmt.Sprintf("failed to evaluate '%s': %v", path, err), err)
	}

	value, err := interpreter.Eval(packageName + "." + name)
	if err != nil {
		return nil, errors.NewResolutionError(fmt.Sprintf("symbol %q not found in '%s': %v", name, path, err), err)
	}
	if !value.IsValid() {
		return nil, errors.NewResolutionError(fmt.Sprintf("symbol %q in '%s' has no value", name, path), nil)
	}
	return value.Interface(), nil
}
