// Package sequence provides the callback-dispatch convenience entry: a
// user names a callback and a parameter space defined in an external Go
// file, and clusterun fans the space's indices out as a normal sweep whose
// command re-invokes the worker entry point.
package sequence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/justinnhli/clusterun/internal/command"
	"github.com/justinnhli/clusterun/internal/errors"
	"github.com/justinnhli/clusterun/internal/plan"
	"github.com/justinnhli/clusterun/internal/resolve"
	"github.com/justinnhli/clusterun/internal/space"
	"github.com/justinnhli/clusterun/internal/sweep"
)

// IndexVariable is the single variable synthesized for a sequence run.
// Workers receive it as a shell binding ahead of the worker command.
const IndexVariable = "sequencerun_index"

// Options holds the inputs to a sequence run
type Options struct {
	CodePath  string // Go source file defining the callback and the space
	Callback  string // Name of the callback symbol
	SpaceName string // Name of the space symbol (sized value or zero-argument factory)
	Directory string // Working directory for workers ("" for the code file's directory)

	// Pass-through planner options.
	NumCores  *int
	Core      *int
	IndexSpec string
	Skip      int
	DryRun    bool
	Dispatch  *bool
	JobName   string
	Queue     string
}

// Run resolves the space, synthesizes the command/variable pair that
// re-invokes the worker entry point for one index, and delegates to the
// normal planning pipeline.
func Run(ctx context.Context, opts Options, resolver resolve.Resolver, deps sweep.Dependencies) error {
	codePath, err := filepath.Abs(opts.CodePath)
	if err != nil {
		return errors.NewSetupError(fmt.Sprintf("invalid code path '%s': %v", opts.CodePath, err), err)
	}

	directory := opts.Directory
	if directory == "" {
		directory = filepath.Dir(codePath)
	}

	value, err := resolver.Resolve(codePath, opts.SpaceName)
	if err != nil {
		return err
	}
	deps.Logger.LogResolve(codePath, opts.SpaceName)
	items, err := materializeSpace(value, opts.SpaceName)
	if err != nil {
		return err
	}

	indices := make([]any, items.Len())
	for i := range indices {
		indices[i] = i
	}
	variables := []space.Variable{
		{Name: IndexVariable, Values: indices},
	}

	workerCommand := strings.Join([]string{
		"cd " + command.Quote(directory),
		strings.Join([]string{
			command.Quote(deps.Executable),
			"exec",
			command.Quote(codePath),
			command.Quote(opts.Callback),
			command.Quote(opts.SpaceName),
			"--index", `"$` + IndexVariable + `"`,
		}, " "),
	}, " && ")

	return sweep.Run(ctx, plan.Options{
		Command:   workerCommand,
		Variables: variables,
		NumCores:  opts.NumCores,
		Core:      opts.Core,
		IndexSpec: opts.IndexSpec,
		Skip:      opts.Skip,
		DryRun:    opts.DryRun,
		Dispatch:  opts.Dispatch,
		JobName:   opts.JobName,
		Queue:     opts.Queue,
	}, deps)
}

// ExecIndex is the worker entry point: it re-resolves the space and the
// callback from the code file and invokes the callback on the element at
// the given index.
func ExecIndex(codePath string, callbackName string, spaceName string, index int, resolver resolve.Resolver) error {
	codePath, err := filepath.Abs(codePath)
	if err != nil {
		return errors.NewSetupError(fmt.Sprintf("invalid code path '%s': %v", codePath, err), err)
	}
	if err := os.Chdir(filepath.Dir(codePath)); err != nil {
		return errors.NewSetupError(fmt.Sprintf("failed to enter '%s': %v", filepath.Dir(codePath), err), err)
	}

	value, err := resolver.Resolve(codePath, spaceName)
	if err != nil {
		return err
	}
	items, err := materializeSpace(value, spaceName)
	if err != nil {
		return err
	}
	if index < 0 || index >= items.Len() {
		return errors.NewSetupError(fmt.Sprintf("index %d out of range [0, %d)", index, items.Len()), nil)
	}

	callbackValue, err := resolver.Resolve(codePath, callbackName)
	if err != nil {
		return err
	}
	callback := reflect.ValueOf(callbackValue)
	if callback.Kind() != reflect.Func || callback.Type().NumIn() != 1 {
		return errors.NewResolutionError(fmt.Sprintf("%q is not a one-argument function", callbackName), nil)
	}

	element := items.Index(index)
	paramType := callback.Type().In(0)
	if !element.Type().AssignableTo(paramType) {
		if !element.Type().ConvertibleTo(paramType) {
			return errors.NewResolutionError(
				fmt.Sprintf("space element type %s does not match callback parameter type %s",
					element.Type(), paramType), nil)
		}
		element = element.Convert(paramType)
	}

	callback.Call([]reflect.Value{element})
	return nil
}

// materializeSpace turns a resolved space symbol into an indexable
// sequence. The symbol is either a sized, indexable value or a
// zero-argument factory producing one.
func materializeSpace(value any, name string) (reflect.Value, error) {
	resolved := reflect.ValueOf(value)

	if resolved.Kind() == reflect.Func {
		funcType := resolved.Type()
		if funcType.NumIn() != 0 || funcType.NumOut() != 1 {
			return reflect.Value{}, errors.NewResolutionError(
				fmt.Sprintf("space factory %q must take no arguments and return one value", name), nil)
		}
		resolved = resolved.Call(nil)[0]
		if resolved.Kind() == reflect.Interface {
			resolved = resolved.Elem()
		}
	}

	switch resolved.Kind() {
	case reflect.Slice, reflect.Array:
		return resolved, nil
	default:
		return reflect.Value{}, errors.NewResolutionError(
			fmt.Sprintf("space %q is neither a sequence nor a factory returning one, got %s", name, resolved.Kind()), nil)
	}
}
