// Package clusterun partitions the Cartesian product of named variable
// ranges into shards and either runs each permutation locally or submits
// per-shard batch jobs to a PBS/Torque queue.
//
// This package is the embedding surface: callers that want to drive sweeps
// from their own programs use Run and SequenceRun directly, with the same
// semantics as the clusterun command.
package clusterun

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/justinnhli/clusterun/internal/config"
	"github.com/justinnhli/clusterun/internal/dispatch"
	"github.com/justinnhli/clusterun/internal/errors"
	"github.com/justinnhli/clusterun/internal/logging"
	"github.com/justinnhli/clusterun/internal/output"
	"github.com/justinnhli/clusterun/internal/plan"
	"github.com/justinnhli/clusterun/internal/resolve"
	"github.com/justinnhli/clusterun/internal/runner"
	"github.com/justinnhli/clusterun/internal/sequence"
	"github.com/justinnhli/clusterun/internal/space"
	"github.com/justinnhli/clusterun/internal/sweep"
)

// Variable represents one named axis of the parameter space
type Variable struct {
	Name   string
	Values []any
}

// Options holds the inputs to a sweep. Nil pointer fields mean "unset",
// matching the corresponding optional CLI flags.
type Options struct {
	Command   string
	Variables []Variable
	NumCores  *int
	Core      *int
	Index     string
	Skip      int
	JobName   string // "" for a timestamped default
	Queue     string // "" for the configured default
	DryRun    bool
	Dispatch  *bool
}

// Run plans and carries out a sweep, loading collaborator configuration
// (queue, node spec, qsub path) the same way the CLI does
func Run(ctx context.Context, opts Options) error {
	cfg, deps, err := defaultDependencies()
	if err != nil {
		return err
	}

	variables := make([]space.Variable, len(opts.Variables))
	for i, variable := range opts.Variables {
		variables[i] = space.Variable{Name: variable.Name, Values: variable.Values}
	}

	return sweep.Run(ctx, plan.Options{
		Command:   opts.Command,
		Variables: variables,
		NumCores:  opts.NumCores,
		Core:      opts.Core,
		IndexSpec: opts.Index,
		Skip:      opts.Skip,
		DryRun:    opts.DryRun,
		Dispatch:  opts.Dispatch,
		JobName:   jobNameOrDefault(opts.JobName),
		Queue:     queueOrDefault(opts.Queue, cfg),
	}, deps)
}

// SequenceOptions holds the inputs to a callback-dispatch sweep
type SequenceOptions struct {
	CodePath  string // Go source file defining the callback and the space
	Callback  string // Name of the callback symbol
	Space     string // Name of the space symbol (sized value or zero-argument factory)
	Directory string // Working directory for workers ("" for the code file's directory)
	NumCores  *int
	Core      *int
	Index     string
	Skip      int
	JobName   string
	Queue     string
	DryRun    bool
	Dispatch  *bool
}

// SequenceRun fans a named callback out over a named parameter space, both
// resolved from an external Go source file
func SequenceRun(ctx context.Context, opts SequenceOptions) error {
	cfg, deps, err := defaultDependencies()
	if err != nil {
		return err
	}

	return sequence.Run(ctx, sequence.Options{
		CodePath:  opts.CodePath,
		Callback:  opts.Callback,
		SpaceName: opts.Space,
		Directory: opts.Directory,
		NumCores:  opts.NumCores,
		Core:      opts.Core,
		IndexSpec: opts.Index,
		Skip:      opts.Skip,
		DryRun:    opts.DryRun,
		Dispatch:  opts.Dispatch,
		JobName:   jobNameOrDefault(opts.JobName),
		Queue:     queueOrDefault(opts.Queue, cfg),
	}, resolve.NewResolver(), deps)
}

// defaultDependencies loads configuration and wires the real collaborators
func defaultDependencies() (*config.Config, sweep.Dependencies, error) {
	manager := config.NewManager()
	cfg, err := manager.Load()
	if err != nil {
		return nil, sweep.Dependencies{}, errors.NewSetupError(fmt.Sprintf("failed to load configuration: %v", err), err)
	}

	executable := cfg.Executable
	if executable == "" {
		path, err := os.Executable()
		if err != nil {
			return nil, sweep.Dependencies{}, errors.NewSetupError(fmt.Sprintf("failed to locate executable: %v", err), err)
		}
		executable = path
	}

	var engine *dispatch.ScriptEngine
	if cfg.ScriptTemplate != "" {
		engine, err = dispatch.NewScriptEngineFromFile(cfg.ScriptTemplate)
	} else {
		engine, err = dispatch.NewScriptEngine()
	}
	if err != nil {
		return nil, sweep.Dependencies{}, errors.NewSetupError(err.Error(), err)
	}

	logger := logging.NewLoggerFromConfig(cfg.LogLevel, cfg.LogFormat, cfg.Quiet)
	logger.LogConfigLoad(manager.Source())

	deps := sweep.Dependencies{
		Logger:       logger,
		Shell:        runner.NewShell(),
		Submitter:    dispatch.NewQsubSubmitter(cfg.QsubPath),
		Engine:       engine,
		NodeSpec:     cfg.NodeSpec,
		Executable:   executable,
		Writer:       os.Stdout,
		OutputMode:   output.Mode(cfg.Output),
		ShowProgress: cfg.ShowProgress,
	}
	return cfg, deps, nil
}

func jobNameOrDefault(jobName string) string {
	if jobName == "" {
		return sweep.DefaultJobName(time.Now())
	}
	return jobName
}

func queueOrDefault(queue string, cfg *config.Config) string {
	if queue == "" {
		return cfg.Queue
	}
	return queue
}
