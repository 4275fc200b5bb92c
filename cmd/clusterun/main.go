package main

import (
	"fmt"
	"os"
	"strconv"
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

	"github.com/spf13/cobra"
)

var (
	// Build-time variables (set via -ldflags)
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	// Global configuration
	cfg          *config.Config
	configSource string

	// CLI flags
	commandStr   string
	variableArgs []string
	varFile      string
	numCores     int
	core         int
	indexSpec    string
	skip         int
	jobName      string
	queue        string
	dryRun       bool
	dispatchStr  string
	outputMode   string
	quiet        bool
	showProgress bool
	logLevel     string
	logFormat    string

	// exec subcommand flags
	execIndex int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(errors.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "clusterun",
	Short: "Partition a variable space and run or dispatch its permutations",
	Long: `clusterun enumerates the Cartesian product of named variable ranges and
either runs each permutation locally or submits per-shard batch jobs to a
PBS/Torque queue.

Each permutation is identified by its index in the deterministic enumeration
of the product (last-declared variable varies fastest), so a dispatched job
can reconstruct its own permutations from index lists alone.

Examples:
  # Run every permutation locally, one at a time
  clusterun --command 'echo "$x $y"' --variable 'x=[1, 2, 3]' --variable 'y=[a, b]'

  # Show the plan without running anything
  clusterun --command 'echo "$x"' --variable 'x=[1, 2, 3]' --dry-run

  # Fan out to 4 queue jobs
  clusterun --command 'echo "$x"' --variable 'x=[1, 2, 3, 4]' --num-cores 4

  # Run only this shard of a 4-way split, locally
  clusterun --command 'echo "$x"' --variable 'x=[1, 2, 3, 4]' --num-cores 4 --core 0

  # Run an explicit selection of permutation indices
  clusterun --command 'echo "$x"' --variable 'x=[1, 2, 3, 4]' --index 0,2-4`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := planOptions(cmd)
		if err != nil {
			return err
		}

		variables, err := collectVariables()
		if err != nil {
			return errors.NewSetupError(err.Error(), err)
		}
		opts.Command = commandStr
		opts.Variables = variables

		deps, err := buildDependencies()
		if err != nil {
			return err
		}
		return sweep.Run(cmd.Context(), opts, deps)
	},
}

var execCmd = &cobra.Command{
	Use:   "exec CODE_PATH CALLBACK_NAME SPACE_NAME --index N",
	Short: "Worker entry point: run a callback on one element of a parameter space",
	Long: `exec resolves the named space and callback from a Go source file and
invokes the callback on the element at the given index. It is the command
that sequence runs schedule on workers; it can also be used directly.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("index") {
			return errors.NewSetupError("--index must be set", nil)
		}
		return sequence.ExecIndex(args[0], args[1], args[2], execIndex, resolve.NewResolver())
	},
}

var sequenceCmd = &cobra.Command{
	Use:   "sequence CODE_PATH CALLBACK_NAME SPACE_NAME",
	Short: "Fan a callback out over a parameter space defined in a Go file",
	Long: `sequence resolves the named parameter space from a Go source file (a sized
sequence, or a zero-argument factory producing one) and plans a sweep whose
single variable is the space index. Each worker re-invokes 'clusterun exec'
for exactly its own indices.`,
	Args: cobra.ExactArgs(3),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := planOptions(cmd)
		if err != nil {
			return err
		}

		deps, err := buildDependencies()
		if err != nil {
			return err
		}
		return sequence.Run(cmd.Context(), sequence.Options{
			CodePath:  args[0],
			Callback:  args[1],
			SpaceName: args[2],
			NumCores:  opts.NumCores,
			Core:      opts.Core,
			IndexSpec: opts.IndexSpec,
			Skip:      opts.Skip,
			DryRun:    opts.DryRun,
			Dispatch:  opts.Dispatch,
			JobName:   opts.JobName,
			Queue:     opts.Queue,
		}, resolve.NewResolver(), deps)
	},
}

func init() {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("clusterun %s\n", version)
			fmt.Printf("Commit: %s\n", commit)
			fmt.Printf("Built: %s\n", buildTime)
		},
	}
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(sequenceCmd)

	rootCmd.Flags().StringVar(&commandStr, "command", "", "The command to run for each permutation")
	rootCmd.Flags().StringArrayVar(&variableArgs, "variable", nil, "A variable, in the form name=[v1, v2, ...] (repeatable)")
	rootCmd.Flags().StringVar(&varFile, "varfile", "", "Load variables from a YAML file")

	for _, cmd := range []*cobra.Command{rootCmd, sequenceCmd} {
		cmd.Flags().IntVar(&numCores, "num-cores", 0, "Number of parallel shards to split the run into")
		cmd.Flags().IntVar(&core, "core", 0, "The single shard to run; requires --num-cores, excludes --index")
		cmd.Flags().StringVar(&indexSpec, "index", "", "Explicit permutation indices to run, e.g. 0,2-4,9")
		cmd.Flags().IntVar(&skip, "skip", 0, "Skip some initial permutations; only valid with a single group")
		cmd.Flags().StringVar(&jobName, "job-name", "", "Job name for the queue (default: clusterun-<timestamp>)")
		cmd.Flags().StringVar(&queue, "queue", "", "The queue to submit jobs to")
		cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the execution plan and exit")
		cmd.Flags().StringVar(&dispatchStr, "dispatch", "", "Force dispatch (true) or local execution (false); auto-detected by default")
		cmd.Flags().StringVar(&outputMode, "output", "", "Plan output format (text, json)")
		cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress non-error output")
		cmd.Flags().BoolVar(&showProgress, "progress", false, "Show progress for local runs")
		cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (info, error)")
		cmd.Flags().StringVar(&logFormat, "log-format", "", "Log format (json, text)")
	}

	execCmd.Flags().IntVar(&execIndex, "index", 0, "The index of the space element to run")
}

// loadConfig loads configuration from files and the environment, then
// applies any explicitly set CLI flags on top.
func loadConfig(cmd *cobra.Command) error {
	configManager := config.NewManager()
	loadedCfg, err := configManager.Load()
	if err != nil {
		return errors.NewSetupError(fmt.Sprintf("failed to load configuration: %v", err), err)
	}
	cfg = loadedCfg
	configSource = configManager.Source()

	if cmd.Flags().Changed("queue") {
		cfg.Queue = queue
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = outputMode
	}
	if cmd.Flags().Changed("quiet") {
		cfg.Quiet = quiet
	}
	if cmd.Flags().Changed("progress") {
		cfg.ShowProgress = showProgress
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = logFormat
	}

	if err := configManager.Validate(cfg); err != nil {
		return errors.NewSetupError(fmt.Sprintf("configuration validation failed: %v", err), err)
	}
	return nil
}

// planOptions builds planner options from the shared sweep flags
func planOptions(cmd *cobra.Command) (plan.Options, error) {
	opts := plan.Options{
		IndexSpec: indexSpec,
		Skip:      skip,
		DryRun:    dryRun,
		Queue:     cfg.Queue,
		JobName:   jobName,
	}
	// The timestamped default is computed here, once per invocation, and
	// passed down rather than read from hidden global state.
	if opts.JobName == "" {
		opts.JobName = sweep.DefaultJobName(time.Now())
	}

	if cmd.Flags().Changed("num-cores") {
		value := numCores
		opts.NumCores = &value
	}
	if cmd.Flags().Changed("core") {
		value := core
		opts.Core = &value
	}
	if cmd.Flags().Changed("dispatch") {
		parsed, err := strconv.ParseBool(dispatchStr)
		if err != nil {
			return plan.Options{}, errors.NewSetupError(
				fmt.Sprintf("invalid --dispatch value %q: must be true or false", dispatchStr), err)
		}
		opts.Dispatch = &parsed
	}
	return opts, nil
}

// collectVariables gathers variables from --varfile and --variable, in
// that order
func collectVariables() ([]space.Variable, error) {
	var variables []space.Variable
	if varFile != "" {
		fromFile, err := space.LoadVariablesFile(varFile)
		if err != nil {
			return nil, err
		}
		variables = append(variables, fromFile...)
	}
	fromFlags, err := space.ParseVariables(variableArgs)
	if err != nil {
		return nil, err
	}
	return append(variables, fromFlags...), nil
}

// buildDependencies wires the real collaborators from configuration
func buildDependencies() (sweep.Dependencies, error) {
	logger := logging.NewLoggerFromConfig(cfg.LogLevel, cfg.LogFormat, cfg.Quiet)
	logger.LogConfigLoad(configSource)

	executable := cfg.Executable
	if executable == "" {
		path, err := os.Executable()
		if err != nil {
			return sweep.Dependencies{}, errors.NewSetupError(
				fmt.Sprintf("failed to locate executable: %v", err), err)
		}
		executable = path
	}

	engine, err := scriptEngine()
	if err != nil {
		return sweep.Dependencies{}, err
	}

	return sweep.Dependencies{
		Logger:       logger,
		Shell:        runner.NewShell(),
		Submitter:    dispatch.NewQsubSubmitter(cfg.QsubPath),
		Engine:       engine,
		NodeSpec:     cfg.NodeSpec,
		Executable:   executable,
		Writer:       os.Stdout,
		OutputMode:   output.Mode(cfg.Output),
		ShowProgress: cfg.ShowProgress,
	}, nil
}

// scriptEngine builds the job script engine, using a site-specific
// template when configured
func scriptEngine() (*dispatch.ScriptEngine, error) {
	if cfg.ScriptTemplate != "" {
		engine, err := dispatch.NewScriptEngineFromFile(cfg.ScriptTemplate)
		if err != nil {
			return nil, errors.NewSetupError(err.Error(), err)
		}
		return engine, nil
	}
	engine, err := dispatch.NewScriptEngine()
	if err != nil {
		return nil, errors.NewSetupError(err.Error(), err)
	}
	return engine, nil
}
