// Package sweep orchestrates a clusterun invocation: build the execution
// plan, then print it, dispatch it to the queue, or run it locally.
package sweep

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/justinnhli/clusterun/internal/command"
	"github.com/justinnhli/clusterun/internal/dispatch"
	"github.com/justinnhli/clusterun/internal/errors"
	"github.com/justinnhli/clusterun/internal/logging"
	"github.com/justinnhli/clusterun/internal/output"
	"github.com/justinnhli/clusterun/internal/plan"
	"github.com/justinnhli/clusterun/internal/progress"
	"github.com/justinnhli/clusterun/internal/runner"
)

// Dependencies holds the side-effecting collaborators of a run. Tests
// substitute fakes; the CLI wires the real ones.
type Dependencies struct {
	Logger       *logging.Logger
	Shell        runner.Shell
	Submitter    dispatch.Submitter
	Engine       *dispatch.ScriptEngine
	NodeSpec     string
	Executable   string    // Executable for recursive self-invocation
	Writer       io.Writer // Plan and progress output (defaults to stdout)
	OutputMode   output.Mode
	ShowProgress bool
}

// DefaultJobName synthesizes the default job name from a timestamp. The
// time is computed once at the call site and passed down explicitly.
func DefaultJobName(now time.Time) string {
	return "clusterun-" + now.Format("20060102150405")
}

// Run builds the plan for opts and carries it out
func Run(ctx context.Context, opts plan.Options, deps Dependencies) error {
	if deps.Writer == nil {
		deps.Writer = os.Stdout
	}
	if deps.OutputMode == "" {
		deps.OutputMode = output.TextMode
	}

	pl, err := plan.Build(opts)
	if err != nil {
		return err
	}
	deps.Logger.LogPlan(pl.Mode.String(), pl.Size, pl.Selected(), len(pl.Groups))

	switch pl.Mode {
	case plan.ModeDryRun:
		return output.NewPrinter(deps.OutputMode, deps.Writer).PrintPlan(pl)
	case plan.ModeDispatch:
		return dispatchPlan(ctx, pl, deps)
	default:
		return runPlan(ctx, pl, deps)
	}
}

// dispatchPlan submits one job per shard group
func dispatchPlan(ctx context.Context, pl *plan.Plan, deps Dependencies) error {
	materializer, err := command.NewMaterializer(deps.Executable)
	if err != nil {
		return errors.NewSetupError(err.Error(), err)
	}
	dispatcher := dispatch.NewDispatcher(deps.Submitter, materializer, deps.Engine, deps.NodeSpec, deps.Logger)
	return dispatcher.Dispatch(ctx, pl)
}

// runPlan executes all selected permutations in-process, in ascending
// index order. A local run covers the union of the plan's groups: sharding
// only matters when shards become separate processes.
func runPlan(ctx context.Context, pl *plan.Plan, deps Dependencies) error {
	indices := make([]int, 0, pl.Selected())
	for _, group := range pl.Groups {
		indices = append(indices, group...)
	}
	sort.Ints(indices)

	var tracker *progress.Tracker
	if deps.ShowProgress {
		tracker = progress.NewTracker(len(indices), deps.Writer, true)
	}

	run := runner.NewRunner(deps.Shell, deps.Logger)
	if _, err := run.Run(ctx, pl.Space, pl.Command, indices, tracker); err != nil {
		return err
	}
	return nil
}

// Describe returns a one-line summary of a plan, used in logs
func Describe(pl *plan.Plan) string {
	return fmt.Sprintf("%s: %d of %d permutations in %d group(s)",
		pl.Mode, pl.Selected(), pl.Size, len(pl.Groups))
}
