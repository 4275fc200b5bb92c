// Package runner executes a shard group's permutations in-process.
package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/justinnhli/clusterun/internal/errors"
	"github.com/justinnhli/clusterun/internal/logging"
	"github.com/justinnhli/clusterun/internal/progress"
	"github.com/justinnhli/clusterun/internal/space"
)

// Shell defines the interface for the OS process-execution primitive
type Shell interface {
	// Run executes a shell script synchronously and returns its exit code.
	// The returned error reports a failure to run the script at all, not a
	// non-zero exit status.
	Run(ctx context.Context, script string) (int, error)
}

// ExecShell implements Shell via sh -c
type ExecShell struct{}

// NewShell creates the default shell
func NewShell() Shell {
	return &ExecShell{}
}

// Run executes a script via "sh -c", wiring the process's own stdio through
func (s *ExecShell) Run(ctx context.Context, script string) (int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", script)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Result summarizes a completed run
type Result struct {
	Total  int // Permutations executed
	Failed int // Permutations whose command exited non-zero or could not run
}

// Runner executes permutations sequentially: parallelism is achieved only
// by independent OS processes or cluster jobs, one per shard, never inside
// a single runner.
type Runner struct {
	shell  Shell
	logger *logging.Logger
}

// NewRunner creates a runner using the given shell and logger
func NewRunner(shell Shell, logger *logging.Logger) *Runner {
	return &Runner{
		shell:  shell,
		logger: logger,
	}
}

// Run executes each selected permutation in ascending index order. For
// every index, the script is one variable-assignment line per declared
// variable followed by the user command. A non-zero exit of the user
// command does not halt the loop; the aggregate failure count is surfaced
// as an ExecutionError once the whole group has run.
func (r *Runner) Run(ctx context.Context, varSpace *space.Space, userCommand string, indices []int, tracker *progress.Tracker) (*Result, error) {
	start := time.Now()
	result := &Result{}

	for _, index := range indices {
		values, err := varSpace.Permutation(index)
		if err != nil {
			return result, errors.NewSetupError(err.Error(), err)
		}

		script := buildScript(varSpace.Variables(), values, userCommand)

		permStart := time.Now()
		exitCode, err := r.shell.Run(ctx, script)
		result.Total++
		if err != nil {
			result.Failed++
			r.logger.LogPermutationError(index, err)
		} else {
			if exitCode != 0 {
				result.Failed++
			}
			r.logger.LogPermutation(index, exitCode, time.Since(permStart))
		}

		if tracker != nil {
			tracker.Update(err == nil && exitCode == 0)
		}

		if ctx.Err() != nil {
			return result, ctx.Err()
		}
	}

	if tracker != nil {
		tracker.Finish()
	}
	r.logger.LogRunComplete(result.Total, result.Failed, time.Since(start))

	if result.Failed > 0 {
		return result, errors.NewExecutionError(
			fmt.Sprintf("run failed: %d/%d permutations exited non-zero", result.Failed, result.Total), nil)
	}
	return result, nil
}

// buildScript renders the execution script for one permutation
func buildScript(variables []space.Variable, values []any, userCommand string) string {
	lines := make([]string, 0, len(variables)+1)
	for i, variable := range variables {
		lines = append(lines, variable.Name+"="+space.FormatValue(values[i]))
	}
	lines = append(lines, userCommand)
	return strings.Join(lines, "\n")
}
