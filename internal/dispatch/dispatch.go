package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/justinnhli/clusterun/internal/command"
	"github.com/justinnhli/clusterun/internal/errors"
	"github.com/justinnhli/clusterun/internal/logging"
	"github.com/justinnhli/clusterun/internal/plan"
)

// Submitter defines the interface to the external queue submission command.
// It accepts a job script body and returns the scheduler's job id.
type Submitter interface {
	Submit(ctx context.Context, script string) (string, error)
}

// QsubSubmitter implements Submitter by piping the script to qsub
type QsubSubmitter struct {
	path string
}

// NewQsubSubmitter creates a submitter using the given qsub path
func NewQsubSubmitter(path string) *QsubSubmitter {
	return &QsubSubmitter{path: path}
}

// Submit pipes the script to "qsub -" and returns the job id it prints
func (s *QsubSubmitter) Submit(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, s.path, "-")
	cmd.Stdin = strings.NewReader(script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("qsub failed: %s: %w", detail, err)
		}
		return "", fmt.Errorf("qsub failed: %w", err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Dispatcher submits one batch job per shard group
type Dispatcher struct {
	submitter    Submitter
	materializer *command.Materializer
	engine       *ScriptEngine
	nodeSpec     string
	logger       *logging.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(submitter Submitter, materializer *command.Materializer, engine *ScriptEngine, nodeSpec string, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		submitter:    submitter,
		materializer: materializer,
		engine:       engine,
		nodeSpec:     nodeSpec,
		logger:       logger,
	}
}

// Dispatch renders and submits one job per group. Submission is
// fire-and-forget: a failed submission is logged and surfaced, but sibling
// submissions still proceed.
func (d *Dispatcher) Dispatch(ctx context.Context, pl *plan.Plan) error {
	collector := errors.NewErrorCollector()

	for jobNumber, indices := range pl.Groups {
		jobNumber++ // job numbers are 1-based

		recursive, err := d.materializer.Render(pl.Command, pl.Space.Variables(), indices)
		if err != nil {
			return errors.NewSetupError(fmt.Sprintf("failed to render command for job %d: %v", jobNumber, err), err)
		}

		script, err := d.engine.Render(ScriptParams{
			JobName:   pl.JobName,
			JobNumber: jobNumber,
			Queue:     pl.Queue,
			NodeSpec:  d.nodeSpec,
			Command:   recursive,
		})
		if err != nil {
			return errors.NewSetupError(fmt.Sprintf("failed to render script for job %d: %v", jobNumber, err), err)
		}

		jobID, err := d.submitter.Submit(ctx, script)
		if err != nil {
			d.logger.LogSubmissionError(pl.JobName, jobNumber, err)
			collector.Add(errors.NewSubmissionError(fmt.Sprintf("job %d: %v", jobNumber, err), err))
			continue
		}
		d.logger.LogSubmission(pl.JobName, jobNumber, len(indices), jobID)
	}

	if collector.HasErrors() {
		return errors.NewSubmissionError(
			fmt.Sprintf("%d of %d job submissions failed", collector.Count(), len(pl.Groups)), nil)
	}
	return nil
}
