// Package plan decides the execution mode of a run and computes the index
// groups assigned to each parallel shard.
package plan

import (
	"fmt"

	"github.com/justinnhli/clusterun/internal/errors"
	"github.com/justinnhli/clusterun/internal/partition"
	"github.com/justinnhli/clusterun/internal/space"
)

// Mode represents the resolved execution mode of a run
type Mode int

const (
	// ModeDryRun prints the plan and exits without side effects
	ModeDryRun Mode = iota

	// ModeLocalRun executes the single group's permutations in-process
	ModeLocalRun

	// ModeDispatch submits one batch job per group to the queue
	ModeDispatch
)

// String returns a string representation of the mode
func (m Mode) String() string {
	switch m {
	case ModeDryRun:
		return "dry-run"
	case ModeLocalRun:
		return "local-run"
	case ModeDispatch:
		return "dispatch"
	default:
		return "unknown"
	}
}

// Options holds the inputs to plan construction. NumCores, Core, and
// Dispatch are nil when the corresponding flag was not set.
type Options struct {
	Command   string
	Variables []space.Variable
	NumCores  *int
	Core      *int
	IndexSpec string // "" when unset; grammar per partition.ParseIndexSpec
	Skip      int
	DryRun    bool
	Dispatch  *bool // explicit override of dispatch auto-detection
	JobName   string
	Queue     string
}

// Plan is the resolved execution plan. It is built once per invocation and
// immutable thereafter.
type Plan struct {
	Mode     Mode
	Command  string
	Space    *space.Space
	Groups   [][]int
	Size     int
	Dispatch bool // resolved dispatch decision, independent of dry-run
	JobName  string
	Queue    string
}

// Selected returns the total number of permutations across all groups
func (p *Plan) Selected() int {
	selected := 0
	for _, group := range p.Groups {
		selected += len(group)
	}
	return selected
}

// Build validates the options, resolves the execution mode, and computes
// the index groups. Validation fails fast on the first violation, before
// any side effect.
func Build(opts Options) (*Plan, error) {
	if opts.Command == "" {
		return nil, errors.NewSetupError("--command must be set", nil)
	}
	if len(opts.Variables) == 0 {
		return nil, errors.NewSetupError("at least one --variable must be set", nil)
	}

	// Duplicate names, name grammar, and empty value lists are caught here.
	varSpace, err := space.New(opts.Variables)
	if err != nil {
		return nil, errors.NewSetupError(err.Error(), err)
	}

	if opts.Core != nil {
		if opts.NumCores == nil {
			return nil, errors.NewSetupError("--num-cores must be set if --core is set", nil)
		}
		if opts.IndexSpec != "" {
			return nil, errors.NewSetupError("only one of --core and --index can be set", nil)
		}
	}
	if opts.Dispatch != nil && !*opts.Dispatch && opts.NumCores != nil {
		return nil, errors.NewSetupError("--num-cores must not be set if --dispatch=false", nil)
	}
	if opts.NumCores != nil && opts.Core != nil && *opts.Core >= *opts.NumCores {
		return nil, errors.NewSetupError("--core must be less than --num-cores", nil)
	}
	if opts.Skip < 0 {
		return nil, errors.NewSetupError(fmt.Sprintf("--skip must be non-negative, got %d", opts.Skip), nil)
	}

	// Dispatch auto-detection: the user asked for parallelism without
	// pinning a shard or an explicit index list, so fan out to the queue.
	dispatch := opts.NumCores != nil && opts.Core == nil && opts.IndexSpec == ""
	if opts.Dispatch != nil {
		dispatch = *opts.Dispatch
	}

	size := varSpace.Size()
	groups, err := computeGroups(opts, size)
	if err != nil {
		return nil, err
	}

	if opts.Skip != 0 && len(groups) != 1 {
		return nil, errors.NewSetupError("--skip must not be set if running in parallel", nil)
	}

	mode := ModeLocalRun
	if dispatch {
		mode = ModeDispatch
	}
	if opts.DryRun {
		mode = ModeDryRun
	}

	return &Plan{
		Mode:     mode,
		Command:  opts.Command,
		Space:    varSpace,
		Groups:   groups,
		Size:     size,
		Dispatch: dispatch,
		JobName:  opts.JobName,
		Queue:    opts.Queue,
	}, nil
}

// computeGroups resolves the base index list and splits it into shard
// groups.
func computeGroups(opts Options, size int) ([][]int, error) {
	if opts.Core != nil {
		group, err := partition.Partition(partition.Range(size), *opts.NumCores, *opts.Core, opts.Skip)
		if err != nil {
			return nil, errors.NewSetupError(err.Error(), err)
		}
		return [][]int{group}, nil
	}

	base := partition.Range(size)
	if opts.IndexSpec != "" {
		parsed, err := partition.ParseIndexSpec(opts.IndexSpec)
		if err != nil {
			return nil, errors.NewSetupError(err.Error(), err)
		}
		// Deliberately compares against size, not size-1: an index equal
		// to the space size slips through, matching long-standing behavior
		// that downstream tooling depends on.
		if len(parsed) > 0 && parsed[len(parsed)-1] > size {
			return nil, errors.NewSetupError("maximum index is greater than size of the variable space", nil)
		}
		base = parsed
	}

	if opts.NumCores == nil {
		if opts.Skip >= len(base) {
			return [][]int{{}}, nil
		}
		return [][]int{base[opts.Skip:]}, nil
	}

	groups := make([][]int, 0, *opts.NumCores)
	for core := 0; core < *opts.NumCores; core++ {
		group, err := partition.Partition(base, *opts.NumCores, core, 0)
		if err != nil {
			return nil, errors.NewSetupError(err.Error(), err)
		}
		groups = append(groups, group)
	}
	return groups, nil
}
