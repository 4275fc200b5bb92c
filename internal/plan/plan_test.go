package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinnhli/clusterun/internal/errors"
	"github.com/justinnhli/clusterun/internal/space"
)

func intPtr(i int) *int    { return &i }
func boolPtr(b bool) *bool { return &b }

func baseOptions() Options {
	return Options{
		Command: "echo $x",
		Variables: []space.Variable{
			{Name: "x", Values: []any{1, 2, 3, 4}},
		},
		JobName: "test-job",
		Queue:   "testq",
	}
}

func TestBuildValidation(t *testing.T) {
	t.Run("requires a command", func(t *testing.T) {
		opts := baseOptions()
		opts.Command = ""
		_, err := Build(opts)
		assert.ErrorContains(t, err, "--command must be set")
		assert.Equal(t, errors.SetupErrorType, errors.TypeOf(err))
	})

	t.Run("requires at least one variable", func(t *testing.T) {
		opts := baseOptions()
		opts.Variables = nil
		_, err := Build(opts)
		assert.ErrorContains(t, err, "at least one --variable")
	})

	t.Run("rejects duplicate variable names", func(t *testing.T) {
		opts := baseOptions()
		opts.Variables = []space.Variable{
			{Name: "x", Values: []any{1}},
			{Name: "x", Values: []any{2}},
		}
		_, err := Build(opts)
		assert.ErrorContains(t, err, "defined multiple times")
	})

	t.Run("core requires num-cores", func(t *testing.T) {
		opts := baseOptions()
		opts.Core = intPtr(0)
		_, err := Build(opts)
		assert.ErrorContains(t, err, "--num-cores must be set")
	})

	t.Run("core excludes index", func(t *testing.T) {
		opts := baseOptions()
		opts.NumCores = intPtr(2)
		opts.Core = intPtr(0)
		opts.IndexSpec = "0,1"
		_, err := Build(opts)
		assert.ErrorContains(t, err, "only one of --core and --index")
	})

	t.Run("dispatch false forbids num-cores", func(t *testing.T) {
		// Not silently downgraded to a local run: local runs with multiple
		// cores make no sense without dispatch.
		opts := baseOptions()
		opts.NumCores = intPtr(4)
		opts.Dispatch = boolPtr(false)
		_, err := Build(opts)
		assert.ErrorContains(t, err, "--num-cores must not be set if --dispatch=false")
	})

	t.Run("core must be less than num-cores", func(t *testing.T) {
		opts := baseOptions()
		opts.NumCores = intPtr(2)
		opts.Core = intPtr(2)
		_, err := Build(opts)
		assert.ErrorContains(t, err, "--core must be less than --num-cores")
	})

	t.Run("skip forbidden with multiple groups", func(t *testing.T) {
		opts := baseOptions()
		opts.NumCores = intPtr(2)
		opts.Skip = 2
		_, err := Build(opts)
		assert.ErrorContains(t, err, "--skip must not be set if running in parallel")
	})

	t.Run("rejects malformed index specifications", func(t *testing.T) {
		opts := baseOptions()
		opts.IndexSpec = "abc"
		_, err := Build(opts)
		assert.ErrorContains(t, err, "does not conform")
	})

	t.Run("rejects indices beyond the space size", func(t *testing.T) {
		opts := baseOptions()
		opts.IndexSpec = "0,5"
		_, err := Build(opts)
		assert.ErrorContains(t, err, "maximum index is greater than size")
	})

	t.Run("index equal to size slips through the bound check", func(t *testing.T) {
		// The check compares against size, not size-1. Long-standing
		// behavior, kept deliberately.
		opts := baseOptions()
		opts.IndexSpec = "4"
		pl, err := Build(opts)
		require.NoError(t, err)
		assert.Equal(t, [][]int{{4}}, pl.Groups)
	})
}

func TestBuildModeResolution(t *testing.T) {
	t.Run("defaults to local run", func(t *testing.T) {
		pl, err := Build(baseOptions())
		require.NoError(t, err)
		assert.Equal(t, ModeLocalRun, pl.Mode)
		assert.False(t, pl.Dispatch)
	})

	t.Run("num-cores alone triggers dispatch", func(t *testing.T) {
		opts := baseOptions()
		opts.NumCores = intPtr(4)
		pl, err := Build(opts)
		require.NoError(t, err)
		assert.Equal(t, ModeDispatch, pl.Mode)
		assert.Len(t, pl.Groups, 4)
	})

	t.Run("pinning a core disables auto-dispatch", func(t *testing.T) {
		opts := baseOptions()
		opts.NumCores = intPtr(4)
		opts.Core = intPtr(1)
		pl, err := Build(opts)
		require.NoError(t, err)
		assert.Equal(t, ModeLocalRun, pl.Mode)
	})

	t.Run("an explicit index list disables auto-dispatch", func(t *testing.T) {
		opts := baseOptions()
		opts.IndexSpec = "0,1"
		pl, err := Build(opts)
		require.NoError(t, err)
		assert.Equal(t, ModeLocalRun, pl.Mode)
	})

	t.Run("explicit dispatch overrides auto-detection", func(t *testing.T) {
		opts := baseOptions()
		opts.Dispatch = boolPtr(true)
		pl, err := Build(opts)
		require.NoError(t, err)
		assert.Equal(t, ModeDispatch, pl.Mode)
	})

	t.Run("dry-run wins over dispatch", func(t *testing.T) {
		opts := baseOptions()
		opts.NumCores = intPtr(2)
		opts.DryRun = true
		pl, err := Build(opts)
		require.NoError(t, err)
		assert.Equal(t, ModeDryRun, pl.Mode)
		assert.True(t, pl.Dispatch, "the resolved dispatch decision is preserved for the plan report")
	})
}

func TestBuildGroups(t *testing.T) {
	t.Run("single group covers the full range by default", func(t *testing.T) {
		pl, err := Build(baseOptions())
		require.NoError(t, err)
		assert.Equal(t, [][]int{{0, 1, 2, 3}}, pl.Groups)
		assert.Equal(t, 4, pl.Size)
		assert.Equal(t, 4, pl.Selected())
	})

	t.Run("skip drops initial indices from the single group", func(t *testing.T) {
		opts := baseOptions()
		opts.Skip = 2
		pl, err := Build(opts)
		require.NoError(t, err)
		assert.Equal(t, [][]int{{2, 3}}, pl.Groups)
	})

	t.Run("skip beyond the range yields an empty group", func(t *testing.T) {
		opts := baseOptions()
		opts.Skip = 10
		pl, err := Build(opts)
		require.NoError(t, err)
		require.Len(t, pl.Groups, 1)
		assert.Empty(t, pl.Groups[0])
	})

	t.Run("num-cores splits the base list by position", func(t *testing.T) {
		opts := baseOptions()
		opts.NumCores = intPtr(3)
		pl, err := Build(opts)
		require.NoError(t, err)
		assert.Equal(t, [][]int{{0, 3}, {1}, {2}}, pl.Groups)
	})

	t.Run("core selects one shard of the full range", func(t *testing.T) {
		opts := baseOptions()
		opts.NumCores = intPtr(2)
		opts.Core = intPtr(1)
		pl, err := Build(opts)
		require.NoError(t, err)
		assert.Equal(t, [][]int{{1, 3}}, pl.Groups)
	})

	t.Run("core honors skip", func(t *testing.T) {
		opts := baseOptions()
		opts.NumCores = intPtr(2)
		opts.Core = intPtr(0)
		opts.Skip = 1
		pl, err := Build(opts)
		require.NoError(t, err)
		assert.Equal(t, [][]int{{2}}, pl.Groups)
	})

	t.Run("explicit indices are partitioned by position", func(t *testing.T) {
		opts := baseOptions()
		opts.Variables = []space.Variable{
			{Name: "x", Values: []any{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		}
		opts.IndexSpec = "0,2-5,9"
		opts.NumCores = intPtr(2)
		opts.Dispatch = boolPtr(true)
		pl, err := Build(opts)
		require.NoError(t, err)
		// "2-5" expands to [2, 5), so the base list is [0, 2, 3, 4, 9].
		assert.Equal(t, [][]int{{0, 3, 9}, {2, 4}}, pl.Groups)
	})
}
