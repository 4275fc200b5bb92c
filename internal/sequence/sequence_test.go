package sequence

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinnhli/clusterun/internal/errors"
	"github.com/justinnhli/clusterun/internal/logging"
	"github.com/justinnhli/clusterun/internal/sweep"
)

// fakeResolver serves symbols from a map instead of interpreting a file.
type fakeResolver struct {
	symbols map[string]any
	calls   []string
}

func (r *fakeResolver) Resolve(path string, name string) (any, error) {
	r.calls = append(r.calls, name)
	value, ok := r.symbols[name]
	if !ok {
		return nil, errors.NewResolutionError(fmt.Sprintf("no symbol %q", name), nil)
	}
	return value, nil
}

func testDependencies(writer io.Writer) sweep.Dependencies {
	return sweep.Dependencies{
		Logger:     logging.NewLogger(logging.Config{Level: logging.LevelError, Output: io.Discard}),
		Executable: "/opt/clusterun/bin/clusterun",
		Writer:     writer,
	}
}

func TestRun(t *testing.T) {
	t.Run("synthesizes the index variable over the space length", func(t *testing.T) {
		resolver := &fakeResolver{symbols: map[string]any{
			"ParamSpace": []string{"a", "b", "c"},
		}}
		var buf bytes.Buffer

		err := Run(context.Background(), Options{
			CodePath:  "/work/experiment.go",
			Callback:  "RunTrial",
			SpaceName: "ParamSpace",
			DryRun:    true,
			JobName:   "sweep",
			Queue:     "testq",
		}, resolver, testDependencies(&buf))
		require.NoError(t, err)

		out := buf.String()
		assert.Contains(t, out, "sequencerun_index (3): 0, 1, 2")
		assert.Contains(t, out, "running 3 out of 3 permutations")
	})

	t.Run("worker command re-invokes the exec entry point", func(t *testing.T) {
		resolver := &fakeResolver{symbols: map[string]any{
			"ParamSpace": []int{10, 20},
		}}
		var buf bytes.Buffer

		err := Run(context.Background(), Options{
			CodePath:  "/work/experiment.go",
			Callback:  "RunTrial",
			SpaceName: "ParamSpace",
			DryRun:    true,
			JobName:   "sweep",
			Queue:     "testq",
		}, resolver, testDependencies(&buf))
		require.NoError(t, err)

		out := buf.String()
		assert.Contains(t, out, "cd /work && ")
		assert.Contains(t, out, "exec /work/experiment.go RunTrial ParamSpace --index \"$sequencerun_index\"")
	})

	t.Run("quotes an executable path containing spaces", func(t *testing.T) {
		resolver := &fakeResolver{symbols: map[string]any{
			"ParamSpace": []int{1},
		}}
		var buf bytes.Buffer
		deps := testDependencies(&buf)
		deps.Executable = "/opt/my tools/clusterun"

		err := Run(context.Background(), Options{
			CodePath:  "/work/experiment.go",
			Callback:  "RunTrial",
			SpaceName: "ParamSpace",
			DryRun:    true,
			JobName:   "sweep",
			Queue:     "testq",
		}, resolver, deps)
		require.NoError(t, err)

		assert.Contains(t, buf.String(), "'/opt/my tools/clusterun' exec ")
	})

	t.Run("logs the space resolution", func(t *testing.T) {
		resolver := &fakeResolver{symbols: map[string]any{
			"ParamSpace": []int{1},
		}}
		var logs bytes.Buffer
		deps := testDependencies(io.Discard)
		deps.Logger = logging.NewLogger(logging.Config{Level: logging.LevelInfo, Output: &logs})

		err := Run(context.Background(), Options{
			CodePath:  "/work/experiment.go",
			Callback:  "RunTrial",
			SpaceName: "ParamSpace",
			DryRun:    true,
			JobName:   "sweep",
			Queue:     "testq",
		}, resolver, deps)
		require.NoError(t, err)

		assert.Contains(t, logs.String(), "symbol resolved")
		assert.Contains(t, logs.String(), "ParamSpace")
	})

	t.Run("explicit working directory overrides the code file's directory", func(t *testing.T) {
		resolver := &fakeResolver{symbols: map[string]any{
			"ParamSpace": []int{1},
		}}
		var buf bytes.Buffer

		err := Run(context.Background(), Options{
			CodePath:  "/work/experiment.go",
			Callback:  "RunTrial",
			SpaceName: "ParamSpace",
			Directory: "/scratch/run42",
			DryRun:    true,
			JobName:   "sweep",
			Queue:     "testq",
		}, resolver, testDependencies(&buf))
		require.NoError(t, err)

		assert.Contains(t, buf.String(), "cd /scratch/run42 && ")
	})

	t.Run("resolution failure surfaces as a resolution error", func(t *testing.T) {
		resolver := &fakeResolver{symbols: map[string]any{}}

		err := Run(context.Background(), Options{
			CodePath:  "/work/experiment.go",
			Callback:  "RunTrial",
			SpaceName: "Missing",
			DryRun:    true,
		}, resolver, testDependencies(io.Discard))
		assert.Equal(t, errors.ResolutionErrorType, errors.TypeOf(err))
	})
}

func TestExecIndex(t *testing.T) {
	// ExecIndex enters the code file's directory, so the path must exist.
	codePath := filepath.Join(t.TempDir(), "experiment.go")

	t.Run("invokes the callback on the indexed element", func(t *testing.T) {
		var got []string
		resolver := &fakeResolver{symbols: map[string]any{
			"ParamSpace": []string{"a", "b", "c"},
			"RunTrial":   func(s string) { got = append(got, s) },
		}}

		err := ExecIndex(codePath, "RunTrial", "ParamSpace", 1, resolver)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, got)
	})

	t.Run("converts the element to the callback parameter type", func(t *testing.T) {
		var got int64
		resolver := &fakeResolver{symbols: map[string]any{
			"ParamSpace": []int{5, 6, 7},
			"RunTrial":   func(n int64) { got = n },
		}}

		err := ExecIndex(codePath, "RunTrial", "ParamSpace", 2, resolver)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got)
	})

	t.Run("rejects an out-of-range index", func(t *testing.T) {
		resolver := &fakeResolver{symbols: map[string]any{
			"ParamSpace": []int{1, 2},
			"RunTrial":   func(int) {},
		}}

		err := ExecIndex(codePath, "RunTrial", "ParamSpace", 2, resolver)
		assert.Equal(t, errors.SetupErrorType, errors.TypeOf(err))
	})

	t.Run("rejects a callback that is not a one-argument function", func(t *testing.T) {
		resolver := &fakeResolver{symbols: map[string]any{
			"ParamSpace": []int{1},
			"RunTrial":   func(int, int) {},
		}}

		err := ExecIndex(codePath, "RunTrial", "ParamSpace", 0, resolver)
		assert.Equal(t, errors.ResolutionErrorType, errors.TypeOf(err))
	})

	t.Run("rejects an incompatible element type", func(t *testing.T) {
		resolver := &fakeResolver{symbols: map[string]any{
			"ParamSpace": []string{"a"},
			"RunTrial":   func(int) {},
		}}

		err := ExecIndex(codePath, "RunTrial", "ParamSpace", 0, resolver)
		assert.Equal(t, errors.ResolutionErrorType, errors.TypeOf(err))
	})
}

func TestMaterializeSpace(t *testing.T) {
	t.Run("accepts a slice", func(t *testing.T) {
		items, err := materializeSpace([]int{1, 2, 3}, "s")
		require.NoError(t, err)
		assert.Equal(t, 3, items.Len())
	})

	t.Run("calls a zero-argument factory", func(t *testing.T) {
		items, err := materializeSpace(func() []string { return []string{"a", "b"} }, "s")
		require.NoError(t, err)
		assert.Equal(t, 2, items.Len())
	})

	t.Run("unwraps a factory returning any", func(t *testing.T) {
		items, err := materializeSpace(func() any { return []int{1} }, "s")
		require.NoError(t, err)
		assert.Equal(t, 1, items.Len())
	})

	t.Run("rejects a scalar", func(t *testing.T) {
		_, err := materializeSpace(42, "s")
		assert.Equal(t, errors.ResolutionErrorType, errors.TypeOf(err))
	})

	t.Run("rejects a factory with arguments", func(t *testing.T) {
		_, err := materializeSpace(func(int) []int { return nil }, "s")
		assert.Equal(t, errors.ResolutionErrorType, errors.TypeOf(err))
	})
}
