// Package command renders the command line that re-runs a shard group's
// permutations on a (possibly remote) worker.
package command

import (
	"fmt"
	"strings"

	"github.com/justinnhli/clusterun/internal/partition"
	"github.com/justinnhli/clusterun/internal/space"
)

// Materializer renders recursive self-invocation commands. The executable
// is located explicitly rather than introspected from the running process,
// so an embedding caller can point workers at a different entry point.
type Materializer struct {
	executable string
}

// NewMaterializer creates a materializer that re-invokes the given
// executable
func NewMaterializer(executable string) (*Materializer, error) {
	if executable == "" {
		return nil, fmt.Errorf("executable must not be empty")
	}
	return &Materializer{executable: executable}, nil
}

// Render produces the command line that re-runs exactly the given indices.
// The original command and each variable literal are shell-quoted and
// re-encoded round-trippably, and dispatch is forced off so the recursive
// invocation always executes locally.
func (m *Materializer) Render(userCommand string, variables []space.Variable, indices []int) (string, error) {
	parts := []string{
		Quote(m.executable),
		"--command " + Quote(userCommand),
	}
	for _, variable := range variables {
		literal, err := space.FormatValues(variable.Values)
		if err != nil {
			return "", fmt.Errorf("failed to render variable %q: %w", variable.Name, err)
		}
		parts = append(parts, "--variable "+Quote(variable.Name+"="+literal))
	}
	parts = append(parts, "--index "+partition.FormatIndices(indices))
	parts = append(parts, "--dispatch false")
	return strings.Join(parts, " "), nil
}

// Quote returns s quoted for use as a single word in a POSIX shell command
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if !needsQuoting(s) {
		return s
	}
	// Single quotes preserve everything except single quotes themselves,
	// which are closed, escaped, and reopened.
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// needsQuoting reports whether s contains characters the shell would
// interpret
func needsQuoting(s string) bool {
	const safe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_@%+=:,./-"
	for _, r := range s {
		if !strings.ContainsRune(safe, r) {
			return true
		}
	}
	return false
}
