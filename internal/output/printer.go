// Package output renders execution plans for dry runs.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/justinnhli/clusterun/internal/partition"
	"github.com/justinnhli/clusterun/internal/plan"
	"github.com/justinnhli/clusterun/internal/space"
)

// Mode defines the available plan output modes
type Mode string

const (
	// TextMode prints the human-readable plan
	TextMode Mode = "text"

	// JSONMode emits the plan as a single JSON object
	JSONMode Mode = "json"
)

// Printer renders an execution plan to a writer
type Printer struct {
	mode   Mode
	writer io.Writer
}

// NewPrinter creates a printer with the specified mode and writer
func NewPrinter(mode Mode, writer io.Writer) *Printer {
	if writer == nil {
		writer = os.Stdout
	}
	return &Printer{mode: mode, writer: writer}
}

// PrintPlan renders the plan
func (p *Printer) PrintPlan(pl *plan.Plan) error {
	switch p.mode {
	case JSONMode:
		return p.printJSON(pl)
	case TextMode:
		return p.printText(pl)
	default:
		return fmt.Errorf("unknown output mode: %s", p.mode)
	}
}

// printText renders the plan as the classic dry-run report
func (p *Printer) printText(pl *plan.Plan) error {
	fmt.Fprintln(p.writer, "Command:")
	fmt.Fprintf(p.writer, "    %s\n", pl.Command)
	fmt.Fprintln(p.writer)

	variables := pl.Space.Variables()
	fmt.Fprintf(p.writer, "%d variable(s):\n", len(variables))
	for _, variable := range variables {
		reprs := make([]string, len(variable.Values))
		for i, value := range variable.Values {
			reprs[i] = space.FormatValue(value)
		}
		fmt.Fprintf(p.writer, "    %s (%d): %s\n", variable.Name, len(variable.Values), strings.Join(reprs, ", "))
	}
	fmt.Fprintln(p.writer)

	if pl.Dispatch {
		fmt.Fprintf(p.writer, "dispatching %d out of %d permutations, to %d parallel job(s):\n",
			pl.Selected(), pl.Size, len(pl.Groups))
		for jobNumber, indices := range pl.Groups {
			fmt.Fprintf(p.writer, "    job %d (%d): %s\n",
				jobNumber+1, len(indices), strings.Join(strings.Split(partition.FormatIndices(indices), ","), ", "))
		}
	} else {
		fmt.Fprintf(p.writer, "running %d out of %d permutations\n", pl.Selected(), pl.Size)
	}
	return nil
}

// jsonPlan is the JSON structure for machine-readable plan output
type jsonPlan struct {
	Mode      string         `json:"mode"`
	Command   string         `json:"command"`
	Size      int            `json:"total_permutations"`
	Selected  int            `json:"selected_permutations"`
	Dispatch  bool           `json:"dispatch"`
	Variables []jsonVariable `json:"variables"`
	Groups    [][]int        `json:"groups"`
}

// jsonVariable is one variable in machine-readable plan output
type jsonVariable struct {
	Name   string `json:"name"`
	Count  int    `json:"count"`
	Values []any  `json:"values"`
}

// printJSON renders the plan as a single JSON object
func (p *Printer) printJSON(pl *plan.Plan) error {
	report := jsonPlan{
		Mode:     pl.Mode.String(),
		Command:  pl.Command,
		Size:     pl.Size,
		Selected: pl.Selected(),
		Dispatch: pl.Dispatch,
		Groups:   pl.Groups,
	}
	for _, variable := range pl.Space.Variables() {
		report.Variables = append(report.Variables, jsonVariable{
			Name:   variable.Name,
			Count:  len(variable.Values),
			Values: variable.Values,
		})
	}

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	fmt.Fprintf(p.writer, "%s\n", encoded)
	return nil
}
