// Package dispatch submits per-shard commands to the cluster batch queue.
package dispatch

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultScriptTemplate is the job script submitted to the queue. The
// structure (shebang, four PBS directives, blank line, command) is fixed
// for compatibility with the target batch scheduler.
const DefaultScriptTemplate = `#!/bin/sh
#PBS -N {{.JobName}}-{{.JobNumber}}
#PBS -q {{.Queue}}
#PBS -l nodes={{.NodeSpec}}:ppn=1,mem=1000mb,file=4gb
#PBS -r n

{{.Command}}
`

// ScriptParams provides the data available in job script templates
type ScriptParams struct {
	JobName   string // Base job name
	JobNumber int    // 1-based shard number
	Queue     string // Queue to submit to
	NodeSpec  string // Deployment node specification
	Command   string // Recursive command re-running this shard's indices
}

// ScriptEngine renders job scripts from the built-in or a site-specific
// template
type ScriptEngine struct {
	tmpl *template.Template
}

// NewScriptEngine creates an engine using the built-in PBS template
func NewScriptEngine() (*ScriptEngine, error) {
	return newScriptEngine(DefaultScriptTemplate)
}

// NewScriptEngineFromFile creates an engine from a site-specific template
// file
func NewScriptEngineFromFile(path string) (*ScriptEngine, error) {
	templateStr, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script template '%s': %w", path, err)
	}
	return newScriptEngine(string(templateStr))
}

func newScriptEngine(templateStr string) (*ScriptEngine, error) {
	tmpl, err := template.New("script").Funcs(templateFuncs()).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script template: %w", err)
	}
	return &ScriptEngine{tmpl: tmpl}, nil
}

// Render renders the job script for one shard
func (e *ScriptEngine) Render(params ScriptParams) (string, error) {
	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to execute script template: %w", err)
	}
	return buf.String(), nil
}

// templateFuncs returns the functions available to site-specific templates
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"title":     cases.Title(language.English).String,
		"trim":      strings.TrimSpace,
		"replace":   strings.ReplaceAll,
		"contains":  strings.Contains,
		"hasPrefix": strings.HasPrefix,
		"hasSuffix": strings.HasSuffix,
	}
}
