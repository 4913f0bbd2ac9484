// Package report renders a finished run for the terminal and for
// machine consumption. The JSON form is what --dry-run prints.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/MihirGambhire/linkedin-monitor/internal/capture"
	"github.com/MihirGambhire/linkedin-monitor/internal/digest"
)

// WriteJSON writes the digest, report included, to the provided writer
// in JSON format.
func WriteJSON(w io.Writer, d *digest.Digest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode digest: %w", err)
	}
	return nil
}

const textTmpl = `LinkedIn Keyword Monitor, run {{.Report.RunID}}
------------------------------------------------
Started:       {{.Report.StartedAt.Format "2006-01-02 15:04:05"}}
Duration:      {{.Report.Duration}}
Budget left:   {{.Report.BudgetRemaining}} searches

Categories:
{{- range .Report.Categories}}
  {{.Name}}: {{.Status}}{{if .Detail}} ({{.Detail}}){{end}}, {{.Results}} results
{{- else}}
  None
{{- end}}

Posts:         {{.Report.UniqueResults}} unique of {{.Report.TotalResults}} raw
Captures:      {{.CaptureLine}}
{{- range .Sections}}
{{- if .Entries}}

{{.Category}}:
{{- range .Entries}}
  [{{.Artifact.Status}}] {{.Post.Title}}
      {{.Post.URL}}
{{- end}}
{{- end}}
{{- end}}
`

type textData struct {
	*digest.Digest
	CaptureLine string
}

// WriteText writes a human-readable run summary to the provided writer.
func WriteText(w io.Writer, d *digest.Digest) error {
	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("failed to parse text template: %w", err)
	}

	if err := t.Execute(w, textData{Digest: d, CaptureLine: captureLine(d)}); err != nil {
		return fmt.Errorf("failed to render text report: %w", err)
	}

	return nil
}

// captureLine summarizes artifact outcomes as "3 ok, 1 timeout".
func captureLine(d *digest.Digest) string {
	order := []capture.Status{
		capture.StatusOK,
		capture.StatusLoginWallDismissed,
		capture.StatusTimeout,
		capture.StatusFailed,
		capture.StatusSkipped,
	}

	counts := make(map[capture.Status]int)
	for _, s := range d.Sections {
		for _, e := range s.Entries {
			counts[e.Artifact.Status]++
		}
	}

	var parts []string
	for _, status := range order {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
