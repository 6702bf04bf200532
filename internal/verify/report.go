package verify

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Report formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Write renders the report to w in format. Unknown formats fall back to text.
func (r Report) Write(w io.Writer, format string) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.jsonView())
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, res := range r.Results {
		t.AppendRow(table.Row{res.Name, statusText(res.Passed, format), res.Detail})
	}
	t.AppendFooter(table.Row{"", summary(r), fmt.Sprintf("%d tabs, %d panels, %d items", r.Tabs, r.Panels, r.Items)})

	if format != FormatMarkdown {
		t.SetStyle(table.StyleLight)
	}
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault

	if format == FormatMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}

func statusText(passed bool, format string) string {
	label := "FAIL"
	color := text.FgRed
	if passed {
		label, color = "PASS", text.FgGreen
	}
	if format == FormatText {
		return color.Sprint(label)
	}
	return label
}

func summary(r Report) string {
	failed := len(r.Failed())
	if failed == 0 {
		return "all passed"
	}
	return fmt.Sprintf("%d failed", failed)
}

type jsonResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

type jsonReport struct {
	OK      bool         `json:"ok"`
	Tabs    int          `json:"tabs"`
	Panels  int          `json:"panels"`
	Items   int          `json:"items"`
	Results []jsonResult `json:"results"`
}

func (r Report) jsonView() jsonReport {
	out := jsonReport{OK: r.OK(), Tabs: r.Tabs, Panels: r.Panels, Items: r.Items}
	for _, res := range r.Results {
		out.Results = append(out.Results, jsonResult(res))
	}
	return out
}
