// Package renderer turns calculation results into markdown reports.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/finbook/portfolio"
)

//go:embed templates/*.md
var templates embed.FS

// SnapshotRenderOptions holds configuration for rendering a snapshot report.
type SnapshotRenderOptions struct {
	SkipPositions bool // Do not render the per-position section.
	SkipHistory   bool // Do not render the historical series section.
}

// RenderSnapshot renders a portfolio snapshot to a markdown string.
func RenderSnapshot(s *portfolio.PortfolioSnapshot, opts SnapshotRenderOptions) string {
	partials := map[string]string{
		"snapshot_title":  "templates/snapshot_title.md",
		"snapshot_totals": "templates/snapshot_totals.md",
	}
	if opts.SkipPositions {
		partials["snapshot_positions"] = ""
	} else {
		partials["snapshot_positions"] = "templates/snapshot_positions.md"
	}
	if opts.SkipHistory {
		partials["snapshot_history"] = ""
	} else {
		partials["snapshot_history"] = "templates/snapshot_history.md"
	}
	return renderTemplate("snapshot", "templates/snapshot.md", partials, newSnapshotView(s))
}

// RenderHistory renders a grouped historical series to a markdown string.
func RenderHistory(items []portfolio.HistoricalDataItem, p portfolio.Period) string {
	data := struct {
		Period string
		Items  []portfolio.HistoricalDataItem
	}{Period: p.String(), Items: items}
	return renderTemplate("history", "templates/history.md", nil, data)
}

// renderTemplate is a generic utility to render a main template that depends
// on several partials. An empty partial file name yields an empty template.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		if file != "" {
			content, err = fs.ReadFile(templates, file)
			if err != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
