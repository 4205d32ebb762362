package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/reportlens/core"
)

type renderer func(w io.Writer, report *core.StructuredReport) error

var renderers = map[string]renderer{
	"text": renderText,
	"json": renderJSON,
}

func renderText(w io.Writer, report *core.StructuredReport) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Report: %s (%d chunks)\n", report.Source, report.ChunkCount)

	if report.Notice != "" {
		fmt.Fprintf(&b, "Notice: %s\n", report.Notice)
	}

	grouped := report.EntitiesByCategory()
	if len(grouped) > 0 {
		b.WriteString("\nEntities:\n")
		for _, category := range report.Categories() {
			fmt.Fprintf(&b, "  %s: %s\n", category, strings.Join(grouped[category], ", "))
		}
	}

	if report.Summary != "" {
		fmt.Fprintf(&b, "\nSummary:\n  %s\n", report.Summary)
	}

	if report.Partial() {
		fmt.Fprintf(&b, "\nIncomplete: %d contribution(s) skipped\n", len(report.Failures))
		for _, f := range report.Failures {
			if f.ChunkIndex < 0 {
				fmt.Fprintf(&b, "  %s: %s\n", f.Stage, f.Err)
			} else {
				fmt.Fprintf(&b, "  chunk %d %s: %s\n", f.ChunkIndex, f.Stage, f.Err)
			}
		}
	}

	fmt.Fprintf(&b, "\n%s\n", report.Disclaimer)

	_, err := io.WriteString(w, b.String())
	return err
}

// renderJSON writes one object per line so that several reports form a
// JSON Lines stream.
func renderJSON(w io.Writer, report *core.StructuredReport) error {
	return json.NewEncoder(w).Encode(report.Map())
}
