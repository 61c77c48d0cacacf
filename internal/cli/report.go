// Package cli renders agreement reports, relation listings and stored runs
// for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/rstagree/internal/models"
	"github.com/hyperjump/rstagree/internal/rst"
	"github.com/hyperjump/rstagree/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates an output format name. The empty string means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

const rowFormat = "%-25s%-15s%-15s%-15s%-15s%-15s\n"

// WriteReport writes an agreement table to w. In text form the differences
// of each element follow its row, each introduced by "#\t<element>".
func WriteReport(w io.Writer, report *models.Report, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	if report.Title != "" {
		fmt.Fprintln(w, report.Title)
	}
	fmt.Fprintf(w, rowFormat, "Element", "Overlap", "Markables1", "Markables2", "Total", "Kappa")
	for _, row := range report.Rows {
		fmt.Fprintf(w, rowFormat, row.Element,
			fmt.Sprint(row.Overlap), fmt.Sprint(row.Markables1), fmt.Sprint(row.Markables2),
			fmt.Sprint(row.Total), utils.Percent(row.Kappa))
		for _, d := range report.Diffs {
			if d.Element == row.Element {
				fmt.Fprintf(w, "#\t%s\n%s\n", d.Element, d.Text)
			}
		}
	}
	return nil
}

// WriteFileReports writes the per-file tables of a run, then its total.
func WriteFileReports(w io.Writer, files []*models.FileResult, total *models.Report, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			Files []*models.FileResult `json:"files"`
			Total *models.Report       `json:"total"`
		}{files, total})
	}
	for _, f := range files {
		if f.Skipped {
			fmt.Fprintf(w, "Skipped %s: %s\n\n", f.Source, f.Error)
			continue
		}
		if f.Report == nil {
			continue
		}
		for _, warn := range f.Warnings {
			fmt.Fprintf(w, "WARNING: %s\n", warn)
		}
		if err := WriteReport(w, f.Report, format); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return WriteReport(w, total, format)
}

// WriteRelations lists nucleus and satellite of each relation instance,
// one block per instance.
func WriteRelations(w io.Writer, file string, instances []rst.RelationInstance, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			File      string                 `json:"file"`
			Relations []rst.RelationInstance `json:"relations"`
		}{file, instances})
	}
	for _, inst := range instances {
		role := "Satellite"
		if inst.Multinuclear {
			role = "Nucleus"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", file, inst.Unit, inst.Relation)
		fmt.Fprintf(w, "Nucleus:\t%s\n", inst.NucleusText)
		fmt.Fprintf(w, "%s:\t%s\n\n", role, inst.SatelliteText)
	}
	return nil
}

// WriteRelationHits writes relation search results.
func WriteRelationHits(w io.Writer, hits []*models.RelationHit, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, hits)
	}
	fmt.Fprintf(w, "\nFound %d relation instances\n\n", len(hits))
	for i, h := range hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | %s\n", i+1, h.Score, h.Relation)
		fmt.Fprintf(w, "File: %s (unit %s)\n", h.File, h.Unit)
		fmt.Fprintf(w, "N: %s\n", utils.Truncate(h.NucleusText, 200))
		fmt.Fprintf(w, "S: %s\n\n", utils.Truncate(h.SatelliteText, 200))
	}
	return nil
}

// WriteRuns lists stored runs, newest first.
func WriteRuns(w io.Writer, runs []*models.Run, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No stored runs.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  files=%d skipped=%d  %s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Files, r.Skipped, r.SourceDir)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
