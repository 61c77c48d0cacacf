// Package models defines the data structures shared by the agreement engine,
// storage, the HTTP API and the CLI.
package models

import "time"

// ReportRow is the agreement summary for one element (dimension).
type ReportRow struct {
	Element    string  `json:"element"`
	Overlap    int     `json:"overlap"`
	Markables1 int     `json:"markables1"`
	Markables2 int     `json:"markables2"`
	Total      int     `json:"total"`
	Kappa      float64 `json:"kappa"`
}

// Diff is a difference between the two annotations kept for manual review.
type Diff struct {
	Element string `json:"element"`
	Text    string `json:"text"`
}

// Report is an agreement table plus the optional differences.
type Report struct {
	Title string      `json:"title,omitempty"`
	Rows  []ReportRow `json:"rows"`
	Diffs []Diff      `json:"diffs,omitempty"`
}

// Row returns the row for element.
func (r *Report) Row(element string) (ReportRow, bool) {
	for _, row := range r.Rows {
		if row.Element == element {
			return row, true
		}
	}
	return ReportRow{}, false
}

// Run is a stored corpus agreement measurement.
type Run struct {
	ID            string    `json:"id" db:"id"`
	SourceDir     string    `json:"source_dir" db:"source_dir"`
	Anno1Dir      string    `json:"anno1_dir" db:"anno1_dir"`
	Anno2Dir      string    `json:"anno2_dir" db:"anno2_dir"`
	Dimensions    []string  `json:"dimensions" db:"dimensions"`
	SegmentStrict bool      `json:"segment_strict" db:"segment_strict"`
	Files         int       `json:"files" db:"files"`
	Skipped       int       `json:"skipped" db:"skipped"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	Report        *Report   `json:"report,omitempty" db:"-"`
}

// FileResult is the outcome of comparing one file pair.
type FileResult struct {
	ID       string   `json:"id" db:"id"`
	Source   string   `json:"source" db:"source"`
	Anno1    string   `json:"anno1" db:"anno1"`
	Anno2    string   `json:"anno2" db:"anno2"`
	Skipped  bool     `json:"skipped" db:"skipped"`
	Error    string   `json:"error,omitempty" db:"error"`
	Warnings []string `json:"warnings,omitempty" db:"-"`
	Report   *Report  `json:"report,omitempty" db:"-"`
}
