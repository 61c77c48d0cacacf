package agreement

import (
	"fmt"

	"github.com/hyperjump/rstagree/internal/models"
)

// Summarize turns statistics into a report, one row per measured dimension in
// report order. Kappa is computed once from each (possibly aggregated) matrix.
func Summarize(stats Stats, title string) (*models.Report, error) {
	r := &models.Report{Title: title, Rows: []models.ReportRow{}}
	for _, d := range AllDimensions {
		st, ok := stats[d]
		if !ok {
			continue
		}
		m1, m2 := st.Confusion.Marginals()
		overlap, total := st.Confusion.Overlap(), st.Confusion.Total()
		kappa, err := ComputeKappa(overlap, m1, m2, total)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d, err)
		}
		r.Rows = append(r.Rows, models.ReportRow{
			Element:    string(d),
			Overlap:    overlap,
			Markables1: sum(m1),
			Markables2: sum(m2),
			Total:      total,
			Kappa:      kappa,
		})
		for _, text := range st.Diffs {
			r.Diffs = append(r.Diffs, models.Diff{Element: string(d), Text: text})
		}
	}
	return r, nil
}
