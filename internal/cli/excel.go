package cli

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/rstagree/internal/models"
)

const (
	summarySheet = "Agreement"
	diffSheet    = "Differences"
	filesSheet   = "Files"
)

var summaryHeader = []any{"Element", "Overlap", "Markables1", "Markables2", "Total", "Kappa"}

// WriteExcel writes the report as an XLSX workbook: one sheet with the
// agreement table, one with the differences and, when files is non-empty,
// one row per file and element.
func WriteExcel(w io.Writer, report *models.Report, files []*models.FileResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	pct, err := f.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
	if err != nil {
		return err
	}
	if err := setRow(f, summarySheet, 1, summaryHeader); err != nil {
		return err
	}
	for i, row := range report.Rows {
		if err := setRow(f, summarySheet, i+2, reportCells(row)); err != nil {
			return err
		}
	}
	if len(report.Rows) > 0 {
		if err := f.SetCellStyle(summarySheet, "F2", fmt.Sprintf("F%d", len(report.Rows)+1), pct); err != nil {
			return err
		}
	}

	if len(report.Diffs) > 0 {
		if _, err := f.NewSheet(diffSheet); err != nil {
			return err
		}
		if err := setRow(f, diffSheet, 1, []any{"Element", "Difference"}); err != nil {
			return err
		}
		for i, d := range report.Diffs {
			if err := setRow(f, diffSheet, i+2, []any{d.Element, d.Text}); err != nil {
				return err
			}
		}
	}

	if len(files) > 0 {
		if _, err := f.NewSheet(filesSheet); err != nil {
			return err
		}
		header := append([]any{"Source", "Skipped"}, summaryHeader...)
		if err := setRow(f, filesSheet, 1, header); err != nil {
			return err
		}
		line := 2
		for _, fr := range files {
			if fr.Skipped || fr.Report == nil {
				if err := setRow(f, filesSheet, line, []any{fr.Source, true, fr.Error}); err != nil {
					return err
				}
				line++
				continue
			}
			for _, row := range fr.Report.Rows {
				cells := append([]any{fr.Source, false}, reportCells(row)...)
				if err := setRow(f, filesSheet, line, cells); err != nil {
					return err
				}
				line++
			}
		}
	}

	f.SetActiveSheet(0)
	_, err = f.WriteTo(w)
	return err
}

func reportCells(row models.ReportRow) []any {
	return []any{row.Element, row.Overlap, row.Markables1, row.Markables2, row.Total, row.Kappa}
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
