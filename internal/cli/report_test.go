package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/rstagree/internal/models"
	"github.com/hyperjump/rstagree/internal/rst"
)

func sampleReport() *models.Report {
	return &models.Report{
		Title: "Total",
		Rows: []models.ReportRow{
			{Element: "segments", Overlap: 3, Markables1: 4, Markables2: 4, Total: 4, Kappa: 0.5},
			{Element: "message_relations", Overlap: 1, Markables1: 1, Markables2: 1, Total: 1, Kappa: 1},
		},
		Diffs: []models.Diff{{Element: "segments", Text: "m1\tI think so.<1> Really.<>"}},
	}
}

func TestWriteReport_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, sampleReport(), OutputText); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != "Total" {
		t.Errorf("title line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Element                  Overlap        ") {
		t.Errorf("header = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "segments                 3              4") || !strings.Contains(lines[2], "50.00%") {
		t.Errorf("segments row = %q", lines[2])
	}
	if lines[3] != "#\tsegments" || lines[4] != "m1\tI think so.<1> Really.<>" {
		t.Errorf("diff block = %q / %q", lines[3], lines[4])
	}
	if !strings.Contains(lines[5], "100.00%") {
		t.Errorf("relations row = %q", lines[5])
	}
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, sampleReport(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded.Rows) != 2 || decoded.Rows[0].Kappa != 0.5 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteFileReports(t *testing.T) {
	files := []*models.FileResult{
		{Source: "/src/d1.xml", Report: sampleReport(), Warnings: []string{"m2: unit missing"}},
		{Source: "/src/d3.xml", Skipped: true, Error: "bad format"},
	}
	var buf bytes.Buffer
	if err := WriteFileReports(&buf, files, sampleReport(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"WARNING: m2: unit missing", "Skipped /src/d3.xml: bad format"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "Element ") != 2 {
		t.Errorf("want one table per compared file plus the total:\n%s", out)
	}
}

func TestWriteRelations(t *testing.T) {
	inst := []rst.RelationInstance{
		{Relation: "elaboration", Unit: "m1", NucleusText: "I think so.", SatelliteText: "Really."},
		{Relation: "list", Unit: "m2", NucleusText: "Apples.", SatelliteText: "Oranges.", Multinuclear: true},
	}
	var buf bytes.Buffer
	if err := WriteRelations(&buf, "d1.rst", inst, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "d1.rst\tm1\telaboration\nNucleus:\tI think so.\nSatellite:\tReally.\n") {
		t.Errorf("hypotactic block missing:\n%s", out)
	}
	if !strings.Contains(out, "Nucleus:\tApples.\nNucleus:\tOranges.\n") {
		t.Errorf("multinuclear block missing:\n%s", out)
	}
}

func TestWriteRuns(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteRuns(&buf, nil, OutputText)
	if !strings.Contains(buf.String(), "No stored runs") {
		t.Errorf("empty list output = %q", buf.String())
	}
	buf.Reset()
	runs := []*models.Run{{ID: "r1", SourceDir: "/src", Files: 3, Skipped: 1, CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}}
	_ = WriteRuns(&buf, runs, OutputText)
	if !strings.Contains(buf.String(), "r1  2024-01-02 03:04:05  files=3 skipped=1  /src") {
		t.Errorf("run line = %q", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "TEXT": OutputText, "json": OutputJSON} {
		if got, err := ParseOutputFormat(in); err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

func TestWriteExcel(t *testing.T) {
	files := []*models.FileResult{
		{Source: "/src/d1.xml", Report: sampleReport()},
		{Source: "/src/d3.xml", Skipped: true, Error: "bad format"},
	}
	var buf bytes.Buffer
	if err := WriteExcel(&buf, sampleReport(), files); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][0] != "Element" || rows[1][0] != "segments" || rows[1][1] != "3" {
		t.Errorf("summary rows = %v", rows)
	}
	diffs, _ := f.GetRows(diffSheet)
	if len(diffs) != 2 || diffs[1][1] != "m1\tI think so.<1> Really.<>" {
		t.Errorf("diff rows = %v", diffs)
	}
	perFile, _ := f.GetRows(filesSheet)
	// header, two elements of d1, one skipped row
	if len(perFile) != 4 || perFile[3][0] != "/src/d3.xml" {
		t.Errorf("file rows = %v", perFile)
	}
}
