package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/rstagree/internal/config"
	"github.com/hyperjump/rstagree/internal/corpus"
	"github.com/hyperjump/rstagree/internal/models"
	"github.com/hyperjump/rstagree/internal/watcher"
)

func TestParseInterspersed(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantPos  []string
		wantD    bool
		wantType []string
	}{
		{"flags first", []string{"-d", "--type", "segments", "src", "a1", "a2"}, []string{"src", "a1", "a2"}, true, []string{"segments"}},
		{"flags last", []string{"src", "a1", "a2", "-d"}, []string{"src", "a1", "a2"}, true, nil},
		{"flags between", []string{"src", "--type", "segments", "a1", "--type=message_relations", "a2"}, []string{"src", "a1", "a2"}, false, []string{"segments", "message_relations"}},
		{"no flags", []string{"src", "a1", "a2"}, []string{"src", "a1", "a2"}, false, nil},
		{"empty", nil, nil, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mf := &measureFlags{}
			fs := newMeasureFlagSet("measure", mf)
			got, err := parseInterspersed(fs, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.wantPos) {
				t.Errorf("positional = %v, want %v", got, tt.wantPos)
			}
			if mf.outputDiff != tt.wantD {
				t.Errorf("output-difference = %v, want %v", mf.outputDiff, tt.wantD)
			}
			if !reflect.DeepEqual([]string(mf.dimensions), tt.wantType) {
				t.Errorf("type = %v, want %v", mf.dimensions, tt.wantType)
			}
		})
	}
}

func TestParseInterspersed_unknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	if _, err := parseInterspersed(fs, []string{"a", "--nope"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestStringList(t *testing.T) {
	var s stringList
	_ = s.Set("segments, message_relations")
	_ = s.Set("discussion_relations")
	if want := []string{"segments", "message_relations", "discussion_relations"}; !reflect.DeepEqual([]string(s), want) {
		t.Errorf("stringList = %v", s)
	}
	if s.String() != "segments,message_relations,discussion_relations" {
		t.Errorf("String() = %s", s.String())
	}
}

func TestMeasureFlags_apply(t *testing.T) {
	mf := &measureFlags{}
	fs := newMeasureFlagSet("measure", mf)
	if _, err := parseInterspersed(fs, []string{"--anno-sfx", ".tsv", "--segment-strict=false", "--workers", "2", "--sweep", "units", "s", "a", "b"}); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{Agreement: config.AgreementConfig{SegmentStrict: true, OutputDifference: true}}
	config.ApplyDefaults(cfg)
	mf.apply(cfg, flagsSet(fs))

	if cfg.Corpus.AnnoSuffix != ".tsv" || cfg.Corpus.SourcePattern != "*.xml" {
		t.Errorf("corpus = %+v", cfg.Corpus)
	}
	if cfg.Agreement.SegmentStrict {
		t.Error("an explicit --segment-strict=false should override the config")
	}
	if !cfg.Agreement.OutputDifference {
		t.Error("an unset -d should keep the configured value")
	}
	if cfg.Agreement.Workers != 2 || cfg.Agreement.DiscussionSweep != "units" {
		t.Errorf("agreement = %+v", cfg.Agreement)
	}
}

func TestChangedBases(t *testing.T) {
	changes := []watcher.Change{
		{Path: "/a1/d2.tsv"},
		{Path: "/a2/d1.tsv"},
		{Path: "/a1/d1.tsv", Removed: true},
		{Path: "/src/d1.xml"},
	}
	if got := changedBases(changes, ".tsv"); !reflect.DeepEqual(got, []string{"d1", "d2"}) {
		t.Errorf("changedBases = %v", got)
	}
}

func TestLoadConfig_fallbacks(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()

	cfg, path, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if path != defaultConfigPath || cfg.Server.Port != 8080 {
		t.Errorf("without any config file: path %s port %d", path, cfg.Server.Port)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9999\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, path, err = loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "config.yaml") || cfg.Server.Port != 9999 {
		t.Errorf("cwd config.yaml not used: path %s port %d", path, cfg.Server.Port)
	}

	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("an explicit missing config should fail")
	}
}

func TestWriteResult(t *testing.T) {
	res := &corpus.Result{
		Files: []corpus.FileOutcome{
			{FileResult: models.FileResult{Source: "d1.xml", Report: &models.Report{Title: "Statistics on file d1.xml"}}},
		},
		Report: &models.Report{Title: "Total"},
	}
	var buf bytes.Buffer
	if err := writeResult(&buf, res, "text", true); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Statistics on file d1.xml") || !strings.Contains(out, "Total") {
		t.Errorf("verbose output = %q", out)
	}
	buf.Reset()
	_ = writeResult(&buf, res, "text", false)
	if strings.Contains(buf.String(), "d1.xml") {
		t.Errorf("non-verbose output should only hold the total: %q", buf.String())
	}
}
