package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/rstagree/internal/cli"
	"github.com/hyperjump/rstagree/internal/config"
	"github.com/hyperjump/rstagree/internal/corpus"
	"github.com/hyperjump/rstagree/internal/models"
	"github.com/hyperjump/rstagree/internal/storage"
	"github.com/hyperjump/rstagree/internal/watcher"
)

// measureFlags are shared by measure and watch.
type measureFlags struct {
	configPath string
	annoSuffix string
	srcPattern string
	fileFormat string
	sweep      string
	output     string
	xlsx       string
	dimensions stringList
	outputDiff bool
	strict     bool
	verbose    bool
	store      bool
	debug      bool
	workers    int
}

func newMeasureFlagSet(name string, mf *measureFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&mf.configPath, "config", defaultConfigPath, "config file path")
	fs.StringVar(&mf.annoSuffix, "anno-sfx", "", "suffix of annotation files (default from config, \".rst\")")
	fs.StringVar(&mf.srcPattern, "src-ptrn", "", "shell pattern of source files (default from config, \"*.xml\")")
	fs.StringVar(&mf.fileFormat, "file-format", "", "annotation file format: auto, xml or tsv")
	fs.StringVar(&mf.sweep, "sweep", "", "discussion-level candidate intervals: shared or units")
	fs.StringVar(&mf.output, "output", "text", "output format: text or json")
	fs.StringVar(&mf.xlsx, "xlsx", "", "also write the report as an XLSX workbook to this path")
	fs.Var(&mf.dimensions, "type", "dimension to measure (repeatable): segments, message_nuclearity, discussion_nuclearity, message_relations, discussion_relations or all")
	fs.BoolVar(&mf.outputDiff, "output-difference", false, "print the differences between the annotations")
	fs.BoolVar(&mf.outputDiff, "d", false, "shorthand for --output-difference")
	fs.BoolVar(&mf.strict, "segment-strict", false, "do not credit agreement on non-boundaries")
	fs.BoolVar(&mf.verbose, "verbose", false, "print statistics for every file")
	fs.BoolVar(&mf.verbose, "v", false, "shorthand for --verbose")
	fs.BoolVar(&mf.store, "store", false, "store the run in the database")
	fs.BoolVar(&mf.debug, "debug", false, "enable debug logging")
	fs.IntVar(&mf.workers, "workers", 0, "number of file pairs compared concurrently")
	return fs
}

// apply overrides cfg with the flags given on the command line.
func (mf *measureFlags) apply(cfg *config.Config, set map[string]bool) {
	if mf.annoSuffix != "" {
		cfg.Corpus.AnnoSuffix = mf.annoSuffix
	}
	if mf.srcPattern != "" {
		cfg.Corpus.SourcePattern = mf.srcPattern
	}
	if mf.fileFormat != "" {
		cfg.Corpus.AnnotationFormat = mf.fileFormat
	}
	if mf.sweep != "" {
		cfg.Agreement.DiscussionSweep = mf.sweep
	}
	if mf.workers > 0 {
		cfg.Agreement.Workers = mf.workers
	}
	if len(mf.dimensions) > 0 {
		cfg.Agreement.Dimensions = mf.dimensions
	}
	if set["segment-strict"] {
		cfg.Agreement.SegmentStrict = mf.strict
	}
	if set["output-difference"] || set["d"] {
		cfg.Agreement.OutputDifference = mf.outputDiff
	}
	if mf.debug {
		cfg.Debug = true
	}
}

// parseMeasureArgs parses flags and the three corpus directories.
func parseMeasureArgs(name string, args []string) (*config.Config, *measureFlags, *models.RunRequest) {
	mf := &measureFlags{}
	fs := newMeasureFlagSet(name, mf)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: rstagree %s [flags] <src_dir> <anno1_dir> <anno2_dir>\n\n", name)
		fs.PrintDefaults()
	}
	dirs, err := parseInterspersed(fs, args)
	if err != nil || len(dirs) != 3 {
		fs.Usage()
		os.Exit(1)
	}
	cfg, _, err := loadConfig(mf.configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	mf.apply(cfg, flagsSet(fs))
	return cfg, mf, &models.RunRequest{
		SourceDir: dirs[0],
		Anno1Dir:  dirs[1],
		Anno2Dir:  dirs[2],
	}
}

func runMeasure() {
	cfg, mf, req := parseMeasureArgs("measure", os.Args[2:])
	format, err := cli.ParseOutputFormat(mf.output)
	if err != nil {
		fatalf("%v", err)
	}
	logger := mustLogger(cfg.Debug)
	defer logger.Sync()

	job, err := corpus.NewJob(cfg, req)
	if err != nil {
		fatalf("Invalid arguments: %v", err)
	}
	ctx, stop := signalContext()
	defer stop()

	res, err := job.Execute(ctx, logger)
	if err != nil {
		fatalf("Failed to measure agreement: %v", err)
	}
	if err := writeResult(os.Stdout, res, format, mf.verbose); err != nil {
		fatalf("Output failed: %v", err)
	}
	if mf.xlsx != "" {
		if err := writeExcelFile(mf.xlsx, res.Report, fileResults(res)); err != nil {
			fatalf("Failed to write %s: %v", mf.xlsx, err)
		}
	}
	if mf.store {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			fatalf("Failed to open storage: %v", err)
		}
		defer store.Close()
		run := job.NewRun()
		if err := corpus.Store(ctx, store, run, res); err != nil {
			fatalf("Failed to store run: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Stored run %s\n", run.ID)
	}
}

func writeResult(w io.Writer, res *corpus.Result, format cli.OutputFormat, verbose bool) error {
	if verbose {
		return cli.WriteFileReports(w, fileResults(res), res.Report, format)
	}
	return cli.WriteReport(w, res.Report, format)
}

func fileResults(res *corpus.Result) []*models.FileResult {
	out := make([]*models.FileResult, len(res.Files))
	for i := range res.Files {
		out[i] = &res.Files[i].FileResult
	}
	return out
}

func writeExcelFile(path string, report *models.Report, files []*models.FileResult) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := cli.WriteExcel(f, report, files); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runWatch() {
	cfg, mf, req := parseMeasureArgs("watch", os.Args[2:])
	format, err := cli.ParseOutputFormat(mf.output)
	if err != nil {
		fatalf("%v", err)
	}
	logger := mustLogger(cfg.Debug)
	defer logger.Sync()

	job, err := corpus.NewJob(cfg, req)
	if err != nil {
		fatalf("Invalid arguments: %v", err)
	}
	ctx, stop := signalContext()
	defer stop()

	measure := func() {
		res, err := job.Execute(ctx, logger)
		if err != nil {
			logger.Warn("measurement failed", zap.Error(err))
			return
		}
		fmt.Printf("\n=== %s ===\n", time.Now().Format("15:04:05"))
		if err := writeResult(os.Stdout, res, format, mf.verbose); err != nil {
			logger.Warn("output failed", zap.Error(err))
		}
	}
	measure()

	roots := []string{req.SourceDir, req.Anno1Dir, req.Anno2Dir}
	w := watcher.NewWatcher(roots, cfg.Watch.Extensions, cfg.Watch.RecursiveOrDefault(),
		func(changes []watcher.Change) {
			logger.Info("files changed", zap.Strings("bases", changedBases(changes, cfg.Corpus.AnnoSuffix)))
			measure()
		},
		watcher.WithLogger(logger),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMillis)*time.Millisecond),
	)
	if err := w.Start(ctx); err != nil {
		fatalf("Failed to start watcher: %v", err)
	}
	defer w.Stop()
	fmt.Fprintf(os.Stderr, "Watching %v (Ctrl+C to stop)\n", roots)
	<-ctx.Done()
}

// changedBases returns the sorted distinct pairing base names of changes.
func changedBases(changes []watcher.Change, annoSuffix string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range changes {
		base := corpus.BaseOf(c.Path, annoSuffix)
		if !seen[base] {
			seen[base] = true
			out = append(out, base)
		}
	}
	sort.Strings(out)
	return out
}

// ensureDir is used before creating files below path's directory.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
