package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/rstagree/internal/annotation"
	"github.com/hyperjump/rstagree/internal/cli"
	"github.com/hyperjump/rstagree/internal/corpus"
	"github.com/hyperjump/rstagree/internal/keyword"
	"github.com/hyperjump/rstagree/internal/models"
	"github.com/hyperjump/rstagree/internal/rst"
	"github.com/hyperjump/rstagree/internal/source"
	"github.com/hyperjump/rstagree/internal/storage"
)

func runShow() {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	fileFormat := fs.String("file-format", "auto", "annotation file format: auto, xml or tsv")
	unit := fs.String("unit", "", "only print the trees of this unit")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: rstagree show [flags] <source_file> <anno_file>\n\n")
		fs.PrintDefaults()
	}
	args, err := parseInterspersed(fs, os.Args[2:])
	if err != nil || len(args) != 2 {
		fs.Usage()
		os.Exit(1)
	}
	format, err := annotation.ParseFormat(*fileFormat)
	if err != nil {
		fatalf("%v", err)
	}
	logger := mustLogger(*debug)
	defer logger.Sync()

	text, err := source.Load(args[0])
	if err != nil {
		fatalf("Failed to read source: %v", err)
	}
	f, err := annotation.Load(args[1], format, text, rst.WithLogger(logger))
	if err != nil {
		fatalf("Failed to assemble %s: %v", args[1], err)
	}
	if *unit == "" {
		fmt.Println(rst.FormatForest(f))
		return
	}
	roots := f.UnitRoots(*unit)
	if len(roots) == 0 {
		fatalf("Unit %s is not annotated", *unit)
	}
	for _, n := range roots {
		fmt.Println(rst.Format(n, rst.Internal))
	}
}

func runRelations() {
	fs := flag.NewFlagSet("relations", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	search := fs.String("search", "", "search indexed relation instances for this text")
	relation := fs.String("relation", "", "restrict --search to this relation")
	fuzzy := fs.Bool("fuzzy", false, "typo-tolerant --search")
	limit := fs.Int("limit", 10, "number of search results")
	index := fs.Bool("index", false, "add the listed instances to the relation index")
	output := fs.String("output", "text", "output format: text or json")
	outFile := fs.String("o", "", "write the listing to this file instead of stdout")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: rstagree relations [flags] <src_dir> <anno_dir> [relation]\n")
		fmt.Fprintf(fs.Output(), "       rstagree relations --search <query> [--relation name] [--fuzzy]\n\n")
		fs.PrintDefaults()
	}
	args, err := parseInterspersed(fs, os.Args[2:])
	if err != nil {
		fs.Usage()
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fatalf("%v", err)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger := mustLogger(cfg.Debug || *debug)
	defer logger.Sync()
	ctx := context.Background()

	if *search != "" || (len(args) == 0 && *relation != "") {
		idx, err := openIndex(cfg)
		if err != nil {
			fatalf("Failed to open relation index: %v", err)
		}
		defer idx.Close()
		q := &models.RelationQuery{Query: *search, Relation: *relation, Limit: *limit}
		if err := q.Validate(); err != nil {
			fatalf("Invalid query: %v", err)
		}
		hits, err := idx.Search(ctx, q, &keyword.SearchOptions{FuzzyEnabled: *fuzzy})
		if err != nil {
			fatalf("Search failed: %v", err)
		}
		if err := cli.WriteRelationHits(os.Stdout, hits, format); err != nil {
			fatalf("Output failed: %v", err)
		}
		if len(hits) == 0 && q.Relation != "" {
			if names, err := idx.RelationNames(); err == nil {
				if sugg := keyword.SuggestRelations(q.Relation, names, 0); len(sugg) > 0 {
					fmt.Printf("Did you mean: %s?\n", strings.Join(sugg, ", "))
				}
			}
		}
		return
	}

	if len(args) < 2 || len(args) > 3 {
		fs.Usage()
		os.Exit(1)
	}
	relname := ""
	if len(args) == 3 {
		relname = args[2]
	}
	annoFormat, err := annotation.ParseFormat(cfg.Corpus.AnnotationFormat)
	if err != nil {
		fatalf("%v", err)
	}
	pairs, err := corpus.Discover(corpus.Layout{
		SourceDir:     args[0],
		Anno1Dir:      args[1],
		Anno2Dir:      args[1],
		SourcePattern: cfg.Corpus.SourcePattern,
		AnnoSuffix:    cfg.Corpus.AnnoSuffix,
		IgnoreFile:    cfg.Corpus.IgnoreFile,
	}, logger)
	if err != nil {
		fatalf("Failed to list corpus: %v", err)
	}

	var idx *keyword.BleveIndex
	if *index {
		if idx, err = openIndex(cfg); err != nil {
			fatalf("Failed to open relation index: %v", err)
		}
		defer idx.Close()
	}
	w := os.Stdout
	if *outFile != "" {
		if w, err = os.Create(*outFile); err != nil {
			fatalf("Failed to create %s: %v", *outFile, err)
		}
		defer w.Close()
	}

	total := 0
	for _, p := range pairs {
		instances, err := loadRelations(p, annoFormat, relname, cfg.Agreement.NucleusRelations, logger)
		if err != nil {
			logger.Warn("Skipping file", zap.String("file", p.Anno1), zap.Error(err))
			continue
		}
		total += len(instances)
		if err := cli.WriteRelations(w, p.Anno1, instances, format); err != nil {
			fatalf("Output failed: %v", err)
		}
		if idx != nil {
			if err := idx.IndexFile(ctx, p.Anno1, instances); err != nil {
				logger.Warn("Indexing failed", zap.String("file", p.Anno1), zap.Error(err))
			}
		}
	}
	logger.Info("relations listed", zap.Int("files", len(pairs)), zap.Int("instances", total))
}

func loadRelations(p corpus.Pair, format annotation.Format, relname string, nucleus []string, logger *zap.Logger) ([]rst.RelationInstance, error) {
	text, err := source.Load(p.Source)
	if err != nil {
		return nil, err
	}
	opts := []rst.AssemblerOption{rst.WithLogger(logger)}
	if len(nucleus) > 0 {
		opts = append(opts, rst.WithNucleusRelations(nucleus...))
	}
	f, err := annotation.Load(p.Anno1, format, text, opts...)
	if err != nil {
		return nil, err
	}
	return rst.Relations(f, relname), nil
}

func runRuns() {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	limit := fs.Int("limit", 20, "number of runs to list")
	verbose := fs.Bool("v", false, "show per-file statistics")
	xlsx := fs.String("xlsx", "", "write the report of 'runs show' as an XLSX workbook to this path")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: rstagree runs [flags] [list | show <id> | delete <id>]\n\n")
		fs.PrintDefaults()
	}
	args, err := parseInterspersed(fs, os.Args[2:])
	if err != nil {
		fs.Usage()
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fatalf("%v", err)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "list":
		runs, err := store.ListRuns(ctx, 0, *limit)
		if err != nil {
			fatalf("Failed to list runs: %v", err)
		}
		_ = cli.WriteRuns(os.Stdout, runs, format)
	case "show":
		if len(args) != 2 {
			fs.Usage()
			os.Exit(1)
		}
		run, err := store.GetRun(ctx, args[1])
		if err != nil {
			fatalf("Failed to load run: %v", err)
		}
		files, err := store.GetFiles(ctx, run.ID)
		if err != nil {
			fatalf("Failed to load files: %v", err)
		}
		if *verbose {
			err = cli.WriteFileReports(os.Stdout, files, run.Report, format)
		} else {
			err = cli.WriteReport(os.Stdout, run.Report, format)
		}
		if err != nil {
			fatalf("Output failed: %v", err)
		}
		if *xlsx != "" {
			if err := writeExcelFile(*xlsx, run.Report, files); err != nil {
				fatalf("Failed to write %s: %v", *xlsx, err)
			}
		}
	case "delete":
		if len(args) != 2 {
			fs.Usage()
			os.Exit(1)
		}
		if err := store.DeleteRun(ctx, args[1]); err != nil {
			fatalf("Failed to delete run: %v", err)
		}
		fmt.Printf("Deleted run %s\n", args[1])
	default:
		fmt.Printf("Unknown runs command: %s\n", sub)
		fs.Usage()
		os.Exit(1)
	}
}
