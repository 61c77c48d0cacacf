package corpus

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/rstagree/internal/agreement"
	"github.com/hyperjump/rstagree/internal/annotation"
	"github.com/hyperjump/rstagree/internal/config"
	"github.com/hyperjump/rstagree/internal/models"
	"github.com/hyperjump/rstagree/internal/storage"
)

// Job is a fully resolved measurement: where the corpus lives and how it is
// compared.
type Job struct {
	Layout  Layout
	Options agreement.Options
	Format  annotation.Format
	Workers int
	Nucleus []string
}

// NewJob resolves the configured defaults for measuring the corpus in the
// three directories. Zero values in req fall back to cfg.
func NewJob(cfg *config.Config, req *models.RunRequest) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	dims := req.Dimensions
	if len(dims) == 0 {
		dims = cfg.Agreement.Dimensions
	}
	checks, err := agreement.ParseChecks(dims)
	if err != nil {
		return nil, err
	}
	sweep, err := agreement.ParseSweep(cfg.Agreement.DiscussionSweep)
	if err != nil {
		return nil, err
	}
	format, err := annotation.ParseFormat(cfg.Corpus.AnnotationFormat)
	if err != nil {
		return nil, err
	}
	strict := cfg.Agreement.SegmentStrict
	if req.SegmentStrict != nil {
		strict = *req.SegmentStrict
	}
	return &Job{
		Layout: Layout{
			SourceDir:     req.SourceDir,
			Anno1Dir:      req.Anno1Dir,
			Anno2Dir:      req.Anno2Dir,
			SourcePattern: cfg.Corpus.SourcePattern,
			AnnoSuffix:    cfg.Corpus.AnnoSuffix,
			IgnoreFile:    cfg.Corpus.IgnoreFile,
		},
		Options: agreement.Options{
			Checks:        checks,
			SegmentStrict: strict,
			Diff:          req.OutputDifference || cfg.Agreement.OutputDifference,
			Sweep:         sweep,
		},
		Format:  format,
		Workers: cfg.Agreement.Workers,
		Nucleus: cfg.Agreement.NucleusRelations,
	}, nil
}

// Execute discovers the pairs of the corpus and measures them.
func (j *Job) Execute(ctx context.Context, logger *zap.Logger, opts ...Option) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pairs, err := Discover(j.Layout, logger)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no annotated source files found in %s", j.Layout.SourceDir)
	}
	eval := agreement.NewEvaluator(j.Options, agreement.WithLogger(logger))
	base := []Option{
		WithLogger(logger),
		WithWorkers(j.Workers),
		WithFormat(j.Format),
		WithNucleusRelations(j.Nucleus),
	}
	return NewRunner(eval, append(base, opts...)...).Run(ctx, pairs)
}

// NewRun returns an unsaved run record describing j.
func (j *Job) NewRun() *models.Run {
	dims := j.Options.Checks.Dimensions()
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = string(d)
	}
	return &models.Run{
		ID:            uuid.New().String(),
		SourceDir:     j.Layout.SourceDir,
		Anno1Dir:      j.Layout.Anno1Dir,
		Anno2Dir:      j.Layout.Anno2Dir,
		Dimensions:    names,
		SegmentStrict: j.Options.SegmentStrict,
		CreatedAt:     time.Now(),
	}
}

// Store persists run and every file outcome of res.
func Store(ctx context.Context, s storage.Storage, run *models.Run, res *Result) error {
	if err := s.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	for i := range res.Files {
		f := &res.Files[i]
		if err := s.SaveFile(ctx, run.ID, &f.FileResult, f.Stats); err != nil {
			return fmt.Errorf("failed to save %s: %w", f.Source, err)
		}
	}
	run.Files = len(res.Files)
	run.Skipped = res.Skipped()
	if err := s.FinishRun(ctx, run.ID, run.Files, run.Skipped); err != nil {
		return err
	}
	run.Report = res.Report
	return nil
}
