package corpus

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/rstagree/internal/agreement"
	"github.com/hyperjump/rstagree/internal/annotation"
	"github.com/hyperjump/rstagree/internal/models"
	"github.com/hyperjump/rstagree/internal/rst"
	"github.com/hyperjump/rstagree/internal/source"
)

// DefaultWorkers is the number of file pairs compared concurrently.
const DefaultWorkers = 4

// FileOutcome is the result of one file pair together with its statistics.
// Stats is nil when the pair was skipped.
type FileOutcome struct {
	models.FileResult
	Stats agreement.Stats `json:"-"`
}

// Result is the outcome of a corpus run.
type Result struct {
	Files  []FileOutcome
	Stats  agreement.Stats
	Report *models.Report
}

// Skipped returns how many pairs did not contribute.
func (r *Result) Skipped() int {
	n := 0
	for _, f := range r.Files {
		if f.Skipped {
			n++
		}
	}
	return n
}

// Runner evaluates file pairs concurrently and aggregates their statistics.
type Runner struct {
	eval    *agreement.Evaluator
	format  annotation.Format
	nucleus []string
	workers int
	logger  *zap.Logger
	onFile  func(FileOutcome)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithWorkers sets how many pairs are compared at once.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithFormat forces the annotation file format.
func WithFormat(f annotation.Format) Option {
	return func(r *Runner) { r.format = f }
}

// WithNucleusRelations overrides the relation names that mark nuclei.
func WithNucleusRelations(names []string) Option {
	return func(r *Runner) { r.nucleus = names }
}

// WithFileCallback registers fn to be called after each pair. Calls may come
// from several goroutines at once.
func WithFileCallback(fn func(FileOutcome)) Option {
	return func(r *Runner) { r.onFile = fn }
}

// NewRunner returns a runner using eval for each pair.
func NewRunner(eval *agreement.Evaluator, opts ...Option) *Runner {
	r := &Runner{
		eval:    eval,
		format:  annotation.FormatAuto,
		workers: DefaultWorkers,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run compares every pair. A pair whose files are unreadable, malformed or
// structurally invalid is logged and skipped; a statistical invariant
// violation aborts the whole run. Kappa is computed once over the summed
// matrices.
func (r *Runner) Run(ctx context.Context, pairs []Pair) (*Result, error) {
	acc := agreement.NewAccumulator()
	files := make([]FileOutcome, len(pairs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}
			out, err := r.ComparePair(pair)
			if err != nil {
				return err
			}
			if !out.Skipped {
				acc.Add(out.Stats)
			}
			files[i] = out
			if r.onFile != nil {
				r.onFile(out)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := acc.Snapshot()
	report, err := agreement.Summarize(stats, "Total")
	if err != nil {
		return nil, err
	}
	r.logger.Info("Corpus measured",
		zap.Int("pairs", len(pairs)),
		zap.Int("compared", acc.Files()))
	return &Result{Files: files, Stats: stats, Report: report}, nil
}

// ComparePair measures agreement for a single pair. Recoverable problems
// are reported in the outcome; only invariant violations are returned as
// errors.
func (r *Runner) ComparePair(pair Pair) (FileOutcome, error) {
	out := FileOutcome{FileResult: models.FileResult{
		ID:     pair.ID,
		Source: pair.Source,
		Anno1:  pair.Anno1,
		Anno2:  pair.Anno2,
	}}
	skip := func(err error) (FileOutcome, error) {
		out.Skipped = true
		out.Error = err.Error()
		fields := []zap.Field{zap.String("source", pair.Source), zap.Error(err)}
		if rst.Recoverable(err) {
			r.logger.Warn("Skipping malformed annotation", fields...)
		} else {
			r.logger.Warn("Skipping file pair", fields...)
		}
		return out, nil
	}

	text, err := source.Load(pair.Source)
	if err != nil {
		return skip(err)
	}
	var opts []rst.AssemblerOption
	opts = append(opts, rst.WithLogger(r.logger.With(zap.String("source", filepath.Base(pair.Source)))))
	if len(r.nucleus) > 0 {
		opts = append(opts, rst.WithNucleusRelations(r.nucleus...))
	}
	a, err := annotation.Load(pair.Anno1, r.format, text, opts...)
	if err != nil {
		return skip(err)
	}
	b, err := annotation.Load(pair.Anno2, r.format, text, opts...)
	if err != nil {
		return skip(err)
	}

	stats, warnings, err := r.eval.Compare(a, b, text)
	if err != nil {
		return skip(err)
	}
	for _, w := range warnings {
		out.Warnings = append(out.Warnings, w.String())
	}
	report, err := agreement.Summarize(stats, fmt.Sprintf("Statistics on file %s", pair.Source))
	if err != nil {
		if errors.Is(err, agreement.ErrInvariant) {
			return out, fmt.Errorf("%s: %w", pair.Source, err)
		}
		return skip(err)
	}
	out.Stats = stats
	out.Report = report
	return out, nil
}
