// Package storage persists agreement runs: the run settings, the outcome of
// each file pair and its confusion matrices, so corpus totals can be
// recomputed later without re-reading the annotations.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/rstagree/internal/agreement"
	"github.com/hyperjump/rstagree/internal/models"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines run persistence operations.
type Storage interface {
	// Run operations
	CreateRun(ctx context.Context, run *models.Run) error
	FinishRun(ctx context.Context, id string, files, skipped int) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error)
	DeleteRun(ctx context.Context, id string) error

	// File operations
	SaveFile(ctx context.Context, runID string, file *models.FileResult, stats agreement.Stats) error
	GetFiles(ctx context.Context, runID string) ([]*models.FileResult, error)

	// LoadStats sums the confusion matrices of all files of a run.
	LoadStats(ctx context.Context, runID string) (agreement.Stats, error)

	// Stats
	CountRuns(ctx context.Context) (int64, error)

	Close() error
}
