package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/rstagree/internal/agreement"
	"github.com/hyperjump/rstagree/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source_dir TEXT NOT NULL,
		anno1_dir TEXT NOT NULL,
		anno2_dir TEXT NOT NULL,
		dimensions TEXT,
		segment_strict INTEGER NOT NULL DEFAULT 0,
		files INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS run_files (
		id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		source TEXT NOT NULL,
		anno1 TEXT NOT NULL,
		anno2 TEXT NOT NULL,
		skipped INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		warnings TEXT,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS confusion_cells (
		run_id TEXT NOT NULL,
		file_id TEXT NOT NULL,
		dimension TEXT NOT NULL,
		label1 TEXT NOT NULL,
		label2 TEXT NOT NULL,
		count INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cells_run ON confusion_cells(run_id, file_id);

	CREATE TABLE IF NOT EXISTS diffs (
		run_id TEXT NOT NULL,
		file_id TEXT NOT NULL,
		dimension TEXT NOT NULL,
		seq INTEGER NOT NULL,
		text TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_diffs_run ON diffs(run_id, file_id, seq);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateRun inserts a run.
func (s *SQLiteStorage) CreateRun(ctx context.Context, run *models.Run) error {
	dims, err := json.Marshal(run.Dimensions)
	if err != nil {
		return fmt.Errorf("failed to marshal dimensions: %w", err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source_dir, anno1_dir, anno2_dir, dimensions, segment_strict, files, skipped, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SourceDir, run.Anno1Dir, run.Anno2Dir, string(dims), run.SegmentStrict,
		run.Files, run.Skipped, run.CreatedAt,
	)
	return err
}

// FinishRun records how many file pairs a run compared and skipped.
func (s *SQLiteStorage) FinishRun(ctx context.Context, id string, files, skipped int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET files = ?, skipped = ? WHERE id = ?`, files, skipped, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run %w: %s", ErrNotFound, id)
	}
	return nil
}

// GetRun returns a run by ID, with its report recomputed from the stored matrices.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*models.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT id, source_dir, anno1_dir, anno2_dir, dimensions, segment_strict, files, skipped, created_at
		 FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	stats, err := s.LoadStats(ctx, id)
	if err != nil {
		return nil, err
	}
	report, err := agreement.Summarize(stats, "Total")
	if err != nil {
		return nil, err
	}
	run.Report = report
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.Run, error) {
	var run models.Run
	var dims sql.NullString
	if err := row.Scan(&run.ID, &run.SourceDir, &run.Anno1Dir, &run.Anno2Dir, &dims,
		&run.SegmentStrict, &run.Files, &run.Skipped, &run.CreatedAt); err != nil {
		return nil, err
	}
	if dims.Valid && dims.String != "" {
		if err := json.Unmarshal([]byte(dims.String), &run.Dimensions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dimensions: %w", err)
		}
	}
	return &run, nil
}

// ListRuns returns runs, newest first, with offset and limit. Reports are not loaded.
func (s *SQLiteStorage) ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_dir, anno1_dir, anno2_dir, dimensions, segment_strict, files, skipped, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and everything stored for it.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"diffs", "confusion_cells", "run_files"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, id); err != nil {
			return err
		}
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

// SaveFile stores the outcome of one file pair and its matrices in a transaction.
// Saving the same file again replaces it.
func (s *SQLiteStorage) SaveFile(ctx context.Context, runID string, file *models.FileResult, stats agreement.Stats) error {
	warnings, err := json.Marshal(file.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"diffs", "confusion_cells"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ? AND file_id = ?`, runID, file.ID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_files (id, run_id, source, anno1, anno2, skipped, error, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		file.ID, runID, file.Source, file.Anno1, file.Anno2, file.Skipped, file.Error, string(warnings),
	); err != nil {
		return err
	}

	cellStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO confusion_cells (run_id, file_id, dimension, label1, label2, count)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer cellStmt.Close()
	diffStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO diffs (run_id, file_id, dimension, seq, text) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer diffStmt.Close()

	for dim, st := range stats {
		for l1, row := range st.Confusion {
			for l2, n := range row {
				if _, err := cellStmt.ExecContext(ctx, runID, file.ID, string(dim), l1, l2, n); err != nil {
					return err
				}
			}
		}
		for i, d := range st.Diffs {
			if _, err := diffStmt.ExecContext(ctx, runID, file.ID, string(dim), i, d); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// GetFiles returns the file outcomes of a run ordered by source path.
func (s *SQLiteStorage) GetFiles(ctx context.Context, runID string) ([]*models.FileResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, anno1, anno2, skipped, error, warnings
		 FROM run_files WHERE run_id = ? ORDER BY source`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.FileResult
	for rows.Next() {
		var f models.FileResult
		var errText, warnings sql.NullString
		if err := rows.Scan(&f.ID, &f.Source, &f.Anno1, &f.Anno2, &f.Skipped, &errText, &warnings); err != nil {
			return nil, err
		}
		f.Error = errText.String
		if warnings.Valid && warnings.String != "" && warnings.String != "null" {
			_ = json.Unmarshal([]byte(warnings.String), &f.Warnings)
		}
		files = append(files, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Skipped {
			continue
		}
		stats, err := s.loadStats(ctx, runID, f.ID)
		if err != nil {
			return nil, err
		}
		if f.Report, err = agreement.Summarize(stats, "Statistics on file "+f.Source); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// LoadStats sums the stored matrices of a run cell-wise and collects its
// diffs in file order.
func (s *SQLiteStorage) LoadStats(ctx context.Context, runID string) (agreement.Stats, error) {
	return s.loadStats(ctx, runID, "")
}

// loadStats restricts LoadStats to one file unless fileID is empty.
func (s *SQLiteStorage) loadStats(ctx context.Context, runID, fileID string) (agreement.Stats, error) {
	stats := make(agreement.Stats)
	rows, err := s.db.QueryContext(ctx,
		`SELECT dimension, label1, label2, SUM(count)
		 FROM confusion_cells WHERE run_id = ? AND (? = '' OR file_id = ?)
		 GROUP BY dimension, label1, label2`, runID, fileID, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var dim, l1, l2 string
		var n int
		if err := rows.Scan(&dim, &l1, &l2, &n); err != nil {
			return nil, err
		}
		stats.Get(agreement.Dimension(dim)).Confusion.Add(l1, l2, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	diffRows, err := s.db.QueryContext(ctx,
		`SELECT d.dimension, d.text FROM diffs d
		 JOIN run_files f ON f.run_id = d.run_id AND f.id = d.file_id
		 WHERE d.run_id = ? AND (? = '' OR d.file_id = ?)
		 ORDER BY f.source, d.dimension, d.seq`, runID, fileID, fileID)
	if err != nil {
		return nil, err
	}
	defer diffRows.Close()
	for diffRows.Next() {
		var dim, text string
		if err := diffRows.Scan(&dim, &text); err != nil {
			return nil, err
		}
		st := stats.Get(agreement.Dimension(dim))
		st.Diffs = append(st.Diffs, text)
	}
	return stats, diffRows.Err()
}

// CountRuns returns the total number of runs.
func (s *SQLiteStorage) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
