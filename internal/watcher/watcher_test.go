package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]Change
}

func (r *recorder) record(b []Change) {
	r.mu.Lock()
	r.batches = append(r.batches, b)
	r.mu.Unlock()
}

func (r *recorder) snapshot() [][]Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Change(nil), r.batches...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("timed out waiting for watcher")
}

func TestWatcher_BatchesBurst(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := NewWatcher([]string{dir}, []string{".tsv"}, true, rec.record, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for _, name := range []string{"d2.tsv", "d1.tsv", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	time.Sleep(200 * time.Millisecond)

	batches := rec.snapshot()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1: %v", len(batches), batches)
	}
	b := batches[0]
	if len(b) != 2 || filepath.Base(b[0].Path) != "d1.tsv" || filepath.Base(b[1].Path) != "d2.tsv" {
		t.Errorf("batch = %v", b)
	}
}

func TestWatcher_RemoveAndNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "d1.rst")
	if err := os.WriteFile(existing, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w := NewWatcher([]string{dir}, []string{"rst"}, true, rec.record, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(existing); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
	if c := rec.snapshot()[0][0]; !c.Removed || c.Path != existing {
		t.Errorf("removal = %+v", c)
	}

	sub := filepath.Join(dir, "more")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "d2.rst"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(rec.snapshot()) == 2 })
	if c := rec.snapshot()[1][0]; c.Removed || filepath.Base(c.Path) != "d2.rst" {
		t.Errorf("new file in subdirectory = %+v", c)
	}
}

func TestWatcher_StartMissingRoot(t *testing.T) {
	w := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")}, nil, true, nil)
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Error("expected error for missing root")
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	w := NewWatcher([]string{t.TempDir()}, nil, false, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := w.Directories(); len(got) != 1 {
		t.Errorf("Directories() = %v", got)
	}
	w.Stop()
	w.Stop()
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path string
		exts []string
		want bool
	}{
		{"/a/d1.tsv", []string{".tsv"}, true},
		{"/a/d1.TSV", []string{"tsv"}, true},
		{"/a/d1.xml", []string{".tsv", ".rst"}, false},
		{"/a/d1", nil, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.exts); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.exts, got, tt.want)
		}
	}
}
