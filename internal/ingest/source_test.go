package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/your-org/facetrack/internal/config"
)

func testWatchConfig(dir string) config.WatchConfig {
	return config.WatchConfig{
		Dir:           dir,
		Patterns:      []string{"*.jpg"},
		MaxFileSize:   1 << 20,
		BatchSize:     10,
		DefaultCamera: "0.0.0.0",
	}
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSourceEmitsEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "10.0.1.5_20250114093045.jpg", []byte("a"))
	writeFile(t, dir, "10.0.1.6_20250114093046.jpg", []byte("b"))
	writeFile(t, dir, "ignored.txt", []byte("c"))

	src := NewSource(testWatchConfig(dir))

	snaps, err := src.FetchNew(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("first fetch returned %d snapshots, want 2", len(snaps))
	}
	if snaps[0].CameraIP != "10.0.1.5" && snaps[1].CameraIP != "10.0.1.5" {
		t.Errorf("expected camera 10.0.1.5 among snapshots")
	}

	snaps, err = src.FetchNew(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 0 {
		t.Errorf("second fetch returned %d snapshots, want 0", len(snaps))
	}
}

func TestSourceReemitsChangedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "10.0.1.5_20250114093045.jpg", []byte("a"))

	src := NewSource(testWatchConfig(dir))
	if _, err := src.FetchNew(context.Background()); err != nil {
		t.Fatal(err)
	}

	// change size and mtime so the fingerprint differs
	if err := os.WriteFile(path, []byte("longer content"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	snaps, err := src.FetchNew(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 {
		t.Fatalf("fetch after rewrite returned %d snapshots, want 1", len(snaps))
	}
	if string(snaps[0].Data) != "longer content" {
		t.Errorf("snapshot data = %q, want rewritten content", snaps[0].Data)
	}
}

func TestSourceBatchCapDefersOverflow(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		writeFile(t, dir, name, []byte("x"))
	}

	cfg := testWatchConfig(dir)
	cfg.BatchSize = 2
	src := NewSource(cfg)

	snaps, err := src.FetchNew(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("first fetch returned %d snapshots, want 2", len(snaps))
	}

	snaps, err = src.FetchNew(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 {
		t.Fatalf("second fetch returned %d snapshots, want the deferred 1", len(snaps))
	}
}

func TestSourceSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.jpg", make([]byte, 100))

	cfg := testWatchConfig(dir)
	cfg.MaxFileSize = 10
	src := NewSource(cfg)

	snaps, err := src.FetchNew(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 0 {
		t.Fatalf("fetch returned %d snapshots, want 0", len(snaps))
	}

	// oversized files are fingerprinted, not retried
	snaps, _ = src.FetchNew(context.Background())
	if len(snaps) != 0 {
		t.Errorf("oversized file was retried")
	}
}

func TestSourcePrunesDeletedFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.jpg", []byte("x"))

	src := NewSource(testWatchConfig(dir))
	if _, err := src.FetchNew(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(src.seen) != 1 {
		t.Fatalf("seen has %d entries, want 1", len(src.seen))
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := src.FetchNew(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(src.seen) != 0 {
		t.Errorf("seen has %d entries after prune, want 0", len(src.seen))
	}
}

func TestSourceSkipsSubdirectoriesUnlessRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, sub, "a.jpg", []byte("x"))

	src := NewSource(testWatchConfig(dir))
	snaps, err := src.FetchNew(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 0 {
		t.Fatalf("non-recursive fetch returned %d snapshots, want 0", len(snaps))
	}

	cfg := testWatchConfig(dir)
	cfg.Recursive = true
	src = NewSource(cfg)
	snaps, err = src.FetchNew(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 {
		t.Errorf("recursive fetch returned %d snapshots, want 1", len(snaps))
	}
}
