package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/your-org/facetrack/internal/config"
	"github.com/your-org/facetrack/internal/models"
	"github.com/your-org/facetrack/internal/observability"
)

const (
	readRetries    = 3
	readRetryDelay = 200 * time.Millisecond
)

type fingerprint struct {
	modTime time.Time
	size    int64
}

// Source polls a drop directory for new snapshot files. It remembers a
// fingerprint (mtime, size) per path so files are emitted exactly once
// unless they change. Not safe for concurrent use; the pipeline producer
// is its only caller.
type Source struct {
	cfg  config.WatchConfig
	seen map[string]fingerprint
}

func NewSource(cfg config.WatchConfig) *Source {
	return &Source{
		cfg:  cfg,
		seen: make(map[string]fingerprint),
	}
}

// FetchNew enumerates the watch directory and returns snapshots for files
// not seen before, oldest first, capped at the configured batch size.
// Oversized, vanished and unreadable files are fingerprinted without being
// emitted so they are not retried forever.
func (s *Source) FetchNew(ctx context.Context) ([]models.Snapshot, error) {
	entries, err := s.enumerate()
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].info.ModTime().Before(entries[j].info.ModTime())
	})

	present := make(map[string]struct{}, len(entries))
	var snapshots []models.Snapshot

	for _, e := range entries {
		present[e.path] = struct{}{}

		fp := fingerprint{modTime: e.info.ModTime(), size: e.info.Size()}
		if prev, ok := s.seen[e.path]; ok && prev == fp {
			continue
		}
		if len(snapshots) >= s.cfg.BatchSize {
			// leave the fingerprint unset so the file is picked up next tick
			continue
		}

		if e.info.Size() > s.cfg.MaxFileSize {
			slog.Warn("snapshot exceeds size limit, skipping", "path", e.path, "size", e.info.Size())
			observability.SnapshotsSkipped.WithLabelValues("oversize").Inc()
			s.seen[e.path] = fp
			continue
		}

		data, err := readWithRetry(ctx, e.path)
		if err != nil {
			if ctx.Err() != nil {
				return snapshots, ctx.Err()
			}
			slog.Warn("snapshot unreadable, skipping", "path", e.path, "error", err)
			observability.SnapshotsSkipped.WithLabelValues("unreadable").Inc()
			s.seen[e.path] = fp
			continue
		}

		meta := ParseFilename(e.path, e.info.ModTime(), s.cfg.DefaultCamera)
		snapshots = append(snapshots, models.Snapshot{
			Path:        e.path,
			Data:        data,
			CameraIP:    meta.CameraIP,
			Gender:      meta.Gender,
			CaptureTime: meta.CaptureTime,
		})
		s.seen[e.path] = fp
		observability.SnapshotsFetched.Inc()
	}

	// prune fingerprints of files that no longer exist
	for path := range s.seen {
		if _, ok := present[path]; !ok {
			delete(s.seen, path)
		}
	}

	return snapshots, nil
}

type dirEntry struct {
	path string
	info fs.FileInfo
}

func (s *Source) enumerate() ([]dirEntry, error) {
	var entries []dirEntry

	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// a file vanished mid-walk, nothing to do
			return nil
		}
		if d.IsDir() {
			if !s.cfg.Recursive && path != s.cfg.Dir {
				return fs.SkipDir
			}
			return nil
		}
		if !s.matches(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, dirEntry{path: path, info: info})
		return nil
	}

	if err := filepath.WalkDir(s.cfg.Dir, walk); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Source) matches(name string) bool {
	for _, pattern := range s.cfg.Patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// readWithRetry reads a file, retrying short-lived sharing conflicts while
// the producer is still writing it.
func readWithRetry(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < readRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(readRetryDelay):
			}
		}
		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
