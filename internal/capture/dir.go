package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DirSource replays frames from a directory of JPEG files in name order.
// Used for tests and offline replay of recorded sessions. An optional
// interval paces playback; Loop restarts from the first frame at the end.
type DirSource struct {
	paths    []string
	interval time.Duration
	loop     bool
	pos      int
	seq      int
}

// OpenDir scans a directory for image files.
func OpenDir(dir string, interval time.Duration, loop bool) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}

	return &DirSource{paths: paths, interval: interval, loop: loop}, nil
}

// Next returns the next frame, pacing by the configured interval.
func (s *DirSource) Next(ctx context.Context) (Frame, error) {
	if s.pos >= len(s.paths) {
		if !s.loop {
			return Frame{}, io.EOF
		}
		s.pos = 0
	}

	if s.interval > 0 && s.seq > 0 {
		select {
		case <-time.After(s.interval):
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		}
	}

	data, err := os.ReadFile(s.paths[s.pos])
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read frame %s: %w", s.paths[s.pos], err)
	}

	s.pos++
	s.seq++
	return Frame{Data: data, Seq: s.seq, TakenAt: time.Now()}, nil
}

// Close is a no-op for directory sources.
func (s *DirSource) Close() error { return nil }
