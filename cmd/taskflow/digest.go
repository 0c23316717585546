package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vnykmshr/taskflow/pkg/executor"
)

// Digest is the result of hashing one file.
type Digest struct {
	Path       string        `json:"path"`
	SHA256     string        `json:"sha256"`
	Size       int64         `json:"size"`
	SequenceID int           `json:"sequence_id"`
	WorkerID   int           `json:"worker_id"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// digestFile is the task run for every path.
func digestFile(ctx context.Context, c executor.Call[string]) (Digest, error) {
	start := time.Now()

	f, err := os.Open(c.Payload)
	if err != nil {
		return Digest{}, err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	n, err := io.Copy(h, &ctxReader{ctx: ctx, r: f})
	if err != nil {
		return Digest{}, fmt.Errorf("read %s: %w", c.Payload, err)
	}

	return Digest{
		Path:       c.Payload,
		SHA256:     hex.EncodeToString(h.Sum(nil)),
		Size:       n,
		SequenceID: c.SequenceID,
		WorkerID:   c.WorkerID,
		Elapsed:    time.Since(start),
	}, nil
}

// ctxReader stops reading once ctx is done, so task timeouts interrupt large files.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

// expandPaths resolves glob patterns to regular files, keeping first-seen
// order and dropping duplicates.
func expandPaths(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if seen[m] {
				continue
			}
			info, err := os.Stat(m)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			seen[m] = true
			paths = append(paths, m)
		}
	}
	return paths, nil
}
