// Package artifact persists run artifacts: failure screenshots and run
// reports. Artifacts go to a local directory by default, or to S3-compatible
// object storage when configured.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kuitang/flowcheck/internal/flow"
	"github.com/kuitang/flowcheck/internal/obs"
	"github.com/kuitang/flowcheck/internal/report"
)

var log = obs.Pkg("artifact")

// Store persists a single artifact and returns its location: a filesystem
// path for directory stores, a URL for object stores.
type Store interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
}

// Dir stores artifacts under a local directory, one subdirectory per run.
type Dir struct {
	root string
}

// NewDir creates the root directory if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Put(_ context.Context, key string, content []byte, _ string) (string, error) {
	path := filepath.Join(d.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create artifact subdir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %q: %w", key, err)
	}
	return path, nil
}

// SaveScreenshots stores the failure screenshot of every failed result and
// fills in each result's ScreenshotPath. Storage errors are logged, not
// fatal: a missing screenshot must not change the run outcome.
func SaveScreenshots(ctx context.Context, store Store, runID string, results []flow.Result) {
	for i := range results {
		r := &results[i]
		if len(r.Screenshot) == 0 {
			continue
		}
		key := fmt.Sprintf("%s/%s.png", runID, slug(r.Chain+"-"+r.Scenario))
		location, err := store.Put(ctx, key, r.Screenshot, "image/png")
		if err != nil {
			log.Error("store screenshot", "key", key, "error", err)
			continue
		}
		r.ScreenshotPath = location
	}
}

// SaveReport stores the Markdown and HTML renderings of the run summary and
// returns the HTML location.
func SaveReport(ctx context.Context, store Store, s *report.Summary) (string, error) {
	mdKey := s.RunID + "/report.md"
	if _, err := store.Put(ctx, mdKey, []byte(s.Markdown()), "text/markdown"); err != nil {
		return "", err
	}
	htmlKey := s.RunID + "/report.html"
	location, err := store.Put(ctx, htmlKey, s.HTML(), "text/html")
	if err != nil {
		return "", err
	}
	return location, nil
}

// slug makes a string safe for use in an object key or filename.
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
