// Package export writes a node tree to files for use outside the editor.
//
// The target format is chosen from the file extension: .json writes a
// session snapshot, .md a Markdown outline with a Mermaid diagram, and
// .svg or .png a rendered left-to-right tree.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/nodetree/pkg/analysis"
	"github.com/vanderheijden86/nodetree/pkg/debug"
	"github.com/vanderheijden86/nodetree/pkg/model"
	"github.com/vanderheijden86/nodetree/pkg/session"
)

// Format is an export file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatSVG      Format = "svg"
	FormatPNG      Format = "png"
)

// Formats lists the supported formats in display order.
var Formats = []Format{FormatJSON, FormatMarkdown, FormatSVG, FormatPNG}

// ErrUnknownFormat is returned for an unrecognised file extension.
var ErrUnknownFormat = errors.New("unknown export format")

// FormatFor infers the format from path's extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".svg":
		return FormatSVG, nil
	case ".png":
		return FormatPNG, nil
	}
	return "", fmt.Errorf("%w: %q (want .json, .md, .svg or .png)", ErrUnknownFormat, path)
}

// Options are shared by every export target.
type Options struct {
	Title  string
	Preset string
	Now    func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Write exports root to a single path.
func Write(path string, root *model.Node, opts Options) error {
	return write(path, root, nil, opts)
}

func write(path string, root *model.Node, stats *analysis.Stats, opts Options) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}
	}

	switch format {
	case FormatJSON:
		data, err := session.Encode(root, opts.Title, opts.now())
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	case FormatMarkdown:
		return SaveMarkdownToFile(root, opts.Title, path, opts.now())
	default:
		return SaveGraphSnapshot(GraphSnapshotOptions{
			Path:   path,
			Format: string(format),
			Title:  opts.Title,
			Preset: opts.Preset,
			Root:   root,
			Stats:  stats,
		})
	}
}

// ExportAll writes root to every path concurrently. root must not be
// mutated until ExportAll returns; callers hand it a snapshot. Repeated
// paths are written once. The first failure cancels targets that have not
// started yet.
func ExportAll(ctx context.Context, root *model.Node, paths []string, opts Options) error {
	defer debug.LogEnterExit("export.ExportAll")()

	for _, p := range paths {
		if _, err := FormatFor(p); err != nil {
			return err
		}
	}

	paths = dedupePaths(paths)
	stats := analysis.NewAnalyzer(root).Stats(analysis.DefaultStatsConfig())

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			if err := write(p, root, &stats, opts); err != nil {
				return fmt.Errorf("export %s: %w", p, err)
			}
			debug.LogTiming("export "+p, time.Since(start))
			return nil
		})
	}
	return g.Wait()
}

// dedupePaths drops repeated paths, keeping first-seen order. Paths that
// name the same file differently ("a.md", "./a.md") count as one.
func dedupePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		key := filepath.Clean(p)
		if abs, err := filepath.Abs(p); err == nil {
			key = abs
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// SplitPaths parses a comma-separated --export value.
func SplitPaths(value string) []string {
	var paths []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
