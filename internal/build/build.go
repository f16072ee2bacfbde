package build

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/DeusData/importglob/internal/discover"
	"github.com/DeusData/importglob/internal/pipeline"
	"github.com/DeusData/importglob/internal/store"
	"github.com/DeusData/importglob/internal/watcher"
)

// Builder transforms every script of a project into an output directory.
// Outputs whose source and matched files are unchanged since the last run
// are not rewritten.
type Builder struct {
	Root        string
	OutDir      string
	Store       *store.Store
	Transformer *pipeline.Transformer
	Discover    discover.Options

	// Registry, when set, receives the patterns of every transformed file.
	Registry *watcher.Registry
	// Workers caps concurrent transforms; default runtime.NumCPU.
	Workers int
}

// Stats summarizes a build.
type Stats struct {
	Files       int // scripts discovered
	Transformed int // files with glob calls
	Written     int // outputs (re)written
	Unchanged   int // outputs left as they were
	Removed     int // stale outputs deleted
	Failed      int
	Elapsed     time.Duration
}

type fileResult struct {
	file    discover.FileInfo
	record  *store.File
	globs   []string
	code    []byte
	changed bool
	err     error
}

// Run executes one build. Transform failures are logged and reported
// together after all files were processed.
func (b *Builder) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats

	files, err := discover.Discover(ctx, b.Root, &b.Discover)
	if err != nil {
		return stats, fmt.Errorf("discover: %w", err)
	}
	stats.Files = len(files)
	slog.Info("build.discovered", "files", len(files))

	cached, err := b.Store.ListFiles()
	if err != nil {
		return stats, err
	}

	results := make([]fileResult, len(files))
	numWorkers := b.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.transformFile(gctx, f, cached[f.RelPath])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	var errs []error
	seen := make(map[string]bool, len(files))
	for i := range results {
		r := &results[i]
		seen[r.file.RelPath] = true
		if r.err != nil {
			stats.Failed++
			slog.Warn("build.transform", "file", r.file.RelPath, "err", r.err)
			errs = append(errs, fmt.Errorf("%s: %w", r.file.RelPath, r.err))
			continue
		}
		if r.record.OutputPath == "" {
			if prev := cached[r.file.RelPath]; prev != nil && prev.OutputPath != "" {
				b.removeOutput(prev.OutputPath, &stats)
			}
			continue
		}
		stats.Transformed++
		if !r.changed {
			stats.Unchanged++
			continue
		}
		if err := writeOutput(r.record.OutputPath, r.code); err != nil {
			return stats, err
		}
		stats.Written++
	}

	err = b.Store.WithTransaction(func(tx *store.Store) error {
		for i := range results {
			r := &results[i]
			if r.err != nil {
				continue
			}
			if err := tx.UpsertFile(r.record); err != nil {
				return err
			}
			if err := tx.SetGlobs(r.record.RelPath, r.globs); err != nil {
				return err
			}
		}
		for rel, prev := range cached {
			if seen[rel] {
				continue
			}
			if prev.OutputPath != "" {
				b.removeOutput(prev.OutputPath, &stats)
			}
			if err := tx.DeleteFile(rel); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("update cache: %w", err)
	}

	if b.Registry != nil {
		for i := range results {
			if r := &results[i]; r.err == nil {
				b.Registry.Update(r.file.Path, r.globs)
			}
		}
	}

	stats.Elapsed = time.Since(start)
	slog.Info("build.done", "files", stats.Files, "transformed", stats.Transformed,
		"written", stats.Written, "unchanged", stats.Unchanged, "failed", stats.Failed,
		"elapsed", stats.Elapsed)
	return stats, errors.Join(errs...)
}

// LoadRegistry fills the registry from the patterns cached by earlier
// builds, so affected importers are known before the first build of this
// process has finished.
func (b *Builder) LoadRegistry() error {
	if b.Registry == nil {
		return nil
	}
	all, err := b.Store.AllGlobs()
	if err != nil {
		return err
	}
	root := strings.TrimSuffix(filepath.ToSlash(b.Root), "/")
	for rel, patterns := range all {
		b.Registry.Update(root+"/"+rel, patterns)
	}
	slog.Debug("build.registry", "importers", len(all))
	return nil
}

// File transforms a single importer, as the watcher does when one of its
// globs gains or loses a match. A removed importer drops its output.
func (b *Builder) File(ctx context.Context, importer string) error {
	abs := filepath.ToSlash(importer)
	rel, err := filepath.Rel(b.Root, importer)
	if err != nil {
		return fmt.Errorf("rel path: %w", err)
	}
	rel = filepath.ToSlash(rel)

	prev, err := b.Store.GetFile(rel)
	if err != nil {
		return err
	}
	if !exists(abs) {
		var stats Stats
		if prev != nil && prev.OutputPath != "" {
			b.removeOutput(prev.OutputPath, &stats)
		}
		if b.Registry != nil {
			b.Registry.Remove(abs)
		}
		return b.Store.DeleteFile(rel)
	}

	r := b.transformFile(ctx, discover.FileInfo{Path: abs, RelPath: rel}, prev)
	if r.err != nil {
		return r.err
	}
	if r.record.OutputPath == "" && prev != nil && prev.OutputPath != "" {
		var stats Stats
		b.removeOutput(prev.OutputPath, &stats)
	}
	if r.changed {
		if err := writeOutput(r.record.OutputPath, r.code); err != nil {
			return err
		}
		slog.Info("build.file", "file", rel, "globs", len(r.globs))
	}
	err = b.Store.WithTransaction(func(tx *store.Store) error {
		if err := tx.UpsertFile(r.record); err != nil {
			return err
		}
		return tx.SetGlobs(rel, r.globs)
	})
	if err != nil {
		return fmt.Errorf("update cache: %w", err)
	}
	if b.Registry != nil {
		b.Registry.Update(abs, r.globs)
	}
	return nil
}

func (b *Builder) transformFile(ctx context.Context, f discover.FileInfo, prev *store.File) fileResult {
	r := fileResult{file: f}
	src, err := os.ReadFile(f.Path)
	if err != nil {
		r.err = err
		return r
	}
	r.record = &store.File{RelPath: f.RelPath, SourceHash: hashBytes(src)}

	// cheap pre-filter before parsing
	if !bytes.Contains(src, []byte("import.meta.")) {
		return r
	}

	res, err := b.Transformer.Transform(ctx, src, f.Path)
	if err != nil {
		r.err = err
		return r
	}
	if res == nil {
		return r
	}

	r.code = []byte(res.Code)
	r.globs = res.Globs
	r.record.ExpansionHash = ExpansionHash(res.Calls)
	r.record.OutputPath = path.Join(b.OutDir, f.RelPath)
	r.changed = prev == nil ||
		prev.SourceHash != r.record.SourceHash ||
		prev.ExpansionHash != r.record.ExpansionHash ||
		prev.OutputPath != r.record.OutputPath ||
		!exists(r.record.OutputPath)
	return r
}

func (b *Builder) removeOutput(p string, stats *Stats) {
	if err := os.Remove(filepath.FromSlash(p)); err != nil && !os.IsNotExist(err) {
		slog.Warn("build.remove", "path", p, "err", err)
		return
	}
	stats.Removed++
}

// ExpansionHash fingerprints the matched files of a module's calls, so a
// file added to or removed from a glob invalidates the cached output.
func ExpansionHash(calls []*pipeline.CallSite) string {
	h := xxh3.New()
	for _, c := range calls {
		fmt.Fprintf(h, "%d:%d\n", c.Start, len(c.Files))
		for _, f := range c.Files {
			h.WriteString(f)
			h.WriteString("\n")
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashBytes(b []byte) string {
	h := xxh3.New()
	_, _ = h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

func writeOutput(p string, code []byte) error {
	p = filepath.FromSlash(p)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("mkdir output: %w", err)
	}
	if err := os.WriteFile(p, code, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func exists(p string) bool {
	_, err := os.Stat(filepath.FromSlash(p))
	return err == nil
}
