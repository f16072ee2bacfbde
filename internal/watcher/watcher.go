package watcher

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/DeusData/importglob/internal/discover"
	"github.com/DeusData/importglob/internal/lang"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// Op is a file event type.
type Op int

const (
	Add Op = iota
	Unlink
	Change
)

func (o Op) String() string {
	switch o {
	case Add:
		return "add"
	case Unlink:
		return "unlink"
	default:
		return "change"
	}
}

// Event is a file change found between two polls.
type Event struct {
	Op   Op
	Path string // absolute, forward slashes
}

// TransformFunc re-transforms one importer. It is expected to refresh the
// importer's patterns in the Registry.
type TransformFunc func(ctx context.Context, importer string) error

// Watcher polls a project for file changes and re-transforms the importers
// whose glob calls are affected.
type Watcher struct {
	root        string
	registry    *Registry
	transformFn TransformFunc
	opts        discover.Options

	snapshot map[string]fileSnapshot
	interval time.Duration
	nextPoll time.Time
}

// New creates a Watcher. transformFn is called for each affected importer.
func New(root string, reg *Registry, transformFn TransformFunc, opts *discover.Options) *Watcher {
	w := &Watcher{
		root:        root,
		registry:    reg,
		transformFn: transformFn,
	}
	if opts != nil {
		w.opts = *opts
	}
	w.opts.AllFiles = true
	return w
}

// Run blocks until ctx is cancelled. Ticks at baseInterval, polling only
// when the adaptive interval has elapsed.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(baseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Now().Before(w.nextPoll) {
				continue
			}
			w.poll(ctx)
		}
	}
}

// poll captures a snapshot of the file tree and compares with the previous one.
// First poll: captures baseline without transforming.
// Subsequent polls: transforms the importers affected by each change.
func (w *Watcher) poll(ctx context.Context) {
	if _, err := os.Stat(w.root); err != nil {
		slog.Warn("watcher.root_gone", "path", w.root)
		w.nextPoll = time.Now().Add(maxInterval)
		return
	}

	snap, err := captureSnapshot(ctx, w.root, &w.opts)
	if err != nil {
		slog.Warn("watcher.snapshot", "path", w.root, "err", err)
		w.nextPoll = time.Now().Add(w.interval)
		return
	}
	interval := pollInterval(len(snap))

	if w.snapshot == nil {
		slog.Debug("watcher.baseline", "path", w.root, "files", len(snap))
		w.snapshot = snap
		w.interval = interval
		w.nextPoll = time.Now().Add(interval)
		return
	}

	events := diffSnapshots(w.snapshot, snap)
	w.snapshot = snap
	w.interval = interval
	w.nextPoll = time.Now().Add(interval)
	if len(events) == 0 {
		return
	}

	importers := w.affected(events)
	slog.Info("watcher.changed", "events", len(events), "importers", len(importers))
	for _, imp := range importers {
		if err := w.transformFn(ctx, imp); err != nil {
			slog.Warn("watcher.transform", "file", imp, "err", err)
		}
	}
}

// affected returns the importers to transform again for a batch of events:
// registered importers whose globs match an added or removed file, removed
// importers, and changed script files themselves.
func (w *Watcher) affected(events []Event) []string {
	set := make(map[string]bool)
	for _, ev := range events {
		switch ev.Op {
		case Add, Unlink:
			if ev.Op == Unlink && w.registry.Patterns(ev.Path) != nil {
				// a removed importer is handed over so its output can be dropped
				w.registry.Remove(ev.Path)
				set[ev.Path] = true
			}
			for _, imp := range w.registry.Affected(ev.Path) {
				set[imp] = true
			}
			if ev.Op == Add && lang.IsScript(ev.Path) {
				set[ev.Path] = true
			}
		case Change:
			if lang.IsScript(ev.Path) {
				set[ev.Path] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for imp := range set {
		out = append(out, imp)
	}
	sort.Strings(out)
	return out
}

// captureSnapshot walks the file tree using discover.Discover and captures
// mtime+size for each file, keyed by absolute path.
func captureSnapshot(ctx context.Context, rootPath string, opts *discover.Options) (map[string]fileSnapshot, error) {
	files, err := discover.Discover(ctx, rootPath, opts)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]fileSnapshot, len(files))
	for _, f := range files {
		info, statErr := os.Stat(f.Path)
		if statErr != nil {
			continue
		}
		snap[f.Path] = fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
		}
	}
	return snap, nil
}

// diffSnapshots returns the events turning a into b, sorted by path.
func diffSnapshots(a, b map[string]fileSnapshot) []Event {
	var events []Event
	for path, bSnap := range b {
		aSnap, ok := a[path]
		switch {
		case !ok:
			events = append(events, Event{Op: Add, Path: path})
		case !aSnap.modTime.Equal(bSnap.modTime) || aSnap.size != bSnap.size:
			events = append(events, Event{Op: Change, Path: path})
		}
	}
	for path := range a {
		if _, ok := b[path]; !ok {
			events = append(events, Event{Op: Unlink, Path: path})
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Path != events[j].Path {
			return events[i].Path < events[j].Path
		}
		return events[i].Op < events[j].Op
	})
	return events
}

// pollInterval computes the adaptive interval from file count.
// 1s base + 1s per 500 files, capped at 60s.
func pollInterval(fileCount int) time.Duration {
	ms := 1000 + (fileCount/500)*1000
	if ms > 60000 {
		ms = 60000
	}
	return time.Duration(ms) * time.Millisecond
}
