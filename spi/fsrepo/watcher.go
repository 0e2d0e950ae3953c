// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package fsrepo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/arbortree/arbor"
	"github.com/arbortree/arbor/log"
)

// Watcher turns filesystem changes under a Repo's nodes/ and props/
// directories into arbor.Event values for Manager.Apply, the way
// untoldecay/BeadsLog's FileWatcher (cmd/bd/daemon_watcher.go) turns
// JSONL/git-ref changes into a debounced callback: watch the nodes/ and
// props/ directories themselves (there are no per-file watches), so
// creates are seen as well as writes, coalesce bursts of writes to the
// same path behind a short timer, and fall back to polling when fsnotify itself is unavailable
// (e.g. inotify watch limits exhausted) unless the fallback is
// explicitly disabled.
type Watcher struct {
	fsw      *fsnotify.Watcher
	repo     *Repo
	nodesDir string
	propsDir string

	debounce     time.Duration
	pollInterval time.Duration
	pollingMode  bool

	events chan arbor.Event
	errs   chan error

	mu     sync.Mutex
	timers map[string]*time.Timer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WatcherFallbackEnv disables the polling fallback when set to "false"
// or "0", mirroring BeadsLog's BEADS_WATCHER_FALLBACK — a process that
// truly needs fsnotify (rather than degrading to slower polling) can
// demand that explicitly.
const WatcherFallbackEnv = "ARBOR_WATCHER_FALLBACK"

// NewWatcher builds a Watcher over repo, debouncing bursts of events to
// the same file within debounce. If debounce is zero, 200ms is used.
func NewWatcher(repo *Repo, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	w := &Watcher{
		repo:         repo,
		nodesDir:     filepath.Join(repo.root, "nodes"),
		propsDir:     filepath.Join(repo.root, "props"),
		debounce:     debounce,
		pollInterval: 3 * time.Second,
		events:       make(chan arbor.Event, 32),
		errs:         make(chan error, 8),
		timers:       make(map[string]*time.Timer),
	}

	fallbackEnv := os.Getenv(WatcherFallbackEnv)
	fallbackDisabled := fallbackEnv == "false" || fallbackEnv == "0"

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		if fallbackDisabled {
			return nil, err
		}
		log.Named("fsrepo.watcher").Warn("fsnotify unavailable, falling back to polling", zap.Error(err))
		w.pollingMode = true
		return w, nil
	}

	if err := fsw.Add(w.nodesDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if err := fsw.Add(w.propsDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.fsw = fsw
	return w, nil
}

// Events returns the channel of translated Events. Callers should drain
// it (typically into Manager.Apply) for as long as the Watcher runs.
func (w *Watcher) Events() <-chan arbor.Event { return w.events }

// Errors returns the channel of underlying fsnotify/polling errors.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Start begins translating filesystem activity in a background
// goroutine, until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	if w.pollingMode {
		w.startPolling(ctx)
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				w.handleFSEvent(ev)
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				select {
				case w.errs <- err:
				default:
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *Watcher) handleFSEvent(ev fsnotify.Event) {
	dir := filepath.Dir(ev.Name)
	switch dir {
	case w.nodesDir:
		w.debounced(ev.Name, func() { w.emitNodeEvent(ev) })
	case w.propsDir:
		w.debounced(ev.Name, func() { w.emitPropertyEvent(ev) })
	}
}

// debounced coalesces repeated events for the same path: each call
// resets path's pending timer rather than firing immediately, so a
// write followed quickly by a chmod (as editors and atomic-rename
// savers both produce) yields one Event, not two.
func (w *Watcher) debounced(path string, fire func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, fire)
}

func (w *Watcher) emitNodeEvent(ev fsnotify.Event) {
	base := strings.TrimSuffix(filepath.Base(ev.Name), ".json")
	id, err := parseNodeID(base)
	if err != nil {
		return
	}

	kind := arbor.NodeChanged
	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		kind = arbor.NodeRemoved
	}
	w.send(arbor.Event{Kind: kind, NodeID: id})
}

func (w *Watcher) emitPropertyEvent(ev fsnotify.Event) {
	base := strings.TrimSuffix(filepath.Base(ev.Name), ".json")
	parentRaw, nameRaw, ok := strings.Cut(base, "__")
	if !ok {
		return
	}
	parentID, err := parseNodeID(parentRaw)
	if err != nil {
		return
	}
	name := parseName(nameRaw)

	kind := arbor.PropertyChanged
	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		kind = arbor.PropertyRemoved
	}
	w.send(arbor.Event{Kind: kind, PropertyID: arbor.PropertyID{Parent: parentID, Name: name}})
}

func (w *Watcher) send(ev arbor.Event) {
	select {
	case w.events <- ev:
	default:
		log.Named("fsrepo.watcher").Warn("event channel full, dropping event", zap.Stringer("kind", ev.Kind))
	}
}

// startPolling scans nodes/ and props/ on a ticker, comparing mtimes
// against what was last observed — the same fallback strategy as
// BeadsLog's startPolling, generalized from "one file" to "every file
// in two directories."
func (w *Watcher) startPolling(ctx context.Context) {
	seen := make(map[string]time.Time)
	scan := func(dir string) map[string]time.Time {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil
		}
		out := make(map[string]time.Time, len(entries))
		for _, e := range entries {
			info, err := e.Info()
			if err != nil {
				continue
			}
			out[filepath.Join(dir, e.Name())] = info.ModTime()
		}
		return out
	}

	for path, mtime := range scan(w.nodesDir) {
		seen[path] = mtime
	}
	for path, mtime := range scan(w.propsDir) {
		seen[path] = mtime
	}

	ticker := time.NewTicker(w.pollInterval)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				current := scan(w.nodesDir)
				for path, mtime := range scan(w.propsDir) {
					current[path] = mtime
				}

				for path, mtime := range current {
					if prev, ok := seen[path]; !ok || !prev.Equal(mtime) {
						w.pollEmit(path, fsnotify.Write)
					}
				}
				for path := range seen {
					if _, ok := current[path]; !ok {
						w.pollEmit(path, fsnotify.Remove)
					}
				}
				seen = current

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *Watcher) pollEmit(path string, op fsnotify.Op) {
	ev := fsnotify.Event{Name: path, Op: op}
	switch filepath.Dir(path) {
	case w.nodesDir:
		w.emitNodeEvent(ev)
	case w.propsDir:
		w.emitPropertyEvent(ev)
	}
}

// Close stops the watcher's background goroutine(s) and releases the
// underlying fsnotify.Watcher, if any.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()

	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}
