package resource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
)

// LoadFunc fetches the raw bytes of one named asset.
type LoadFunc func(ctx context.Context, name string) ([]byte, error)

// FileLoader reads assets relative to dir.
func FileLoader(dir string) LoadFunc {
	return func(_ context.Context, name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	}
}

// Loader fetches assets on a bounded worker pool and reports completion to
// the Tracker from the worker goroutines.
type Loader struct {
	tracker *Tracker
	workers int
	log     *zap.Logger

	mu      sync.Mutex
	digests map[string][blake2b.Size256]byte
}

func NewLoader(tracker *Tracker, workers int, log *zap.Logger) *Loader {
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		tracker: tracker,
		workers: workers,
		log:     log,
		digests: make(map[string][blake2b.Size256]byte),
	}
}

// Load announces every name on the calling goroutine, then loads them
// concurrently. Names already announced are skipped. A failed asset is
// logged and left pending; the remaining assets still load.
func (l *Loader) Load(ctx context.Context, names []string, fn LoadFunc) error {
	var todo []string
	for _, n := range names {
		if l.tracker.AddNotifyResource(n) {
			todo = append(todo, n)
		} else {
			l.log.Debug("resource already announced", zap.String("resource", n))
		}
	}
	return l.load(ctx, todo, fn)
}

// LoadPending loads every name announced on the tracker but not yet loaded.
func (l *Loader) LoadPending(ctx context.Context, fn LoadFunc) error {
	names := l.tracker.Pending()
	sort.Strings(names)
	return l.load(ctx, names, fn)
}

func (l *Loader) load(ctx context.Context, todo []string, fn LoadFunc) error {
	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for _, name := range todo {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := fn(gctx, name)
			if err != nil {
				failed.Add(1)
				l.log.Error("resource load failed", zap.String("resource", name), zap.Error(err))
				return nil
			}
			l.remember(name, data)
			l.tracker.NotifyResourceLoaded(name)
			l.log.Debug("resource loaded", zap.String("resource", name), zap.Int("bytes", len(data)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load resources: %w", err)
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("load resources: %d of %d failed", n, len(todo))
	}
	return nil
}

func (l *Loader) remember(name string, data []byte) (changed bool) {
	sum := blake2b.Sum256(data)
	l.mu.Lock()
	defer l.mu.Unlock()
	prev, ok := l.digests[name]
	l.digests[name] = sum
	return ok && prev != sum
}

// Digest returns the BLAKE2b-256 of the last loaded content.
func (l *Loader) Digest(name string) ([blake2b.Size256]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.digests[name]
	return d, ok
}

// Changed reloads name and reports whether its content differs from the
// previous load. The first load of a name is not a change.
func (l *Loader) Changed(ctx context.Context, name string, fn LoadFunc) (bool, error) {
	data, err := fn(ctx, name)
	if err != nil {
		return false, fmt.Errorf("reload %s: %w", name, err)
	}
	changed := l.remember(name, data)
	if changed {
		l.log.Info("resource modified", zap.String("resource", name))
	}
	return changed, nil
}
