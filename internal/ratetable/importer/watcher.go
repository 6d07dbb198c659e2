package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"go.uber.org/zap"
)

// Watcher publishes documents written into a directory. Writes to the same
// file are debounced, and a file whose content did not change since its last
// successful import is skipped.
type Watcher struct {
	importer *Importer
	log      *zap.Logger
	dir      string
	opts     domain.PublishOptions
	debounce *Debouncer

	mu       sync.Mutex
	imported map[string]string
}

func NewWatcher(importer *Importer, log *zap.Logger, dir string, interval time.Duration, opts domain.PublishOptions) *Watcher {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if opts.Source == "" {
		opts.Source = "watch"
	}
	return &Watcher{
		importer: importer,
		log:      log.Named("ratetable.watcher"),
		dir:      dir,
		opts:     opts,
		debounce: NewDebouncer(interval),
		imported: make(map[string]string),
	}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path %s is not a directory", w.dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close()
	defer w.debounce.Stop()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("watching for rate table documents", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !shouldProcess(event) {
				continue
			}
			path := event.Name
			w.debounce.Trigger(path, func() { w.process(ctx, path) })
		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.log.Error("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn("read document failed", zap.String("path", path), zap.Error(err))
		return
	}
	sum := sha256.Sum256(raw)
	digest := hex.EncodeToString(sum[:])

	w.mu.Lock()
	seen := w.imported[path] == digest
	w.mu.Unlock()
	if seen {
		return
	}

	if _, err := w.importer.ImportFile(ctx, path, w.opts); err != nil {
		w.log.Error("rate table import failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.mu.Lock()
	w.imported[path] = digest
	w.mu.Unlock()
}

func shouldProcess(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, valid := range Extensions {
		if ext == valid {
			return true
		}
	}
	return false
}

// Debouncer runs the last callback triggered for a key once the key has been
// quiet for the interval.
type Debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval, timers: make(map[string]*time.Timer)}
}

func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
