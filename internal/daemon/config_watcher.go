package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/daemon/events"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/logfields"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/metrics"
)

// StateWatcher monitors the externally edited schedule and mode files and
// triggers an immediate reconcile pass when either changes. The files are
// re-read on every evaluation, so the watcher only has to shortcut the wait
// until the next periodic pass.
type StateWatcher struct {
	paths        []string
	onChange     func(ctx context.Context)
	bus          *events.Bus
	recorder     metrics.Recorder
	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	stopChan     chan struct{}
	changeChan   chan string
	debounceTime time.Duration
}

// NewStateWatcher creates a watcher over the given state files. onChange is
// invoked (debounced) after a change settles.
func NewStateWatcher(paths []string, onChange func(ctx context.Context), bus *events.Bus, recorder metrics.Recorder) (*StateWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to resolve state path %s: %w", p, err)
		}
		abs = append(abs, a)
	}

	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	return &StateWatcher{
		paths:        abs,
		onChange:     onChange,
		bus:          bus,
		recorder:     recorder,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		changeChan:   make(chan string, 1),
		debounceTime: 500 * time.Millisecond,
	}, nil
}

// Start begins monitoring the state files.
func (sw *StateWatcher) Start(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	// Watch the containing directories; editors replace files via rename,
	// which drops a watch placed on the file itself.
	seen := map[string]bool{}
	for _, p := range sw.paths {
		dir := filepath.Dir(p)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := sw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch state directory %s: %w", dir, err)
		}
	}

	slog.Info("Starting state watcher", slog.Int("files", len(sw.paths)))

	go sw.watchLoop(ctx)
	go sw.debounceLoop(ctx)

	return nil
}

// Stop stops the state watcher.
func (sw *StateWatcher) Stop(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	slog.Info("Stopping state watcher")
	close(sw.stopChan)

	if sw.watcher != nil {
		if err := sw.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	}

	return nil
}

func (sw *StateWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopChan:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}

			if !sw.isWatchedFile(event.Name) {
				continue
			}

			switch {
			case event.Op&fsnotify.Write == fsnotify.Write,
				event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				slog.Debug("State file change detected", logfields.Path(event.Name))
				sw.triggerChange(event.Name)
			case event.Op&fsnotify.Remove == fsnotify.Remove:
				// A removed schedule or mode file reads as defaults on the
				// next evaluation; still worth an immediate pass.
				slog.Warn("State file removed", logfields.Path(event.Name))
				sw.triggerChange(event.Name)
			}

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("State watcher error", logfields.Error(err))
		}
	}
}

func (sw *StateWatcher) isWatchedFile(name string) bool {
	for _, p := range sw.paths {
		if filepath.Base(name) == filepath.Base(p) {
			return true
		}
	}
	return false
}

func (sw *StateWatcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-sw.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case path := <-sw.changeChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(sw.debounceTime, func() {
				sw.applyChange(ctx, path)
			})
		}
	}
}

func (sw *StateWatcher) triggerChange(path string) {
	select {
	case sw.changeChan <- path:
	default:
		// A change is already pending.
	}
}

func (sw *StateWatcher) applyChange(ctx context.Context, path string) {
	slog.Info("State file changed, triggering reconcile", logfields.Path(path))
	sw.recorder.IncConfigReload(true)

	if sw.bus != nil {
		if err := sw.bus.Publish(ctx, events.ConfigReloaded{Path: path, Timestamp: time.Now()}); err != nil {
			slog.Warn("Failed to publish reload event", logfields.Error(err))
		}
	}

	if sw.onChange != nil {
		sw.onChange(ctx)
	}
}
