package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/daemon/events"
)

func TestStateWatcherTriggersOnWrite(t *testing.T) {
	dir := t.TempDir()
	schedulePath := filepath.Join(dir, "schedule.json")
	modePath := filepath.Join(dir, "mode.json")
	require.NoError(t, os.WriteFile(schedulePath, []byte(`{"rules":[]}`), 0o644))

	var triggered atomic.Int32
	watcher, err := NewStateWatcher(
		[]string{schedulePath, modePath},
		func(context.Context) { triggered.Add(1) },
		nil, nil)
	require.NoError(t, err)
	watcher.debounceTime = 20 * time.Millisecond

	ctx := t.Context()
	require.NoError(t, watcher.Start(ctx))
	t.Cleanup(func() { _ = watcher.Stop(context.Background()) })

	require.NoError(t, os.WriteFile(schedulePath, []byte(`{"rules":[]}`), 0o644))

	require.Eventually(t, func() bool {
		return triggered.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStateWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	schedulePath := filepath.Join(dir, "schedule.json")

	var triggered atomic.Int32
	watcher, err := NewStateWatcher(
		[]string{schedulePath},
		func(context.Context) { triggered.Add(1) },
		nil, nil)
	require.NoError(t, err)
	watcher.debounceTime = 20 * time.Millisecond

	require.NoError(t, watcher.Start(t.Context()))
	t.Cleanup(func() { _ = watcher.Stop(context.Background()) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(0), triggered.Load())
}

func TestStateWatcherPublishesReloadEvent(t *testing.T) {
	dir := t.TempDir()
	modePath := filepath.Join(dir, "mode.json")

	bus := events.NewBus()
	t.Cleanup(bus.Close)
	ch, unsub := events.Subscribe[events.ConfigReloaded](bus, 4)
	t.Cleanup(unsub)

	watcher, err := NewStateWatcher([]string{modePath}, nil, bus, nil)
	require.NoError(t, err)
	watcher.debounceTime = 20 * time.Millisecond

	require.NoError(t, watcher.Start(t.Context()))
	t.Cleanup(func() { _ = watcher.Stop(context.Background()) })

	require.NoError(t, os.WriteFile(modePath, []byte(`{"mode":"auto"}`), 0o644))

	select {
	case evt := <-ch:
		require.Equal(t, modePath, evt.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a reload event")
	}
}
