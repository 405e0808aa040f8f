package credwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSyncer struct{ calls atomic.Int32 }

func (c *countingSyncer) SyncFromStorage(context.Context) error {
	c.calls.Add(1)
	return nil
}

func TestNew_Validates(t *testing.T) {
	_, err := New(Options{Syncer: &countingSyncer{}})
	require.Error(t, err)
	_, err = New(Options{Path: "/tmp/x"})
	require.Error(t, err)
}

func TestWatcher_SyncsOnExternalChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credential.json")
	syncer := &countingSyncer{}

	w, err := New(Options{Path: path, Syncer: syncer, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The watch may not be registered yet, so keep writing until it fires.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"authToken":"x"}`), 0o600)
		return syncer.calls.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	before := syncer.calls.Load()
	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, syncer.calls.Load())

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool { return syncer.calls.Load() > before }, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := New(Options{Path: filepath.Join(t.TempDir(), "nope", "c.json"), Syncer: &countingSyncer{}})
	require.NoError(t, err)
	require.Error(t, w.Run(context.Background()))
}
