package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	dataset := filepath.Join(dir, "flows.csv")
	other := filepath.Join(dir, "other.csv")
	require.NoError(t, os.WriteFile(dataset, []byte("src_ip\n"), 0644))

	changed := make(chan string, 10)
	w := New([]string{dataset}, func(_ context.Context, path string) {
		changed <- path
	}).WithDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- w.Watch(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(other, []byte("ignored\n"), 0644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(dataset, []byte("src_ip\n10.0.0.1\n"), 0644))
	}

	select {
	case path := <-changed:
		abs, err := filepath.Abs(dataset)
		require.NoError(t, err)
		assert.Equal(t, abs, path)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case path := <-changed:
		t.Fatalf("unexpected second change for %s", path)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestWatchMissingDirectory(t *testing.T) {
	w := New([]string{filepath.Join(t.TempDir(), "missing", "flows.csv")}, func(context.Context, string) {})
	err := w.Watch(context.Background())
	assert.Error(t, err)
}
