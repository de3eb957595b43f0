package server

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o600))

	var reloads atomic.Int32
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := newConfigWatcher(path, func() error {
		reloads.Add(1)
		return nil
	}, logger)
	require.NoError(t, err)
	defer w.Close()
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o600))

	// A burst of writes collapses into one reload.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o600))
	}

	assert.Eventually(t, func() bool { return reloads.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), reloads.Load())

	// Atomic replace via rename also triggers a reload.
	tmp := filepath.Join(dir, "server.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("log_level: warn\n"), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	assert.Eventually(t, func() bool { return reloads.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestServer_WatchReloadsConfig(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("API_KEY", "")

	path := filepath.Join(t.TempDir(), "server.yaml")
	writeConfig(t, path, "listener:\n  addr: 127.0.0.1:0\nauth:\n  api_key: old\n")

	srv, err := New(path, WithConfigWatch(), WithLogOutput(io.Discard))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register before the write.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, path, "listener:\n  addr: 127.0.0.1:0\nauth:\n  api_key: new\n")

	assert.Eventually(t, func() bool {
		return srv.Verifier().Verify("new")
	}, 3*time.Second, 10*time.Millisecond)
}
