package reload

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForCallback(ch <-chan string, timeout time.Duration) (string, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return "", false
	}
}

func startWatcher(t *testing.T, dir string, onChange func(string)) *Watcher {
	t.Helper()
	w, err := NewWatcher(20 * time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })
	require.NoError(t, w.Add(dir))
	w.Start(onChange)
	// give the watcher time to start
	time.Sleep(50 * time.Millisecond)
	return w
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(file, []byte("<p>one</p>"), 0o644))

	changed := make(chan string, 10)
	startWatcher(t, dir, func(path string) { changed <- path })

	require.NoError(t, os.WriteFile(file, []byte("<p>two</p>"), 0o644))

	path, ok := waitForCallback(changed, 2*time.Second)
	require.True(t, ok, "expected callback for file change")
	want, err := filepath.EvalSymlinks(file)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 10)
	startWatcher(t, dir, func(path string) { changed <- path })

	sub := filepath.Join(dir, "modules")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "ui.js"), []byte("export {}"), 0o644))

	path, ok := waitForCallback(changed, 2*time.Second)
	require.True(t, ok, "expected callback for file in new subdirectory")
	assert.Equal(t, "ui.js", filepath.Base(path))
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.js")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	var calls atomic.Int32
	w, err := NewWatcher(200 * time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()
	require.NoError(t, w.Add(dir))
	w.Start(func(string) { calls.Add(1) })
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte{byte('a' + i)}, 0o644))
	}
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_IgnoresEditorFiles(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 10)
	startWatcher(t, dir, func(path string) { changed <- path })

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".index.html.swp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html~"), []byte("x"), 0o644))

	_, ok := waitForCallback(changed, 300*time.Millisecond)
	assert.False(t, ok, "editor files must not trigger a reload")
}

func TestWatcher_StopIdempotent(t *testing.T) {
	w, err := NewWatcher(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)
	w.Start(func(string) {})
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestShouldIgnore(t *testing.T) {
	assert.True(t, shouldIgnore("/x/.#index.html"))
	assert.True(t, shouldIgnore("/x/index.html.swp"))
	assert.True(t, shouldIgnore("/x/.DS_Store"))
	assert.False(t, shouldIgnore("/x/index.html"))
	assert.False(t, shouldIgnore("/x/modules/ui.js"))
}
