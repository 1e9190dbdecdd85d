package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitChange(t *testing.T, w Watcher, timeout time.Duration) (string, bool) {
	t.Helper()
	select {
	case p, ok := <-w.Changes():
		return p, ok
	case <-time.After(timeout):
		return "", false
	}
}

func TestBurstIsReportedOnce(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "opengl")
	require.NoError(t, os.Mkdir(sub, 0o755))
	file := filepath.Join(sub, "raymarch.comp")
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0o644))

	w, err := New(dir, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	for i := range 5 {
		require.NoError(t, os.WriteFile(file, []byte{byte('a' + i)}, 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	p, ok := waitChange(t, w, 2*time.Second)
	require.True(t, ok, "expected a change notification")
	assert.Equal(t, file, p)

	_, ok = waitChange(t, w, 200*time.Millisecond)
	assert.False(t, ok, "a burst produces a single notification")
}

func TestFilterIgnoresEditorFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".display.frag.swp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "display.frag~"), []byte("x"), 0o644))

	_, ok := waitChange(t, w, 200*time.Millisecond)
	assert.False(t, ok)
}

func TestNewDirectoriesAreWatched(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	sub := filepath.Join(dir, "webgpu")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	file := filepath.Join(sub, "display.frag.wgsl")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	p, ok := waitChange(t, w, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, file, p)
}

func TestCloseClosesChanges(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Changes()
	assert.False(t, ok)
}

func TestNewMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestDefaultFilter(t *testing.T) {
	assert.True(t, defaultFilter("shaders/opengl/display.frag"))
	assert.False(t, defaultFilter("shaders/opengl/.display.frag.swp"))
	assert.False(t, defaultFilter("shaders/opengl/display.frag~"))
	assert.False(t, defaultFilter("shaders/opengl/x.swp"))
}
