package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-mesh/graphql-module-gateway/common/logger"
)

type recordingHandler struct {
	mu      sync.Mutex
	changed []string
	deleted []string
}

func (h *recordingHandler) OnSchemaChanged(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changed = append(h.changed, path)
}

func (h *recordingHandler) OnSchemaDeleted(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, path)
}

func (h *recordingHandler) snapshot() ([]string, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.changed...), append([]string{}, h.deleted...)
}

func newTestWatcher(t *testing.T, h SchemaEventHandler) *SchemaDirWatcher {
	t.Helper()
	w, err := NewSchemaDirWatcher(h, logger.NewNop())
	require.NoError(t, err)
	return w
}

func TestIsSchemaFile(t *testing.T) {
	w := newTestWatcher(t, &recordingHandler{})
	defer w.watcher.Close()

	tests := []struct {
		path     string
		expected bool
	}{
		{path: "/schemas/posts.graphql", expected: true},
		{path: "/schemas/posts.graphqls", expected: true},
		{path: "/schemas/posts.gql", expected: true},
		{path: "/schemas/POSTS.GRAPHQL", expected: true},
		{path: "/schemas/posts.graphql.swp", expected: false},
		{path: "/schemas/readme.md", expected: false},
		{path: "/schemas/graphql", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, w.IsSchemaFile(tt.path))
		})
	}
}

func TestWatch_EmptyDir(t *testing.T) {
	w := newTestWatcher(t, &recordingHandler{})
	defer w.watcher.Close()

	err := w.Watch(context.Background(), "", time.Millisecond)
	assert.ErrorIs(t, err, ErrEmptyDir)
}

func TestWatch_MissingDir(t *testing.T) {
	w := newTestWatcher(t, &recordingHandler{})
	defer w.watcher.Close()

	err := w.Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), time.Millisecond)
	assert.Error(t, err)
}

func TestHandle(t *testing.T) {
	dir := t.TempDir()
	sdl := filepath.Join(dir, "posts.graphql")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(sdl, []byte("type Query { a: Int }"), 0o600))
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))

	tests := []struct {
		name            string
		event           fsnotify.Event
		expectedChanged []string
		expectedDeleted []string
	}{
		{
			name:            "write_schema_file",
			event:           fsnotify.Event{Name: sdl, Op: fsnotify.Write},
			expectedChanged: []string{sdl},
		},
		{
			name:            "create_schema_file",
			event:           fsnotify.Event{Name: sdl, Op: fsnotify.Create},
			expectedChanged: []string{sdl},
		},
		{
			name:  "write_non_schema_file",
			event: fsnotify.Event{Name: other, Op: fsnotify.Write},
		},
		{
			name:            "remove_schema_file",
			event:           fsnotify.Event{Name: filepath.Join(dir, "gone.graphql"), Op: fsnotify.Remove},
			expectedDeleted: []string{filepath.Join(dir, "gone.graphql")},
		},
		{
			name:            "rename_schema_file",
			event:           fsnotify.Event{Name: filepath.Join(dir, "moved.gql"), Op: fsnotify.Rename},
			expectedDeleted: []string{filepath.Join(dir, "moved.gql")},
		},
		{
			name:  "chmod_is_ignored",
			event: fsnotify.Event{Name: sdl, Op: fsnotify.Chmod},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{}
			w := newTestWatcher(t, h)
			defer w.watcher.Close()

			w.handle(tt.event, time.Millisecond)

			assert.Eventually(t, func() bool {
				changed, deleted := h.snapshot()
				return len(changed) == len(tt.expectedChanged) && len(deleted) == len(tt.expectedDeleted)
			}, time.Second, 5*time.Millisecond)

			changed, deleted := h.snapshot()
			assert.ElementsMatch(t, tt.expectedChanged, changed)
			assert.ElementsMatch(t, tt.expectedDeleted, deleted)
		})
	}
}

func TestSchedule_Debounces(t *testing.T) {
	h := &recordingHandler{}
	w := newTestWatcher(t, h)
	defer w.watcher.Close()

	for i := 0; i < 5; i++ {
		w.schedule("/schemas/a.graphql", 50*time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		changed, _ := h.snapshot()
		return len(changed) == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	changed, _ := h.snapshot()
	assert.Len(t, changed, 1)
}

func TestCancel_DropsPendingChange(t *testing.T) {
	h := &recordingHandler{}
	w := newTestWatcher(t, h)
	defer w.watcher.Close()

	w.schedule("/schemas/a.graphql", 50*time.Millisecond)
	w.cancel("/schemas/a.graphql")

	time.Sleep(100 * time.Millisecond)
	changed, _ := h.snapshot()
	assert.Empty(t, changed)
}

func TestWatch_Integration(t *testing.T) {
	dir := t.TempDir()
	h := &recordingHandler{}
	w := newTestWatcher(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, dir, 20*time.Millisecond)
	}()

	// let the watcher register the directory
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "users.graphql")
	require.NoError(t, os.WriteFile(path, []byte("type Query { me: String }"), 0o600))

	assert.Eventually(t, func() bool {
		changed, _ := h.snapshot()
		return len(changed) > 0 && changed[0] == path
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		_, deleted := h.snapshot()
		return len(deleted) > 0 && deleted[0] == path
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
