package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/platform-mesh/graphql-module-gateway/common"
	"github.com/platform-mesh/graphql-module-gateway/common/logger"
)

var ErrEmptyDir = errors.New("schema directory cannot be empty")

// SchemaEventHandler is notified about SDL files appearing, changing or going away.
type SchemaEventHandler interface {
	OnSchemaChanged(path string)
	OnSchemaDeleted(path string)
}

// SchemaDirWatcher watches a directory tree of SDL fragments.
type SchemaDirWatcher struct {
	watcher    *fsnotify.Watcher
	handler    SchemaEventHandler
	log        *logger.Logger
	extensions []string

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewSchemaDirWatcher(handler SchemaEventHandler, log *logger.Logger) (*SchemaDirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create schema watcher: %w", err)
	}

	return &SchemaDirWatcher{
		watcher:    w,
		handler:    handler,
		log:        log,
		extensions: strings.Split(common.SchemaFileExtensions, ","),
		pending:    map[string]*time.Timer{},
	}, nil
}

// Watch blocks until ctx is done. Editors tend to emit several writes per save,
// so change notifications for one path are coalesced over the debounce window.
func (w *SchemaDirWatcher) Watch(ctx context.Context, dir string, debounce time.Duration) error {
	if dir == "" {
		return ErrEmptyDir
	}
	if err := w.addRecursively(dir); err != nil {
		return err
	}
	defer w.watcher.Close()
	defer w.stopPending()

	w.log.Info().Str("dir", dir).Msg("started watching schema directory")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping schema watcher")
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("schema watcher events channel closed")
			}
			w.handle(event, debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("schema watcher errors channel closed")
			}
			w.log.Error().Err(err).Msg("schema watcher error")
		}
	}
}

// IsSchemaFile reports whether path carries one of the SDL extensions.
func (w *SchemaDirWatcher) IsSchemaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (w *SchemaDirWatcher) handle(event fsnotify.Event, debounce time.Duration) {
	path := event.Name
	w.log.Debug().Str("event", event.String()).Msg("schema directory event")

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if err := w.addRecursively(path); err != nil {
				w.log.Error().Err(err).Str("path", path).Msg("failed to watch new directory")
			}
			return
		}
		if w.IsSchemaFile(path) {
			w.schedule(path, debounce)
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if w.IsSchemaFile(path) {
			w.cancel(path)
			w.handler.OnSchemaDeleted(path)
		}
	}
}

func (w *SchemaDirWatcher) schedule(path string, debounce time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.handler.OnSchemaChanged(path)
	})
}

func (w *SchemaDirWatcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *SchemaDirWatcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *SchemaDirWatcher) addRecursively(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
