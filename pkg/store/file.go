package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// FileStore keeps a snapshot as indented JSON in a single file.
type FileStore struct {
	path     string
	log      *zap.Logger
	debounce time.Duration

	mu    sync.Mutex
	known uint64 // content hash of the last file we wrote or read
}

// NewFileStore returns a store for path. The file need not exist yet.
func NewFileStore(path string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{path: path, log: log, debounce: 200 * time.Millisecond}
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

// Load reads and decodes the file. A missing file yields ErrNoSnapshot.
func (f *FileStore) Load(ctx context.Context) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, loadErr(BackendFile, err)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Snapshot{}, loadErr(BackendFile, ErrNoSnapshot)
		}
		return model.Snapshot{}, loadErr(BackendFile, err)
	}
	s, err := Decode(data)
	if err != nil {
		return model.Snapshot{}, loadErr(BackendFile, fmt.Errorf("%s: %w", f.path, err))
	}
	f.remember(data)
	return s, nil
}

func (f *FileStore) remember(data []byte) {
	f.mu.Lock()
	f.known = xxhash.Sum64(data)
	f.mu.Unlock()
}

// changed reports whether the file differs from what this store last
// wrote or read.
func (f *FileStore) changed() bool {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return !errors.Is(err, os.ErrNotExist)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return xxhash.Sum64(data) != f.known
}

// Save writes the snapshot atomically: a temp file in the same directory
// is renamed over the target.
func (f *FileStore) Save(ctx context.Context, s model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return saveErr(BackendFile, err)
	}
	data, err := Encode(s, true)
	if err != nil {
		return saveErr(BackendFile, err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return saveErr(BackendFile, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return saveErr(BackendFile, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	data = append(data, '\n')
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return saveErr(BackendFile, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return saveErr(BackendFile, err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return saveErr(BackendFile, err)
	}
	f.remember(data)
	f.log.Debug("snapshot saved",
		zap.String("path", f.path),
		zap.Int("nodes", len(s.Nodes)),
		zap.Int("edges", len(s.Edges)))
	return nil
}

// Watch calls fn when the file is written or replaced by someone else.
// Bursts of events are debounced, and a settled file whose content matches
// our own last Save or Load is ignored. It blocks until ctx is done.
func (f *FileStore) Watch(ctx context.Context, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic saves replace the inode, which drops a
	// watch placed on the file itself.
	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(f.path)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(f.debounce)
			} else {
				timer.Reset(f.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if !f.changed() {
				continue
			}
			f.log.Debug("snapshot changed on disk", zap.String("path", f.path))
			fn()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Errors are logged but don't stop the watcher
			f.log.Warn("file watch error", zap.String("path", f.path), zap.Error(err))
		}
	}
}
