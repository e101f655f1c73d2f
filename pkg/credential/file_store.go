package credential

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// fileFormat is the on-disk shape of a FileStore's backing file: a flat
// map of credential id to cleartext value.
type fileFormat struct {
	Credentials map[string]string `yaml:"credentials"`
}

// FileStore is the reference Lookup implementation: a YAML file of
// id -> value pairs, loaded at startup and watched for changes.
type FileStore struct {
	path string

	mu      sync.RWMutex
	secrets map[string]string
	loadErr error

	watcher *fsnotify.Watcher
	closed  bool
}

// NewFileStore loads path and starts watching it for changes.
func NewFileStore(path string) (*FileStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("credential file store: resolve path: %w", err)
	}

	s := &FileStore{path: absPath}
	if err := s.reload(); err != nil {
		return nil, fmt.Errorf("credential file store: initial load: %w", err)
	}

	if err := s.watch(); err != nil {
		return nil, fmt.Errorf("credential file store: watch: %w", err)
	}

	return s, nil
}

func (s *FileStore) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var parsed fileFormat
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.secrets = parsed.Credentials
	s.loadErr = nil
	s.mu.Unlock()
	return nil
}

func (s *FileStore) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	s.watcher = watcher

	dir := filepath.Dir(s.path)
	file := filepath.Base(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}

	go s.watchLoop(watcher, file)
	return nil
}

func (s *FileStore) watchLoop(watcher *fsnotify.Watcher, file string) {
	var debounce *time.Timer
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != file {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				if err := s.reload(); err != nil {
					slog.Error("credential file store reload failed", "path", s.path, "error", err)
					s.mu.Lock()
					s.loadErr = err
					s.mu.Unlock()
				} else {
					slog.Info("credential file store reloaded", "path", s.path)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("credential file watcher error", "error", err)
		}
	}
}

func (s *FileStore) Resolve(ctx context.Context, id string) (Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.secrets[id]
	if !ok {
		return Secret{}, ErrMissing
	}
	return Secret{ID: id, Value: value}, nil
}

func (s *FileStore) Health(ctx context.Context) HealthReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.loadErr != nil {
		return HealthReport{Healthy: false, Message: s.loadErr.Error(), CheckedAt: time.Now()}
	}
	return HealthReport{Healthy: true, Message: fmt.Sprintf("%d credentials loaded", len(s.secrets)), CheckedAt: time.Now()}
}

// Close stops the file watcher.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

var _ Lookup = (*FileStore)(nil)
