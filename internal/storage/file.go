package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mulligan-golf/mulligan-go/internal/infra/confloader"
	"github.com/mulligan-golf/mulligan-go/internal/telemetry/logger"
)

// FileStore keeps the token in a single file.
type FileStore struct {
	path   string
	logger logger.Logger
}

// NewFileStore creates a file store. The parent directory is created on
// the first Save.
func NewFileStore(path string, l logger.Logger) *FileStore {
	if l == nil {
		l = logger.Default()
	}
	return &FileStore{path: path, logger: l}
}

// Path returns the token file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements TokenStore.
func (s *FileStore) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}

// Save implements TokenStore. The file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, token string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if _, err := tmp.WriteString(token + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}

	s.logger.Debug("token persisted", "path", s.path)
	return nil
}

// Clear implements TokenStore.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	s.logger.Debug("token cleared", "path", s.path)
	return nil
}

// Close implements TokenStore.
func (s *FileStore) Close() error {
	return nil
}

// Watch implements Watchable using fsnotify on the token file.
func (s *FileStore) Watch(fn func()) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, fmt.Errorf("create token dir: %w", err)
	}

	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("create token watcher: %w", err)
	}
	if err := w.Watch(s.path); err != nil {
		w.Stop()
		return nil, err
	}

	w.OnChange(func(string) { fn() })
	w.StartAsync()
	return w.Stop, nil
}
