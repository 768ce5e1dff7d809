package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/donaldgifford/stock-monitor/internal/metrics"
	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

// DefaultPath is the state file used when none is configured.
const DefaultPath = "product_state.json"

// FileStore keeps the mapping as a flat JSON object on disk.
type FileStore struct {
	path string
	log  *slog.Logger
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithFileLogger sets a custom logger.
func WithFileLogger(l *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		s.log = l
	}
}

// NewFileStore creates a FileStore at path.
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	s := &FileStore{path: path, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the state file. A missing, unreadable or corrupt file yields an
// empty mapping so that monitoring starts from a clean baseline.
func (s *FileStore) Load(_ context.Context) (domain.AvailabilityState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info("no state file yet, starting fresh", "path", s.path)
		return domain.AvailabilityState{}, nil
	}
	if err != nil {
		metrics.StateLoadFailuresTotal.Inc()
		s.log.Warn("state file unreadable, starting fresh", "path", s.path, "error", err)
		return domain.AvailabilityState{}, nil
	}

	st := domain.AvailabilityState{}
	if err := json.Unmarshal(data, &st); err != nil {
		metrics.StateLoadFailuresTotal.Inc()
		s.log.Warn("state file corrupt, starting fresh", "path", s.path, "error", err)
		return domain.AvailabilityState{}, nil
	}
	if st == nil {
		st = domain.AvailabilityState{}
	}
	return st, nil
}

// Save writes the mapping to a temporary file next to the target and
// renames it into place, so readers never observe a partial file.
func (s *FileStore) Save(_ context.Context, st domain.AvailabilityState) error {
	if st == nil {
		st = domain.AvailabilityState{}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	committed = true
	return nil
}
