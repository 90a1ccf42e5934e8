package etl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BartekS5/steampulse/pkg/logger"
	"github.com/BartekS5/steampulse/pkg/models"
)

// FileIdentifierStore keeps the discovery result as a JSON array of integers.
type FileIdentifierStore struct {
	Path string
}

func NewFileIdentifierStore(path string) *FileIdentifierStore {
	return &FileIdentifierStore{Path: path}
}

// Load keeps the first occurrence of an identifier listed more than once.
func (s *FileIdentifierStore) Load(ctx context.Context) ([]models.AppID, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identifier store '%s': %w", s.Path, err)
	}

	var ids []models.AppID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse identifier store '%s': %w", s.Path, err)
	}

	index := newIDIndex()
	for _, id := range ids {
		index.add(id)
	}
	if dropped := len(ids) - index.len(); dropped > 0 {
		logger.Warn("identifier store lists duplicates, keeping first occurrences", "path", s.Path, "dropped", dropped)
		return index.order, nil
	}

	return ids, nil
}

// Save replaces the snapshot atomically so a crash never leaves a truncated list behind.
func (s *FileIdentifierStore) Save(ctx context.Context, ids []models.AppID) error {
	if ids == nil {
		ids = []models.AppID{}
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}

	return writeFileAtomic(s.Path, data)
}

// FileCheckpointStore keeps {"last_index": n} in a single file.
type FileCheckpointStore struct {
	Path string
}

func NewFileCheckpointStore(path string) *FileCheckpointStore {
	return &FileCheckpointStore{Path: path}
}

// Load returns 0 when no checkpoint exists yet.
func (s *FileCheckpointStore) Load(ctx context.Context) (int, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read checkpoint '%s': %w", s.Path, err)
	}

	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return 0, fmt.Errorf("failed to parse checkpoint '%s': %w", s.Path, err)
	}
	if cp.LastIndex < 0 {
		return 0, fmt.Errorf("checkpoint '%s' holds negative index %d", s.Path, cp.LastIndex)
	}

	return cp.LastIndex, nil
}

func (s *FileCheckpointStore) Save(ctx context.Context, next int) error {
	current, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if next < current {
		return fmt.Errorf("%w: %d -> %d", ErrCheckpointRegression, current, next)
	}

	data, err := json.Marshal(models.Checkpoint{LastIndex: next})
	if err != nil {
		return err
	}

	return writeFileAtomic(s.Path, data)
}

func (s *FileCheckpointStore) Reset(ctx context.Context) error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// FileSink writes each batch to <Dir>/batch_<label>.json as a JSON array.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

// BatchFileName is shared by the local file layout and the remote object keys.
func BatchFileName(label string) string {
	return "batch_" + label + ".json"
}

func (s *FileSink) Write(ctx context.Context, label string, records []models.Record) (string, error) {
	data, err := EncodeArray(records)
	if err != nil {
		return "", fmt.Errorf("encode batch %s: %w", label, err)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(s.Dir, BatchFileName(label))
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}

	return path, nil
}

// List returns the names of every *.json object, sorted. A missing directory is empty.
func (s *FileSink) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

func (s *FileSink) Read(ctx context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.Dir, filepath.Base(name)))
}

// writeFileAtomic stages data in a hidden temp file next to path, syncs it and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true

	return nil
}
