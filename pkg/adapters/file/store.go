package file

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
)

// Format selects the on-disk encoding of a history.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Store implements ports.HistoryStore using the local filesystem.
// Each document's history is one file in BasePath.
type Store struct {
	BasePath string
	format   Format
}

// Option configures a Store.
type Option func(*Store)

// WithFormat selects JSON (default) or YAML files.
func WithFormat(f Format) Option {
	return func(s *Store) {
		if f != "" {
			s.format = f
		}
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".undolog/histories".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".undolog", "histories")
	}
	s := &Store{BasePath: basePath, format: FormatJSON}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ext() string {
	if s.format == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// path maps a document ID, which is often itself a file path, to a flat file name.
func (s *Store) path(documentID string) string {
	return filepath.Join(s.BasePath, url.PathEscape(documentID)+s.ext())
}

func (s *Store) marshal(h *domain.History) ([]byte, error) {
	if s.format == FormatYAML {
		return yaml.Marshal(h)
	}
	return json.MarshalIndent(h, "", "  ")
}

func (s *Store) unmarshal(data []byte, h *domain.History) error {
	if s.format == FormatYAML {
		return yaml.Unmarshal(data, h)
	}
	return json.Unmarshal(data, h)
}

// Save persists the history atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, documentID string, history *domain.History) error {
	if documentID == "" {
		return fmt.Errorf("documentID cannot be empty")
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure history directory: %w", err)
	}

	destPath := s.path(documentID)

	data, err := s.marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	// Same directory, so the rename stays on one filesystem
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-*"+s.ext()+".part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing history file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to history file: %w", err)
	}
	return nil
}

// Load reads the history of a document.
func (s *Store) Load(ctx context.Context, documentID string) (*domain.History, error) {
	if documentID == "" {
		return nil, fmt.Errorf("documentID cannot be empty")
	}

	data, err := os.ReadFile(s.path(documentID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var history domain.History
	if err := s.unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptHistory, err)
	}
	return &history, nil
}

// Delete removes the history file.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("documentID cannot be empty")
	}

	err := os.Remove(s.path(documentID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete history file: %w", err)
	}
	return nil
}

// List returns every document ID with a history file of the store's format.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list histories: %w", err)
	}

	ext := s.ext()
	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
