package clips

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// OutputStorage places rendered clip files
type OutputStorage interface {
	// NewPath returns a fresh output path for a render of the clip
	NewPath(clipID uint) string
	// Prune removes every render of the clip except keep
	Prune(clipID uint, keep string) error
}

// LocalOutputStorage lays renders out as <base>/clips/<id>/<uuid>.mp4
type LocalOutputStorage struct {
	basePath string
}

func NewLocalOutputStorage(basePath string) (*LocalOutputStorage, error) {
	if err := os.MkdirAll(filepath.Join(basePath, "clips"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	return &LocalOutputStorage{basePath: absPath}, nil
}

func (s *LocalOutputStorage) clipDir(clipID uint) string {
	return filepath.Join(s.basePath, "clips", strconv.FormatUint(uint64(clipID), 10))
}

func (s *LocalOutputStorage) NewPath(clipID uint) string {
	return filepath.Join(s.clipDir(clipID), uuid.New().String()+".mp4")
}

func (s *LocalOutputStorage) Prune(clipID uint, keep string) error {
	dir := s.clipDir(clipID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp4") || path == keep {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete file: %w", err)
		}
	}
	return nil
}
