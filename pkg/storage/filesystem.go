package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LocalStorage keeps run artifacts on disk, one directory per run.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save writes an artifact of runID and returns its path relative to the base dir.
func (s *LocalStorage) Save(runID, name string, data []byte) (string, error) {
	rel, err := artifactPath(runID, name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare run directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	return rel, nil
}

// Open returns a read-only handle for a stored artifact.
func (s *LocalStorage) Open(relPath string) (*os.File, error) {
	path, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return file, nil
}

// List returns the artifact names stored for runID in lexical order.
func (s *LocalStorage) List(runID string) ([]string, error) {
	dir, err := s.resolve(runID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// DeleteRun removes every artifact of runID.
func (s *LocalStorage) DeleteRun(runID string) error {
	dir, err := s.resolve(runID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete run artifacts: %w", err)
	}
	return nil
}

// CleanupOlderThan removes run directories whose newest file is older than ttl.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("cleanup artifacts: %w", err)
	}
	deleted := make([]string, 0)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(s.baseDir, e.Name())
		newest, err := newestModTime(dir)
		if err != nil {
			return deleted, fmt.Errorf("cleanup artifacts: %w", err)
		}
		if newest.After(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return deleted, fmt.Errorf("cleanup artifacts: %w", err)
		}
		deleted = append(deleted, e.Name())
	}
	return deleted, nil
}

// Path exposes the absolute location of a relative artifact path.
func (s *LocalStorage) Path(relPath string) string {
	return filepath.Join(s.baseDir, filepath.Clean(relPath))
}

func (s *LocalStorage) resolve(relPath string) (string, error) {
	clean := filepath.Clean(relPath)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact path %q escapes storage", relPath)
	}
	return filepath.Join(s.baseDir, clean), nil
}

func artifactPath(runID, name string) (string, error) {
	if runID == "" || name == "" {
		return "", fmt.Errorf("runID and name required")
	}
	if strings.ContainsAny(runID, `/\`) || strings.ContainsAny(name, `/\`) || runID == ".." || name == ".." {
		return "", fmt.Errorf("invalid artifact name %s/%s", runID, name)
	}
	return filepath.Join(runID, name), nil
}

func newestModTime(dir string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest, err
}
