package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/laurinneff/passwd.mgr/internal/events"
)

// DefaultMaxFileSize bounds what Read and Write accept.
const DefaultMaxFileSize = 64 * 1024 * 1024

// LocalStore implements BlobStore on the local file system. Paths are used
// as given, relative to the working directory.
type LocalStore struct {
	logger      *events.Logger
	maxFileSize int64
}

// NewLocalStore creates a local file store.
func NewLocalStore(logger *events.Logger) *LocalStore {
	return &LocalStore{
		logger:      logger.WithField("component", "local_store"),
		maxFileSize: DefaultMaxFileSize,
	}
}

// SetMaxFileSize sets the maximum file size limit.
func (s *LocalStore) SetMaxFileSize(size int64) {
	s.maxFileSize = size
}

// Write saves data to a file atomically: the data goes to a temp file in the
// same directory, is synced, and is renamed over path.
func (s *LocalStore) Write(path string, data []byte, mode os.FileMode) error {
	tempPath, err := s.writeTemp(path, data, mode)
	if err != nil {
		return err
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	syncDir(filepath.Dir(path))

	return nil
}

// Create saves data to a new file. The final step is a hard link, which
// fails instead of replacing a file that appeared in the meantime.
func (s *LocalStore) Create(path string, data []byte, mode os.FileMode) error {
	tempPath, err := s.writeTemp(path, data, mode)
	if err != nil {
		return err
	}
	defer os.Remove(tempPath)

	if err := os.Link(tempPath, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrFileExists, path)
		}
		return fmt.Errorf("link temp file: %w", err)
	}
	syncDir(filepath.Dir(path))

	return nil
}

func (s *LocalStore) writeTemp(path string, data []byte, mode os.FileMode) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}

	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"size": len(data),
		"mode": fmt.Sprintf("%#o", mode),
	}).Debug("Writing file")

	if int64(len(data)) > s.maxFileSize {
		return "", fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, len(data), s.maxFileSize)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create parent directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if err := tempFile.Chmod(mode); err != nil {
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tempFile.Write(data); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return "", fmt.Errorf("sync file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	success = true
	return tempPath, nil
}

// Read retrieves file contents.
func (s *LocalStore) Read(path string) ([]byte, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("read file: %s is a directory", path)
	}
	if info.Size() > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, info.Size(), s.maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"size": len(data),
	}).Debug("Read file")

	return data, nil
}

// Delete removes a file.
func (s *LocalStore) Delete(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	s.logger.WithField("path", path).Debug("Deleting file")

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil // Already deleted
		}
		return fmt.Errorf("delete file: %w", err)
	}

	return nil
}

// Exists checks if a file exists.
func (s *LocalStore) Exists(path string) (bool, error) {
	if err := validatePath(path); err != nil {
		return false, err
	}

	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Stat returns file information.
func (s *LocalStore) Stat(path string) (FileInfo, error) {
	if err := validatePath(path); err != nil {
		return FileInfo{}, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileInfo{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return FileInfo{}, fmt.Errorf("stat file: %w", err)
	}

	return FileInfo{
		Path:    path,
		Size:    stat.Size(),
		Mode:    stat.Mode(),
		ModTime: stat.ModTime(),
	}, nil
}

func validatePath(path string) error {
	if path == "" {
		return errors.New("invalid path: empty")
	}
	if strings.ContainsRune(path, 0) {
		return errors.New("invalid path: contains null bytes")
	}
	return nil
}

// syncDir flushes a directory entry after a rename. Some platforms cannot
// open directories for syncing; that is not an error.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}
