package storage

import (
	"errors"
	"os"
	"time"
)

// Errors
var (
	ErrFileNotFound = errors.New("file not found")
	ErrFileExists   = errors.New("file already exists")
	ErrFileTooLarge = errors.New("file too large")
)

// BlobStore reads and writes whole files.
type BlobStore interface {
	// Write replaces the file at path atomically.
	Write(path string, data []byte, mode os.FileMode) error

	// Create writes a new file and fails with ErrFileExists if path is taken.
	Create(path string, data []byte, mode os.FileMode) error

	// Read retrieves file contents. A missing file is ErrFileNotFound.
	Read(path string) ([]byte, error)

	// Delete removes a file. Deleting a missing file is not an error.
	Delete(path string) error

	// Exists checks if a file exists.
	Exists(path string) (bool, error)

	// Stat returns file information.
	Stat(path string) (FileInfo, error)
}

// FileInfo contains file metadata.
type FileInfo struct {
	Path    string
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
}
