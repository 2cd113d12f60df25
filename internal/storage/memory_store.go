package storage

import (
	"fmt"
	"os"
	"sync"
	"time"
)

type memoryFile struct {
	data    []byte
	mode    os.FileMode
	modTime time.Time
}

// MemoryStore is an in-memory BlobStore for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string]memoryFile

	// WriteErr, when set, is returned by every Write and Create.
	WriteErr error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files: make(map[string]memoryFile),
	}
}

// Write saves a copy of data under path.
func (m *MemoryStore) Write(path string, data []byte, mode os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.put(path, data, mode)
	return nil
}

// Create saves data under path unless it is already taken.
func (m *MemoryStore) Create(path string, data []byte, mode os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return m.WriteErr
	}
	if _, ok := m.files[path]; ok {
		return fmt.Errorf("%w: %s", ErrFileExists, path)
	}
	m.put(path, data, mode)
	return nil
}

func (m *MemoryStore) put(path string, data []byte, mode os.FileMode) {
	m.files[path] = memoryFile{
		data:    append([]byte(nil), data...),
		mode:    mode,
		modTime: time.Now(),
	}
}

// Read retrieves a copy of the file contents.
func (m *MemoryStore) Read(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if f, ok := m.files[path]; ok {
		return append([]byte(nil), f.data...), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
}

// Delete removes a file.
func (m *MemoryStore) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.files, path)
	return nil
}

// Exists checks if a file exists.
func (m *MemoryStore) Exists(path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.files[path]
	return exists, nil
}

// Stat returns file information.
func (m *MemoryStore) Stat(path string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.files[path]
	if !ok {
		return FileInfo{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return FileInfo{
		Path:    path,
		Size:    int64(len(f.data)),
		Mode:    f.mode,
		ModTime: f.modTime,
	}, nil
}

// Len returns the number of stored files.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.files)
}
