package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is a write-once sink for generated receipts. Save returns the
// identifier (a path for file-backed stores) the document can be read
// back from, and fails if the name is already taken.
type Store interface {
	Save(name string, data []byte) (string, error)
}

// DirStore writes receipts into a fixed directory on the local filesystem.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create receipt directory %s: %w", dir, err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) Save(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create receipt file %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write receipt file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close receipt file %s: %w", path, err)
	}

	return path, nil
}

// MemStore keeps receipts in memory. Used in tests in place of DirStore.
type MemStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{files: make(map[string][]byte)}
}

func (s *MemStore) Save(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[name]; exists {
		return "", fmt.Errorf("receipt %s already exists", name)
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	s.files[name] = buf

	return name, nil
}

// Get returns a stored receipt by the name Save was called with.
func (s *MemStore) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.files[name]
	return data, ok
}

// Len reports how many receipts the store holds.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.files)
}
