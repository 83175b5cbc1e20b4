package authclient

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileTokenStore keeps the token in a file under the user's config dir,
// standing in for the browser's local storage.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

// NewFileTokenStore stores the token at <user config dir>/cityhub/token
// unless an explicit path is given.
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		dir, err := os.UserConfigDir()

		if err != nil {
			return nil, err
		}

		path = filepath.Join(dir, "cityhub", "token")
	}

	return &FileTokenStore{path: path}, nil
}

func (f *FileTokenStore) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}

		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}

func (f *FileTokenStore) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}

	return os.WriteFile(f.path, []byte(token), 0o600)
}

func (f *FileTokenStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

// MemoryTokenStore is a TokenStore for tests and throwaway sessions.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryTokenStore() *MemoryTokenStore { return &MemoryTokenStore{} }

func (m *MemoryTokenStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
