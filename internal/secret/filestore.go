package secret

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore implements SecretStore with one file per secret under a
// directory only the service user can read.
type FileStore struct {
	dir string
}

// NewFileStore creates (if needed) the secrets directory with 0700.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create secrets directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// path hashes the key so arbitrary key strings stay safe as filenames.
func (f *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:]))
}

func (f *FileStore) Set(key string, value []byte) error {
	if err := os.WriteFile(f.path(key), value, 0600); err != nil {
		return fmt.Errorf("write secret: %w", err)
	}
	return nil
}

func (f *FileStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secret: %w", err)
	}
	return data, nil
}

func (f *FileStore) Delete(key string) error {
	err := os.Remove(f.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
