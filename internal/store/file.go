package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore keeps all entries in one JSON file, rewritten on every
// mutation. Suited to a single agent process; concurrent processes on
// the same file will lose writes.
type FileStore struct {
	path string

	mu      sync.Mutex
	entries map[string]string
}

// NewFileStore loads (or initializes) the store file at path.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, entries: make(map[string]string)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, fmt.Errorf("open store file: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&fs.entries); err != nil {
		return nil, fmt.Errorf("decode store file: %w", err)
	}
	return fs, nil
}

// save writes the whole entry map back to disk. Caller holds mu.
func (fs *FileStore) save() error {
	tmp := fs.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(fs.entries); err != nil {
		f.Close()
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Clean(fs.path))
}

func (fs *FileStore) Get(_ context.Context, key string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (fs *FileStore) Set(_ context.Context, key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.entries[key] = value
	return fs.save()
}

func (fs *FileStore) Delete(_ context.Context, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.entries[key]; !ok {
		return nil
	}
	delete(fs.entries, key)
	return fs.save()
}

func (fs *FileStore) Keys(_ context.Context, prefix string) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var keys []string
	for k := range fs.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (fs *FileStore) Clear(_ context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.entries = make(map[string]string)
	return fs.save()
}
