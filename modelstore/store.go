// Package modelstore keeps serialized luape models in memory, on disk, or in
// redis.
package modelstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/pkg/errors"
	"github.com/unixpickle/luape/luape"
)

// ErrNotFound is returned when no model has the requested name.
var ErrNotFound = errors.New("model not found")

// A Store maps model names to encoded models.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

// SaveModel encodes a model and stores it under name.
func SaveModel(ctx context.Context, s Store, name string, m *luape.Model) error {
	var buf bytes.Buffer
	if err := luape.WriteModel(&buf, m); err != nil {
		return errors.Wrapf(err, "save model %q", name)
	}
	if err := s.Put(ctx, name, buf.Bytes()); err != nil {
		return errors.Wrapf(err, "save model %q", name)
	}
	return nil
}

// LoadModel reads and decodes the model stored under name.
func LoadModel(ctx context.Context, s Store, name string) (*luape.Model, error) {
	data, err := s.Get(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "load model %q", name)
	}
	m, err := luape.ReadModel(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "load model %q", name)
	}
	return m, nil
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	lock   sync.RWMutex
	models map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{models: map[string][]byte{}}
}

func (m *MemoryStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.models[name] = append([]byte{}, data...)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.lock.RLock()
	defer m.lock.RUnlock()
	data, ok := m.models[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte{}, data...), nil
}

func (m *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.models, name)
	return nil
}

var validName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileStore is a Store keeping one JSON file per model in a directory.
type FileStore struct {
	Dir string
}

func (f *FileStore) path(name string) (string, error) {
	if !validName.MatchString(name) || name == "." || name == ".." {
		return "", errors.Errorf("invalid model name %q", name)
	}
	return filepath.Join(f.Dir, name+".json"), nil
}

func (f *FileStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return errors.Wrap(err, "put model")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "put model")
	}
	return errors.Wrap(os.Rename(tmp, path), "put model")
}

func (f *FileStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "get model")
	}
	return data, nil
}

func (f *FileStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "delete model")
	}
	return nil
}
