// Package store persists artifacts as keyed objects with string metadata.
package store

import (
	"context"
	"errors"
	"maps"
	"strings"
	"sync"
)

// ErrNotFound is returned when no object exists at a key.
var ErrNotFound = errors.New("object not found")

// Object is a stored body with its content type and metadata.
type Object struct {
	Key         string
	ContentType string
	Body        []byte
	Metadata    map[string]string
}

// Store is a flat keyed object store.
type Store interface {
	Put(ctx context.Context, obj Object) error
	// Head returns an object's metadata with lower-cased keys.
	Head(ctx context.Context, key string) (map[string]string, error)
	Get(ctx context.Context, key string) (Object, error)
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.Mutex
	objects map[string]Object
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

func (m *Memory) Put(_ context.Context, obj Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj.Body = append([]byte(nil), obj.Body...)
	obj.Metadata = lowerKeys(obj.Metadata)
	m.objects[obj.Key] = obj
	return nil
}

func (m *Memory) Head(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return maps.Clone(obj.Metadata), nil
}

func (m *Memory) Get(_ context.Context, key string) (Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return Object{}, ErrNotFound
	}
	obj.Body = append([]byte(nil), obj.Body...)
	obj.Metadata = maps.Clone(obj.Metadata)
	return obj, nil
}

// Keys returns the stored keys in no particular order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
