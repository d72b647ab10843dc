package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MetaSuffix is appended to an object's path to form its metadata sidecar.
const MetaSuffix = ".meta.yaml"

// FS stores objects as files under a root directory. Each body at
// <root>/<key> has a YAML sidecar at <root>/<key>.meta.yaml.
type FS struct {
	root string
}

type sidecar struct {
	ContentType string            `yaml:"content_type,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`
}

// NewFS returns a store rooted at dir.
func NewFS(dir string) *FS {
	return &FS{root: dir}
}

// Root returns the directory objects are stored under.
func (s *FS) Root() string { return s.root }

func (s *FS) path(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if key == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, rel), nil
}

func (s *FS) Put(ctx context.Context, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(obj.Key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", obj.Key, err)
	}
	if err := os.WriteFile(p, obj.Body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", obj.Key, err)
	}

	meta, err := yaml.Marshal(sidecar{ContentType: obj.ContentType, Metadata: lowerKeys(obj.Metadata)})
	if err != nil {
		return fmt.Errorf("marshaling metadata for %s: %w", obj.Key, err)
	}
	if err := os.WriteFile(p+MetaSuffix, meta, 0o644); err != nil {
		return fmt.Errorf("writing metadata for %s: %w", obj.Key, err)
	}
	return nil
}

// Head returns the metadata of the object at key. A body without a sidecar
// has empty metadata.
func (s *FS) Head(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	sc, err := readSidecar(p + MetaSuffix)
	if err != nil {
		return nil, fmt.Errorf("reading metadata for %s: %w", key, err)
	}
	return lowerKeys(sc.Metadata), nil
}

func (s *FS) Get(ctx context.Context, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	p, err := s.path(key)
	if err != nil {
		return Object{}, err
	}
	body, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Object{}, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return Object{}, fmt.Errorf("reading %s: %w", key, err)
	}
	sc, err := readSidecar(p + MetaSuffix)
	if err != nil {
		return Object{}, fmt.Errorf("reading metadata for %s: %w", key, err)
	}
	return Object{Key: key, ContentType: sc.ContentType, Body: body, Metadata: lowerKeys(sc.Metadata)}, nil
}

func readSidecar(path string) (sidecar, error) {
	var sc sidecar
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return sc, nil
	}
	if err != nil {
		return sc, err
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return sc, err
	}
	return sc, nil
}
