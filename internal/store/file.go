package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crimson-sun/rcwatch/internal/project"
)

// Ext is the file extension of a stored record.
const Ext = ".toml"

// File stores one TOML record per project in a directory, named
// <key>.toml, so operators can read and edit them by hand.
type File struct {
	dir string
}

// NewFile opens (or creates) a file store in dir.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

// Dir returns the directory records are kept in.
func (f *File) Dir() string { return f.dir }

// Path returns the file a key is stored in.
func (f *File) Path(key string) string {
	return filepath.Join(f.dir, key+Ext)
}

func (f *File) Load(_ context.Context, key string) (project.Record, error) {
	if err := checkKey(key); err != nil {
		return project.Record{}, err
	}
	data, err := os.ReadFile(f.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return project.Record{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return project.Record{}, fmt.Errorf("store: read %s: %w", key, err)
	}
	r, err := project.UnmarshalRecord(data)
	if err != nil {
		return project.Record{}, fmt.Errorf("store: %s: %w", f.Path(key), err)
	}
	if r.Key != key {
		return project.Record{}, fmt.Errorf("store: %s holds record for %q", f.Path(key), r.Key)
	}
	return r, nil
}

// Save writes the record to a temporary file and renames it into place,
// so a watcher never sees a half-written record.
func (f *File) Save(_ context.Context, r project.Record) error {
	if err := checkKey(r.Key); err != nil {
		return err
	}
	data, err := project.MarshalRecord(r)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, "."+r.Key+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: save %s: %w", r.Key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("store: save %s: %w", r.Key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: save %s: %w", r.Key, err)
	}
	if err := os.Rename(tmp.Name(), f.Path(r.Key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: save %s: %w", r.Key, err)
	}
	return nil
}

func (f *File) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if key, ok := KeyOf(e.Name()); ok && !e.IsDir() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *File) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := os.Remove(f.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return err
}

func (f *File) Close() error { return nil }

// KeyOf returns the project key a record file name stands for.
// Hidden and temporary files are not records.
func KeyOf(name string) (string, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, Ext) {
		return "", false
	}
	key := strings.TrimSuffix(base, Ext)
	return key, key != ""
}
