// Package store persists project records between runs so a restart does
// not have to refetch every wiki's namespaces and messages.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crimson-sun/rcwatch/internal/project"
)

// ErrNotFound is returned by Load and Delete for a key with no record.
var ErrNotFound = errors.New("store: record not found")

// Store persists project records by key.
type Store interface {
	Load(ctx context.Context, key string) (project.Record, error)
	Save(ctx context.Context, r project.Record) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the store for driver ("file" or "sqlite") rooted at path.
func Open(ctx context.Context, driver, path string) (Store, error) {
	switch driver {
	case "file", "":
		return NewFile(path)
	case "sqlite":
		return NewSQLite(ctx, path)
	}
	return nil, fmt.Errorf("store: unknown driver %q", driver)
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("store: invalid key %q", key)
	}
	return nil
}

// Reload re-synthesizes one project from its stored record and swaps it
// into reg. A record that no longer exists removes the project. On any
// other failure the registry keeps its previous bundle.
func Reload(ctx context.Context, s Store, reg *project.Registry, key string, logger *slog.Logger) error {
	r, err := s.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		reg.Remove(key)
		return nil
	}
	if err != nil {
		return err
	}
	p, err := project.FromRecord(r, logger)
	if err != nil {
		return err
	}
	reg.Put(p)
	return nil
}

// LoadAll reloads every stored project into reg. Projects that fail to
// load are skipped and their errors joined.
func LoadAll(ctx context.Context, s Store, reg *project.Registry, logger *slog.Logger) error {
	keys, err := s.List(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, key := range keys {
		if err := Reload(ctx, s, reg, key, logger); err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
