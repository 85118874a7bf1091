package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/rcwatch/internal/fetch"
	"github.com/crimson-sun/rcwatch/internal/project"
	"github.com/crimson-sun/rcwatch/internal/testdata"
)

func record(t *testing.T, key string) project.Record {
	t.Helper()
	wiki := testdata.NewWiki(testdata.NamespacesEN, testdata.MessagesEN)
	t.Cleanup(wiki.Close)

	p, err := project.NewBuilder(fetch.New(), nil).Build(context.Background(),
		project.Identity{Key: key, RootURL: wiki.URL})
	require.NoError(t, err)
	return p.Record()
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	file, err := Open(ctx, "file", filepath.Join(t.TempDir(), "projects"))
	require.NoError(t, err)
	db, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "rcwatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return map[string]Store{"file": file, "sqlite": db}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	en := record(t, "en.wikipedia")
	nl := record(t, "nl.wikipedia")

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, nl))
			require.NoError(t, s.Save(ctx, en))

			keys, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"en.wikipedia", "nl.wikipedia"}, keys)

			got, err := s.Load(ctx, "en.wikipedia")
			require.NoError(t, err)
			assert.Equal(t, en, got)

			// Saving again replaces the record.
			en2 := en
			en2.Interwiki = "en"
			require.NoError(t, s.Save(ctx, en2))
			got, err = s.Load(ctx, "en.wikipedia")
			require.NoError(t, err)
			assert.Equal(t, "en", got.Interwiki)

			require.NoError(t, s.Delete(ctx, "nl.wikipedia"))
			_, err = s.Load(ctx, "nl.wikipedia")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, "nl.wikipedia"), ErrNotFound)
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "redis", "x")
	assert.ErrorContains(t, err, "unknown driver")
}

func TestFileRejectsBadKeys(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../etc", "a/b"} {
		_, err := f.Load(context.Background(), key)
		assert.ErrorContains(t, err, "invalid key", key)
	}
}

func TestFileIgnoresStrayFiles(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, f.Save(context.Background(), record(t, "en.wikipedia")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".en.wikipedia.123.tmp"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.toml"), 0o755))

	keys, err := f.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"en.wikipedia"}, keys)
}

func TestFileKeyMismatch(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)

	data, err := project.MarshalRecord(record(t, "en.wikipedia"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.Path("de.wikipedia"), data, 0o644))

	_, err = f.Load(context.Background(), "de.wikipedia")
	assert.ErrorContains(t, err, `"en.wikipedia"`)
}

func TestKeyOf(t *testing.T) {
	tests := []struct {
		name string
		key  string
		ok   bool
	}{
		{"en.wikipedia.toml", "en.wikipedia", true},
		{"/tmp/projects/nl.wiktionary.toml", "nl.wiktionary", true},
		{".hidden.toml", "", false},
		{"notes.txt", "", false},
		{".toml", "", false},
	}
	for _, tt := range tests {
		key, ok := KeyOf(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.key, key, tt.name)
	}
}

func TestLoadAllAndReload(t *testing.T) {
	ctx := context.Background()
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, f.Save(ctx, record(t, "en.wikipedia")))

	broken := record(t, "xx.wikipedia")
	broken.Namespaces = "<api></api>"
	require.NoError(t, f.Save(ctx, broken))

	reg := project.NewRegistry()
	err = LoadAll(ctx, f, reg, nil)
	assert.ErrorContains(t, err, "xx.wikipedia")
	assert.Equal(t, []string{"en.wikipedia"}, reg.Keys())

	// A failed reload keeps the previous bundle.
	before, _ := reg.Get("en.wikipedia")
	bad := record(t, "en.wikipedia")
	bad.Namespaces = ""
	require.NoError(t, f.Save(ctx, bad))
	assert.Error(t, Reload(ctx, f, reg, "en.wikipedia", nil))
	after, _ := reg.Get("en.wikipedia")
	assert.Same(t, before, after)

	// A removed record removes the project.
	require.NoError(t, f.Delete(ctx, "en.wikipedia"))
	require.NoError(t, Reload(ctx, f, reg, "en.wikipedia", nil))
	assert.Zero(t, reg.Len())
}

func TestWatcher(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)

	w, err := NewWatcher(dir)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)

	rec := record(t, "en.wikipedia")
	require.NoError(t, f.Save(ctx, rec))
	// A burst of writes to the same file is reported once.
	require.NoError(t, f.Save(ctx, rec))

	select {
	case c := <-w.Changes:
		assert.Equal(t, "en.wikipedia", c.Key)
		assert.False(t, c.Removed)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for save")
	}

	require.NoError(t, f.Delete(ctx, "en.wikipedia"))
	select {
	case c := <-w.Changes:
		assert.Equal(t, "en.wikipedia", c.Key)
		assert.True(t, c.Removed)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for delete")
	}
}
