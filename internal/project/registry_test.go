package project

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/rcwatch/internal/testdata"
)

func TestRegistry_SwapIsWholeBundle(t *testing.T) {
	first := mustBuild(t, testdata.NamespacesEN, testdata.MessagesEN)
	reg := NewRegistry()
	reg.Put(first)

	got, ok := reg.Get("en.wikipedia")
	require.True(t, ok)
	assert.Same(t, first, got)

	second := mustBuild(t, testdata.NamespacesEN, testdata.MessagesEN)
	reg.Put(second)

	now, _ := reg.Get("en.wikipedia")
	assert.Same(t, second, now)
	// A reader holding the old bundle still sees a complete project.
	assert.NotNil(t, got.Pattern(Block))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_KeysAndRemove(t *testing.T) {
	rec := mustBuild(t, testdata.NamespacesEN, testdata.MessagesEN).Record()
	reg := NewRegistry()
	for _, key := range []string{"fr.wikipedia", "de.wikipedia", "en.wikipedia"} {
		rec.Key = key
		p, err := FromRecord(rec, nil)
		require.NoError(t, err)
		reg.Put(p)
	}
	assert.Equal(t, []string{"de.wikipedia", "en.wikipedia", "fr.wikipedia"}, reg.Keys())

	reg.Remove("de.wikipedia")
	_, ok := reg.Get("de.wikipedia")
	assert.False(t, ok)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	p := mustBuild(t, testdata.NamespacesEN, testdata.MessagesEN)
	reg := NewRegistry()
	reg.Put(p)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got, ok := reg.Get("en.wikipedia"); ok {
					got.Pattern(Delete).Match(`deleted "[[Foo]]"`)
				}
				reg.Put(p)
			}
		}()
	}
	wg.Wait()
}
