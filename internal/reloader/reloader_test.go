package reloader

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/rcwatch/internal/debugsink"
	"github.com/crimson-sun/rcwatch/internal/fetch"
	"github.com/crimson-sun/rcwatch/internal/metrics"
	"github.com/crimson-sun/rcwatch/internal/project"
	"github.com/crimson-sun/rcwatch/internal/store"
	"github.com/crimson-sun/rcwatch/internal/testdata"
)

// wikiBuilder points every build at one fake wiki and fails keys listed
// in fail.
type wikiBuilder struct {
	inner *project.Builder
	url   string

	mu     sync.Mutex
	fail   map[string]bool
	builds []string
}

func newWikiBuilder(t *testing.T) *wikiBuilder {
	t.Helper()
	wiki := testdata.NewWiki(testdata.NamespacesEN, testdata.MessagesEN)
	t.Cleanup(wiki.Close)
	return &wikiBuilder{inner: project.NewBuilder(fetch.New(), nil), url: wiki.URL, fail: map[string]bool{}}
}

func (b *wikiBuilder) Build(ctx context.Context, id project.Identity) (*project.Project, error) {
	b.mu.Lock()
	b.builds = append(b.builds, id.Key)
	fail := b.fail[id.Key]
	b.mu.Unlock()
	if fail {
		return nil, errors.New("wiki unreachable")
	}
	id.RootURL = b.url
	return b.inner.Build(ctx, id)
}

type sinkRecorder struct{ codes []string }

func (s *sinkRecorder) Report(_, code, _, _ string) { s.codes = append(s.codes, code) }

func newReloader(t *testing.T, b Builder, opts ...Option) (*Reloader, store.Store, *project.Registry) {
	t.Helper()
	st, err := store.NewFile(t.TempDir())
	require.NoError(t, err)
	reg := project.NewRegistry()
	return New(b, st, reg, opts...), st, reg
}

func TestStartBuildsMissingProjects(t *testing.T) {
	ctx := context.Background()
	b := newWikiBuilder(t)
	m := metrics.New()
	r, st, reg := newReloader(t, b, WithMetrics(m))

	require.NoError(t, r.Start(ctx, []string{"en.wikipedia", "nl.wikipedia"}))
	assert.Equal(t, []string{"en.wikipedia", "nl.wikipedia"}, reg.Keys())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProjectsOnline))

	keys, err := st.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"en.wikipedia", "nl.wikipedia"}, keys)

	// A second start loads from the store without fetching.
	r2 := New(b, st, project.NewRegistry())
	b.builds = nil
	require.NoError(t, r2.Start(ctx, []string{"en.wikipedia"}))
	assert.Empty(t, b.builds)
}

func TestStartReportsFailures(t *testing.T) {
	b := newWikiBuilder(t)
	b.fail["xx.wikipedia"] = true
	sink := &sinkRecorder{}
	r, _, reg := newReloader(t, b, WithDebugSink(sink))

	err := r.Start(context.Background(), []string{"en.wikipedia", "xx.wikipedia"})
	assert.ErrorContains(t, err, "wiki unreachable")
	assert.Equal(t, []string{"en.wikipedia"}, reg.Keys())
	assert.Equal(t, []string{debugsink.CodeSynthesis}, sink.codes)
}

func TestRefreshKeepsPreviousBundleOnFailure(t *testing.T) {
	ctx := context.Background()
	b := newWikiBuilder(t)
	r, _, reg := newReloader(t, b)
	require.NoError(t, r.Start(ctx, []string{"en.wikipedia", "nl.wikipedia"}))

	oldEN, _ := reg.Get("en.wikipedia")
	oldNL, _ := reg.Get("nl.wikipedia")
	b.fail["en.wikipedia"] = true

	err := r.Refresh(ctx)
	assert.ErrorContains(t, err, "wiki unreachable")

	en, _ := reg.Get("en.wikipedia")
	nl, _ := reg.Get("nl.wikipedia")
	assert.Same(t, oldEN, en)
	assert.NotSame(t, oldNL, nl)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	b := newWikiBuilder(t)
	r, st, reg := newReloader(t, b)
	require.NoError(t, r.Start(ctx, []string{"en.wikipedia"}))
	before, _ := reg.Get("en.wikipedia")

	rec, err := st.Load(ctx, "en.wikipedia")
	require.NoError(t, err)
	rec.ProtectOrder = []string{"modifyprotect", "protect", "unprotect"}
	require.NoError(t, st.Save(ctx, rec))

	require.NoError(t, r.Apply(ctx, store.Change{Key: "en.wikipedia"}))
	after, _ := reg.Get("en.wikipedia")
	assert.NotSame(t, before, after)
	assert.Equal(t, project.ModifyProtect, after.ProtectOrder()[0])

	// A broken edit keeps the current bundle.
	rec.Namespaces = ""
	require.NoError(t, st.Save(ctx, rec))
	assert.Error(t, r.Apply(ctx, store.Change{Key: "en.wikipedia"}))
	still, _ := reg.Get("en.wikipedia")
	assert.Same(t, after, still)

	require.NoError(t, st.Delete(ctx, "en.wikipedia"))
	require.NoError(t, r.Apply(ctx, store.Change{Key: "en.wikipedia", Removed: true}))
	assert.Zero(t, reg.Len())
}

func TestWatchStopsOnClose(t *testing.T) {
	r, _, _ := newReloader(t, newWikiBuilder(t))
	ch := make(chan store.Change)
	done := make(chan struct{})
	go func() {
		r.Watch(context.Background(), ch)
		close(done)
	}()
	close(ch)
	<-done
}
