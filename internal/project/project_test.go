package project

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/rcwatch/internal/fetch"
	"github.com/crimson-sun/rcwatch/internal/namespace"
	"github.com/crimson-sun/rcwatch/internal/synth"
	"github.com/crimson-sun/rcwatch/internal/testdata"
)

func build(t *testing.T, ns string, msgs map[string]string) (*Project, error) {
	t.Helper()
	wiki := testdata.NewWiki(ns, msgs)
	t.Cleanup(wiki.Close)
	b := NewBuilder(fetch.New(), nil)
	return b.Build(context.Background(), Identity{Key: "en.wikipedia", Interwiki: "w:en", RootURL: wiki.URL})
}

func mustBuild(t *testing.T, ns string, msgs map[string]string) *Project {
	t.Helper()
	p, err := build(t, ns, msgs)
	require.NoError(t, err)
	return p
}

func TestBuild_English(t *testing.T) {
	p := mustBuild(t, testdata.NamespacesEN, testdata.MessagesEN)

	assert.Equal(t, "en.wikipedia", p.Key())
	assert.True(t, strings.HasSuffix(p.RootURL(), "/"))
	for _, a := range Actions() {
		assert.NotNil(t, p.Pattern(a), "pattern for %s", a)
	}
	assert.Equal(t, DefaultProtectOrder, p.ProtectOrder())

	m, ok := p.SpecialLog().Match("Special:Log/block")
	require.True(t, ok)
	kw, _ := m.Capture(LogTypeCapture)
	assert.Equal(t, "block", kw)

	_, ok = p.SpecialLog().Match("Main Page")
	assert.False(t, ok)

	m, ok = p.Create2().Match("User:Alice:Some note")
	require.True(t, ok)
	name, _ := m.Capture(synth.Item1)
	assert.Equal(t, "Alice", name)
}

func TestBuild_Dutch(t *testing.T) {
	p := mustBuild(t, testdata.NamespacesNL, testdata.MessagesNL)

	_, ok := p.SpecialLog().Match("Speciaal:Log/delete")
	assert.True(t, ok)
	_, ok = p.SpecialLog().Match("Special:Log/delete")
	assert.False(t, ok)

	m, ok := p.Create2().Match("Gebruiker:Piet:hallo")
	require.True(t, ok)
	name, _ := m.Capture(synth.Item1)
	assert.Equal(t, "Piet", name)

	assert.Equal(t, "User:Piet", p.Canonicalize("Gebruiker:Piet"))
}

func TestBuild_ModifyProtectFallsBackToProtect(t *testing.T) {
	msgs := testdata.Clone(testdata.MessagesEN)
	delete(msgs, "MediaWiki:Modifiedarticleprotection")

	p := mustBuild(t, testdata.NamespacesEN, msgs)
	assert.Same(t, p.Pattern(Protect), p.Pattern(ModifyProtect))
}

func TestBuild_MissingReblockMatchesNothing(t *testing.T) {
	msgs := testdata.Clone(testdata.MessagesEN)
	delete(msgs, "MediaWiki:Reblock-logentry")

	p := mustBuild(t, testdata.NamespacesEN, msgs)
	_, ok := p.Pattern(Reblock).Match("changed block settings for [[User:X]] with an expiration time of 1 day (anon. only)")
	assert.False(t, ok)
	_, ok = p.Pattern(Reblock).Match("")
	assert.False(t, ok)
}

func TestBuild_MissingRequiredMessageFails(t *testing.T) {
	msgs := testdata.Clone(testdata.MessagesEN)
	delete(msgs, "MediaWiki:Deletedarticle")

	_, err := build(t, testdata.NamespacesEN, msgs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetch.ErrNotFound), "got %v", err)
}

func TestBuild_EmptyRequiredMessageIsSynthesisError(t *testing.T) {
	msgs := testdata.Clone(testdata.MessagesEN)
	msgs["MediaWiki:Deletedarticle"] = ""

	_, err := build(t, testdata.NamespacesEN, msgs)
	var se *synth.SynthesisError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "MediaWiki:Deletedarticle", se.Message)
}

func TestBuild_UnderSpecifiedMessageIsSynthesisError(t *testing.T) {
	msgs := testdata.Clone(testdata.MessagesEN)
	msgs["MediaWiki:1movedto2"] = "moved [[$1]]"

	_, err := build(t, testdata.NamespacesEN, msgs)
	var se *synth.SynthesisError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Reason, "item2")
}

func TestBuild_MalformedNamespacesIsFormatError(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":   "",
		"garbage": "<api><query>",
		"no ns":   `<api><query><namespaces></namespaces></query></api>`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := build(t, doc, testdata.MessagesEN)
			var fe *namespace.FormatError
			require.ErrorAs(t, err, &fe)
		})
	}
}

func TestBuild_MissingUserNamespaceIsFormatError(t *testing.T) {
	doc := `<api><query><namespaces>` +
		`<ns id="-1">Special</ns><ns id="0" /></namespaces></query></api>`
	_, err := build(t, doc, testdata.MessagesEN)
	var fe *namespace.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Reason, "user")
}

func TestBuild_FetchesFromConfiguredScheme(t *testing.T) {
	wiki := testdata.NewWiki(testdata.NamespacesEN, testdata.MessagesEN)
	defer wiki.Close()

	p, err := NewBuilder(fetch.New(), nil).Build(context.Background(),
		Identity{Key: "en.wikipedia", RootURL: wiki.URL + "//"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(wiki.URL, "http://"))
	assert.Equal(t, wiki.URL+"/", p.RootURL())
}

func TestBuild_EmptyRootURL(t *testing.T) {
	b := NewBuilder(fetch.New(), nil)
	_, err := b.Build(context.Background(), Identity{Key: "x"})
	assert.Error(t, err)
}

func TestURLs(t *testing.T) {
	assert.Equal(t,
		"https://nl.wikipedia.org/w/api.php?format=xml&action=query&meta=siteinfo&siprop=namespaces",
		NamespacesURL("https://nl.wikipedia.org/"))
	assert.Equal(t,
		"https://nl.wikipedia.org/w/index.php?title=MediaWiki%3A1movedto2_redir&action=raw&usemsgcache=yes",
		MessageURL("https://nl.wikipedia.org/", "MediaWiki:1movedto2_redir"))
}

func TestMessageTitle(t *testing.T) {
	assert.Equal(t, "MediaWiki:Blocklogentry", MessageTitle(Block))
	assert.Equal(t, "", MessageTitle(Action("bogus")))
	assert.Len(t, Actions(), 13)
}

func TestDefaultIdentity(t *testing.T) {
	id := DefaultIdentity("nl.wiktionary")
	assert.Equal(t, "nl.wiktionary", id.Key)
	assert.Equal(t, "https://nl.wiktionary.org/", id.RootURL)
}
