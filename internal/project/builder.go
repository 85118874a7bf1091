package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/crimson-sun/rcwatch/internal/fetch"
	"github.com/crimson-sun/rcwatch/internal/namespace"
	"github.com/crimson-sun/rcwatch/internal/synth"
	"github.com/crimson-sun/rcwatch/internal/wikiurl"
)

// Fetcher retrieves a document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Builder brings a project online from its live wiki: it fetches the
// namespace listing and every interface message, then synthesizes the
// pattern bundle.
type Builder struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewBuilder creates a Builder that retrieves documents with f.
func NewBuilder(f Fetcher, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{fetcher: f, logger: logger.With("component", "builder")}
}

// NamespacesURL returns the siteinfo namespace listing URL for a wiki root.
func NamespacesURL(root string) string {
	return root + "w/api.php?format=xml&action=query&meta=siteinfo&siprop=namespaces"
}

// MessageURL returns the raw wikitext URL of an interface message.
func MessageURL(root, title string) string {
	return root + "w/index.php?title=" + url.QueryEscape(title) + "&action=raw&usemsgcache=yes"
}

// Build fetches and synthesizes a Project. Any failure aborts the build:
// a project is never brought online half-built.
func (b *Builder) Build(ctx context.Context, id Identity) (*Project, error) {
	start := time.Now()
	s := parts{id: id, templates: make(map[Action]string, len(messages))}
	root := wikiurl.Trim(id.RootURL)
	if root == "" {
		return nil, fmt.Errorf("project %s: empty root URL", id.Key)
	}

	b.logger.Info("fetching namespaces", "project", id.Key, "root", root)
	doc, err := b.fetcher.Fetch(ctx, NamespacesURL(root))
	if err != nil {
		return nil, fmt.Errorf("project %s: load namespaces from %s: %w", id.Key, root, err)
	}
	if doc == "" {
		return nil, fmt.Errorf("project %s: %w", id.Key,
			&namespace.FormatError{Reason: "can't load list of namespaces from " + root})
	}
	s.namespaces = doc

	b.logger.Info("fetching interface messages", "project", id.Key, "root", root)
	for _, m := range messages {
		text, err := b.fetcher.Fetch(ctx, MessageURL(root, m.title))
		switch {
		case err == nil && text != "":
			s.templates[m.action] = text
		case m.optional && (err == nil || errors.Is(err, fetch.ErrNotFound)):
			// Left empty: assemble applies the fallback.
		case err != nil:
			return nil, fmt.Errorf("project %s: fetch %s: %w", id.Key, m.title, err)
		default:
			return nil, fmt.Errorf("project %s: %w", id.Key,
				&synth.SynthesisError{Message: m.title, Reason: "message text is empty"})
		}
	}

	p, err := assemble(s, b.logger)
	if err != nil {
		return nil, err
	}
	b.logger.Info("project synthesized", "project", id.Key,
		"namespaces", p.namespaces.Len(), "duration", time.Since(start))
	return p, nil
}
