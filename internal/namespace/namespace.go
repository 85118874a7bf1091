// Package namespace maps a wiki's numeric namespace ids to their localized
// names and rewrites localized title prefixes into canonical English ones.
package namespace

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Well-known namespace ids.
const (
	Media   = -2
	Special = -1
	Main    = 0
	User    = 2
)

// canonical names are part of downstream watchlist and dedup keys. Do not
// rename entries (e.g. Image to File) without migrating those stores.
var canonical = map[int]string{
	-2: "Media",
	-1: "Special",
	1:  "Talk",
	2:  "User",
	3:  "User talk",
	4:  "Project",
	5:  "Project talk",
	6:  "Image",
	7:  "Image talk",
	8:  "MediaWiki",
	9:  "MediaWiki talk",
	10: "Template",
	11: "Template talk",
	12: "Help",
	13: "Help talk",
	14: "Category",
	15: "Category talk",
}

// FormatError reports a namespace listing that cannot be turned into a table.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("namespace: %s: %v", e.Reason, e.Err)
	}
	return "namespace: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// Table is an immutable id -> localized name mapping for one project.
type Table struct {
	names map[int]string
	ids   map[string]int
	raw   string
}

// siteinfo mirrors the part of the siteinfo API response we read.
type siteinfo struct {
	Namespaces []struct {
		ID   string `xml:"id,attr"`
		Name string `xml:",chardata"`
	} `xml:"query>namespaces>ns"`
}

// Load parses a siteinfo namespace listing (format=xml) into a Table. The
// raw document is kept so the table can be persisted and reloaded as a whole.
func Load(doc string) (*Table, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, &FormatError{Reason: "empty namespace document"}
	}
	var si siteinfo
	if err := xml.Unmarshal([]byte(doc), &si); err != nil {
		return nil, &FormatError{Reason: "parse namespace document", Err: err}
	}
	if len(si.Namespaces) == 0 {
		return nil, &FormatError{Reason: "no namespaces in document"}
	}

	names := make(map[int]string, len(si.Namespaces))
	for _, ns := range si.Namespaces {
		id, err := strconv.Atoi(strings.TrimSpace(ns.ID))
		if err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("bad namespace id %q", ns.ID), Err: err}
		}
		if _, dup := names[id]; dup {
			return nil, &FormatError{Reason: fmt.Sprintf("duplicate namespace id %d", id)}
		}
		names[id] = ns.Name
	}
	t := New(names)
	t.raw = doc
	return t, nil
}

// New builds a Table from an explicit mapping.
func New(names map[int]string) *Table {
	t := &Table{
		names: make(map[int]string, len(names)),
		ids:   make(map[string]int, len(names)),
	}
	ids := make([]int, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		name := norm.NFC.String(names[id])
		t.names[id] = name
		// Lowest id wins when a wiki reuses a name.
		if _, taken := t.ids[name]; !taken {
			t.ids[name] = id
		}
	}
	return t
}

// English returns the table of a default English-language wiki.
func English() *Table {
	names := map[int]string{Main: ""}
	for id, name := range canonical {
		names[id] = name
	}
	names[4] = "Wikipedia"
	names[5] = "Wikipedia talk"
	names[6] = "File"
	names[7] = "File talk"
	return New(names)
}

// Raw returns the namespace document the table was loaded from, or "" for
// tables built with New.
func (t *Table) Raw() string { return t.raw }

// Len returns the number of namespaces in the table.
func (t *Table) Len() int { return len(t.names) }

// Resolve returns the localized name of a namespace id.
func (t *Table) Resolve(id int) (string, bool) {
	name, ok := t.names[id]
	return name, ok
}

// Detect returns the namespace id of a title by matching the text before
// its first colon against the localized names. Titles without a colon, or
// whose prefix names no namespace, are in the main namespace.
func (t *Table) Detect(title string) int {
	i := strings.IndexByte(title, ':')
	if i < 0 {
		return Main
	}
	if id, ok := t.ids[norm.NFC.String(title[:i])]; ok {
		return id
	}
	return Main
}

// Canonicalize rewrites the localized namespace prefix of title into its
// canonical English name. Only the built-in namespaces (-2, -1, 1..15) are
// rewritten; everything else passes through unchanged.
func (t *Table) Canonicalize(title string) string {
	i := strings.IndexByte(title, ':')
	if i < 0 {
		return title
	}
	name, ok := canonical[t.Detect(title)]
	if !ok {
		return title
	}
	return name + title[i:]
}

// CanonicalName returns the canonical English name of a built-in namespace.
func CanonicalName(id int) (string, bool) {
	name, ok := canonical[id]
	return name, ok
}
