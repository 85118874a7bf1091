// Package testdata holds fixtures shared by tests: namespace listings,
// interface message text, a fake wiki server and a feed line builder.
package testdata

import (
	_ "embed"
	"net/http"
	"net/http/httptest"
	"strings"
)

//go:embed namespaces_en.xml
var NamespacesEN string

//go:embed namespaces_nl.xml
var NamespacesNL string

// MessagesEN is the English default text of every interface message a
// project is synthesized from, keyed by message title.
var MessagesEN = map[string]string{
	"MediaWiki:Undeletedarticle":          `restored "[[$1]]"`,
	"MediaWiki:Deletedarticle":            `deleted "[[$1]]"`,
	"MediaWiki:Protectedarticle":          `protected "[[$1]]"`,
	"MediaWiki:Unprotectedarticle":        `removed protection from "[[$1]]"`,
	"MediaWiki:Modifiedarticleprotection": `changed protection level for "[[$1]]"`,
	"MediaWiki:Uploadedimage":             `uploaded "[[$1]]"`,
	"MediaWiki:1movedto2":                 `moved [[$1]] to [[$2]]`,
	"MediaWiki:1movedto2_redir":           `moved [[$1]] to [[$2]] over redirect`,
	"MediaWiki:Blocklogentry":             `blocked [[$1]] with an expiration time of $2 $3`,
	"MediaWiki:Unblocklogentry":           `unblocked $1`,
	"MediaWiki:Reblock-logentry":          `changed block settings for [[$1]] with an expiration time of $2 $3`,
	"MediaWiki:Autosumm-blank":            `Blanked the page`,
	"MediaWiki:Autosumm-replace":          `Replaced content with "$1"`,
}

// MessagesNL is a Dutch message set.
var MessagesNL = map[string]string{
	"MediaWiki:Undeletedarticle":          `heeft "[[$1]]" teruggeplaatst`,
	"MediaWiki:Deletedarticle":            `heeft "[[$1]]" verwijderd`,
	"MediaWiki:Protectedarticle":          `beveiligde "[[$1]]"`,
	"MediaWiki:Unprotectedarticle":        `heeft de beveiliging van "[[$1]]" opgeheven`,
	"MediaWiki:Modifiedarticleprotection": `wijzigde het beveiligingsniveau voor "[[$1]]"`,
	"MediaWiki:Uploadedimage":             `heeft "[[$1]]" geüpload`,
	"MediaWiki:1movedto2":                 `heeft [[$1]] hernoemd naar [[$2]]`,
	"MediaWiki:1movedto2_redir":           `heeft [[$1]] hernoemd naar [[$2]] over een doorverwijzing`,
	"MediaWiki:Blocklogentry":             `blokkeerde [[$1]] voor de duur van $2 $3`,
	"MediaWiki:Unblocklogentry":           `heeft $1 gedeblokkeerd`,
	"MediaWiki:Reblock-logentry":          `wijzigde de blokkadeinstellingen voor [[$1]] met een vervaltermijn van $2 $3`,
	"MediaWiki:Autosumm-blank":            `Pagina leeggehaald`,
	"MediaWiki:Autosumm-replace":          `Pagina vervangen door '$1'`,
}

// Clone returns a copy of a message set for tests that edit it.
func Clone(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Wiki serves a namespace listing and interface messages the way a
// MediaWiki site does. Messages missing from the map return 404.
type Wiki struct {
	*httptest.Server
	Namespaces string
	Messages   map[string]string
}

// NewWiki starts a fake wiki. Close it when done.
func NewWiki(namespaces string, messages map[string]string) *Wiki {
	w := &Wiki{Namespaces: namespaces, Messages: messages}
	w.Server = httptest.NewServer(http.HandlerFunc(w.serve))
	return w
}

// Root returns the wiki's root URL with a trailing slash.
func (w *Wiki) Root() string { return w.URL + "/" }

func (w *Wiki) serve(rw http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/w/api.php":
		if r.URL.Query().Get("siprop") != "namespaces" {
			http.Error(rw, "unsupported query", http.StatusBadRequest)
			return
		}
		rw.Header().Set("Content-Type", "text/xml; charset=utf-8")
		rw.Write([]byte(w.Namespaces))
	case "/w/index.php":
		text, ok := w.Messages[r.URL.Query().Get("title")]
		if !ok {
			http.NotFound(rw, r)
			return
		}
		rw.Header().Set("Content-Type", "text/x-wiki; charset=utf-8")
		rw.Write([]byte(text))
	default:
		http.NotFound(rw, r)
	}
}

// Line renders a notification the way the recent changes feed does:
// fifteen fields separated by colour codes.
type Line struct {
	Title   string
	Flags   string // edit flag letters or log action, e.g. "MB" or "create2"
	URL     string
	User    string
	Size    string // e.g. "+123"; empty for log entries
	Comment string
}

// String returns the raw feed text.
func (l Line) String() string {
	size := ""
	if l.Size != "" {
		size = " (" + l.Size + ") "
	}
	var b strings.Builder
	b.WriteString("\x0314[[\x0307")
	b.WriteString(l.Title)
	b.WriteString("\x0314]]\x034 ")
	b.WriteString(l.Flags)
	b.WriteString("\x0310 \x0302")
	b.WriteString(l.URL)
	b.WriteString("\x03 \x035*\x03 \x0303")
	b.WriteString(l.User)
	b.WriteString("\x03 \x035*\x03")
	b.WriteString(size)
	b.WriteString("\x0310")
	b.WriteString(l.Comment)
	b.WriteString("\x03")
	return b.String()
}
