package project

import (
	"fmt"
	"log/slog"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/crimson-sun/rcwatch/internal/wikiurl"
)

// Record is the flat, operator-visible form of a Project. It carries raw
// message text only; loading a Record always re-synthesizes the patterns.
type Record struct {
	Key          string   `toml:"key"`
	Interwiki    string   `toml:"interwiki"`
	RootURL      string   `toml:"root_url"`
	SpecialLog   string   `toml:"special_log"`
	Namespaces   string   `toml:"namespaces"`
	ProtectOrder []string `toml:"protect_order,omitempty"`

	Restore         string `toml:"restore"`
	Delete          string `toml:"delete"`
	Protect         string `toml:"protect"`
	Unprotect       string `toml:"unprotect"`
	ModifyProtect   string `toml:"modifyprotect"`
	Upload          string `toml:"upload"`
	Move            string `toml:"move"`
	MoveRedirect    string `toml:"moveredir"`
	Block           string `toml:"block"`
	Unblock         string `toml:"unblock"`
	Reblock         string `toml:"reblock"`
	AutosummBlank   string `toml:"autosummblank"`
	AutosummReplace string `toml:"autosummreplace"`
}

func (r *Record) field(a Action) *string {
	switch a {
	case Restore:
		return &r.Restore
	case Delete:
		return &r.Delete
	case Protect:
		return &r.Protect
	case Unprotect:
		return &r.Unprotect
	case ModifyProtect:
		return &r.ModifyProtect
	case Upload:
		return &r.Upload
	case Move:
		return &r.Move
	case MoveRedirect:
		return &r.MoveRedirect
	case Block:
		return &r.Block
	case Unblock:
		return &r.Unblock
	case Reblock:
		return &r.Reblock
	case AutosummBlank:
		return &r.AutosummBlank
	case AutosummReplace:
		return &r.AutosummReplace
	}
	return nil
}

// Template returns the raw message text stored for an action.
func (r Record) Template(a Action) string {
	if f := r.field(a); f != nil {
		return *f
	}
	return ""
}

// Record returns the persistable form of p.
func (p *Project) Record() Record {
	r := Record{
		Key:        p.id.Key,
		Interwiki:  p.id.Interwiki,
		RootURL:    p.id.RootURL,
		SpecialLog: p.specialLog.Source,
		Namespaces: p.namespaces.Raw(),
	}
	if !sameOrder(p.protectOrder, DefaultProtectOrder) {
		for _, a := range p.protectOrder {
			r.ProtectOrder = append(r.ProtectOrder, string(a))
		}
	}
	for a, tmpl := range p.templates {
		*r.field(a) = tmpl
	}
	return r
}

// FromRecord rebuilds a Project from its persisted form. Plain http root
// URLs are upgraded to https, and every pattern is synthesized afresh from
// the stored message text.
func FromRecord(r Record, logger *slog.Logger) (*Project, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := parts{
		id:         Identity{Key: r.Key, Interwiki: r.Interwiki, RootURL: wikiurl.Root(r.RootURL)},
		namespaces: r.Namespaces,
		templates:  make(map[Action]string, len(messages)),
		specialLog: r.SpecialLog,
	}
	for _, a := range r.ProtectOrder {
		s.protectOrder = append(s.protectOrder, Action(a))
	}
	for _, m := range messages {
		s.templates[m.action] = r.Template(m.action)
	}
	return assemble(s, logger)
}

// MarshalRecord encodes a Record in its on-disk TOML form.
func MarshalRecord(r Record) ([]byte, error) {
	data, err := toml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("project: marshal record %s: %w", r.Key, err)
	}
	return data, nil
}

// UnmarshalRecord decodes a Record from its on-disk TOML form.
func UnmarshalRecord(data []byte) (Record, error) {
	var r Record
	if err := toml.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("project: parse record: %w", err)
	}
	if r.Key == "" {
		return Record{}, fmt.Errorf("project: record has no key")
	}
	return r, nil
}

func sameOrder(a, b []Action) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
