// Package project holds the per-wiki bundle of synthesized patterns and
// namespace table, how it is built from a live wiki, persisted, and served
// to concurrent classifiers.
package project

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/crimson-sun/rcwatch/internal/namespace"
	"github.com/crimson-sun/rcwatch/internal/synth"
	"github.com/crimson-sun/rcwatch/internal/wikiurl"
)

// Identity names a monitored wiki.
type Identity struct {
	Key       string // feed channel without its marker, e.g. "en.wikipedia"
	Interwiki string // cross-reference label, e.g. "w:en"
	RootURL   string // e.g. "https://en.wikipedia.org/"
}

// DefaultIdentity guesses the identity of a Wikimedia project from its
// feed key: "en.wikipedia" lives at https://en.wikipedia.org/.
func DefaultIdentity(key string) Identity {
	return Identity{Key: key, RootURL: "https://" + key + ".org/"}
}

// Project is an immutable, fully synthesized bundle. Reloading builds a new
// Project and swaps it into the Registry; a live Project is never mutated.
type Project struct {
	id           Identity
	namespaces   *namespace.Table
	patterns     map[Action]*synth.Pattern
	specialLog   *synth.Pattern
	create2      *synth.Pattern
	protectOrder []Action

	// templates keeps the message text as fetched, "" for missing
	// messages, so a persisted record re-synthesizes identically.
	templates map[Action]string
}

// LogTypeCapture is the capture slot of the special log matcher that holds
// the log keyword ("block", "move", ...).
const LogTypeCapture = "logtype"

func (p *Project) Key() string                  { return p.id.Key }
func (p *Project) Identity() Identity           { return p.id }
func (p *Project) RootURL() string              { return p.id.RootURL }
func (p *Project) Namespaces() *namespace.Table { return p.namespaces }

// Pattern returns the synthesized matcher for a log action.
func (p *Project) Pattern(a Action) *synth.Pattern { return p.patterns[a] }

// SpecialLog matches a "Special:Log/<keyword>" title in the project's language.
func (p *Project) SpecialLog() *synth.Pattern { return p.specialLog }

// Create2 extracts the new account name from a "create2" log comment.
func (p *Project) Create2() *synth.Pattern { return p.create2 }

// ProtectOrder returns the order protect log patterns are tried in.
func (p *Project) ProtectOrder() []Action { return p.protectOrder }

// Canonicalize rewrites a localized namespace prefix into its English name.
func (p *Project) Canonicalize(title string) string {
	return p.namespaces.Canonicalize(title)
}

// parts is everything needed to assemble a Project.
type parts struct {
	id           Identity
	namespaces   string
	templates    map[Action]string // absent or "" means the message is missing
	specialLog   string            // "" derives it from the namespace table
	protectOrder []Action
}

func assemble(s parts, logger *slog.Logger) (*Project, error) {
	if s.id.Key == "" {
		return nil, fmt.Errorf("project: empty key")
	}
	s.id.RootURL = wikiurl.Trim(s.id.RootURL)

	// Namespaces first: the special log and create2 patterns embed
	// localized namespace names.
	ns, err := namespace.Load(s.namespaces)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", s.id.Key, err)
	}

	p := &Project{
		id:           s.id,
		namespaces:   ns,
		patterns:     make(map[Action]*synth.Pattern, len(messages)),
		protectOrder: DefaultProtectOrder,
		templates:    make(map[Action]string, len(messages)),
	}

	for _, m := range messages {
		tmpl := s.templates[m.action]
		p.templates[m.action] = tmpl
		if tmpl == "" {
			switch m.action {
			case ModifyProtect:
				logger.Warn("modify-protect message missing, falling back to protect; reload this wiki",
					"project", s.id.Key)
				p.patterns[ModifyProtect] = p.patterns[Protect]
				continue
			case Reblock:
				p.patterns[Reblock] = synth.Never()
				continue
			}
			return nil, fmt.Errorf("project %s: %w", s.id.Key,
				&synth.SynthesisError{Message: m.title, Reason: "message text is empty"})
		}
		pat, err := synth.Synthesize(tmpl, m.req)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", s.id.Key, err)
		}
		p.patterns[m.action] = pat
	}

	specialSrc := s.specialLog
	if specialSrc == "" {
		special, ok := ns.Resolve(namespace.Special)
		if !ok || special == "" {
			return nil, fmt.Errorf("project %s: %w", s.id.Key,
				&namespace.FormatError{Reason: "listing has no special namespace (-1)"})
		}
		specialSrc = SpecialLogExpression(special)
	}
	if p.specialLog, err = synth.Compile(specialSrc); err != nil {
		return nil, fmt.Errorf("project %s: special log: %w", s.id.Key, err)
	}
	if !hasCapture(p.specialLog, LogTypeCapture) {
		return nil, fmt.Errorf("project %s: %w", s.id.Key,
			&synth.SynthesisError{Source: specialSrc, Reason: "special log pattern lacks " + LogTypeCapture + " capture"})
	}

	user, ok := ns.Resolve(namespace.User)
	if !ok || user == "" {
		return nil, fmt.Errorf("project %s: %w", s.id.Key,
			&namespace.FormatError{Reason: "listing has no user namespace (2)"})
	}
	if p.create2, err = synth.Compile(regexp.QuoteMeta(user) + `:(?P<item1>[^:]+)`); err != nil {
		return nil, fmt.Errorf("project %s: create2: %w", s.id.Key, err)
	}

	if len(s.protectOrder) > 0 {
		if !validProtectOrder(s.protectOrder) {
			return nil, fmt.Errorf("project %s: invalid protect order %v", s.id.Key, s.protectOrder)
		}
		p.protectOrder = append([]Action(nil), s.protectOrder...)
	}
	return p, nil
}

// SpecialLogExpression builds the special log title matcher for a
// localized special namespace name.
func SpecialLogExpression(special string) string {
	return "^" + regexp.QuoteMeta(special) + `:.+?/(?P<` + LogTypeCapture + `>.+)`
}

func hasCapture(p *synth.Pattern, name string) bool {
	for _, n := range p.Names() {
		if n == name {
			return true
		}
	}
	return false
}
