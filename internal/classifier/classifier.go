// Package classifier turns decoded feed fields into typed events using a
// project's synthesized patterns.
package classifier

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/crimson-sun/rcwatch/internal/feed"
	"github.com/crimson-sun/rcwatch/internal/model"
	"github.com/crimson-sun/rcwatch/internal/project"
	"github.com/crimson-sun/rcwatch/internal/synth"
	"github.com/crimson-sun/rcwatch/internal/wikiurl"
)

// ErrIgnored marks lines that are dropped on purpose: log types we do not
// track, and known subtypes (revision deletion, file overwrites) that none
// of the patterns cover.
var ErrIgnored = errors.New("classifier: ignored")

// MissError reports a log entry that should have matched one of its
// keyword's patterns but did not. The line is dropped with a warning.
type MissError struct {
	Project string
	Keyword string
	Reason  string
}

func (e *MissError) Error() string {
	return fmt.Sprintf("classifier: unmatched %s entry in %s: %s", e.Keyword, e.Project, e.Reason)
}

var sizeDelta = regexp.MustCompile(`\(([+-])([0-9]+)\)`)

var protectKinds = map[project.Action]model.Kind{
	project.Protect:       model.KindProtect,
	project.ModifyProtect: model.KindModifyProtect,
	project.Unprotect:     model.KindUnprotect,
}

// Classifier resolves decoded lines into events. It holds no state and is
// safe for concurrent use.
type Classifier struct{}

// New creates a Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify resolves one decoded line of project p into an Event.
func (c *Classifier) Classify(p *project.Project, f feed.Fields) (model.Event, error) {
	ev := model.Event{
		Project: p.Key(),
		Kind:    model.KindUnknown,
		Title:   p.Canonicalize(f[feed.Title]),
		URL:     wikiurl.Secure(f[feed.URL]),
		User:    f[feed.User],
	}

	lm, isLog := p.SpecialLog().Match(f[feed.Title])
	if !isLog {
		c.edit(p, f, &ev)
	} else {
		keyword, _ := lm.Capture(project.LogTypeCapture)
		ev.Comment = feed.LogComment(f[feed.Tail])
		if err := c.logEntry(p, keyword, f[feed.Flags], &ev); err != nil {
			return model.Event{}, err
		}
	}

	ev.SizeDelta = ParseSizeDelta(f[feed.Size])
	return ev, nil
}

func (c *Classifier) edit(p *project.Project, f feed.Fields, ev *model.Event) {
	flags := f[feed.Flags]
	ev.Kind = model.KindEdit
	ev.Minor = strings.Contains(flags, "M")
	ev.NewPage = strings.Contains(flags, "N")
	ev.Bot = strings.Contains(flags, "B")
	ev.Comment = feed.EditComment(f[feed.Tail])

	if _, ok := p.Pattern(project.AutosummBlank).Match(ev.Comment); ok {
		ev.AutoSummary = "blank"
	} else if _, ok := p.Pattern(project.AutosummReplace).Match(ev.Comment); ok {
		ev.AutoSummary = "replace"
	}
}

// logEntry dispatches on the log keyword. Where several actions share a
// keyword they are tried in a fixed order and the first match wins.
func (c *Classifier) logEntry(p *project.Project, keyword, flags string, ev *model.Event) error {
	miss := func(reason string) error {
		return &MissError{Project: p.Key(), Keyword: keyword, Reason: reason}
	}

	switch keyword {
	case "newusers":
		switch {
		case strings.Contains(flags, "create2"):
			m, ok := p.Create2().Match(ev.Comment)
			if !ok {
				return miss("create2 comment names no user page")
			}
			ev.Title, _ = m.Capture(synth.Item1)
			ev.Kind = model.KindNewAccount
		case strings.Contains(flags, "autocreate"):
			ev.Kind = model.KindNewAccountAuto
		default:
			ev.Kind = model.KindNewAccountByAdmin
		}

	case "block":
		if m, ok := p.Pattern(project.Block).Match(ev.Comment); ok {
			return blockEvent(ev, m, model.KindBlock, miss)
		}
		if m, ok := p.Pattern(project.Unblock).Match(ev.Comment); ok {
			title, ok := m.Capture(synth.Item1)
			if !ok {
				return miss("unblock pattern has no target")
			}
			ev.Kind = model.KindUnblock
			ev.Title = title
			takeComment(ev, m)
			return nil
		}
		if m, ok := p.Pattern(project.Reblock).Match(ev.Comment); ok {
			return blockEvent(ev, m, model.KindReblock, miss)
		}
		return miss("no block pattern matched")

	case "protect":
		for _, a := range p.ProtectOrder() {
			if m, ok := p.Pattern(a).Match(ev.Comment); ok {
				return pageEvent(p, ev, m, protectKinds[a], miss)
			}
		}
		return miss("no protect pattern matched")

	case "delete":
		if m, ok := p.Pattern(project.Delete).Match(ev.Comment); ok {
			return pageEvent(p, ev, m, model.KindDelete, miss)
		}
		if m, ok := p.Pattern(project.Restore).Match(ev.Comment); ok {
			return pageEvent(p, ev, m, model.KindRestore, miss)
		}
		return ErrIgnored

	case "upload":
		if m, ok := p.Pattern(project.Upload).Match(ev.Comment); ok {
			return pageEvent(p, ev, m, model.KindUpload, miss)
		}
		return ErrIgnored

	case "move":
		// The redirect variant is a superset of a plain move and goes first.
		if m, ok := p.Pattern(project.MoveRedirect).Match(ev.Comment); ok {
			return moveEvent(p, ev, m, model.KindMoveOverRedirect, miss)
		}
		if m, ok := p.Pattern(project.Move).Match(ev.Comment); ok {
			return moveEvent(p, ev, m, model.KindMove, miss)
		}
		return miss("no move pattern matched")

	default:
		// rights, import and anything newer.
		return ErrIgnored
	}
	return nil
}

func takeComment(ev *model.Event, m synth.Match) {
	if comment, ok := m.Capture(synth.Comment); ok {
		ev.Comment = comment
	}
}

func blockEvent(ev *model.Event, m synth.Match, kind model.Kind, miss func(string) error) error {
	title, ok := m.Capture(synth.Item1)
	if !ok {
		return miss("block pattern has no target")
	}
	ev.Kind = kind
	ev.Title = title
	ev.Duration = model.DefaultBlockDuration
	if d, ok := m.Capture(synth.Item2); ok && d != "" {
		ev.Duration = d
	}
	takeComment(ev, m)
	return nil
}

func pageEvent(p *project.Project, ev *model.Event, m synth.Match, kind model.Kind, miss func(string) error) error {
	title, ok := m.Capture(synth.Item1)
	if !ok {
		return miss(string(kind) + " pattern has no target")
	}
	ev.Kind = kind
	ev.Title = p.Canonicalize(title)
	takeComment(ev, m)
	return nil
}

func moveEvent(p *project.Project, ev *model.Event, m synth.Match, kind model.Kind, miss func(string) error) error {
	from, ok1 := m.Capture(synth.Item1)
	to, ok2 := m.Capture(synth.Item2)
	if !ok1 || !ok2 {
		return miss("move pattern lacks source or destination")
	}
	ev.Kind = kind
	ev.Title = p.Canonicalize(from)
	ev.MovedTo = p.Canonicalize(to)
	// Moves have no duration; the field carries the old title's URL.
	ev.Duration = wikiurl.Page(p.RootURL(), from)
	takeComment(ev, m)
	return nil
}

// ParseSizeDelta reads a "(+123)" or "(-45)" size field. Anything else is 0.
func ParseSizeDelta(s string) int {
	m := sizeDelta.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0
	}
	if m[1] == "-" {
		return -n
	}
	return n
}
