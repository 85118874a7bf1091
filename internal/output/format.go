package output

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/crimson-sun/rcwatch/internal/model"
)

// Verbosity controls how much of an event is written out.
type Verbosity int

const (
	Minimal  Verbosity = iota // kind, title, user and size only
	Standard                  // comments truncated to maxComment
	Full                      // everything
)

const maxComment = 200

// ParseVerbosity maps a config string to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal, nil
	case "standard", "":
		return Standard, nil
	case "full":
		return Full, nil
	}
	return Standard, fmt.Errorf("unknown verbosity %q (want minimal, standard or full)", s)
}

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Full:
		return "full"
	default:
		return "standard"
	}
}

// FormatEvent returns a copy of the event with fields stripped according to verbosity.
// At Minimal: Comment, URL and AutoSummary are zeroed (omitted from JSON via omitempty).
// At Standard: Comment is truncated.
// At Full: all fields preserved.
func FormatEvent(e model.Event, verbosity Verbosity) model.Event {
	switch verbosity {
	case Minimal:
		e.Comment = ""
		e.URL = ""
		e.AutoSummary = ""
	case Standard:
		e.Comment = truncate(e.Comment, maxComment)
	}
	return e
}

func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxRunes]) + "..."
}
