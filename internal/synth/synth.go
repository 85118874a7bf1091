// Package synth builds line matchers from a wiki's localized interface
// messages. A message is free-form prose with $1, $2 and $3 placeholders;
// synthesis escapes the prose, turns the placeholders into named captures
// and anchors the result to a whole feed comment.
package synth

import (
	"fmt"
	"regexp"
	"strings"
)

// Capture slot names.
const (
	Item1   = "item1"
	Item2   = "item2"
	Item3   = "item3"
	Comment = "comment"
)

const (
	// metachars are escaped in message text. "$" is handled after
	// placeholder substitution.
	metachars = `\.()[]^*+?{}|`
	wildcard  = `(?:.+?)`

	commentSuffix = `(?:: (?P<comment>.*?))?$`
)

func capture(name string) string { return `(?P<` + name + `>.+?)` }

// nothing can never match: the class excludes every code point.
const nothing = `[^\x00-\x{10FFFF}]`

// SynthesisError reports a message that produced an unusable pattern.
type SynthesisError struct {
	Message string // interface message title, when known
	Source  string // synthesized expression
	Reason  string
	Err     error
}

func (e *SynthesisError) Error() string {
	msg := "synth"
	if e.Message != "" {
		msg += " " + e.Message
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Requirement describes how strictly a message must synthesize.
type Requirement struct {
	// Message is the interface message title, used in errors.
	Message string
	// Captures is how many of item1, item2 must survive substitution.
	Captures int
	// Lenient tolerates missing captures; the classifier supplies fallbacks.
	Lenient bool
	// BlockLog applies the block log rendering: item3 is parenthesized in
	// the feed and a trailing item2 takes the place of the comment suffix.
	BlockLog bool
}

// Pattern is a compiled matcher together with the text it was built from.
type Pattern struct {
	Template string // message text as fetched; "" for compiled expressions
	Source   string // synthesized expression
	Lenient  bool

	re *regexp.Regexp
}

// Synthesize turns message text into a Pattern.
func Synthesize(template string, req Requirement) (*Pattern, error) {
	template = strings.TrimRight(template, "\r\n")
	src := Expression(template, req.BlockLog)

	re, err := regexp.Compile(src)
	if err != nil {
		return nil, &SynthesisError{Message: req.Message, Source: src, Reason: "pattern does not compile", Err: err}
	}
	if !req.Lenient {
		if req.Captures >= 1 && !strings.Contains(src, capture(Item1)) {
			return nil, &SynthesisError{Message: req.Message, Source: src,
				Reason: fmt.Sprintf("requires %d item(s) but item1 not found", req.Captures)}
		}
		if req.Captures >= 2 && !strings.Contains(src, capture(Item2)) {
			return nil, &SynthesisError{Message: req.Message, Source: src,
				Reason: fmt.Sprintf("requires %d items but item2 not found", req.Captures)}
		}
	}

	return &Pattern{Template: template, Source: src, Lenient: req.Lenient, re: re}, nil
}

// Expression returns the anchored expression for message text without compiling it.
func Expression(template string, blockLog bool) string {
	var b strings.Builder
	for _, r := range template {
		if strings.ContainsRune(metachars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	s := b.String()

	for _, item := range []struct{ token, name string }{
		{"$1", Item1}, {"$2", Item2}, {"$3", Item3},
	} {
		s = substitute(s, item.token, capture(item.name))
	}
	s = strings.ReplaceAll(s, "$", `\$`)
	s = "^" + s + commentSuffix

	if blockLog {
		s = strings.Replace(s, capture(Item3), `\(`+capture(Item3)+`\)`, 1)
		s = strings.Replace(s, capture(Item2)+commentSuffix, capture(Item2)+"$", 1)
	}
	return s
}

// substitute replaces the first token with a named capture and any repeats
// with a non-capturing wildcard.
func substitute(s, token, named string) string {
	i := strings.Index(s, token)
	if i < 0 {
		return s
	}
	rest := strings.ReplaceAll(s[i+len(token):], token, wildcard)
	return s[:i] + named + rest
}

// Compile wraps a hand-written expression, such as the special log title
// matcher, in a Pattern.
func Compile(src string) (*Pattern, error) {
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, &SynthesisError{Source: src, Reason: "pattern does not compile", Err: err}
	}
	return &Pattern{Source: src, re: re}, nil
}

// Never returns a pattern that matches no input.
func Never() *Pattern {
	return &Pattern{Source: nothing, re: regexp.MustCompile(nothing)}
}

// Match runs the pattern against s.
func (p *Pattern) Match(s string) (Match, bool) {
	idx := p.re.FindStringSubmatchIndex(s)
	if idx == nil {
		return Match{}, false
	}
	return Match{re: p.re, s: s, idx: idx}, true
}

// Names returns the named capture slots of the pattern.
func (p *Pattern) Names() []string {
	var names []string
	for _, n := range p.re.SubexpNames() {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

func (p *Pattern) String() string { return p.Source }

// Match is a successful match. Captures are optional: a slot that the
// pattern lacks, or that did not take part in the match, is absent.
type Match struct {
	re  *regexp.Regexp
	s   string
	idx []int
}

// Capture returns the text of a named slot and whether it was captured.
func (m Match) Capture(name string) (string, bool) {
	if m.re == nil {
		return "", false
	}
	i := m.re.SubexpIndex(name)
	if i < 0 || m.idx[2*i] < 0 {
		return "", false
	}
	return m.s[m.idx[2*i]:m.idx[2*i+1]], true
}

// Group returns an unnamed group by position.
func (m Match) Group(n int) (string, bool) {
	if m.re == nil || n < 0 || 2*n+1 >= len(m.idx) || m.idx[2*n] < 0 {
		return "", false
	}
	return m.s[m.idx[2*n]:m.idx[2*n+1]], true
}
