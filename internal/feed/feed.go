// Package feed decodes recent changes notification lines. A line is fifteen
// fields separated by colour codes (0x03 followed by up to two digits), with
// bold toggles (0x02) sprinkled through the content.
package feed

import (
	"errors"
	"regexp"
	"strings"
)

// FieldCount is the number of fields in a decodable line.
const FieldCount = 15

// Field positions.
const (
	Title = 2  // subject page, or Special:Log/<keyword>
	Flags = 4  // edit flag letters or log action marker
	URL   = 6  // diff or page URL
	User  = 10 // acting user
	Size  = 13 // size delta, e.g. "(+123)"
	Tail  = 14 // edit comment or log sentence, colour codes still in place
)

const (
	colour = '\x03'
	marker = '\x04'
	bold   = "\x02"

	// delimiters is how many colour codes separate the fifteen fields.
	// Colour codes after that belong to the tail.
	delimiters = FieldCount - 1
)

// ErrUndecodable is returned for lines that do not split into exactly
// FieldCount fields, typically because an overlong title was cut off.
// Callers drop such lines.
var ErrUndecodable = errors.New("feed: undecodable line")

var (
	markedCode = regexp.MustCompile(`\x04\d{0,2}\*?`)
	tailCode   = regexp.MustCompile(`\x03\d{0,2}`)
)

// Fields is a decoded line.
type Fields [FieldCount]string

// Decode splits a raw line into its fields.
func Decode(line string) (Fields, error) {
	s := replaceMax(line, colour, marker, delimiters)
	s = markedCode.ReplaceAllString(s, string(colour))
	s = strings.ReplaceAll(s, bold, "")

	parts := strings.SplitN(s, string(colour), FieldCount)
	if len(parts) != FieldCount {
		return Fields{}, ErrUndecodable
	}
	parts[Tail] = strings.TrimSuffix(parts[Tail], string(colour))

	var f Fields
	copy(f[:], parts)
	return f, nil
}

// EditComment cleans an edit's tail: bare colour bytes are removed.
func EditComment(tail string) string {
	return strings.ReplaceAll(tail, string(colour), "")
}

// LogComment cleans a log entry's tail: colour codes and their digits are removed.
func LogComment(tail string) string {
	return tailCode.ReplaceAllString(tail, "")
}

// replaceMax replaces the first n occurrences of old with new.
func replaceMax(s string, old, new byte, n int) string {
	b := []byte(s)
	for i := 0; i < len(b) && n > 0; i++ {
		if b[i] == old {
			b[i] = new
			n--
		}
	}
	return string(b)
}
