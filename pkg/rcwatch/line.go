package rcwatch

import "time"

// Line is a raw feed notification with its channel. Use with ClassifyLine
// when you know when the line arrived; for plain text use Classify.
type Line struct {
	Channel  string    // e.g. "#en.wikipedia"
	Text     string    // the message text, colour codes included
	Received time.Time // zero = time.Now()
}
