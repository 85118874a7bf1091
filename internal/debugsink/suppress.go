package debugsink

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const suppressSize = 4096

// Suppressor forwards the first of a run of identical reports and drops
// repeats seen within the window. A misconfigured wiki can produce the
// same miss for every line of its feed.
type Suppressor struct {
	next       Sink
	seen       *expirable.LRU[string, struct{}]
	suppressed atomic.Int64
}

// NewSuppressor wraps next. A window <= 0 disables suppression.
func NewSuppressor(next Sink, window time.Duration) Sink {
	if window <= 0 {
		return next
	}
	return &Suppressor{
		next: next,
		seen: expirable.NewLRU[string, struct{}](suppressSize, nil, window),
	}
}

func (s *Suppressor) Report(category, code, message, detail string) {
	key := category + "\x00" + code + "\x00" + message
	if _, ok := s.seen.Get(key); ok {
		s.suppressed.Add(1)
		return
	}
	s.seen.Add(key, struct{}{})
	s.next.Report(category, code, message, detail)
}

// Suppressed returns how many reports were dropped as repeats.
func (s *Suppressor) Suppressed() int64 { return s.suppressed.Load() }
