package rcwatch

import (
	"time"

	"github.com/crimson-sun/rcwatch/internal/model"
)

// Kinds an Event can carry.
const (
	KindEdit              = string(model.KindEdit)
	KindDelete            = string(model.KindDelete)
	KindRestore           = string(model.KindRestore)
	KindUpload            = string(model.KindUpload)
	KindBlock             = string(model.KindBlock)
	KindUnblock           = string(model.KindUnblock)
	KindReblock           = string(model.KindReblock)
	KindProtect           = string(model.KindProtect)
	KindUnprotect         = string(model.KindUnprotect)
	KindModifyProtect     = string(model.KindModifyProtect)
	KindMove              = string(model.KindMove)
	KindMoveOverRedirect  = string(model.KindMoveOverRedirect)
	KindNewAccount        = string(model.KindNewAccount)
	KindNewAccountAuto    = string(model.KindNewAccountAuto)
	KindNewAccountByAdmin = string(model.KindNewAccountByAdmin)
)

// Event is one classified feed notification.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
type Event struct {
	Project     string    `json:"project"`                // e.g. "en.wikipedia"
	Received    time.Time `json:"received"`               // when the line arrived
	Kind        string    `json:"kind"`                   // one of the Kind constants
	Title       string    `json:"title"`                  // canonical English namespace prefix
	URL         string    `json:"url,omitempty"`          // diff or log URL, https
	User        string    `json:"user"`                   // who acted
	Minor       bool      `json:"minor,omitempty"`        // edits only
	NewPage     bool      `json:"new_page,omitempty"`     // edits only
	Bot         bool      `json:"bot,omitempty"`          // edits only
	SizeDelta   int       `json:"size_delta"`             // bytes added or removed
	Comment     string    `json:"comment,omitempty"`      // edit summary or log reason
	Duration    string    `json:"duration,omitempty"`     // block length
	MovedTo     string    `json:"moved_to,omitempty"`     // move target title
	MovedFrom   string    `json:"moved_from,omitempty"`   // URL of a moved page's old title
	AutoSummary string    `json:"auto_summary,omitempty"` // "blank" or "replace"
}

func eventFromModel(e model.Event) Event {
	ev := Event{
		Project:     e.Project,
		Received:    e.Received,
		Kind:        string(e.Kind),
		Title:       e.Title,
		URL:         e.URL,
		User:        e.User,
		Minor:       e.Minor,
		NewPage:     e.NewPage,
		Bot:         e.Bot,
		SizeDelta:   e.SizeDelta,
		Comment:     e.Comment,
		MovedTo:     e.MovedTo,
		AutoSummary: e.AutoSummary,
	}
	if e.Kind.IsMove() {
		ev.MovedFrom = e.MovedFromURL()
	} else {
		ev.Duration = e.Duration
	}
	return ev
}
