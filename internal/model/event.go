package model

import "time"

// Kind identifies what a classified notification describes.
type Kind string

const (
	KindEdit              Kind = "edit"
	KindDelete            Kind = "delete"
	KindRestore           Kind = "restore"
	KindUpload            Kind = "upload"
	KindBlock             Kind = "block"
	KindUnblock           Kind = "unblock"
	KindReblock           Kind = "reblock"
	KindProtect           Kind = "protect"
	KindUnprotect         Kind = "unprotect"
	KindModifyProtect     Kind = "modify-protect"
	KindMove              Kind = "move"
	KindMoveOverRedirect  Kind = "move-over-redirect"
	KindNewAccount        Kind = "new-account"
	KindNewAccountAuto    Kind = "new-account-auto"
	KindNewAccountByAdmin Kind = "new-account-via-admin"
	KindUnknown           Kind = "unknown"
)

// Kinds lists every kind an event can carry, KindUnknown excluded.
func Kinds() []Kind {
	return []Kind{
		KindEdit, KindDelete, KindRestore, KindUpload,
		KindBlock, KindUnblock, KindReblock,
		KindProtect, KindUnprotect, KindModifyProtect,
		KindMove, KindMoveOverRedirect,
		KindNewAccount, KindNewAccountAuto, KindNewAccountByAdmin,
	}
}

// ParseKind returns the kind named s.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return KindUnknown, false
}

// IsMove reports whether k is one of the page move kinds.
func (k Kind) IsMove() bool {
	return k == KindMove || k == KindMoveOverRedirect
}

// DefaultBlockDuration is used when a block log entry carries no parsable duration.
const DefaultBlockDuration = "24 hours"

// Event is rcwatch's output type: one classified feed notification.
type Event struct {
	Project   string    `json:"project"`
	Channel   string    `json:"channel,omitempty"`
	Received  time.Time `json:"received"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"` // namespace prefix in canonical English form
	URL       string    `json:"url,omitempty"`
	User      string    `json:"user"`
	Minor     bool      `json:"minor,omitempty"`
	NewPage   bool      `json:"new_page,omitempty"`
	Bot       bool      `json:"bot,omitempty"`
	SizeDelta int       `json:"size_delta"`
	Comment   string    `json:"comment,omitempty"`

	// Duration is the block length for block and reblock events. Move events
	// reuse it for the URL of the page's old location.
	Duration string `json:"duration,omitempty"`
	MovedTo  string `json:"moved_to,omitempty"`

	// AutoSummary is "blank" or "replace" when an edit comment is the wiki's
	// automatic summary for blanking or replacing a page.
	AutoSummary string `json:"auto_summary,omitempty"`
}

// MovedFromURL returns the URL of a moved page's old title, or "" for
// events that are not moves.
func (e Event) MovedFromURL() string {
	if !e.Kind.IsMove() {
		return ""
	}
	return e.Duration
}
