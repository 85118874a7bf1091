package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/rcwatch/internal/model"
)

// Render returns a one-line human readable form of an event, e.g.
//
//	[en.wikipedia] edit [[Main Page]] by Alice (-12) https://...: "typo"
func Render(e model.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s [[%s]]", e.Project, e.Kind, e.Title)
	if e.Kind.IsMove() {
		fmt.Fprintf(&b, " to [[%s]]", e.MovedTo)
	}
	if e.User != "" {
		fmt.Fprintf(&b, " by %s", e.User)
	}

	var flags []string
	if e.Minor {
		flags = append(flags, "minor")
	}
	if e.NewPage {
		flags = append(flags, "new")
	}
	if e.Bot {
		flags = append(flags, "bot")
	}
	if e.AutoSummary != "" {
		flags = append(flags, e.AutoSummary)
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, " {%s}", strings.Join(flags, ","))
	}

	switch e.Kind {
	case model.KindEdit:
		fmt.Fprintf(&b, " (%+d)", e.SizeDelta)
	case model.KindBlock, model.KindReblock:
		fmt.Fprintf(&b, " for %s", e.Duration)
	}
	if e.URL != "" {
		b.WriteString(" " + e.URL)
	}
	if e.Comment != "" {
		fmt.Fprintf(&b, ": %q", e.Comment)
	}
	return b.String()
}
