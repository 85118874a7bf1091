package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/crimson-sun/rcwatch/internal/model"
)

func baseEvent() model.Event {
	return model.Event{
		Project:     "en.wikipedia",
		Received:    time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC),
		Kind:        model.KindEdit,
		Title:       "Main Page",
		URL:         "https://en.wikipedia.org/w/index.php?diff=2&oldid=1",
		User:        "Alice",
		SizeDelta:   -12,
		Comment:     "Replaced content with \"x\"",
		AutoSummary: "replace",
	}
}

func TestFormatEventMinimal(t *testing.T) {
	e := FormatEvent(baseEvent(), Minimal)

	if e.Comment != "" {
		t.Fatal("Comment should be empty at Minimal")
	}
	if e.URL != "" {
		t.Fatal("URL should be empty at Minimal")
	}
	if e.AutoSummary != "" {
		t.Fatal("AutoSummary should be empty at Minimal")
	}
	if e.Kind != model.KindEdit {
		t.Fatal("Kind should be preserved")
	}
	if e.SizeDelta != -12 {
		t.Fatal("SizeDelta should be preserved")
	}
}

func TestFormatEventStandardTruncatesComment(t *testing.T) {
	e := baseEvent()
	e.Comment = strings.Repeat("é", maxComment+50)
	got := FormatEvent(e, Standard)

	if !strings.HasSuffix(got.Comment, "...") {
		t.Fatalf("expected truncated comment, got %d bytes", len(got.Comment))
	}
	if n := len([]rune(got.Comment)); n != maxComment+3 {
		t.Fatalf("expected %d runes, got %d", maxComment+3, n)
	}
	if got.URL == "" {
		t.Fatal("URL should be preserved at Standard")
	}
}

func TestFormatEventFull(t *testing.T) {
	e := baseEvent()
	e.Comment = strings.Repeat("x", maxComment*2)
	got := FormatEvent(e, Full)

	if got.Comment != e.Comment {
		t.Fatal("Comment should be preserved at Full")
	}
}

func TestFormatEventMinimalJSON(t *testing.T) {
	data, err := json.Marshal(FormatEvent(baseEvent(), Minimal))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"comment", "url", "auto_summary"} {
		if _, ok := m[key]; ok {
			t.Errorf("%s should be omitted at Minimal", key)
		}
	}
	for _, key := range []string{"project", "kind", "title", "user", "size_delta"} {
		if _, ok := m[key]; !ok {
			t.Errorf("%s should be present", key)
		}
	}
}

func TestParseVerbosity(t *testing.T) {
	cases := map[string]Verbosity{"minimal": Minimal, "": Standard, "STANDARD": Standard, "full": Full}
	for in, want := range cases {
		got, err := ParseVerbosity(in)
		if err != nil || got != want {
			t.Errorf("ParseVerbosity(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseVerbosity("loud"); err == nil {
		t.Error("expected error for unknown verbosity")
	}
}
