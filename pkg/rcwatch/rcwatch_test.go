package rcwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/crimson-sun/rcwatch/internal/testdata"
)

func newTestWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	wiki := testdata.NewWiki(testdata.NamespacesEN, testdata.MessagesEN)
	t.Cleanup(wiki.Close)

	w, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	if err := w.AddProject(context.Background(), "en.wikipedia", wiki.Root()); err != nil {
		t.Fatalf("AddProject() error: %v", err)
	}
	return w
}

func blockLine() string {
	return testdata.Line{
		Title:   "Special:Log/block",
		Flags:   "block",
		User:    "Admin",
		Comment: "blocked [[User:Vandal123]] with an expiration time of 31 hours (account creation blocked): vandalism",
	}.String()
}

func TestClassifyBlock(t *testing.T) {
	w := newTestWatcher(t)

	event, err := w.Classify("#en.wikipedia", blockLine())
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if event.Kind != KindBlock {
		t.Errorf("Kind = %q, want %q", event.Kind, KindBlock)
	}
	if event.Title != "User:Vandal123" {
		t.Errorf("Title = %q, want User:Vandal123", event.Title)
	}
	if event.Duration != "31 hours" {
		t.Errorf("Duration = %q, want 31 hours", event.Duration)
	}
	if event.Project != "en.wikipedia" {
		t.Errorf("Project = %q, want en.wikipedia", event.Project)
	}
	if event.Received.IsZero() {
		t.Error("Received should default to now")
	}
}

func TestClassifyMoveSetsMovedFrom(t *testing.T) {
	w := newTestWatcher(t)

	event, err := w.Classify("#en.wikipedia", testdata.Line{
		Title:   "Special:Log/move",
		Flags:   "move",
		User:    "Mover",
		Comment: "moved [[Old name]] to [[New name]]: better title",
	}.String())
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if event.Kind != KindMove {
		t.Fatalf("Kind = %q, want %q", event.Kind, KindMove)
	}
	if event.MovedTo != "New name" {
		t.Errorf("MovedTo = %q, want New name", event.MovedTo)
	}
	if event.MovedFrom == "" || event.Duration != "" {
		t.Errorf("MovedFrom = %q, Duration = %q; want URL in MovedFrom only", event.MovedFrom, event.Duration)
	}
}

func TestClassifyErrors(t *testing.T) {
	w := newTestWatcher(t)

	_, err := w.Classify("#de.wikipedia", blockLine())
	if !Quiet(err) {
		t.Errorf("unknown project should be quiet, got %v", err)
	}
	_, err = w.Classify("#en.wikipedia", "hello")
	if !Quiet(err) {
		t.Errorf("undecodable line should be quiet, got %v", err)
	}

	_, err = w.Classify("#en.wikipedia", testdata.Line{
		Title: "Special:Log/block", Flags: "block", User: "Admin", Comment: "nonsense",
	}.String())
	if err == nil || Quiet(err) || !Unmatched(err) {
		t.Errorf("unmatched block should be a miss, got %v", err)
	}
}

func TestClassifyBatch(t *testing.T) {
	w := newTestWatcher(t)

	events, err := w.ClassifyBatch([]Line{
		{Channel: "#en.wikipedia", Text: blockLine()},
		{Channel: "#en.wikipedia", Text: "garbage"},
		{Channel: "#en.wikipedia", Text: testdata.Line{Title: "Sandbox", Flags: "M", User: "A", Size: "-4"}.String()},
	})
	if err == nil {
		t.Error("expected the garbage line to be reported")
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].Kind != KindEdit || events[1].SizeDelta != -4 || !events[1].Minor {
		t.Errorf("unexpected edit event: %+v", events[1])
	}
}

func TestRecordRoundTrip(t *testing.T) {
	w := newTestWatcher(t)
	data, err := w.Record("en.wikipedia")
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "en.wikipedia.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	w2, err := New(WithRecordFile(path))
	if err != nil {
		t.Fatalf("New(WithRecordFile) error: %v", err)
	}
	event, err := w2.Classify("#en.wikipedia", blockLine())
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if event.Kind != KindBlock {
		t.Errorf("Kind = %q, want %q", event.Kind, KindBlock)
	}

	if _, err := w.Record("de.wikipedia"); err == nil {
		t.Error("expected error for unknown project")
	}
}

func TestNewBadRecord(t *testing.T) {
	if _, err := New(WithRecord([]byte("key = "))); err == nil {
		t.Fatal("expected error for malformed record")
	}
	if _, err := New(WithRecordFile("/nonexistent/en.wikipedia.toml")); err == nil {
		t.Fatal("expected error for missing record file")
	}
}

func TestStorePersistsAddedProjects(t *testing.T) {
	dir := t.TempDir()
	newTestWatcher(t, WithStore("file", dir))

	w, err := New(WithStore("file", dir))
	if err != nil {
		t.Fatalf("New(WithStore) error: %v", err)
	}
	defer w.Close()

	projects := w.Projects()
	if len(projects) != 1 || projects[0].Key != "en.wikipedia" {
		t.Fatalf("Projects() = %+v, want en.wikipedia", projects)
	}
	if projects[0].Namespaces == 0 {
		t.Error("expected namespaces to be counted")
	}
}

func TestRemoveProject(t *testing.T) {
	w := newTestWatcher(t)
	w.RemoveProject("en.wikipedia")
	if _, err := w.Classify("#en.wikipedia", blockLine()); !Quiet(err) {
		t.Errorf("expected unknown project after removal, got %v", err)
	}
}

func TestConcurrentClassify(t *testing.T) {
	w := newTestWatcher(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if _, err := w.Classify("#en.wikipedia", blockLine()); err != nil {
					t.Errorf("Classify() error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
