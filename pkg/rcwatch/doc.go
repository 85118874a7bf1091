// Package rcwatch classifies notifications from the MediaWiki recent
// changes IRC feed into typed events.
//
// Quick start:
//
//	w, err := rcwatch.New(rcwatch.WithRecordFile("projects/en.wikipedia.toml"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	event, _ := w.Classify("#en.wikipedia", line)
//	fmt.Println(event.Kind, event.Title) // block Vandal123
//
// Projects come from stored records (as written by "rcwatch fetch") or are
// fetched live with AddProject. The Watcher is safe for concurrent use;
// projects can be added while other goroutines classify.
package rcwatch
