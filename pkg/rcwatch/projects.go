package rcwatch

// Project describes an online project.
type Project struct {
	Key        string // e.g. "en.wikipedia"
	Interwiki  string // e.g. "w:en"
	RootURL    string // e.g. "https://en.wikipedia.org/"
	Namespaces int    // namespaces known to the project
}

// Projects returns the online projects, sorted by key. This is read-only;
// use AddProject and RemoveProject to change the set.
func (w *Watcher) Projects() []Project {
	keys := w.registry.Keys()
	out := make([]Project, 0, len(keys))
	for _, key := range keys {
		p, ok := w.registry.Get(key)
		if !ok {
			continue
		}
		id := p.Identity()
		out = append(out, Project{
			Key:        id.Key,
			Interwiki:  id.Interwiki,
			RootURL:    id.RootURL,
			Namespaces: p.Namespaces().Len(),
		})
	}
	return out
}
