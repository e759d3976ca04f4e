// Package index maintains the live merged view of currently visible files
// for one view scope. The index loads once, then keeps itself consistent by
// applying the metadata service's change events incrementally; it never
// re-queries the whole store in response to a mutation.
package index

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"tagdex/internal/database"
	"tagdex/internal/events"
	"tagdex/internal/fsys"
	"tagdex/internal/search"
)

// Source is the slice of the metadata service the index reads from.
type Source interface {
	GetFiles(ctx context.Context, preds []search.Predicate, folders ...string) ([]database.File, error)
	Subscribe(fn func(events.Change)) (cancel func())
}

// Scope selects which files the index keeps in view. An empty SourceFolders
// list means "all tracked files, predicates still apply"; untracked merging
// needs concrete folders and is skipped in that mode.
type Scope struct {
	SourceFolders    []string
	Predicates       []search.Predicate
	IncludeUntracked bool
}

func (s Scope) containsFolder(dir string) bool {
	if len(s.SourceFolders) == 0 {
		return true
	}
	for _, f := range s.SourceFolders {
		if f == dir {
			return true
		}
	}
	return false
}

// Entry is one visible file. An untracked entry carries path and name only;
// it has no tags, description or thumbnail and never matches a predicate.
type Entry struct {
	File    database.File `json:"file"`
	Tracked bool          `json:"tracked"`
}

// Op classifies a pushed diff.
type Op int

const (
	OpAdd Op = iota
	OpUpdate
	OpRemove
)

// Diff is one incremental view change pushed to watchers.
type Diff struct {
	Op    Op
	Path  string
	Entry Entry
}

// Index is the keyed cache of visible files. All reads observe it either
// before or after an event is applied, never mid-update.
type Index struct {
	source Source
	fs     fsys.Lister

	mu       sync.Mutex
	scope    Scope
	entries  map[string]Entry
	watchers map[int]chan Diff
	nextID   int
	cancel   func()
	closed   bool
}

// New builds the index for scope, subscribes it to the change stream and
// performs the initial load. The subscription is taken before the load so no
// event can fall between the two; events are idempotent upserts, so one that
// races the load is harmless in either order.
func New(ctx context.Context, source Source, fs fsys.Lister, scope Scope) (*Index, error) {
	i := &Index{
		source:   source,
		fs:       fs,
		scope:    scope,
		entries:  make(map[string]Entry),
		watchers: make(map[int]chan Diff),
	}
	i.cancel = source.Subscribe(i.apply)
	if err := i.reload(ctx); err != nil {
		i.Close()
		return nil, err
	}
	return i, nil
}

// Close detaches the index from the change stream and closes all watchers.
func (i *Index) Close() {
	if i.cancel != nil {
		i.cancel()
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	i.closed = true
	for id, ch := range i.watchers {
		delete(i.watchers, id)
		close(ch)
	}
}

// Snapshot returns the visible entries sorted by path. The returned slice is
// the caller's own copy.
func (i *Index) Snapshot() []Entry {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]Entry, 0, len(i.entries))
	for _, e := range i.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].File.Path < out[b].File.Path })
	return out
}

// Get returns the entry for path, if visible.
func (i *Index) Get(path string) (Entry, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	e, ok := i.entries[path]
	return e, ok
}

// Len returns the number of visible entries.
func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.entries)
}

// Scope returns a copy of the current view scope.
func (i *Index) Scope() Scope {
	i.mu.Lock()
	defer i.mu.Unlock()
	return Scope{
		SourceFolders:    append([]string(nil), i.scope.SourceFolders...),
		Predicates:       append([]search.Predicate(nil), i.scope.Predicates...),
		IncludeUntracked: i.scope.IncludeUntracked,
	}
}

// Watch returns a stream of incremental diffs. The channel is buffered; a
// consumer that falls behind loses diffs (logged) and should resynchronize
// via Snapshot.
func (i *Index) Watch() (<-chan Diff, func()) {
	i.mu.Lock()
	defer i.mu.Unlock()

	id := i.nextID
	i.nextID++
	ch := make(chan Diff, 256)
	i.watchers[id] = ch

	return ch, func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		if w, ok := i.watchers[id]; ok {
			delete(i.watchers, id)
			close(w)
		}
	}
}

// SetSearchParameters replaces the predicate set and reloads everything in
// scope.
func (i *Index) SetSearchParameters(ctx context.Context, preds []search.Predicate) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.scope.Predicates = preds
	return i.reloadLocked(ctx)
}

// ShowAllTrackedFiles clears the folder scope so the predicates apply across
// all tracked files, then reloads.
func (i *Index) ShowAllTrackedFiles(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.scope.SourceFolders = nil
	return i.reloadLocked(ctx)
}

// AddDirectory adds dir to the scope and loads only that directory's files;
// entries from other folders are left untouched.
func (i *Index) AddDirectory(ctx context.Context, dir string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, f := range i.scope.SourceFolders {
		if f == dir {
			return nil
		}
	}
	i.scope.SourceFolders = append(i.scope.SourceFolders, dir)

	loaded := make(map[string]Entry)
	if err := i.collect(ctx, loaded, dir); err != nil {
		return err
	}
	for _, e := range loaded {
		i.upsertLocked(e)
	}
	return nil
}

// RemoveDirectory drops dir from the scope and evicts only its entries; no
// reload happens.
func (i *Index) RemoveDirectory(dir string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	folders := i.scope.SourceFolders[:0]
	for _, f := range i.scope.SourceFolders {
		if f != dir {
			folders = append(folders, f)
		}
	}
	i.scope.SourceFolders = folders
	i.evictDirLocked(dir)
}

func (i *Index) reload(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.reloadLocked(ctx)
}

func (i *Index) reloadLocked(ctx context.Context) error {
	fresh := make(map[string]Entry)
	if err := i.collect(ctx, fresh, i.scope.SourceFolders...); err != nil {
		return err
	}
	i.replaceLocked(fresh)
	return nil
}

// collect loads the tracked files for folders (or all tracked files when
// folders is empty) and, when the scope includes untracked files, merges in
// whatever the filesystem lists. A tracked entry always wins over an
// untracked one for the same path.
func (i *Index) collect(ctx context.Context, into map[string]Entry, folders ...string) error {
	files, err := i.source.GetFiles(ctx, i.scope.Predicates, folders...)
	if err != nil {
		return err
	}
	for _, f := range files {
		into[f.Path] = Entry{File: f, Tracked: true}
	}

	if !i.scope.IncludeUntracked {
		return nil
	}
	for _, dir := range folders {
		refs, err := i.fs.ListFiles(dir)
		if err != nil {
			// An unlistable folder contributes no untracked files; its
			// tracked files stay visible.
			log.Warnf("cannot list %s for untracked files: %v", dir, err)
			continue
		}
		for _, ref := range refs {
			if _, ok := into[ref.Path]; ok {
				continue
			}
			into[ref.Path] = Entry{File: database.File{Path: ref.Path}}
		}
	}
	return nil
}

// apply is the change-stream handler. It runs under the index lock, so every
// reader sees the cache either before or after an event, never mid-update.
func (i *Index) apply(c events.Change) {
	i.mu.Lock()
	defer i.mu.Unlock()

	switch {
	case c.Entity == events.EntityTag && c.Reason == events.Add && c.Tag != nil:
		for _, path := range c.Files {
			e, ok := i.entries[path]
			if !ok || !e.Tracked {
				continue
			}
			// Membership is not re-evaluated here: a file already in view
			// stays in view even when the new tag stops it from matching the
			// predicates.
			e.File = e.File.WithTag(*c.Tag)
			i.upsertLocked(e)
		}

	case c.Entity == events.EntityFile && c.Reason == events.Add && c.File != nil:
		if !i.scope.containsFolder(filepath.Dir(c.File.Path)) {
			return
		}
		if !search.MatchAll(i.scope.Predicates, *c.File) {
			return
		}
		i.upsertLocked(Entry{File: *c.File, Tracked: true})

	case c.Entity == events.EntityFile && c.Reason == events.Update && c.File != nil:
		e, ok := i.entries[c.File.Path]
		if !ok {
			return
		}
		// The update event carries no tag set; only the description moves.
		e.File.Description = c.File.Description
		i.upsertLocked(e)

	case c.Entity == events.EntityFolder && c.Reason == events.Remove:
		i.evictDirLocked(c.Folder)
	}
}

func (i *Index) upsertLocked(e Entry) {
	op := OpAdd
	if _, ok := i.entries[e.File.Path]; ok {
		op = OpUpdate
	}
	i.entries[e.File.Path] = e
	i.notifyLocked(Diff{Op: op, Path: e.File.Path, Entry: e})
}

func (i *Index) evictDirLocked(dir string) {
	for path, e := range i.entries {
		if filepath.Dir(path) == dir {
			delete(i.entries, path)
			i.notifyLocked(Diff{Op: OpRemove, Path: path, Entry: e})
		}
	}
}

// replaceLocked swaps in a freshly loaded entry map, pushing remove diffs
// for entries that vanished and add/update diffs for the rest.
func (i *Index) replaceLocked(fresh map[string]Entry) {
	for path, old := range i.entries {
		if _, ok := fresh[path]; !ok {
			i.notifyLocked(Diff{Op: OpRemove, Path: path, Entry: old})
		}
	}
	for path, e := range fresh {
		op := OpAdd
		if _, ok := i.entries[path]; ok {
			op = OpUpdate
		}
		i.notifyLocked(Diff{Op: op, Path: path, Entry: e})
	}
	i.entries = fresh
}

func (i *Index) notifyLocked(d Diff) {
	for _, ch := range i.watchers {
		select {
		case ch <- d:
		default:
			log.Debugf("index watcher behind, dropping diff for %s", d.Path)
		}
	}
}
