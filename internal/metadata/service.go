// Package metadata orchestrates the persistent store, filesystem listing and
// thumbnail generation. The Service is the store's single writer: every
// durable mutation goes through it and is followed by exactly one change
// event on the bus.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"tagdex/internal/database"
	"tagdex/internal/events"
	"tagdex/internal/fsys"
	"tagdex/internal/metrics"
	"tagdex/internal/search"
)

// Default metadata tags attached to every file at track time.
const (
	TagCreated  = "Created"
	TagModified = "Modified"
	TagWidth    = "Width"
	TagHeight   = "Height"
)

// ErrReservedGroup is returned for attempts to rename the default tag group
// or to rename another group onto its name.
var ErrReservedGroup = errors.New("the default tag group is reserved")

// Store is the slice of the persistent store the service drives.
type Store interface {
	AddFolder(ctx context.Context, path string) (int64, error)
	DeleteFolders(ctx context.Context, paths ...string) ([]int64, error)
	AddFile(ctx context.Context, f database.File) error
	AddTag(ctx context.Context, tag database.Tag, filePaths ...string) error
	DeleteTag(ctx context.Context, tag database.Tag, filePaths ...string) error
	DeleteUnusedTags(ctx context.Context) (int64, error)
	AddTagGroup(ctx context.Context, g database.TagGroup) error
	UpdateTagGroup(ctx context.Context, original, updated database.TagGroup) error
	UpdateDescription(ctx context.Context, text, filePath string) (*database.File, error)
	GetFiles(ctx context.Context, folders ...string) ([]database.File, error)
	GetTags(ctx context.Context) ([]database.Tag, error)
	GetTagGroups(ctx context.Context) ([]database.TagGroup, error)
	GetTrackedFolders(ctx context.Context) ([]database.Folder, error)
}

// Thumbnailer renders a thumbnail for an image file. ok is false when the
// file is not a decodable image, which is not an error: the file is tracked
// without a thumbnail.
type Thumbnailer interface {
	Generate(imagePath, destDir string) (thumbPath string, width, height int, ok bool)
}

// Service owns the tracked-folders reactive set and the change event stream.
type Service struct {
	store     Store
	fs        fsys.Lister
	thumbs    Thumbnailer
	bus       *events.Bus
	thumbRoot string

	tracked *trackedSet
}

// New builds a Service over its collaborators and primes the tracked set
// from the store. thumbs may be nil when thumbnail generation is disabled.
func New(ctx context.Context, store Store, fs fsys.Lister, thumbs Thumbnailer, bus *events.Bus, thumbRoot string) (*Service, error) {
	folders, err := store.GetTrackedFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tracked folders: %w", err)
	}

	s := &Service{
		store:     store,
		fs:        fs,
		thumbs:    thumbs,
		bus:       bus,
		thumbRoot: thumbRoot,
		tracked:   newTrackedSet(),
	}
	for _, f := range folders {
		s.tracked.set(f.Path, true)
	}
	metrics.TrackedFolders.Set(float64(len(folders)))
	return s, nil
}

// Subscribe registers fn on the change event stream and returns its cancel
// function. Events arrive in emit order.
func (s *Service) Subscribe(fn func(events.Change)) (cancel func()) {
	return s.bus.Subscribe(fn)
}

// IsTracked reports whether path is currently a tracked folder.
func (s *Service) IsTracked(path string) bool {
	return s.tracked.contains(path)
}

// TrackedFolders returns a sorted snapshot of the tracked folder paths.
func (s *Service) TrackedFolders() []string {
	return s.tracked.snapshot()
}

// SubscribeTracked returns a stream of tracked-set snapshots. The current
// membership is delivered on the channel immediately, so a subscriber never
// misses or double-sees the initial state. A slow consumer is coalesced to
// the latest snapshot rather than blocking the service.
func (s *Service) SubscribeTracked() (<-chan []string, func()) {
	return s.tracked.subscribe()
}

// TrackFolder persists path and every file currently under it. Tracking an
// already-tracked path is a logged no-op, not an error. When listing fails
// the operation aborts with no folder row created. A store failure mid-way
// leaves the files persisted so far tracked; partial tracking is not rolled
// back.
func (s *Service) TrackFolder(ctx context.Context, path string) error {
	if s.IsTracked(path) {
		log.Warnf("folder already tracked: %s", path)
		return nil
	}

	refs, err := s.fs.ListFiles(path)
	if err != nil {
		log.Errorf("cannot list folder %s: %v", path, err)
		return fmt.Errorf("listing %s: %w", path, err)
	}

	folderID, err := s.store.AddFolder(ctx, path)
	if err != nil {
		return err
	}

	for _, ref := range refs {
		if err := s.trackFile(ctx, folderID, ref); err != nil {
			return err
		}
	}

	s.tracked.set(path, true)
	metrics.TrackedFolders.Set(float64(len(s.tracked.snapshot())))
	log.Infof("tracked folder %s (%d files)", path, len(refs))
	return nil
}

// TrackFolders tracks each path in turn. progress, if non-nil, is called
// after every folder with (done, total); it is advisory only.
func (s *Service) TrackFolders(ctx context.Context, paths []string, progress func(done, total int)) error {
	for i, path := range paths {
		if err := s.TrackFolder(ctx, path); err != nil {
			return err
		}
		if progress != nil {
			progress(i+1, len(paths))
		}
	}
	return nil
}

func (s *Service) trackFile(ctx context.Context, folderID int64, ref fsys.FileRef) error {
	file := database.File{Path: ref.Path, FolderID: folderID}

	tags := []database.Tag{
		// Birth time is not portable; mtime stands in for both stamps.
		{Name: TagCreated, Value: ref.ModTime.Format(time.RFC3339)},
		{Name: TagModified, Value: ref.ModTime.Format(time.RFC3339)},
	}

	if s.thumbs != nil {
		destDir := filepath.Join(s.thumbRoot, strconv.FormatInt(folderID, 10))
		if thumb, w, h, ok := s.thumbs.Generate(ref.Path, destDir); ok {
			file.Thumbnail = thumb
			tags = append(tags,
				database.Tag{Name: TagWidth, Value: strconv.Itoa(w)},
				database.Tag{Name: TagHeight, Value: strconv.Itoa(h)})
		}
	}

	if err := s.store.AddFile(ctx, file); err != nil {
		return fmt.Errorf("adding file %s: %w", ref.Path, err)
	}
	for _, t := range tags {
		if err := s.store.AddTag(ctx, t, ref.Path); err != nil {
			return fmt.Errorf("tagging file %s: %w", ref.Path, err)
		}
		file = file.WithTag(t)
	}

	metrics.FilesTracked.Inc()
	s.bus.Publish(events.Change{
		Reason: events.Add,
		Entity: events.EntityFile,
		File:   &file,
		Files:  []string{file.Path},
	})
	return nil
}

// UntrackFolders removes paths from the tracked set first, so dependent
// views stop considering them immediately, then deletes the folder rows
// (cascading to files and associations), emits one remove event per path,
// removes each folder's thumbnail directory and prunes orphaned tags.
func (s *Service) UntrackFolders(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	for _, p := range paths {
		s.tracked.set(p, false)
	}
	metrics.TrackedFolders.Set(float64(len(s.tracked.snapshot())))

	ids, err := s.store.DeleteFolders(ctx, paths...)
	if err != nil {
		return err
	}

	for _, p := range paths {
		s.bus.Publish(events.Change{
			Reason: events.Remove,
			Entity: events.EntityFolder,
			Folder: p,
		})
	}

	for _, id := range ids {
		dir := filepath.Join(s.thumbRoot, strconv.FormatInt(id, 10))
		if err := os.RemoveAll(dir); err != nil {
			log.Warnf("cannot remove thumbnail dir %s: %v", dir, err)
		}
	}

	_, err = s.store.DeleteUnusedTags(ctx)
	return err
}

// AddTag attaches tag to every path in filePaths and emits a single change
// event batching all affected files. No-op when filePaths is empty.
func (s *Service) AddTag(ctx context.Context, tag database.Tag, filePaths ...string) error {
	if len(filePaths) == 0 {
		return nil
	}
	if err := s.store.AddTag(ctx, tag, filePaths...); err != nil {
		return err
	}
	s.bus.Publish(events.Change{
		Reason: events.Add,
		Entity: events.EntityTag,
		Tag:    &tag,
		Files:  filePaths,
	})
	return nil
}

// DeleteTags removes each tag from every path in filePaths, emitting one
// remove event per tag, then prunes orphaned tags once at the end. No-op
// when either input is empty.
func (s *Service) DeleteTags(ctx context.Context, tags []database.Tag, filePaths ...string) error {
	if len(tags) == 0 || len(filePaths) == 0 {
		return nil
	}
	for i := range tags {
		if err := s.store.DeleteTag(ctx, tags[i], filePaths...); err != nil {
			return err
		}
		s.bus.Publish(events.Change{
			Reason: events.Remove,
			Entity: events.EntityTag,
			Tag:    &tags[i],
			Files:  filePaths,
		})
	}
	_, err := s.store.DeleteUnusedTags(ctx)
	return err
}

// CreateTagGroup persists g and emits its add event. Creating a group whose
// name already exists is a store-level no-op.
func (s *Service) CreateTagGroup(ctx context.Context, g database.TagGroup) error {
	if err := s.store.AddTagGroup(ctx, g); err != nil {
		return err
	}
	s.bus.Publish(events.Change{
		Reason: events.Add,
		Entity: events.EntityTagGroup,
		Group:  &g,
	})
	return nil
}

// UpdateTagGroup renames/recolors a group. The emitted event carries the
// pre-edit group so subscribers can locate-and-replace by the old name. The
// default group cannot be renamed to or from.
func (s *Service) UpdateTagGroup(ctx context.Context, original, updated database.TagGroup) error {
	if original.Name == database.DefaultGroupName || updated.Name == database.DefaultGroupName {
		return ErrReservedGroup
	}
	if err := s.store.UpdateTagGroup(ctx, original, updated); err != nil {
		return err
	}
	s.bus.Publish(events.Change{
		Reason:        events.Update,
		Entity:        events.EntityTagGroup,
		Group:         &updated,
		OriginalGroup: &original,
	})
	return nil
}

// UpdateDescription persists text for path. When the path is tracked, the
// emitted event carries the file projection without its tag set; tag changes
// travel only on tag events. For an unknown path it returns (nil, nil) and
// emits nothing.
func (s *Service) UpdateDescription(ctx context.Context, text, path string) (*database.File, error) {
	f, err := s.store.UpdateDescription(ctx, text, path)
	if err != nil || f == nil {
		return f, err
	}
	s.bus.Publish(events.Change{
		Reason: events.Update,
		Entity: events.EntityFile,
		File:   f,
		Files:  []string{f.Path},
	})
	return f, nil
}

// GetFiles reads the requested folders' files from the store, then filters
// them in memory against preds. With no folders given, all tracked files
// are considered.
func (s *Service) GetFiles(ctx context.Context, preds []search.Predicate, folders ...string) ([]database.File, error) {
	files, err := s.store.GetFiles(ctx, folders...)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return files, nil
	}
	matched := make([]database.File, 0, len(files))
	for _, f := range files {
		if search.MatchAll(preds, f) {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

// GetAllTags returns the current tag catalog.
func (s *Service) GetAllTags(ctx context.Context) ([]database.Tag, error) {
	return s.store.GetTags(ctx)
}

// GetTagGroups returns the current group catalog.
func (s *Service) GetTagGroups(ctx context.Context) ([]database.TagGroup, error) {
	return s.store.GetTagGroups(ctx)
}
