package metadata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagdex/internal/database"
	"tagdex/internal/events"
	"tagdex/internal/fsys"
	"tagdex/internal/search"
)

// TestTrackTagSearchUntrack drives the service end to end over a real store:
// track a folder, tag a file, query by predicate, untrack, and verify the
// tag catalog is pruned.
func TestTrackTagSearchUntrack(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	store, err := database.New(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	mod := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fs := &fakeLister{refs: map[string][]fsys.FileRef{
		"/f": {
			{Path: "/f/a.png", Name: "a.png", ModTime: mod},
			{Path: "/f/b.txt", Name: "b.txt", ModTime: mod},
		},
	}}

	svc, err := New(ctx, store, fs, nil, events.NewBus(), t.TempDir())
	require.NoError(t, err)

	require.NoError(t, svc.TrackFolder(ctx, "/f"))
	require.NoError(t, svc.AddTag(ctx, database.Tag{Name: "rating", Value: "5"}, "/f/a.png"))

	files, err := svc.GetFiles(ctx,
		[]search.Predicate{search.Tagged(database.Tag{Name: "rating", Value: "5"})}, "/f")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "/f/a.png", files[0].Path)

	files, err = svc.GetFiles(ctx, []search.Predicate{search.TaggedAnyValue("rating")})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "/f/a.png", files[0].Path)

	// Both files carry the default timestamp tags.
	all, err := svc.GetFiles(ctx, nil, "/f")
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, f := range all {
		assert.True(t, f.HasTag(TagCreated, mod.Format(time.RFC3339)), f.Path)
		assert.True(t, f.HasTag(TagModified, mod.Format(time.RFC3339)), f.Path)
	}

	require.NoError(t, svc.UntrackFolders(ctx, "/f"))

	files, err = svc.GetFiles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, files)

	tags, err := svc.GetAllTags(ctx)
	require.NoError(t, err)
	for _, tag := range tags {
		assert.NotEqual(t, "rating", tag.Name, "untracking must prune orphaned tags")
	}
	assert.Empty(t, tags)
}

// TestTrackingIdempotentOverStore pins the idempotence property against the
// real schema: a second track of the same folder changes nothing.
func TestTrackingIdempotentOverStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	store, err := database.New(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	fs := &fakeLister{refs: map[string][]fsys.FileRef{
		"/f": {{Path: "/f/a.png", Name: "a.png"}},
	}}
	svc, err := New(ctx, store, fs, nil, events.NewBus(), t.TempDir())
	require.NoError(t, err)

	require.NoError(t, svc.TrackFolder(ctx, "/f"))
	filesBefore, err := svc.GetFiles(ctx, nil)
	require.NoError(t, err)
	tagsBefore, err := svc.GetAllTags(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.TrackFolder(ctx, "/f"))

	filesAfter, err := svc.GetFiles(ctx, nil)
	require.NoError(t, err)
	tagsAfter, err := svc.GetAllTags(ctx)
	require.NoError(t, err)

	assert.Equal(t, filesBefore, filesAfter)
	assert.Equal(t, tagsBefore, tagsAfter)
}
