package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func setupTestStore(t testing.TB) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return s
}

func addTestFile(t testing.TB, s *Store, path string, folderID int64) {
	t.Helper()
	if err := s.AddFile(context.Background(), File{Path: path, FolderID: folderID}); err != nil {
		t.Fatalf("AddFile(%s) failed: %v", path, err)
	}
}

func TestDefaultGroupSeeded(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupTestStore(t)

	groups, err := s.GetTagGroups(context.Background())
	if err != nil {
		t.Fatalf("GetTagGroups failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("Expected 1 seeded group, got %d", len(groups))
	}
	if groups[0].Name != DefaultGroupName {
		t.Errorf("Expected group %q, got %q", DefaultGroupName, groups[0].Name)
	}
	if groups[0].Color != DefaultGroupColor {
		t.Errorf("Expected color %q, got %q", DefaultGroupColor, groups[0].Color)
	}
}

func TestAddFolderDuplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupTestStore(t)
	ctx := context.Background()

	id, err := s.AddFolder(ctx, "/photos")
	if err != nil {
		t.Fatalf("AddFolder failed: %v", err)
	}
	if id == 0 {
		t.Error("Expected non-zero folder id")
	}

	_, err = s.AddFolder(ctx, "/photos")
	if !errors.Is(err, ErrConstraint) {
		t.Errorf("Expected ErrConstraint for duplicate path, got %v", err)
	}
}

func TestDeleteFoldersCascades(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupTestStore(t)
	ctx := context.Background()

	idA, _ := s.AddFolder(ctx, "/a")
	idB, _ := s.AddFolder(ctx, "/b")
	addTestFile(t, s, "/a/one.png", idA)
	addTestFile(t, s, "/a/two.png", idA)
	addTestFile(t, s, "/b/three.png", idB)

	if err := s.AddTag(ctx, Tag{Name: "keep"}, "/a/one.png", "/b/three.png"); err != nil {
		t.Fatalf("AddTag failed: %v", err)
	}

	ids, err := s.DeleteFolders(ctx, "/a", "/missing")
	if err != nil {
		t.Fatalf("DeleteFolders failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != idA {
		t.Errorf("Expected deleted ids [%d], got %v", idA, ids)
	}

	files, err := s.GetFiles(ctx)
	if err != nil {
		t.Fatalf("GetFiles failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("Expected 1 surviving file, got %d", len(files))
	}
	if files[0].Path != "/b/three.png" {
		t.Errorf("Expected /b/three.png to survive, got %s", files[0].Path)
	}
	if !files[0].HasTagNamed("keep") {
		t.Error("Surviving file lost its tag")
	}
}

func TestAddTagDeduplicates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupTestStore(t)
	ctx := context.Background()

	id, _ := s.AddFolder(ctx, "/f")
	addTestFile(t, s, "/f/a.png", id)

	tag := Tag{Name: "rating", Value: "5"}
	if err := s.AddTag(ctx, tag, "/f/a.png"); err != nil {
		t.Fatalf("AddTag failed: %v", err)
	}
	if err := s.AddTag(ctx, tag, "/f/a.png"); err != nil {
		t.Fatalf("AddTag (duplicate) failed: %v", err)
	}

	files, err := s.GetFiles(ctx)
	if err != nil {
		t.Fatalf("GetFiles failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("Expected 1 file, got %d", len(files))
	}
	if len(files[0].Tags) != 1 {
		t.Fatalf("Expected 1 tag after duplicate add, got %d", len(files[0].Tags))
	}
	if files[0].Tags[0].Group.Name != DefaultGroupName {
		t.Errorf("Expected default group, got %q", files[0].Tags[0].Group.Name)
	}
}

func TestBareAndValuedTagCoexist(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupTestStore(t)
	ctx := context.Background()

	id, _ := s.AddFolder(ctx, "/f")
	addTestFile(t, s, "/f/a.png", id)

	if err := s.AddTag(ctx, Tag{Name: "favorite"}, "/f/a.png"); err != nil {
		t.Fatalf("AddTag (bare) failed: %v", err)
	}
	if err := s.AddTag(ctx, Tag{Name: "favorite", Value: "2024"}, "/f/a.png"); err != nil {
		t.Fatalf("AddTag (valued) failed: %v", err)
	}
	// The bare tag again; must stay a no-op.
	if err := s.AddTag(ctx, Tag{Name: "favorite"}, "/f/a.png"); err != nil {
		t.Fatalf("AddTag (bare again) failed: %v", err)
	}

	files, _ := s.GetFiles(ctx)
	if len(files) != 1 || len(files[0].Tags) != 2 {
		t.Fatalf("Expected 1 file with 2 tag instances, got %+v", files)
	}
	if !files[0].HasTag("favorite", "") || !files[0].HasTag("favorite", "2024") {
		t.Errorf("Expected bare and valued instances, got %+v", files[0].Tags)
	}
}

func TestAddTagEmptyName(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupTestStore(t)

	if err := s.AddTag(context.Background(), Tag{Name: "   "}, "/f/a.png"); err == nil {
		t.Error("Expected error for whitespace tag name")
	}
}

func TestDeleteTagAndPruneOrphans(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupTestStore(t)
	ctx := context.Background()

	id, _ := s.AddFolder(ctx, "/f")
	addTestFile(t, s, "/f/a.png", id)
	addTestFile(t, s, "/f/b.png", id)

	tag := Tag{Name: "rating", Value: "5"}
	if err := s.AddTag(ctx, tag, "/f/a.png", "/f/b.png"); err != nil {
		t.Fatalf("AddTag failed: %v", err)
	}

	// Removing from one file leaves the tag in the catalog.
	if err := s.DeleteTag(ctx, tag, "/f/a.png"); err != nil {
		t.Fatalf("DeleteTag failed: %v", err)
	}
	if n, err := s.DeleteUnusedTags(ctx); err != nil || n != 0 {
		t.Fatalf("DeleteUnusedTags = (%d, %v), want (0, nil)", n, err)
	}

	tags, _ := s.GetTags(ctx)
	if len(tags) != 1 {
		t.Fatalf("Expected tag to survive partial delete, got %v", tags)
	}

	// Removing the last association makes the tag prunable.
	if err := s.DeleteTag(ctx, tag, "/f/b.png"); err != nil {
		t.Fatalf("DeleteTag failed: %v", err)
	}
	if n, err := s.DeleteUnusedTags(ctx); err != nil || n != 1 {
		t.Fatalf("DeleteUnusedTags = (%d, %v), want (1, nil)", n, err)
	}

	tags, _ = s.GetTags(ctx)
	if len(tags) != 0 {
		t.Errorf("Expected empty catalog after pruning, got %v", tags)
	}
}

func TestGetFilesFoldsJoinRows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupTestStore(t)
	ctx := context.Background()

	id, _ := s.AddFolder(ctx, "/f")
	addTestFile(t, s, "/f/tagged.png", id)
	addTestFile(t, s, "/f/plain.txt", id)

	if err := s.AddTag(ctx, Tag{Name: "rating", Value: "5"}, "/f/tagged.png"); err != nil {
		t.Fatalf("AddTag failed: %v", err)
	}
	if err := s.AddTag(ctx, Tag{Name: "favorite"}, "/f/tagged.png"); err != nil {
		t.Fatalf("AddTag failed: %v", err)
	}

	files, err := s.GetFiles(ctx, "/f")
	if err != nil {
		t.Fatalf("GetFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(files))
	}

	byPath := map[string]File{}
	for _, f := range files {
		byPath[f.Path] = f
	}
	if got := len(byPath["/f/tagged.png"].Tags); got != 2 {
		t.Errorf("Expected 2 tags folded onto tagged.png, got %d", got)
	}
	// A file with zero tags must not grow a phantom empty tag.
	if got := len(byPath["/f/plain.txt"].Tags); got != 0 {
		t.Errorf("Expected 0 tags on plain.txt, got %d", got)
	}
}

func TestGetFilesFolderFilter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupTestStore(t)
	ctx := context.Background()

	idA, _ := s.AddFolder(ctx, "/a")
	idB, _ := s.AddFolder(ctx, "/b")
	addTestFile(t, s, "/a/one.png", idA)
	addTestFile(t, s, "/b/two.png", idB)

	files, err := s.GetFiles(ctx, "/a")
	if err != nil {
		t.Fatalf("GetFiles failed: %v", err)
	}
	if len(files) != 1 || files[0].Path != "/a/one.png" {
		t.Errorf("Expected only /a/one.png, got %+v", files)
	}
}

func TestUpdateDescription(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupTestStore(t)
	ctx := context.Background()

	id, _ := s.AddFolder(ctx, "/f")
	addTestFile(t, s, "/f/a.png", id)
	if err := s.AddTag(ctx, Tag{Name: "rating", Value: "5"}, "/f/a.png"); err != nil {
		t.Fatalf("AddTag failed: %v", err)
	}

	file, err := s.UpdateDescription(ctx, "sunset over the bay", "/f/a.png")
	if err != nil {
		t.Fatalf("UpdateDescription failed: %v", err)
	}
	if file == nil {
		t.Fatal("Expected file projection, got nil")
	}
	if file.Description != "sunset over the bay" {
		t.Errorf("Expected updated description, got %q", file.Description)
	}
	// The projection deliberately omits the tag set.
	if len(file.Tags) != 0 {
		t.Errorf("Expected projection without tags, got %v", file.Tags)
	}

	// Unknown path is an expected condition, not an error.
	file, err = s.UpdateDescription(ctx, "text", "/nowhere.png")
	if err != nil {
		t.Fatalf("UpdateDescription for unknown path failed: %v", err)
	}
	if file != nil {
		t.Errorf("Expected nil for unknown path, got %+v", file)
	}
}

func TestTagGroups(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.AddTagGroup(ctx, TagGroup{Name: "People", Color: "#ff0000"}); err != nil {
		t.Fatalf("AddTagGroup failed: %v", err)
	}
	// Duplicate insert is ignored.
	if err := s.AddTagGroup(ctx, TagGroup{Name: "People", Color: "#00ff00"}); err != nil {
		t.Fatalf("AddTagGroup (duplicate) failed: %v", err)
	}

	groups, _ := s.GetTagGroups(ctx)
	if len(groups) != 2 {
		t.Fatalf("Expected default + People, got %d groups", len(groups))
	}
	if groups[1].Color != "#ff0000" {
		t.Errorf("Duplicate insert overwrote color: %q", groups[1].Color)
	}

	err := s.UpdateTagGroup(ctx, TagGroup{Name: "People"}, TagGroup{Name: "Friends", Color: "#0000ff"})
	if err != nil {
		t.Fatalf("UpdateTagGroup failed: %v", err)
	}

	groups, _ = s.GetTagGroups(ctx)
	if groups[1].Name != "Friends" || groups[1].Color != "#0000ff" {
		t.Errorf("Expected renamed group, got %+v", groups[1])
	}
}

func TestTagAttachesToNamedGroup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupTestStore(t)
	ctx := context.Background()

	id, _ := s.AddFolder(ctx, "/f")
	addTestFile(t, s, "/f/a.png", id)

	if err := s.AddTagGroup(ctx, TagGroup{Name: "People", Color: "#ff0000"}); err != nil {
		t.Fatalf("AddTagGroup failed: %v", err)
	}
	tag := Tag{Name: "alice", Group: TagGroup{Name: "People"}}
	if err := s.AddTag(ctx, tag, "/f/a.png"); err != nil {
		t.Fatalf("AddTag failed: %v", err)
	}

	tags, _ := s.GetTags(ctx)
	if len(tags) != 1 {
		t.Fatalf("Expected 1 tag, got %d", len(tags))
	}
	if tags[0].Group.Name != "People" || tags[0].Group.Color != "#ff0000" {
		t.Errorf("Expected People group on tag, got %+v", tags[0].Group)
	}
}
