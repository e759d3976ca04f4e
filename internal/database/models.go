package database

import "path/filepath"

// Folder is a tracked source directory.
type Folder struct {
	ID   int64  `json:"id"`
	Path string `json:"path"`
}

// TagGroup is a named color bucket for tags. The reserved group "None"
// always exists and cannot be deleted or renamed.
type TagGroup struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Tag is a named label, optionally carrying a value. Value == "" means a
// bare tag; a bare tag and a valued tag of the same name may coexist on the
// same file. The identity of a tag instance on a file is (Name, Value).
type Tag struct {
	Name  string   `json:"name"`
	Value string   `json:"value,omitempty"`
	Group TagGroup `json:"group,omitempty"`
}

// File is a tracked file with its persisted metadata. Tags reflects the
// association set as of the last load or incremental patch.
type File struct {
	Path        string `json:"path"`
	FolderID    int64  `json:"folderId"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Description string `json:"description,omitempty"`
	Tags        []Tag  `json:"tags,omitempty"`
}

// Name returns the file's base name.
func (f File) Name() string {
	return filepath.Base(f.Path)
}

// HasTag reports whether the exact (name, value) instance is on the file.
func (f File) HasTag(name, value string) bool {
	for _, t := range f.Tags {
		if t.Name == name && t.Value == value {
			return true
		}
	}
	return false
}

// HasTagNamed reports whether any instance of name is on the file,
// regardless of value.
func (f File) HasTagNamed(name string) bool {
	for _, t := range f.Tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

// WithTag returns a copy of f with t appended. Adding an instance that is
// already present returns f unchanged. The receiver's tag slice is never
// mutated, so concurrent holders of the original value stay consistent.
func (f File) WithTag(t Tag) File {
	if f.HasTag(t.Name, t.Value) {
		return f
	}
	tags := make([]Tag, len(f.Tags), len(f.Tags)+1)
	copy(tags, f.Tags)
	f.Tags = append(tags, t)
	return f
}
