package api

import (
	"errors"
	"net/http"
	"strings"

	"tagdex/internal/database"
	"tagdex/internal/metadata"
	"tagdex/internal/search"
)

// FolderRequest tracks or untracks a set of folders.
type FolderRequest struct {
	Paths []string `json:"paths"`
}

// TagRequest attaches or detaches tags on a set of files.
type TagRequest struct {
	Tags  []database.Tag `json:"tags"`
	Paths []string       `json:"paths"`
}

// DescriptionRequest replaces a file's description.
type DescriptionRequest struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

// TagGroupUpdateRequest renames/recolors a tag group.
type TagGroupUpdateRequest struct {
	Original database.TagGroup `json:"original"`
	Updated  database.TagGroup `json:"updated"`
}

func (s *Server) getFolders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.svc.TrackedFolders())
}

func (s *Server) trackFolders(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if !readJSON(w, r, &req) {
		return
	}
	if len(req.Paths) == 0 {
		http.Error(w, "Paths array is required", http.StatusBadRequest)
		return
	}
	if err := s.svc.TrackFolders(r.Context(), req.Paths, nil); err != nil {
		http.Error(w, "Failed to track folders", http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.svc.TrackedFolders())
}

func (s *Server) untrackFolders(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.svc.UntrackFolders(r.Context(), req.Paths...); err != nil {
		http.Error(w, "Failed to untrack folders", http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.svc.TrackedFolders())
}

// getFiles returns the files under the given folders (all tracked files when
// none are given), filtered by tag predicates. Query parameters:
//
//	folder   repeatable; source folder paths
//	tag      repeatable; "name" for a bare tag, "name:value" for a valued one
//	tagname  repeatable; matches any value of the named tag
func (s *Server) getFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var preds []search.Predicate
	for _, raw := range q["tag"] {
		name, value, _ := strings.Cut(raw, ":")
		preds = append(preds, search.Tagged(database.Tag{Name: name, Value: value}))
	}
	for _, name := range q["tagname"] {
		preds = append(preds, search.TaggedAnyValue(name))
	}

	files, err := s.svc.GetFiles(r.Context(), preds, q["folder"]...)
	if err != nil {
		http.Error(w, "Failed to get files", http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []database.File{}
	}
	writeJSON(w, files)
}

func (s *Server) updateDescription(w http.ResponseWriter, r *http.Request) {
	var req DescriptionRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		http.Error(w, "Path is required", http.StatusBadRequest)
		return
	}
	file, err := s.svc.UpdateDescription(r.Context(), req.Description, req.Path)
	if err != nil {
		http.Error(w, "Failed to update description", http.StatusInternalServerError)
		return
	}
	if file == nil {
		http.Error(w, "File not tracked", http.StatusNotFound)
		return
	}
	writeJSON(w, file)
}

func (s *Server) getTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.svc.GetAllTags(r.Context())
	if err != nil {
		http.Error(w, "Failed to get tags", http.StatusInternalServerError)
		return
	}
	if tags == nil {
		tags = []database.Tag{}
	}
	writeJSON(w, tags)
}

func (s *Server) addTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !readJSON(w, r, &req) {
		return
	}
	if len(req.Tags) != 1 {
		http.Error(w, "Exactly one tag is required", http.StatusBadRequest)
		return
	}
	if err := s.svc.AddTag(r.Context(), req.Tags[0], req.Paths...); err != nil {
		http.Error(w, "Failed to add tag", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteTags(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.svc.DeleteTags(r.Context(), req.Tags, req.Paths...); err != nil {
		http.Error(w, "Failed to delete tags", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getTagGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.GetTagGroups(r.Context())
	if err != nil {
		http.Error(w, "Failed to get tag groups", http.StatusInternalServerError)
		return
	}
	writeJSON(w, groups)
}

func (s *Server) createTagGroup(w http.ResponseWriter, r *http.Request) {
	var g database.TagGroup
	if !readJSON(w, r, &g) {
		return
	}
	if g.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}
	if err := s.svc.CreateTagGroup(r.Context(), g); err != nil {
		http.Error(w, "Failed to create tag group", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) updateTagGroup(w http.ResponseWriter, r *http.Request) {
	var req TagGroupUpdateRequest
	if !readJSON(w, r, &req) {
		return
	}
	err := s.svc.UpdateTagGroup(r.Context(), req.Original, req.Updated)
	if errors.Is(err, metadata.ErrReservedGroup) {
		http.Error(w, "The default tag group is reserved", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, "Failed to update tag group", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
