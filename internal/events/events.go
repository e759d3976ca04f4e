// Package events carries the change notifications emitted by the metadata
// service after each durable mutation. Derived caches subscribe to the Bus
// and apply events in delivery order instead of re-querying the store.
package events

import "tagdex/internal/database"

// Reason classifies what happened to the item a Change describes.
type Reason int

const (
	Add Reason = iota
	Update
	Remove
)

func (r Reason) String() string {
	switch r {
	case Add:
		return "add"
	case Update:
		return "update"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

// Entity names the kind of item a Change describes.
type Entity int

const (
	EntityFile Entity = iota
	EntityTag
	EntityTagGroup
	EntityFolder
)

func (e Entity) String() string {
	switch e {
	case EntityFile:
		return "file"
	case EntityTag:
		return "tag"
	case EntityTagGroup:
		return "tag_group"
	case EntityFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// Change describes exactly one committed mutation. Exactly one of Tag,
// Group, File or Folder is populated, matching Entity. Files lists the
// affected file paths; a tag added to N files travels as one Change, not N.
// OriginalGroup carries the pre-edit group on Update/EntityTagGroup so a
// subscriber can locate-and-replace by the old name.
//
// The payloads are copies; a subscriber must apply its own copy-on-write
// update to derived state rather than share a mutable collection.
type Change struct {
	Reason        Reason              `json:"reason"`
	Entity        Entity              `json:"entity"`
	Tag           *database.Tag       `json:"tag,omitempty"`
	Group         *database.TagGroup  `json:"group,omitempty"`
	OriginalGroup *database.TagGroup  `json:"originalGroup,omitempty"`
	File          *database.File      `json:"file,omitempty"`
	Folder        string              `json:"folder,omitempty"`
	Files         []string            `json:"files,omitempty"`
}
