// Package search holds the predicates used to filter tracked files by their
// tag sets. Filtering happens in the application layer over retrieved rows;
// predicates are never pushed into SQL.
package search

import "tagdex/internal/database"

// Predicate decides whether a tracked file belongs in a filtered view.
type Predicate interface {
	Match(f database.File) bool
}

// TagPredicate matches files carrying a given tag. With IgnoreValue set it
// matches any instance of the tag's name; otherwise the exact (name, value)
// instance must be present. An untracked file has no tag set and therefore
// never matches.
type TagPredicate struct {
	Tag         database.Tag
	IgnoreValue bool
}

// Tagged builds a predicate for the exact (name, value) instance of t.
func Tagged(t database.Tag) TagPredicate {
	return TagPredicate{Tag: t}
}

// TaggedAnyValue builds a predicate matching any instance of name.
func TaggedAnyValue(name string) TagPredicate {
	return TagPredicate{Tag: database.Tag{Name: name}, IgnoreValue: true}
}

func (p TagPredicate) Match(f database.File) bool {
	if p.IgnoreValue {
		return f.HasTagNamed(p.Tag.Name)
	}
	return f.HasTag(p.Tag.Name, p.Tag.Value)
}

// MatchAll reports whether f satisfies every predicate. An empty predicate
// list matches everything.
func MatchAll(preds []Predicate, f database.File) bool {
	for _, p := range preds {
		if !p.Match(f) {
			return false
		}
	}
	return true
}
