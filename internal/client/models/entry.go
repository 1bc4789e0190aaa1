package models

import "strings"

// Field is an optional entry attribute. Valid is false when the oracle output
// did not contain the attribute at all, which is different from an attribute
// that is present but empty.
type Field struct {
	Value string
	Valid bool
}

// NewField returns a present field holding v.
func NewField(v string) Field {
	return Field{Value: v, Valid: true}
}

// Entry is one credential record. Entries are produced fresh for every query
// and are not cached.
type Entry struct {
	Title    string
	Username Field
	Password Field
	URL      Field
	Notes    Field
	// Path is the hierarchical location, e.g. "/Internet/Github work".
	Path string
}

// EntryFromPath builds a listing entry whose title is the last path segment.
// Paths do not escape "/", so a title containing one is cut to its last part;
// the Title line of a detail fetch carries the full title.
func EntryFromPath(path string) Entry {
	p := path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	title := p[strings.LastIndex(p, "/")+1:]
	return Entry{Title: title, Path: p}
}

// Group returns the path of the group containing the entry, "/" for the root.
func (e Entry) Group() string {
	i := strings.LastIndex(e.Path, "/")
	if i <= 0 {
		return "/"
	}
	return e.Path[:i]
}

// String identifies the entry without revealing any field values.
func (e Entry) String() string {
	if e.Path != "" {
		return e.Path
	}
	return e.Title
}
