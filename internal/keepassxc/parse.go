package keepassxc

import (
	"strings"

	"github.com/dmitrijs2005/keepsearch/internal/client/models"
)

type attr int

const (
	attrIgnored attr = iota
	attrTitle
	attrUsername
	attrPassword
	attrURL
	attrNotes
	attrPath
)

// attributes printed by "keepassxc-cli show", keyed by lower-cased name.
var attributes = map[string]attr{
	"title":    attrTitle,
	"username": attrUsername,
	"password": attrPassword,
	"url":      attrURL,
	"notes":    attrNotes,
	"path":     attrPath,
	"uuid":     attrIgnored,
	"tags":     attrIgnored,
	"totp":     attrIgnored,
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// splitAttr recognises "Key: value" where Key is a known attribute. Only the
// first colon separates, so values may contain colons.
func splitAttr(line string) (attr, string, bool) {
	name, value, ok := strings.Cut(strings.TrimLeft(line, " \t"), ":")
	if !ok {
		return 0, "", false
	}
	a, known := attributes[strings.ToLower(strings.TrimSpace(name))]
	if !known {
		return 0, "", false
	}
	return a, value, true
}

func isRecordMarker(line string) bool {
	t := strings.TrimSpace(line)
	return len(t) >= 3 && (strings.Trim(t, "-") == "" || strings.Trim(t, "=") == "")
}

type entryParser struct {
	entries []models.Entry
	cur     *models.Entry
	seen    map[attr]bool
	last    attr
	blanks  int

	// marker is set while the notes end in a marker line, which starts at
	// markerAt.
	marker   bool
	markerAt int
}

func (p *entryParser) flush() {
	p.dropMarker()
	if p.cur != nil && (p.seen[attrTitle] || p.seen[attrPath]) {
		if p.cur.Notes.Valid {
			p.cur.Notes.Value = strings.TrimSpace(p.cur.Notes.Value)
		}
		p.entries = append(p.entries, *p.cur)
	}
	p.cur = nil
	p.seen = nil
	p.last = attrIgnored
	p.blanks = 0
}

func (p *entryParser) set(a attr, raw string) {
	if p.cur == nil {
		p.cur = &models.Entry{}
		p.seen = make(map[attr]bool)
	}
	p.seen[a] = true
	p.last = a
	p.blanks = 0

	value := strings.TrimSpace(raw)
	switch a {
	case attrTitle:
		p.cur.Title = value
	case attrUsername:
		p.cur.Username = models.NewField(value)
	case attrPassword:
		// Keep surrounding spaces that belong to the secret; drop only the
		// separator after the colon.
		p.cur.Password = models.NewField(strings.TrimPrefix(raw, " "))
	case attrURL:
		p.cur.URL = models.NewField(value)
	case attrNotes:
		p.cur.Notes = models.NewField(value)
	case attrPath:
		p.cur.Path = value
	}
}

func (p *entryParser) line(line string) {
	if strings.TrimSpace(line) == "" {
		if p.cur != nil {
			p.blanks++
		}
		return
	}
	if p.cur != nil && p.last == attrNotes && p.notesLine(line) {
		return
	}
	if isRecordMarker(line) {
		p.flush()
		return
	}
	if a, value, ok := splitAttr(line); ok {
		if p.cur != nil && (p.blanks > 0 || (a != attrIgnored && p.seen[a])) {
			p.flush()
		}
		p.set(a, value)
		return
	}
	// Anything else is noise and dropped.
}

// notesLine appends line to the notes and reports whether it did. show prints
// Notes after the other fields, so marker lines and attributes already seen
// are notes text. Uuid, Tags and unseen attributes end the notes, as does a
// Title after a blank or marker line.
func (p *entryParser) notesLine(line string) bool {
	a, _, isAttr := splitAttr(line)
	switch {
	case isAttr && a == attrTitle && (p.blanks > 0 || p.marker):
		p.dropMarker()
		return false
	case isAttr && (a == attrIgnored || !p.seen[a]):
		p.dropMarker()
		return false
	case isRecordMarker(line):
		at := len(p.cur.Notes.Value)
		p.appendNotes(line)
		p.marker, p.markerAt = true, at
		return true
	}
	p.appendNotes(line)
	return true
}

func (p *entryParser) appendNotes(line string) {
	p.cur.Notes.Value += strings.Repeat("\n", p.blanks+1) + line
	p.blanks = 0
	p.marker = false
}

// dropMarker removes a marker line that turned out to close the record.
func (p *entryParser) dropMarker() {
	if p.marker && p.cur != nil {
		p.cur.Notes.Value = p.cur.Notes.Value[:p.markerAt]
	}
	p.marker = false
}

// ParseEntries parses "Key: value" stanzas into entries. Records are separated
// by blank lines, by marker lines ("---"), or by a repeated attribute outside
// the notes.
//
// Attributes missing from a stanza stay invalid (Field.Valid == false).
// Lines following "Notes:" are appended to the notes, including marker lines
// and repeats of attributes already seen, until Uuid, Tags, an attribute not
// yet seen, or a Title after a blank or marker line.
// Stanzas without a Title or Path attribute and unrecognised lines are
// dropped. Values are trimmed, except Password which only loses the single
// space after the colon.
func ParseEntries(stdout string) []models.Entry {
	p := &entryParser{}
	for _, l := range splitLines(stdout) {
		p.line(strings.TrimRight(l, "\r"))
	}
	p.flush()
	return p.entries
}

func normalizePath(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

// ParseSearchList parses "keepassxc-cli search" output: one entry path per
// line. Paths are returned with a leading "/", in output order.
func ParseSearchList(stdout string) []string {
	var paths []string
	for _, l := range splitLines(stdout) {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		paths = append(paths, normalizePath(l))
	}
	return paths
}

// recycleBin is the group KeePassXC moves deleted entries to.
const recycleBin = "/Recycle Bin/"

// ParseListing parses "keepassxc-cli ls -R -f" output into entry paths.
// Group lines (ending in "/"), "[empty]" markers and recycle-bin entries are
// skipped.
func ParseListing(stdout string) []string {
	var paths []string
	for _, l := range splitLines(stdout) {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasSuffix(l, "/") || strings.HasSuffix(l, "[empty]") {
			continue
		}
		p := normalizePath(l)
		if strings.HasPrefix(p, recycleBin) {
			continue
		}
		paths = append(paths, p)
	}
	return paths
}

// RedactSample returns at most limit bytes of stdout for diagnostics with the
// value of every Password line replaced.
func RedactSample(stdout string, limit int) string {
	lines := splitLines(stdout)
	for i, l := range lines {
		if a, _, ok := splitAttr(l); ok && a == attrPassword {
			name, _, _ := strings.Cut(l, ":")
			lines[i] = name + ": [REDACTED]"
		}
	}
	s := strings.Join(lines, "\n")
	if limit > 0 && len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
