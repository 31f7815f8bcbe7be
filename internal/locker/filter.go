package locker

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Filter narrows an entry list client-side. Zero-value fields do not
// constrain; Tags requires every listed tag to be present; Search is a
// case-insensitive substring match over name, description, notes, and
// tags. Filtering runs after decryption, so search never touches
// ciphertext.
type Filter struct {
	VaultID   string
	EntryType *string
	Tags      []string
	Search    string
}

func (f *Filter) Match(e *Entry) bool {
	if f.VaultID != "" && e.VaultID != f.VaultID {
		return false
	}
	if f.EntryType != nil {
		if e.EntryType == nil || *e.EntryType != *f.EntryType {
			return false
		}
	}
	for _, want := range f.Tags {
		if !containsTag(e.Tags, want) {
			return false
		}
	}
	if f.Search != "" && !f.matchSearch(e) {
		return false
	}
	return true
}

func containsTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

func (f *Filter) matchSearch(e *Entry) bool {
	needle := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(e.Name), needle) {
		return true
	}
	if e.Description != nil && strings.Contains(strings.ToLower(*e.Description), needle) {
		return true
	}
	if e.Notes != nil && strings.Contains(strings.ToLower(*e.Notes), needle) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

// SortField names an entry attribute entries can be ordered by.
type SortField string

const (
	SortByName      SortField = "name"
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
	SortByFileSize  SortField = "file_size"
)

// Sort orders an entry list in place. String fields collate by locale
// rather than byte order; Tag zero-value falls back to the unmarked
// locale. Numeric and time fields compare numerically.
type Sort struct {
	Field SortField
	Desc  bool
	Tag   language.Tag
}

func (s *Sort) Apply(entries []*Entry) {
	less := s.lessFunc()
	if less == nil {
		return
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if s.Desc {
			return less(entries[j], entries[i])
		}
		return less(entries[i], entries[j])
	})
}

func (s *Sort) lessFunc() func(a, b *Entry) bool {
	switch s.Field {
	case SortByName:
		col := collate.New(s.Tag, collate.IgnoreCase)
		return func(a, b *Entry) bool {
			return col.CompareString(a.Name, b.Name) < 0
		}
	case SortByCreatedAt:
		return func(a, b *Entry) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortByUpdatedAt:
		return func(a, b *Entry) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case SortByFileSize:
		return func(a, b *Entry) bool { return fileSize(a) < fileSize(b) }
	default:
		return nil
	}
}

func fileSize(e *Entry) uint64 {
	if e.FileSize == nil {
		return 0
	}
	return *e.FileSize
}
