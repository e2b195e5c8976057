// Package merge reconciles a catalog against harvested entries.
//
// Merging is append-only: keys already present in the catalog are left
// untouched even when the harvested value differs, because human edits in
// translated catalogs are authoritative and must never be silently
// overwritten. Only keys absent from the catalog are appended — with the
// harvested value in the source-locale catalog, or with an empty value in
// every other locale (to be filled by translation or manual editing).
package merge

import (
	"github.com/strsync/strsync/harvest"
	"github.com/strsync/strsync/stringsfile"
)

// Report describes what a merge changed.
type Report struct {
	// AddedKeys lists the appended keys in the order they were appended.
	// Empty means the catalog is unchanged and must not be rewritten.
	AddedKeys []string
	// UpdatedCount counts values written back through SetValue.
	// Always 0 for Merge itself.
	UpdatedCount int
}

// Changed reports whether the catalog was modified.
func (r Report) Changed() bool {
	return len(r.AddedKeys) > 0 || r.UpdatedCount > 0
}

// Merge appends entries for harvested keys absent from the catalog.
// sourceLocale controls whether the harvested value is written (source
// catalog) or left empty (translation catalogs). Existing entries are never
// modified. Merging the same harvested entries twice is a no-op.
func Merge(f *stringsfile.File, harvested []harvest.Entry, sourceLocale bool) Report {
	existing := make(map[string]bool, len(f.Entries))
	for _, e := range f.Entries {
		existing[e.Key] = true
	}

	var report Report
	for _, h := range harvested {
		if existing[h.Key] {
			continue
		}
		existing[h.Key] = true

		value := ""
		if sourceLocale {
			value = h.Value
		}
		entry := &stringsfile.Entry{
			Key:     h.Key,
			Value:   value,
			Comment: h.Comment,
		}
		if len(f.Entries) > 0 {
			entry.LeadingTrivia = "\n"
		}
		f.Append(entry)
		report.AddedKeys = append(report.AddedKeys, h.Key)
	}

	return report
}

// SetValue writes a value into the first entry for key, reporting whether
// the key was found. It updates existing entries only and never creates one.
func SetValue(f *stringsfile.File, key, value string) bool {
	e, ok := f.Get(key)
	if !ok {
		return false
	}
	e.SetValue(value)
	return true
}
