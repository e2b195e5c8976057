// Package lint implements read-only catalog checks: duplicate keys and
// empty values. Checks never mutate the catalog and are individually
// toggleable via Options; findings are reported as warning-level
// diagnostics through an injected sink.
package lint

import (
	"fmt"
	"strings"

	"github.com/strsync/strsync/diag"
	"github.com/strsync/strsync/stringsfile"
)

// Options toggles individual checks. The zero value disables everything;
// use DefaultOptions for the standard configuration.
type Options struct {
	// DuplicateKeys enables the duplicate-key check.
	DuplicateKeys bool
	// EmptyValues enables the empty-value check.
	EmptyValues bool
}

// DefaultOptions returns the default configuration with all checks enabled.
func DefaultOptions() Options {
	return Options{DuplicateKeys: true, EmptyValues: true}
}

// EnabledChecks returns how many checks are switched on.
func (o Options) EnabledChecks() int {
	n := 0
	if o.DuplicateKeys {
		n++
	}
	if o.EmptyValues {
		n++
	}
	return n
}

// Duplicate is a group of entries sharing one key.
type Duplicate struct {
	// Key is the duplicated key.
	Key string
	// Lines are the source lines of every occurrence, ascending.
	Lines []int
}

// EmptyValue is an entry whose value is the empty string.
type EmptyValue struct {
	Key  string
	Line int
}

// Duplicates groups catalog entries by key and returns the groups with more
// than one member, in order of first occurrence.
func Duplicates(f *stringsfile.File) []Duplicate {
	idx := f.KeyIndex()

	var result []Duplicate
	seen := make(map[string]bool)
	for _, e := range f.Entries {
		if seen[e.Key] {
			continue
		}
		seen[e.Key] = true
		indices := idx[e.Key]
		if len(indices) < 2 {
			continue
		}
		lines := make([]int, len(indices))
		for i, entryIdx := range indices {
			lines[i] = f.Entries[entryIdx].Line
		}
		result = append(result, Duplicate{Key: e.Key, Lines: lines})
	}
	return result
}

// EmptyValues returns every entry with an empty value, in document order.
func EmptyValues(f *stringsfile.File) []EmptyValue {
	var result []EmptyValue
	for _, e := range f.Entries {
		if e.Value == "" {
			result = append(result, EmptyValue{Key: e.Key, Line: e.Line})
		}
	}
	return result
}

// Run executes the enabled checks on one catalog, emitting a warning per
// finding, and returns the number of issues found.
func Run(f *stringsfile.File, opts Options, sink diag.Sink) int {
	issues := 0

	if opts.DuplicateKeys {
		for _, dup := range Duplicates(f) {
			for _, line := range dup.Lines {
				sink.Emit(diag.Event{
					Level:   diag.LevelWarning,
					Message: duplicateMessage(dup, line),
					File:    f.Path,
					Line:    line,
				})
				issues++
			}
		}
	}

	if opts.EmptyValues {
		for _, ev := range EmptyValues(f) {
			sink.Emit(diag.Event{
				Level:   diag.LevelWarning,
				Message: fmt.Sprintf("Found empty value for key '%s'.", ev.Key),
				File:    f.Path,
				Line:    ev.Line,
			})
			issues++
		}
	}

	return issues
}

// duplicateMessage formats the diagnostic for one occurrence of a duplicated
// key, listing every other line in the group.
func duplicateMessage(dup Duplicate, line int) string {
	others := make([]string, 0, len(dup.Lines)-1)
	for _, l := range dup.Lines {
		if l != line {
			others = append(others, fmt.Sprintf("%d", l))
		}
	}
	return fmt.Sprintf("Found %d translations for key '%s'. Other entries at: [%s]",
		len(dup.Lines), dup.Key, strings.Join(others, ", "))
}

// Summary aggregates lint results across files and locales.
type Summary struct {
	// Issues is the total number of findings.
	Issues int
	// FilesWithIssues counts files that produced at least one finding.
	FilesWithIssues int
	// FilesScanned counts every catalog file inspected.
	FilesScanned int
}

// Add records the result of linting one file.
func (s *Summary) Add(issues int) {
	s.FilesScanned++
	s.Issues += issues
	if issues > 0 {
		s.FilesWithIssues++
	}
}

// Message renders the final summary line. It is always reported, even when
// no issues were found.
func (s *Summary) Message(opts Options) string {
	return fmt.Sprintf("%d issue(s) found in %d file(s). Executed %d checks in %d Strings file(s) in total.",
		s.Issues, s.FilesWithIssues, opts.EnabledChecks(), s.FilesScanned)
}
