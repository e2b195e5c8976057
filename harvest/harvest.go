// Package harvest defines the entries produced by the code and layout
// extractors: (key, value, comment) triples discovered in project sources
// that have not yet been persisted to a catalog.
package harvest

// Entry is a translatable string discovered at a call site or in a layout
// file. Value is the source-locale text as written there; Comment is
// optional context for translators.
type Entry struct {
	Key     string
	Value   string
	Comment string
}

// Dedupe removes entries whose key was already seen, keeping the first
// occurrence and the original order. The same key may be harvested from
// several sources (code and layouts); the first discovery wins.
func Dedupe(entries []Entry) []Entry {
	seen := make(map[string]bool, len(entries))
	result := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if seen[e.Key] {
			continue
		}
		seen[e.Key] = true
		result = append(result, e)
	}
	return result
}
