// Package stringsfile implements reading and writing of .strings localization
// catalogs (the `"key" = "value";` text format).
//
// The parser is lossless: blank lines and comment blocks preceding an entry
// are captured verbatim as that entry's leading trivia, and the original
// statement text is kept so that serializing an unmodified catalog reproduces
// the input byte for byte. Duplicate keys are retained as separate entries in
// document order — detecting them is the lint package's job, not the codec's.
//
// File naming convention: each locale stores its catalogs in a per-locale
// directory:
//
//	Resources/en.lproj/Localizable.strings  (source)
//	Resources/de.lproj/Localizable.strings  (translation)
package stringsfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ---------------------------------------------------------------------------
// Catalog model
// ---------------------------------------------------------------------------

// Entry represents a single `"key" = "value";` statement in a catalog.
type Entry struct {
	// Key is the decoded lookup key.
	Key string
	// Value is the decoded translated text. Empty means untranslated.
	Value string
	// Comment is the inline comment immediately above the statement,
	// if there was exactly one. Empty otherwise.
	Comment string
	// Line is the 1-based source line of the statement, for diagnostics.
	Line int
	// LeadingTrivia holds the verbatim blank lines and comment blocks
	// that preceded the statement in the source file.
	LeadingTrivia string

	// raw is the original statement text including its line terminator.
	// Cleared on mutation so Marshal falls back to canonical form.
	raw string
}

// SetValue replaces the entry's value. The original statement text is
// discarded, so the entry serializes in canonical form afterwards.
func (e *Entry) SetValue(v string) {
	e.Value = v
	e.raw = ""
}

// IsTranslated reports whether the entry has a non-empty value.
func (e *Entry) IsTranslated() bool {
	return e.Value != ""
}

// File represents a parsed .strings catalog for one locale.
type File struct {
	// Locale is the language code this catalog belongs to (e.g. "en", "de").
	Locale string
	// Path is the file the catalog was loaded from, for diagnostics.
	Path string
	// Entries are the statements in document order. Keys are not
	// necessarily unique.
	Entries []*Entry
	// TrailingTrivia holds verbatim blank lines and comments after the
	// last statement.
	TrailingTrivia string
}

// NewFile creates an empty catalog.
func NewFile(locale, path string) *File {
	return &File{Locale: locale, Path: path}
}

// KeyIndex returns a map of key → entry indices in document order.
// It is derived on demand; duplicate keys map to multiple indices.
func (f *File) KeyIndex() map[string][]int {
	idx := make(map[string][]int, len(f.Entries))
	for i, e := range f.Entries {
		idx[e.Key] = append(idx[e.Key], i)
	}
	return idx
}

// Get returns the first entry for key and whether it was found.
func (f *File) Get(key string) (*Entry, bool) {
	for _, e := range f.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return nil, false
}

// Keys returns all keys in document order, including duplicates.
func (f *File) Keys() []string {
	keys := make([]string, len(f.Entries))
	for i, e := range f.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Append adds an entry at the end of the catalog.
func (f *File) Append(e *Entry) {
	f.Entries = append(f.Entries, e)
}

// Stats returns (total, translated, percentTranslated) for this catalog.
func (f *File) Stats() (int, int, float64) {
	total, translated := 0, 0
	for _, e := range f.Entries {
		total++
		if e.IsTranslated() {
			translated++
		}
	}
	pct := 0.0
	if total > 0 {
		pct = float64(translated) / float64(total) * 100
	}
	return total, translated, pct
}

// ---------------------------------------------------------------------------
// Format errors
// ---------------------------------------------------------------------------

// FormatError describes malformed catalog text.
type FormatError struct {
	// Path is the offending file, if known.
	Path string
	// Line is the 1-based line where parsing failed.
	Line int
	// Msg describes the problem.
	Msg string
}

func (e *FormatError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a .strings catalog from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Path = path
		}
		return nil, err
	}
	f.Path = path
	return f, nil
}

// Parse parses .strings content from a byte slice.
func Parse(data []byte) (*File, error) {
	p := &parser{src: string(data), line: 1}
	f := &File{}

	for {
		trivia := p.scanTrivia()
		if err := p.err; err != nil {
			return nil, err
		}
		if p.eof() {
			f.TrailingTrivia = trivia
			break
		}

		entry, err := p.scanStatement()
		if err != nil {
			return nil, err
		}
		entry.LeadingTrivia = trivia
		entry.Comment = promoteComment(trivia)
		f.Entries = append(f.Entries, entry)
	}

	return f, nil
}

// parser is a cursor over the source text with line tracking.
type parser struct {
	src  string
	pos  int
	line int
	err  error
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

// advance moves the cursor by n bytes, counting newlines.
func (p *parser) advance(n int) {
	for i := 0; i < n && p.pos < len(p.src); i++ {
		if p.src[p.pos] == '\n' {
			p.line++
		}
		p.pos++
	}
}

// scanTrivia consumes whitespace and comment blocks, returning them verbatim.
func (p *parser) scanTrivia() string {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.advance(1)
		case strings.HasPrefix(p.src[p.pos:], "//"):
			end := strings.IndexByte(p.src[p.pos:], '\n')
			if end < 0 {
				p.advance(len(p.src) - p.pos)
			} else {
				p.advance(end + 1)
			}
		case strings.HasPrefix(p.src[p.pos:], "/*"):
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				p.err = &FormatError{Line: p.line, Msg: "unterminated comment"}
				p.advance(len(p.src) - p.pos)
				return p.src[start:p.pos]
			}
			p.advance(end + 4)
		default:
			return p.src[start:p.pos]
		}
	}
	return p.src[start:p.pos]
}

// scanStatement parses one `"key" = "value";` statement.
func (p *parser) scanStatement() (*Entry, error) {
	start := p.pos
	startLine := p.line

	if p.eof() || p.src[p.pos] != '"' {
		return nil, &FormatError{Line: p.line, Msg: "expected key string"}
	}
	key, err := p.scanString()
	if err != nil {
		return nil, err
	}

	p.skipInlineSpace()
	if p.eof() || p.src[p.pos] != '=' {
		return nil, &FormatError{Line: p.line, Msg: fmt.Sprintf("expected '=' after key %q", key)}
	}
	p.advance(1)
	p.skipInlineSpace()

	if p.eof() || p.src[p.pos] != '"' {
		return nil, &FormatError{Line: p.line, Msg: fmt.Sprintf("expected value string for key %q", key)}
	}
	value, err := p.scanString()
	if err != nil {
		return nil, err
	}

	p.skipInlineSpace()
	if p.eof() || p.src[p.pos] != ';' {
		return nil, &FormatError{Line: p.line, Msg: fmt.Sprintf("expected ';' after value for key %q", key)}
	}
	p.advance(1)

	// Pull the line terminator into the statement so round-trip output
	// stays byte-identical.
	p.skipInlineSpace()
	if !p.eof() && p.src[p.pos] == '\r' {
		p.advance(1)
	}
	if !p.eof() && p.src[p.pos] == '\n' {
		p.advance(1)
	}

	return &Entry{
		Key:   key,
		Value: value,
		Line:  startLine,
		raw:   p.src[start:p.pos],
	}, nil
}

// scanString parses a quoted string literal, decoding escape sequences.
func (p *parser) scanString() (string, error) {
	startLine := p.line
	p.advance(1) // opening quote

	var sb strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch c {
		case '"':
			p.advance(1)
			return sb.String(), nil
		case '\\':
			if p.pos+1 >= len(p.src) {
				return "", &FormatError{Line: startLine, Msg: "unterminated string literal"}
			}
			switch p.src[p.pos+1] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				// Unknown escape: keep both characters unchanged.
				sb.WriteByte('\\')
				sb.WriteByte(p.src[p.pos+1])
			}
			p.advance(2)
		default:
			sb.WriteByte(c)
			p.advance(1)
		}
	}
	return "", &FormatError{Line: startLine, Msg: "unterminated string literal"}
}

func (p *parser) skipInlineSpace() {
	for !p.eof() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.advance(1)
	}
}

// promoteComment returns the comment text when the trivia ends with exactly
// one single-line comment directly above the statement.
func promoteComment(trivia string) string {
	t := strings.TrimRight(trivia, " \t")
	t = strings.TrimSuffix(t, "\r\n")
	t = strings.TrimSuffix(t, "\n")
	idx := strings.LastIndexByte(t, '\n')
	last := strings.TrimSpace(t[idx+1:])

	if strings.HasPrefix(last, "/*") && strings.HasSuffix(last, "*/") {
		return strings.TrimSpace(last[2 : len(last)-2])
	}
	if strings.HasPrefix(last, "//") {
		return strings.TrimSpace(last[2:])
	}
	return ""
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serializes the catalog back to .strings format. Entries that were
// not modified since parsing reproduce their source bytes exactly.
func (f *File) Marshal() []byte {
	var buf bytes.Buffer
	for _, e := range f.Entries {
		buf.WriteString(e.LeadingTrivia)
		if e.raw != "" {
			buf.WriteString(e.raw)
			continue
		}
		if e.Comment != "" && !strings.Contains(e.LeadingTrivia, e.Comment) {
			fmt.Fprintf(&buf, "/* %s */\n", e.Comment)
		}
		fmt.Fprintf(&buf, "\"%s\" = \"%s\";\n", escape(e.Key), escape(e.Value))
	}
	buf.WriteString(f.TrailingTrivia)
	return buf.Bytes()
}

// escape produces the quoted-string body for a key or value.
func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}

// WriteFile serializes and writes to path, creating parent directories.
func (f *File) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, f.Marshal(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
