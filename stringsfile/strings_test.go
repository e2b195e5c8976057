package stringsfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseRoundTripBytes(t *testing.T) {
	input := "/* Greeting shown on launch */\n" +
		"\"greeting\" = \"Hello\";\n" +
		"\n" +
		"// Tab bar\n" +
		"\"tab.home\"=\"Home\" ;\n" +
		"\n" +
		"/* block one */\n" +
		"/* block two */\n" +
		"\"farewell\" = \"Bye\\n\";\n" +
		"\n" +
		"// trailing comment after last entry\n"

	f, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if got := string(f.Marshal()); got != input {
		t.Fatalf("round trip mismatch:\ngot:  %q\nwant: %q", got, input)
	}
}

func TestParseEntriesLinesAndComments(t *testing.T) {
	input := "/* Greeting */\n" +
		"\"greeting\" = \"Hello\";\n" +
		"\n" +
		"\"plain\" = \"no comment\";\n" +
		"// slash comment\n" +
		"\"slash\" = \"ok\";\n"

	f, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(f.Entries) != 3 {
		t.Fatalf("entries len = %d, want 3", len(f.Entries))
	}

	greeting := f.Entries[0]
	if greeting.Key != "greeting" || greeting.Value != "Hello" {
		t.Fatalf("first entry = %q/%q", greeting.Key, greeting.Value)
	}
	if greeting.Line != 2 {
		t.Fatalf("greeting line = %d, want 2", greeting.Line)
	}
	if greeting.Comment != "Greeting" {
		t.Fatalf("greeting comment = %q, want Greeting", greeting.Comment)
	}

	if f.Entries[1].Comment != "" {
		t.Fatalf("plain entry comment = %q, want empty", f.Entries[1].Comment)
	}
	if f.Entries[1].Line != 4 {
		t.Fatalf("plain line = %d, want 4", f.Entries[1].Line)
	}

	if f.Entries[2].Comment != "slash comment" {
		t.Fatalf("slash comment = %q", f.Entries[2].Comment)
	}
	if f.Entries[2].Line != 6 {
		t.Fatalf("slash line = %d, want 6", f.Entries[2].Line)
	}
}

func TestParseEscapes(t *testing.T) {
	input := `"quoted" = "say \"hi\"";` + "\n" +
		`"multi" = "line one\nline two";` + "\n" +
		`"tabbed" = "a\tb";` + "\n" +
		`"slash" = "a\\b";` + "\n" +
		`"unknown" = "a\qb";` + "\n"

	f, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	want := map[string]string{
		"quoted":  `say "hi"`,
		"multi":   "line one\nline two",
		"tabbed":  "a\tb",
		"slash":   `a\b`,
		"unknown": `a\qb`,
	}
	for key, wantVal := range want {
		e, ok := f.Get(key)
		if !ok {
			t.Fatalf("key %q not found", key)
		}
		if e.Value != wantVal {
			t.Fatalf("value for %q = %q, want %q", key, e.Value, wantVal)
		}
	}

	if got := string(f.Marshal()); got != input {
		t.Fatalf("escape round trip mismatch:\ngot:  %q\nwant: %q", got, input)
	}
}

func TestParseDuplicateKeysRetained(t *testing.T) {
	input := "\"k\" = \"first\";\n\"other\" = \"x\";\n\"k\" = \"second\";\n"

	f, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(f.Entries) != 3 {
		t.Fatalf("entries len = %d, want 3 (duplicates must not be merged)", len(f.Entries))
	}

	idx := f.KeyIndex()
	if !reflect.DeepEqual(idx["k"], []int{0, 2}) {
		t.Fatalf("KeyIndex[k] = %v, want [0 2]", idx["k"])
	}

	e, ok := f.Get("k")
	if !ok || e.Value != "first" {
		t.Fatalf("Get(k) = %v/%v, want first occurrence", e, ok)
	}
}

func TestParseFormatErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{name: "unterminated value", input: "\"k\" = \"oops;\n", line: 1},
		{name: "unterminated key", input: "\n\"broken\n", line: 2},
		{name: "missing equals", input: "\"k\" \"v\";\n", line: 1},
		{name: "missing semicolon", input: "\"k\" = \"v\"\n", line: 1},
		{name: "bare identifier", input: "key = \"v\";\n", line: 1},
		{name: "unterminated comment", input: "/* no end\n\"k\" = \"v\";\n", line: 1},
	}

	for _, tc := range tests {
		_, err := Parse([]byte(tc.input))
		if err == nil {
			t.Fatalf("%s: Parse should fail", tc.name)
		}
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("%s: error type = %T, want *FormatError", tc.name, err)
		}
		if fe.Line != tc.line {
			t.Fatalf("%s: error line = %d, want %d", tc.name, fe.Line, tc.line)
		}
	}
}

func TestSetValueSerializesCanonically(t *testing.T) {
	input := "\"k\"   =   \"old\"  ;\n"
	f, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	// Untouched: original spacing survives.
	if got := string(f.Marshal()); got != input {
		t.Fatalf("unmodified output = %q, want %q", got, input)
	}

	f.Entries[0].SetValue("new")
	want := "\"k\" = \"new\";\n"
	if got := string(f.Marshal()); got != want {
		t.Fatalf("modified output = %q, want %q", got, want)
	}
}

func TestAppendedEntryWithComment(t *testing.T) {
	f := NewFile("en", "")
	f.Append(&Entry{Key: "new.key", Value: "New", Comment: "From code"})

	want := "/* From code */\n\"new.key\" = \"New\";\n"
	if got := string(f.Marshal()); got != want {
		t.Fatalf("Marshal = %q, want %q", got, want)
	}
}

func TestStats(t *testing.T) {
	f := NewFile("de", "")
	f.Append(&Entry{Key: "a", Value: "x"})
	f.Append(&Entry{Key: "b", Value: ""})
	f.Append(&Entry{Key: "c", Value: "y"})

	total, translated, pct := f.Stats()
	if total != 3 || translated != 2 {
		t.Fatalf("Stats = %d/%d, want 3/2", total, translated)
	}
	if pct < 66 || pct > 67 {
		t.Fatalf("pct = %f, want ~66.7", pct)
	}
}

func TestParseFileAndWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "en.lproj", "Localizable.strings")
	content := "/* c */\n\"k\" = \"v\";\n"

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	f, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	if f.Path != path {
		t.Fatalf("Path = %q, want %q", f.Path, path)
	}

	out := filepath.Join(dir, "de.lproj", "Localizable.strings")
	if err := f.WriteFile(out); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !bytes.Equal(data, []byte(content)) {
		t.Fatalf("written bytes = %q, want %q", data, content)
	}
}

func TestParseFileFormatErrorCarriesPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.strings")
	if err := os.WriteFile(path, []byte("\"k\" = \"v\"\n"), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	_, err := ParseFile(path)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *FormatError", err)
	}
	if fe.Path != path {
		t.Fatalf("error path = %q, want %q", fe.Path, path)
	}
	if !strings.Contains(fe.Error(), path) {
		t.Fatalf("Error() = %q, should contain path", fe.Error())
	}
}
