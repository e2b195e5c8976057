package layout

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/strsync/strsync/harvest"
)

const sampleLayout = `<?xml version="1.0"?>
<window title="Preferences">
  <tabs>
    <tab id="tab.general" title="General"/>
    <field id="field.name" text="Your name" placeholder="Jane Doe"/>
    <button text="OK"/>
  </tabs>
</window>
`

func TestParseHarvestsIdentifiedElements(t *testing.T) {
	entries, err := Parse([]byte(sampleLayout))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	want := []harvest.Entry{
		{Key: "tab.general.title", Value: "General", Comment: "tab title"},
		{Key: "field.name.text", Value: "Your name", Comment: "field text"},
		{Key: "field.name.placeholder", Value: "Jane Doe", Comment: "field placeholder"},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("entries = %+v, want %+v", entries, want)
	}
}

func TestParseInvalidXML(t *testing.T) {
	if _, err := Parse([]byte("<window><tab></window>")); err == nil {
		t.Fatal("expected error for mismatched tags")
	}
}

func TestDirsCollectsAndReportsErrors(t *testing.T) {
	dir := t.TempDir()
	good := `<menu><item id="menu.open" title="Open"/></menu>`
	if err := os.WriteFile(filepath.Join(dir, "menu.xml"), []byte(good), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.xml"), []byte("<a><b></a>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("<ignored/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, errs := Dirs([]string{dir})
	if len(entries) != 1 || entries[0].Key != "menu.open.title" {
		t.Fatalf("entries = %+v, want only menu.open.title", entries)
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want one parse failure", errs)
	}
}
