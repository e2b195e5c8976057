// Package layout harvests translatable strings from XML UI layout files.
//
// Any element carrying an id attribute contributes one entry per present
// translatable attribute (text, title, placeholder), keyed "<id>.<attr>".
package layout

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/strsync/strsync/harvest"
)

// translatableAttrs lists the harvested attributes in emission order.
var translatableAttrs = []string{"text", "title", "placeholder"}

// Parse harvests one layout document. Entries come out in document order.
func Parse(data []byte) ([]harvest.Entry, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var entries []harvest.Entry
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing layout: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		id := attrValue(start, "id")
		if id == "" {
			continue
		}
		for _, name := range translatableAttrs {
			value, present := attr(start, name)
			if !present {
				continue
			}
			entries = append(entries, harvest.Entry{
				Key:     id + "." + name,
				Value:   value,
				Comment: fmt.Sprintf("%s %s", start.Name.Local, name),
			})
		}
	}
	return entries, nil
}

// File harvests one layout file on disk.
func File(path string) ([]harvest.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Dirs harvests every .xml file under dirs. A file that fails to parse is
// skipped; its error is returned for the caller to report.
func Dirs(dirs []string) ([]harvest.Entry, []error) {
	var entries []harvest.Entry
	var errs []error
	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() || !strings.EqualFold(filepath.Ext(path), ".xml") {
				return nil
			}
			harvested, err := File(path)
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			entries = append(entries, harvested...)
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("scanning %s: %w", dir, err))
		}
	}
	return entries, errs
}

func attr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func attrValue(el xml.StartElement, name string) string {
	v, _ := attr(el, name)
	return v
}
