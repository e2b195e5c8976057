// Package repo locates and processes the catalog files of a project.
//
// Catalogs live under the resources directory as
// <locale>.lproj/<name>.strings; a flat <locale>/<name>.strings layout is
// detected as well. Each (locale, name) pair is an independent unit of
// work, which Process runs on a bounded worker pool with per-unit buffered
// diagnostics so concurrent output never interleaves.
package repo

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/strsync/strsync/diag"
	"github.com/strsync/strsync/stringsfile"
)

// CatalogRef identifies one catalog file on disk.
type CatalogRef struct {
	// Locale is the directory-derived locale code, e.g. "de" or "pt-BR".
	Locale string
	// Name is the file base name without extension, e.g. "Localizable".
	Name string
	// Path is the file path relative to the working directory.
	Path string
}

// Find enumerates the catalog files under resourcesDir, sorted by name
// then locale.
func Find(resourcesDir string) ([]CatalogRef, error) {
	dirEntries, err := os.ReadDir(resourcesDir)
	if err != nil {
		return nil, fmt.Errorf("reading resources dir: %w", err)
	}

	var refs []CatalogRef
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		locale, ok := localeFromDir(de.Name())
		if !ok {
			continue
		}

		dir := filepath.Join(resourcesDir, de.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), ".strings") {
				continue
			}
			refs = append(refs, CatalogRef{
				Locale: locale,
				Name:   strings.TrimSuffix(f.Name(), filepath.Ext(f.Name())),
				Path:   filepath.Join(dir, f.Name()),
			})
		}
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Name != refs[j].Name {
			return refs[i].Name < refs[j].Name
		}
		return refs[i].Locale < refs[j].Locale
	})
	return refs, nil
}

// localeFromDir maps a directory name to a locale code. "<locale>.lproj"
// and bare locale-code directories both qualify.
func localeFromDir(name string) (string, bool) {
	if strings.HasSuffix(name, ".lproj") {
		locale := strings.TrimSuffix(name, ".lproj")
		if locale != "" {
			return locale, true
		}
		return "", false
	}
	if isLocaleCode(name) {
		return name, true
	}
	return "", false
}

// isLocaleCode reports whether name looks like "de", "deu", "pt-BR" or
// "pt_BR".
func isLocaleCode(name string) bool {
	switch len(name) {
	case 2, 3:
		return isAlpha(name)
	case 5, 6:
		for _, sep := range []string{"-", "_"} {
			parts := strings.SplitN(name, sep, 2)
			if len(parts) == 2 && isAlpha(parts[0]) && isAlpha(parts[1]) {
				return true
			}
		}
	}
	return false
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// Unit is one loaded catalog plus the bytes it was loaded from, kept for
// the conditional write on save.
type Unit struct {
	Ref      CatalogRef
	File     *stringsfile.File
	original []byte
}

// Load parses the catalog behind ref.
func Load(ref CatalogRef) (*Unit, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ref.Path, err)
	}
	f, err := stringsfile.Parse(data)
	if err != nil {
		var fe *stringsfile.FormatError
		if errors.As(err, &fe) {
			fe.Path = ref.Path
		}
		return nil, err
	}
	f.Locale = ref.Locale
	f.Path = ref.Path
	return &Unit{Ref: ref, File: f, original: data}, nil
}

// Save writes the unit back only when its serialized form differs from the
// bytes it was loaded from. It reports whether a write happened.
func (u *Unit) Save() (bool, error) {
	data := u.File.Marshal()
	if bytes.Equal(data, u.original) {
		return false, nil
	}
	if err := os.WriteFile(u.Ref.Path, data, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", u.Ref.Path, err)
	}
	u.original = data
	return true, nil
}

// Process runs fn for every ref on a worker pool of the given size. Each
// unit gets its own buffered sink, flushed to the shared sink when the unit
// finishes, so diagnostics from one catalog stay contiguous. A unit's error
// is reported through the sink and counted; processing continues.
//
// The returned count is the number of failed units.
func Process(refs []CatalogRef, workers int, sink diag.Sink, fn func(ref CatalogRef, sink diag.Sink) error) int {
	if workers < 1 {
		workers = 1
	}

	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, workers)
		mu       sync.Mutex
		failures int
	)

	for _, ref := range refs {
		wg.Add(1)
		sem <- struct{}{}
		go func(ref CatalogRef) {
			defer wg.Done()
			defer func() { <-sem }()

			var buf diag.Buffer
			err := fn(ref, &buf)
			if err != nil {
				buf.Emit(diag.Event{
					Level:   diag.LevelError,
					Message: err.Error(),
					File:    ref.Path,
				})
			}

			mu.Lock()
			buf.FlushTo(sink)
			if err != nil {
				failures++
			}
			mu.Unlock()
		}(ref)
	}

	wg.Wait()
	return failures
}
