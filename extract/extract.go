// Package extract harvests translatable strings from Go source files by
// scanning the AST for calls to configured wrapper functions, e.g.
// Localized("key", "value", "comment").
//
// In rewrite mode the matched calls are additionally replaced with compact
// lookup calls (L("key")) and the transformed source is returned alongside
// the harvested entries; writing it back is the caller's concern.
package extract

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/strsync/strsync/harvest"
)

// Keyword defines a function call to scan for and which arguments carry the
// key, the source-locale value, and the optional translator comment.
// Spec syntax follows the form "Func:key,value,comment" with 1-based
// argument positions; value and comment positions may be omitted:
//
//	"Localized:1,2,3" — Localized(key, value, comment)
//	"Tr:1,2"          — Tr(key, value)
//	"L"               — L(key)
type Keyword struct {
	// FuncName matches either a bare identifier or a "pkg.Func" selector.
	FuncName string
	// KeyArg is the 1-based argument index of the key (default 1).
	KeyArg int
	// ValueArg is the 1-based index of the source value (0 = none).
	ValueArg int
	// CommentArg is the 1-based index of the comment (0 = none).
	CommentArg int
}

// ParseKeyword parses a keyword spec.
func ParseKeyword(spec string) Keyword {
	kw := Keyword{KeyArg: 1}

	parts := strings.SplitN(spec, ":", 2)
	kw.FuncName = parts[0]
	if len(parts) < 2 {
		return kw
	}

	positions := strings.Split(parts[1], ",")
	for i, raw := range positions {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		switch i {
		case 0:
			kw.KeyArg = n
		case 1:
			kw.ValueArg = n
		case 2:
			kw.CommentArg = n
		}
	}
	return kw
}

// Options controls extraction.
type Options struct {
	// Keywords are keyword specs; at least one is required.
	Keywords []string
	// Rewrite replaces matched calls with LookupFunc(key) calls.
	Rewrite bool
	// LookupFunc is the replacement function name (default "L").
	LookupFunc string
}

// Result holds the outcome of extracting one source file.
type Result struct {
	// Entries are the harvested strings in call-site order.
	Entries []harvest.Entry
	// Rewritten is the transformed source; nil unless Rewrite was on and
	// at least one call was replaced.
	Rewritten []byte
}

// skipDirs contains directory names excluded from source scanning.
var skipDirs = map[string]bool{
	".git":         true,
	"vendor":       true,
	"node_modules": true,
	"testdata":     true,
}

// SourceFiles recursively finds .go files in dirs, skipping tests and
// common non-source directories.
func SourceFiles(dirs []string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // skip unreadable entries
			}
			if info.IsDir() {
				if skipDirs[info.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == ".go" && !strings.HasSuffix(path, "_test.go") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
	}
	return files, nil
}

// Dirs harvests every source file under dirs. A file that fails to parse is
// skipped with the returned entries unaffected; the error list is reported
// by the caller.
func Dirs(dirs []string, opts Options) ([]harvest.Entry, []error) {
	files, err := SourceFiles(dirs)
	if err != nil {
		return nil, []error{err}
	}

	var entries []harvest.Entry
	var errs []error
	for _, path := range files {
		result, err := File(path, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("extracting %s: %w", path, err))
			continue
		}
		entries = append(entries, result.Entries...)
	}
	return entries, errs
}

// File extracts from one file on disk.
func File(path string, opts Options) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Source(src, path, opts)
}

// Source extracts from in-memory Go source.
func Source(src []byte, filename string, opts Options) (*Result, error) {
	if len(opts.Keywords) == 0 {
		return nil, fmt.Errorf("no keywords specified")
	}

	kwMap := make(map[string][]Keyword)
	for _, spec := range opts.Keywords {
		kw := ParseKeyword(spec)
		kwMap[kw.FuncName] = append(kwMap[kw.FuncName], kw)
	}

	lookup := opts.LookupFunc
	if lookup == "" {
		lookup = "L"
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	rewrote := false

	transformed := astutil.Apply(file, nil, func(c *astutil.Cursor) bool {
		call, ok := c.Node().(*ast.CallExpr)
		if !ok {
			return true
		}

		kws, ok := kwMap[callName(call, kwMap)]
		if !ok {
			return true
		}

		for _, kw := range kws {
			entry, ok := harvestCall(call, kw)
			if !ok {
				continue
			}
			result.Entries = append(result.Entries, entry)

			if opts.Rewrite {
				c.Replace(&ast.CallExpr{
					Fun:  ast.NewIdent(lookup),
					Args: []ast.Expr{&ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(entry.Key)}},
				})
				rewrote = true
			}
			break
		}
		return true
	})

	if rewrote {
		var buf bytes.Buffer
		if err := format.Node(&buf, fset, transformed); err != nil {
			return nil, fmt.Errorf("formatting rewritten source: %w", err)
		}
		result.Rewritten = buf.Bytes()
	}
	return result, nil
}

// callName resolves the function name of a call, preferring a "pkg.Func"
// form when the keyword map knows it.
func callName(call *ast.CallExpr, kwMap map[string][]Keyword) string {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return fn.Name
	case *ast.SelectorExpr:
		if ident, ok := fn.X.(*ast.Ident); ok {
			qualified := ident.Name + "." + fn.Sel.Name
			if _, found := kwMap[qualified]; found {
				return qualified
			}
		}
		return fn.Sel.Name
	}
	return ""
}

// harvestCall extracts a harvest entry from a call matching kw. All
// referenced arguments must be string literals.
func harvestCall(call *ast.CallExpr, kw Keyword) (harvest.Entry, bool) {
	key, ok := stringArgAt(call, kw.KeyArg)
	if !ok || key == "" {
		return harvest.Entry{}, false
	}

	entry := harvest.Entry{Key: key}
	if kw.ValueArg > 0 {
		value, ok := stringArgAt(call, kw.ValueArg)
		if !ok {
			return harvest.Entry{}, false
		}
		entry.Value = value
	}
	if kw.CommentArg > 0 {
		// The comment argument is optional at the call site.
		if comment, ok := stringArgAt(call, kw.CommentArg); ok {
			entry.Comment = comment
		}
	}
	return entry, true
}

// stringArgAt extracts the string literal at a 1-based argument position.
func stringArgAt(call *ast.CallExpr, pos int) (string, bool) {
	idx := pos - 1
	if idx < 0 || idx >= len(call.Args) {
		return "", false
	}
	return stringFromExpr(call.Args[idx])
}

// stringFromExpr evaluates string literals and simple concatenation.
func stringFromExpr(expr ast.Expr) (string, bool) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind == token.STRING {
			s, err := strconv.Unquote(e.Value)
			if err != nil {
				return "", false
			}
			return s, true
		}
	case *ast.BinaryExpr:
		if e.Op == token.ADD {
			left, lok := stringFromExpr(e.X)
			right, rok := stringFromExpr(e.Y)
			if lok && rok {
				return left + right, true
			}
		}
	}
	return "", false
}
