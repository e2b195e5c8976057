// strsync — translation catalog synchronizer for .strings resources.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/strsync/strsync/config"
	"github.com/strsync/strsync/diag"
	"github.com/strsync/strsync/extract"
	"github.com/strsync/strsync/harvest"
	"github.com/strsync/strsync/i18n"
	"github.com/strsync/strsync/langmeta"
	"github.com/strsync/strsync/layout"
	"github.com/strsync/strsync/lint"
	"github.com/strsync/strsync/merge"
	"github.com/strsync/strsync/repo"
	"github.com/strsync/strsync/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors for the status table; diagnostic output goes through diag.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	verbose bool
)

func newSink() *diag.Console {
	return diag.NewConsole(os.Stderr, verbose)
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "strsync",
		Short: "Translation catalog synchronizer for .strings resources",
		Long: `strsync — translation catalog synchronizer for .strings resources.

Keeps <locale>.lproj/*.strings catalogs in sync with the strings used in
source code and UI layouts, checks them for common mistakes, and fills
missing translations through an AI provider.

Commands:
  status      Show translation statistics per locale
  lint        Check catalogs for duplicate keys and empty values
  update      Harvest strings from sources and add missing keys
  translate   Fill missing translations through the configured provider`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug output")

	root.AddCommand(
		newStatusCmd(),
		newLintCmd(),
		newUpdateCmd(),
		newTranslateCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" %v\n", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Shared project loading
// ---------------------------------------------------------------------------

// project is the loaded configuration plus the catalogs it selects.
type project struct {
	cfg  *config.Config
	refs []repo.CatalogRef
}

func loadProject() (*project, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}

	resources := filepath.Join(rootDir, cfg.ResourcesDir)
	refs, err := repo.Find(resources)
	if err != nil {
		return nil, err
	}
	refs = selectLocales(refs, cfg.SourceLang, cfg.Languages)
	return &project{cfg: cfg, refs: refs}, nil
}

// selectLocales keeps the source locale plus the configured target locales.
// An empty language list keeps every locale found on disk.
func selectLocales(refs []repo.CatalogRef, sourceLang string, languages []string) []repo.CatalogRef {
	if len(languages) == 0 {
		return refs
	}
	keep := map[string]bool{sourceLang: true}
	for _, lang := range languages {
		keep[strings.TrimSpace(lang)] = true
	}
	var out []repo.CatalogRef
	for _, ref := range refs {
		if keep[ref.Locale] {
			out = append(out, ref)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Print the version"),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("strsync version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// status (read-only: per-locale translation statistics)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: i18n.T("Show translation status for every locale"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	proj, err := loadProject()
	if err != nil {
		return err
	}
	if len(proj.refs) == 0 {
		fmt.Fprintln(os.Stderr, i18n.T("No catalog files found."))
		return nil
	}

	fmt.Fprintf(os.Stderr, "\n%sTranslation Status%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	for _, name := range catalogNames(proj.refs) {
		fmt.Fprintf(os.Stderr, "\n  %s.strings\n", name)

		for _, ref := range proj.refs {
			if ref.Name != name {
				continue
			}
			unit, err := repo.Load(ref)
			if err != nil {
				fmt.Fprintf(os.Stderr, "    %-8s %serror reading%s\n", ref.Locale, colorRed, colorReset)
				continue
			}

			total, translated, pct := unit.File.Stats()
			flag := langmeta.Resolve(ref.Locale).Flag
			fmt.Fprintf(os.Stderr, "    %-8s %s %s  %d/%d\n",
				ref.Locale, flag, progressBar(int(pct), 20), translated, total)
		}
	}
	fmt.Fprintln(os.Stderr)
	return nil
}

// catalogNames returns the distinct catalog base names in sorted order.
func catalogNames(refs []repo.CatalogRef) []string {
	seen := map[string]bool{}
	var names []string
	for _, ref := range refs {
		if !seen[ref.Name] {
			seen[ref.Name] = true
			names = append(names, ref.Name)
		}
	}
	sort.Strings(names)
	return names
}

// progressBar renders a colored bar like "████░░░░  42%". The percent value
// is clamped to [0, 100].
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := percent * width / 100
	color := colorGreen
	switch {
	case percent < 50:
		color = colorRed
	case percent < 100:
		color = colorYellow
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s%s%s %3d%%", color, bar, colorReset, percent)
}

// ---------------------------------------------------------------------------
// lint
// ---------------------------------------------------------------------------

func newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: i18n.T("Check catalogs for duplicate keys and empty values"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint()
		},
	}
}

func runLint() error {
	proj, err := loadProject()
	if err != nil {
		return err
	}
	sink := newSink()
	opts := proj.cfg.LintOptions()

	var (
		mu      sync.Mutex
		summary lint.Summary
	)
	failures := repo.Process(proj.refs, proj.cfg.Workers, sink, func(ref repo.CatalogRef, sink diag.Sink) error {
		unit, err := repo.Load(ref)
		if err != nil {
			return err
		}
		issues := lint.Run(unit.File, opts, sink)

		mu.Lock()
		summary.Add(issues)
		mu.Unlock()
		return nil
	})

	level := diag.LevelSuccess
	if summary.Issues > 0 {
		level = diag.LevelWarning
	}
	sink.Emit(diag.Event{Level: level, Message: summary.Message(opts)})

	if failures > 0 {
		return fmt.Errorf("%d file(s) could not be checked", failures)
	}
	return nil
}

// ---------------------------------------------------------------------------
// update (harvest + merge)
// ---------------------------------------------------------------------------

func newUpdateCmd() *cobra.Command {
	var rewrite bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: i18n.T("Harvest strings from sources and add missing keys"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(rewrite)
		},
	}
	cmd.Flags().BoolVar(&rewrite, "rewrite", false, "Replace harvested calls with lookup calls in source files")
	return cmd
}

func runUpdate(rewrite bool) error {
	proj, err := loadProject()
	if err != nil {
		return err
	}
	sink := newSink()

	harvested, err := harvestAll(proj.cfg, rewrite, sink)
	if err != nil {
		return err
	}
	if len(harvested) == 0 {
		sink.Emit(diag.Event{Level: diag.LevelInfo, Message: "No translatable strings found in sources."})
		return nil
	}
	sink.Emit(diag.Event{
		Level:   diag.LevelInfo,
		Message: fmt.Sprintf("Harvested %d unique key(s) from sources.", len(harvested)),
	})

	failures := repo.Process(proj.refs, proj.cfg.Workers, sink, func(ref repo.CatalogRef, sink diag.Sink) error {
		unit, err := repo.Load(ref)
		if err != nil {
			return err
		}

		report := merge.Merge(unit.File, harvested, ref.Locale == proj.cfg.SourceLang)
		if !report.Changed() {
			return nil
		}
		if _, err := unit.Save(); err != nil {
			return err
		}

		sink.Emit(diag.Event{
			Level:   diag.LevelSuccess,
			Message: fmt.Sprintf("Adding missing keys [%s] to '%s'.", strings.Join(report.AddedKeys, ", "), ref.Path),
			File:    ref.Path,
		})
		return nil
	})

	if failures > 0 {
		return fmt.Errorf("%d catalog(s) could not be updated", failures)
	}
	return nil
}

// harvestAll collects entries from code and layout sources, first
// occurrence winning across extractors.
func harvestAll(cfg *config.Config, rewrite bool, sink diag.Sink) ([]harvest.Entry, error) {
	opts := extract.Options{
		Keywords:   cfg.Keywords,
		Rewrite:    rewrite,
		LookupFunc: cfg.LookupFunc,
	}

	var entries []harvest.Entry

	if rewrite {
		// Rewrite mode walks file by file so transformed sources can be
		// written back in place.
		files, err := extract.SourceFiles(joinDirs(rootDir, cfg.SourceDirs))
		if err != nil {
			return nil, err
		}
		for _, path := range files {
			result, err := extract.File(path, opts)
			if err != nil {
				sink.Emit(diag.Event{Level: diag.LevelWarning, Message: err.Error(), File: path})
				continue
			}
			entries = append(entries, result.Entries...)
			if result.Rewritten == nil {
				continue
			}
			if err := os.WriteFile(path, result.Rewritten, 0o644); err != nil {
				return nil, fmt.Errorf("rewriting %s: %w", path, err)
			}
			sink.Emit(diag.Event{Level: diag.LevelInfo, Message: "Rewrote harvested calls.", File: path})
		}
	} else {
		code, errs := extract.Dirs(joinDirs(rootDir, cfg.SourceDirs), opts)
		reportHarvestErrors(sink, errs)
		entries = append(entries, code...)
	}

	if len(cfg.LayoutDirs) > 0 {
		layouts, errs := layout.Dirs(joinDirs(rootDir, cfg.LayoutDirs))
		reportHarvestErrors(sink, errs)
		entries = append(entries, layouts...)
	}

	return harvest.Dedupe(entries), nil
}

func reportHarvestErrors(sink diag.Sink, errs []error) {
	for _, err := range errs {
		sink.Emit(diag.Event{Level: diag.LevelWarning, Message: err.Error()})
	}
}

func joinDirs(root string, dirs []string) []string {
	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = filepath.Join(root, d)
	}
	return out
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "translate",
		Short: i18n.T("Fill missing translations through the configured provider"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate()
		},
	}
}

func runTranslate() error {
	proj, err := loadProject()
	if err != nil {
		return err
	}
	sink := newSink()

	sources := map[string]repo.CatalogRef{}
	var targets []repo.CatalogRef
	for _, ref := range proj.refs {
		if ref.Locale == proj.cfg.SourceLang {
			sources[ref.Name] = ref
		} else {
			targets = append(targets, ref)
		}
	}
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, i18n.T("Nothing to translate."))
		return nil
	}

	provider := translate.NewAIProvider(proj.cfg.AIConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Per-locale totals for the final summaries.
	type localeTotal struct{ values, files int }
	var (
		mu     sync.Mutex
		totals = map[string]*localeTotal{}
	)

	failures := repo.Process(targets, proj.cfg.Workers, sink, func(ref repo.CatalogRef, sink diag.Sink) error {
		srcRef, ok := sources[ref.Name]
		if !ok {
			sink.Emit(diag.Event{
				Level:   diag.LevelWarning,
				Message: fmt.Sprintf("No %s source catalog for '%s.strings'.", proj.cfg.SourceLang, ref.Name),
				File:    ref.Path,
			})
			return nil
		}

		target, err := repo.Load(ref)
		if err != nil {
			return err
		}
		source, err := repo.Load(srcRef)
		if err != nil {
			return err
		}

		result := translate.Fill(ctx, target.File, source.File, provider, sink)
		if result.Filled > 0 {
			if _, err := target.Save(); err != nil {
				return err
			}
		}

		mu.Lock()
		t := totals[ref.Locale]
		if t == nil {
			t = &localeTotal{}
			totals[ref.Locale] = t
		}
		if result.Filled > 0 {
			t.values += result.Filled
			t.files++
		}
		mu.Unlock()
		return nil
	})

	locales := make([]string, 0, len(totals))
	for locale := range totals {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	for _, locale := range locales {
		t := totals[locale]
		if t.values == 0 {
			continue
		}
		sink.Emit(diag.Event{
			Level:   diag.LevelSuccess,
			Message: fmt.Sprintf("%s %s: %s", langmeta.Resolve(locale).Flag, langmeta.Name(locale), translate.SummaryMessage(t.values, t.files)),
		})
	}

	if failures > 0 {
		return fmt.Errorf("%d catalog(s) could not be translated", failures)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
