// Package translate fills untranslated catalog entries through an external
// translation provider.
//
// The filler queues every empty-value entry of a target-locale catalog whose
// key has a non-empty value in the source-locale catalog, submits the queue
// in provider-sized batches, and writes the returned translations back in
// order-preserving position. A failed batch is reported and left unfilled —
// batches are never partially applied, and retry policy belongs to the
// provider, not the filler.
package translate

import (
	"context"
	"errors"
	"fmt"

	"github.com/strsync/strsync/diag"
	"github.com/strsync/strsync/stringsfile"
)

// Provider is the external translation backend collaborator.
type Provider interface {
	// Name identifies the provider in diagnostics.
	Name() string
	// BatchLimit is the maximum number of texts per Translate call.
	// Zero or negative means unlimited.
	BatchLimit() int
	// Translate returns one translation per input text, in the same
	// order, or a ProviderError.
	Translate(ctx context.Context, sourceLang, targetLang string, texts []string) ([]string, error)
}

// ErrorKind classifies provider failures.
type ErrorKind int

const (
	// KindNetwork covers transport failures, timeouts, and malformed
	// responses.
	KindNetwork ErrorKind = iota
	// KindAuth is an authentication or authorization failure.
	KindAuth
	// KindQuota means the provider's rate or usage limit was exhausted.
	KindQuota
	// KindUnsupported means the provider cannot translate this locale pair.
	KindUnsupported
)

// ProviderError is a translation backend failure.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Result summarizes one Fill run over a single catalog.
type Result struct {
	// Filled counts entries actually written.
	Filled int
	// Skipped counts entries left empty because the source value was
	// empty or the key was missing from the source catalog.
	Skipped int
	// Failed counts entries left empty because their batch failed.
	Failed int
}

// pending is one queued translation: the target entry and its source text.
type pending struct {
	entry *stringsfile.Entry
	text  string
}

// Fill translates the empty entries of target using source as the text of
// record. Batches are submitted sequentially; a batch failure is reported
// through the sink and does not abort the remaining batches.
func Fill(ctx context.Context, target, source *stringsfile.File, p Provider, sink diag.Sink) Result {
	var result Result
	var queue []pending

	for _, e := range target.Entries {
		if e.Value != "" {
			continue
		}
		src, ok := source.Get(e.Key)
		if !ok {
			sink.Emit(diag.Event{
				Level:   diag.LevelVerbose,
				Message: fmt.Sprintf("Key '%s' has no entry in source translations.", e.Key),
				File:    target.Path,
				Line:    e.Line,
			})
			result.Skipped++
			continue
		}
		if src.Value == "" {
			sink.Emit(diag.Event{
				Level:   diag.LevelWarning,
				Message: fmt.Sprintf("Value for key '%s' in source translations is empty.", e.Key),
				File:    source.Path,
				Line:    src.Line,
			})
			result.Skipped++
			continue
		}
		queue = append(queue, pending{entry: e, text: src.Value})
	}

	for _, batch := range splitBatches(queue, p.BatchLimit()) {
		texts := make([]string, len(batch))
		for i, q := range batch {
			texts[i] = q.text
		}

		translations, err := p.Translate(ctx, source.Locale, target.Locale, texts)
		if err == nil && len(translations) != len(texts) {
			err = &ProviderError{
				Provider: p.Name(),
				Kind:     KindNetwork,
				Err:      fmt.Errorf("got %d translations for %d texts", len(translations), len(texts)),
			}
		}
		if err != nil {
			sink.Emit(diag.Event{
				Level:   failureLevel(err),
				Message: fmt.Sprintf("Translating %d value(s) to '%s' failed: %v", len(batch), target.Locale, err),
				File:    target.Path,
			})
			result.Failed += len(batch)
			continue
		}

		for i, q := range batch {
			q.entry.SetValue(translations[i])
		}
		result.Filled += len(batch)
	}

	return result
}

// splitBatches chunks the queue by the provider's per-request limit.
func splitBatches(queue []pending, limit int) [][]pending {
	if len(queue) == 0 {
		return nil
	}
	if limit <= 0 || limit >= len(queue) {
		return [][]pending{queue}
	}
	var batches [][]pending
	for start := 0; start < len(queue); start += limit {
		end := start + limit
		if end > len(queue) {
			end = len(queue)
		}
		batches = append(batches, queue[start:end])
	}
	return batches
}

// failureLevel maps a provider failure to a diagnostic severity. Auth and
// unsupported-pair failures will not resolve on their own, so they are
// errors; transient failures are warnings.
func failureLevel(err error) diag.Level {
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Kind == KindAuth || pe.Kind == KindUnsupported {
			return diag.LevelError
		}
	}
	return diag.LevelWarning
}

// SummaryMessage renders the locale-level success summary.
func SummaryMessage(values, files int) string {
	return fmt.Sprintf("Successfully translated %d values in %d files.", values, files)
}
