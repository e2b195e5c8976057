package translate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/strsync/strsync/diag"
	"github.com/strsync/strsync/stringsfile"
)

// fakeProvider records batches and answers from a canned dictionary.
type fakeProvider struct {
	batchLimit int
	batches    [][]string
	dict       map[string]string
	failBatch  int // 1-based batch index to fail, 0 = never
	failErr    error
}

func (f *fakeProvider) Name() string    { return "fake" }
func (f *fakeProvider) BatchLimit() int { return f.batchLimit }

func (f *fakeProvider) Translate(_ context.Context, _, _ string, texts []string) ([]string, error) {
	f.batches = append(f.batches, texts)
	if f.failBatch == len(f.batches) {
		if f.failErr != nil {
			return nil, f.failErr
		}
		return nil, &ProviderError{Provider: "fake", Kind: KindNetwork, Err: errors.New("boom")}
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		if v, ok := f.dict[t]; ok {
			out[i] = v
		} else {
			out[i] = "<" + t + ">"
		}
	}
	return out, nil
}

func targetCatalog() (*stringsfile.File, *stringsfile.File) {
	source := stringsfile.NewFile("en", "en.lproj/Localizable.strings")
	source.Append(&stringsfile.Entry{Key: "greeting", Value: "Hello", Line: 2})
	source.Append(&stringsfile.Entry{Key: "farewell", Value: "Bye", Line: 4})
	source.Append(&stringsfile.Entry{Key: "Existing Empty Value Key", Value: "", Line: 15})

	target := stringsfile.NewFile("de", "de.lproj/Localizable.strings")
	target.Append(&stringsfile.Entry{Key: "greeting", Value: "", Line: 2})
	target.Append(&stringsfile.Entry{Key: "done", Value: "Fertig", Line: 3})
	target.Append(&stringsfile.Entry{Key: "farewell", Value: "", Line: 4})
	target.Append(&stringsfile.Entry{Key: "Existing Empty Value Key", Value: "", Line: 15})
	return target, source
}

func TestFillTranslatesEmptyEntriesInOrder(t *testing.T) {
	target, source := targetCatalog()
	p := &fakeProvider{dict: map[string]string{"Hello": "Hallo", "Bye": "Tschüss"}}
	var sink diag.Collector

	result := Fill(context.Background(), target, source, p, &sink)

	if result.Filled != 2 {
		t.Fatalf("Filled = %d, want 2", result.Filled)
	}
	if result.Skipped != 1 {
		t.Fatalf("Skipped = %d, want 1 (empty source value)", result.Skipped)
	}
	if len(p.batches) != 1 || !reflect.DeepEqual(p.batches[0], []string{"Hello", "Bye"}) {
		t.Fatalf("batches = %v, want one batch [Hello Bye]", p.batches)
	}

	if target.Entries[0].Value != "Hallo" {
		t.Fatalf("greeting = %q, want Hallo", target.Entries[0].Value)
	}
	if target.Entries[1].Value != "Fertig" {
		t.Fatalf("done = %q, existing translation must be untouched", target.Entries[1].Value)
	}
	if target.Entries[2].Value != "Tschüss" {
		t.Fatalf("farewell = %q, want Tschüss", target.Entries[2].Value)
	}
	if target.Entries[3].Value != "" {
		t.Fatalf("empty-source entry = %q, want still empty", target.Entries[3].Value)
	}
}

func TestFillEmptySourceValueWarning(t *testing.T) {
	target, source := targetCatalog()
	p := &fakeProvider{}
	var sink diag.Collector

	Fill(context.Background(), target, source, p, &sink)

	var warning *diag.Event
	for _, e := range sink.Events() {
		if e.Level == diag.LevelWarning {
			e := e
			warning = &e
			break
		}
	}
	if warning == nil {
		t.Fatal("expected a warning event for empty source value")
	}
	want := "Value for key 'Existing Empty Value Key' in source translations is empty."
	if warning.Message != want {
		t.Fatalf("warning = %q, want %q", warning.Message, want)
	}
	if warning.File != source.Path || warning.Line != 15 {
		t.Fatalf("warning at %s:%d, want %s:15 (source catalog position)",
			warning.File, warning.Line, source.Path)
	}
}

func TestFillMissingSourceKeySkipped(t *testing.T) {
	source := stringsfile.NewFile("en", "en.strings")
	target := stringsfile.NewFile("de", "de.strings")
	target.Append(&stringsfile.Entry{Key: "orphan", Value: "", Line: 1})

	p := &fakeProvider{}
	var sink diag.Collector
	result := Fill(context.Background(), target, source, p, &sink)

	if result.Skipped != 1 || result.Filled != 0 {
		t.Fatalf("result = %+v, want 1 skipped", result)
	}
	if len(p.batches) != 0 {
		t.Fatalf("provider called with %v, want no calls", p.batches)
	}
}

func TestFillBatchFailureIsIsolated(t *testing.T) {
	source := stringsfile.NewFile("en", "en.strings")
	target := stringsfile.NewFile("fr", "fr.strings")
	for i := 0; i < 4; i++ {
		key := fmt.Sprintf("k%d", i)
		source.Append(&stringsfile.Entry{Key: key, Value: fmt.Sprintf("v%d", i), Line: i + 1})
		target.Append(&stringsfile.Entry{Key: key, Value: "", Line: i + 1})
	}

	p := &fakeProvider{batchLimit: 2, failBatch: 1}
	var sink diag.Collector
	result := Fill(context.Background(), target, source, p, &sink)

	if len(p.batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(p.batches))
	}
	if result.Failed != 2 || result.Filled != 2 {
		t.Fatalf("result = %+v, want 2 failed and 2 filled", result)
	}

	// First batch left untouched, second applied.
	if target.Entries[0].Value != "" || target.Entries[1].Value != "" {
		t.Fatalf("failed batch entries = %q/%q, want empty",
			target.Entries[0].Value, target.Entries[1].Value)
	}
	if target.Entries[2].Value == "" || target.Entries[3].Value == "" {
		t.Fatal("second batch should still be applied after first batch failure")
	}

	if sink.Count(diag.LevelWarning) != 1 {
		t.Fatalf("warnings = %d, want 1 batch failure report", sink.Count(diag.LevelWarning))
	}
}

func TestFillAuthFailureReportedAsError(t *testing.T) {
	source := stringsfile.NewFile("en", "en.strings")
	source.Append(&stringsfile.Entry{Key: "k", Value: "v", Line: 1})
	target := stringsfile.NewFile("de", "de.strings")
	target.Append(&stringsfile.Entry{Key: "k", Value: "", Line: 1})

	p := &fakeProvider{
		failBatch: 1,
		failErr:   &ProviderError{Provider: "fake", Kind: KindAuth, Err: errors.New("invalid key")},
	}
	var sink diag.Collector
	result := Fill(context.Background(), target, source, p, &sink)

	if result.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", result.Failed)
	}
	if sink.Count(diag.LevelError) != 1 {
		t.Fatalf("errors = %d, want auth failure as error-level", sink.Count(diag.LevelError))
	}
}

func TestFillLengthMismatchFailsBatch(t *testing.T) {
	source := stringsfile.NewFile("en", "en.strings")
	source.Append(&stringsfile.Entry{Key: "k", Value: "v", Line: 1})
	target := stringsfile.NewFile("de", "de.strings")
	target.Append(&stringsfile.Entry{Key: "k", Value: "", Line: 1})

	p := &shortProvider{}
	var sink diag.Collector
	result := Fill(context.Background(), target, source, p, &sink)

	if result.Failed != 1 || result.Filled != 0 {
		t.Fatalf("result = %+v, want failed batch on length mismatch", result)
	}
	if target.Entries[0].Value != "" {
		t.Fatalf("value = %q, want untouched", target.Entries[0].Value)
	}
}

// shortProvider returns fewer translations than requested.
type shortProvider struct{}

func (s *shortProvider) Name() string    { return "short" }
func (s *shortProvider) BatchLimit() int { return 0 }
func (s *shortProvider) Translate(context.Context, string, string, []string) ([]string, error) {
	return nil, nil
}

func TestSplitBatches(t *testing.T) {
	queue := make([]pending, 5)
	if got := len(splitBatches(queue, 2)); got != 3 {
		t.Fatalf("batches = %d, want 3", got)
	}
	if got := len(splitBatches(queue, 0)); got != 1 {
		t.Fatalf("unlimited batches = %d, want 1", got)
	}
	if got := splitBatches(nil, 2); got != nil {
		t.Fatalf("empty queue batches = %v, want nil", got)
	}
}

func TestSummaryMessage(t *testing.T) {
	want := "Successfully translated 7 values in 3 files."
	if got := SummaryMessage(7, 3); got != want {
		t.Fatalf("SummaryMessage = %q, want %q", got, want)
	}
}

func TestParseJSONArray(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{in: `["a","b"]`, want: []string{"a", "b"}},
		{in: "```json\n[\"x\"]\n```", want: []string{"x"}},
		{in: "```\n[\"y\"]\n```", want: []string{"y"}},
	}
	for _, tc := range cases {
		got, err := parseJSONArray(tc.in)
		if err != nil {
			t.Fatalf("parseJSONArray(%q) error: %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("parseJSONArray(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := parseJSONArray("not json"); err == nil {
		t.Fatal("parseJSONArray should fail on invalid input")
	}
}

func TestExtractResponseText(t *testing.T) {
	openAI := `{"choices":[{"message":{"content":"[\"ok\"]"}}]}`
	if got, err := extractResponseText([]byte(openAI)); err != nil || got != `["ok"]` {
		t.Fatalf("openai extract = %q/%v", got, err)
	}

	gemini := `{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`
	if got, err := extractResponseText([]byte(gemini)); err != nil || got != "hello" {
		t.Fatalf("gemini extract = %q/%v", got, err)
	}

	apiErr := `{"error":{"message":"quota exhausted"}}`
	if _, err := extractResponseText([]byte(apiErr)); err == nil || !strings.Contains(err.Error(), "quota exhausted") {
		t.Fatalf("api error extract = %v, want quota message", err)
	}
}

func TestParseRetryDelay(t *testing.T) {
	body := `{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"30s"}]}}`
	if got := parseRetryDelay([]byte(body)); got.Seconds() != 35 {
		t.Fatalf("retry delay = %v, want 35s (30s + buffer)", got)
	}
	if got := parseRetryDelay([]byte("{}")); got.Seconds() != 65 {
		t.Fatalf("default retry delay = %v, want 65s", got)
	}
}
