// Package diag defines the diagnostic sink through which every operation
// reports user-visible outcomes. The sink is always passed explicitly —
// there is no package-level default — so tests swap in a Collector without
// process-wide coupling.
package diag

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Level classifies an event's severity.
type Level int

const (
	// LevelVerbose is debug detail, hidden unless verbose output is on.
	LevelVerbose Level = iota
	// LevelInfo is neutral progress information.
	LevelInfo
	// LevelSuccess reports a completed operation.
	LevelSuccess
	// LevelWarning reports a non-fatal problem.
	LevelWarning
	// LevelError reports a failure.
	LevelError
)

// String returns the level's console tag.
func (l Level) String() string {
	switch l {
	case LevelVerbose:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelSuccess:
		return "OK"
	case LevelWarning:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "INFO"
}

// Event is a single diagnostic.
type Event struct {
	Level   Level
	Message string
	// File is the catalog file the event refers to, if any.
	File string
	// Line is the 1-based source line, 0 when not applicable.
	Line int
}

// Sink receives diagnostic events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Emit(Event)
}

// ---------------------------------------------------------------------------
// Console sink
// ---------------------------------------------------------------------------

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
	colorGray   = "\033[0;90m"
)

// Console writes events to a terminal in "[TAG] message" form, one line per
// event. Colors are enabled only when the writer is a TTY.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	color   bool
	verbose bool
}

// NewConsole creates a console sink writing to f. Color output is
// auto-detected from the file descriptor.
func NewConsole(f *os.File, verbose bool) *Console {
	return &Console{
		out:     f,
		color:   isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()),
		verbose: verbose,
	}
}

// Emit writes one event as a single line. Concurrent calls are serialized so
// interleaved output from parallel workers stays line-atomic.
func (c *Console) Emit(e Event) {
	if e.Level == LevelVerbose && !c.verbose {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tag := "[" + e.Level.String() + "]"
	if c.color {
		tag = c.levelColor(e.Level) + tag + colorReset
	}

	if e.File != "" && e.Line > 0 {
		fmt.Fprintf(c.out, "%s %s:%d: %s\n", tag, e.File, e.Line, e.Message)
	} else if e.File != "" {
		fmt.Fprintf(c.out, "%s %s: %s\n", tag, e.File, e.Message)
	} else {
		fmt.Fprintf(c.out, "%s %s\n", tag, e.Message)
	}
}

func (c *Console) levelColor(l Level) string {
	switch l {
	case LevelVerbose:
		return colorGray
	case LevelSuccess:
		return colorGreen
	case LevelWarning:
		return colorYellow
	case LevelError:
		return colorRed
	}
	return colorBlue
}

// ---------------------------------------------------------------------------
// Collector sink (test double and aggregation)
// ---------------------------------------------------------------------------

// Collector records every emitted event in order. Safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends the event.
func (c *Collector) Emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of the recorded events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Count returns how many events at the given level were recorded.
func (c *Collector) Count(level Level) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Level == level {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Buffer sink (per-unit ordering under a worker pool)
// ---------------------------------------------------------------------------

// Buffer accumulates events from one unit of work and forwards them to a
// shared sink in one atomic batch, preserving submission order within the
// unit. Ordering across units is not guaranteed.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends the event to the buffer.
func (b *Buffer) Emit(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

// FlushTo forwards the buffered events to dst in order and clears the buffer.
func (b *Buffer) FlushTo(dst Sink) {
	b.mu.Lock()
	events := b.events
	b.events = nil
	b.mu.Unlock()

	for _, e := range events {
		dst.Emit(e)
	}
}
