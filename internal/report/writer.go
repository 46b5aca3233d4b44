// Package report implements the logging sink and the printed build
// reports: ANSI styling when writing to a terminal, write errors
// intentionally ignored (output failures are non-recoverable and should
// not affect exit codes), and io.Writer injection points for tests.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Writer formats engine and driver output. It implements engine.Logger by
// structural typing: engine never imports this package.
//
// The engine's parallel path runs several targets' bodies concurrently,
// each driving this Writer from its own goroutine, so every method locks
// mu before touching openTags or writing to out/err.
type Writer struct {
	mu      sync.Mutex
	out     io.Writer
	err     io.Writer
	color   bool
	quiet   bool
	verbose bool

	openTags int // depth of open trace scopes
}

// New creates a Writer writing to stdout/stderr, with color enabled when
// stdout is a terminal.
func New() *Writer {
	return &Writer{
		out:   os.Stdout,
		err:   os.Stderr,
		color: isTerminal(),
	}
}

// NewWithWriters creates a Writer with injected io.Writers, for tests.
func NewWithWriters(out, err io.Writer, color bool) *Writer {
	return &Writer{out: out, err: err, color: color}
}

// SetQuiet enables or disables quiet mode (errors still print).
func (w *Writer) SetQuiet(quiet bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.quiet = quiet
}

// SetVerbose enables or disables verbose tracing.
func (w *Writer) SetVerbose(verbose bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.verbose = verbose
}

// ANSI color codes used for styled output.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// styled wraps text in an ANSI style if color is enabled. color is set
// only at construction, so styled is called both with and without w.mu
// held.
func (w *Writer) styled(style, text string) string {
	if w.color {
		return style + text + reset
	}
	return text
}

func isTerminal() bool {
	if fi, _ := os.Stdout.Stat(); fi != nil {
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// printlnLocked and errorlnLocked perform the actual write; callers must
// hold w.mu.
func (w *Writer) printlnLocked(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w.out, format+"\n", args...)
}

func (w *Writer) errorlnLocked(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w.err, format+"\n", args...)
}

// Print writes to stdout without a trailing newline.
func (w *Writer) Print(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintf(w.out, format, args...)
}

// Println writes a line to stdout.
func (w *Writer) Println(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.printlnLocked(format, args...)
}

// Errorln writes a line to stderr.
func (w *Writer) Errorln(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errorlnLocked(format, args...)
}

// Warning prints a warning to stderr.
func (w *Writer) Warning(format string, args ...interface{}) {
	msg := fmt.Sprintf("warning: "+format, args...)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errorlnLocked("%s", w.styled(yellow, msg))
}

// --- engine.Logger ---

// Log prints a plain message, skipped in quiet mode.
func (w *Writer) Log(message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.quiet {
		return
	}
	w.printlnLocked("%s", message)
}

// Logf formats and prints a message, skipped in quiet mode.
func (w *Writer) Logf(format string, args ...interface{}) {
	w.Log(fmt.Sprintf(format, args...))
}

// Tracef prints a debug-level trace line, only in verbose mode.
func (w *Writer) Tracef(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.verbose {
		return
	}
	if w.color {
		w.printlnLocked("%s[trace]%s %s", dim, reset, msg)
	} else {
		w.printlnLocked("[trace] %s", msg)
	}
}

// TraceError prints a target body's error to stderr.
func (w *Writer) TraceError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errorlnLocked("%s", w.styled(red, err.Error()))
}

// TraceLine prints a single trace line, unconditionally.
func (w *Writer) TraceLine(text string) {
	w.Println("%s", text)
}

// TraceHeader prints a section-style header.
func (w *Writer) TraceHeader(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.quiet {
		return
	}
	w.printlnLocked("")
	w.printlnLocked("%s", w.styled(bold, fmt.Sprintf("=== %s ===", text)))
}

// TraceStartTarget prints the start of a target, including its dependency
// list, and opens a trace scope (closed by TraceEndTarget or
// CloseAllOpenTags).
func (w *Writer) TraceStartTarget(name, description string, dependencies []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.openTags++
	if w.quiet {
		return
	}
	w.printlnLocked("")
	label := fmt.Sprintf("─── %s ───", name)
	w.printlnLocked("%s", w.styled(bold+cyan, label))
	if description != "" {
		w.printlnLocked("  %s", w.styled(dim, description))
	}
	if len(dependencies) > 0 {
		w.printlnLocked("  depends on: %s", strings.Join(dependencies, ", "))
	}
}

// TraceEndTarget prints the end of a target and closes its trace scope.
func (w *Writer) TraceEndTarget(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.openTags > 0 {
		w.openTags--
	}
	if w.quiet {
		return
	}
	if w.color {
		w.printlnLocked(green+"[%s]"+reset+" %s"+green+" done"+reset, name, "")
	} else {
		w.printlnLocked("[%s] done", name)
	}
}

// CloseAllOpenTags flushes any open trace scopes opened by
// TraceStartTarget without a matching TraceEndTarget, invoked at the
// start of error recording.
func (w *Writer) CloseAllOpenTags() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.openTags = 0
}
