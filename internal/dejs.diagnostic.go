package internal

import (
	"strconv"
	"strings"
)

// ExecContext is the per-render execution state the generated procedure
// updates as it runs. One render owns one ExecContext.
type ExecContext struct {
	Source   string
	Filename string
	Line     int // Line of the most recent statement boundary
}

// NewExecContext creates an execution context positioned at line 1
func NewExecContext(source, filename string) *ExecContext {
	return &ExecContext{
		Source:   source,
		Filename: filename,
		Line:     1,
	}
}

// Excerpt returns up to ExcerptContextLines lines on either side of line,
// each prefixed with its number. The failing line carries a marker.
func Excerpt(source string, line int) string {
	lines := strings.Split(source, "\n")
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	start := max(line-ExcerptContextLines, 1)
	end := min(line+ExcerptContextLines, len(lines))

	var sb strings.Builder
	for n := start; n <= end; n++ {
		if n > start {
			sb.WriteByte(CharNewline)
		}
		if n == line {
			sb.WriteString(ExcerptMarkerFailing)
		} else {
			sb.WriteString(ExcerptMarkerOther)
		}
		sb.WriteString(strconv.Itoa(n))
		sb.WriteString(ExcerptLineSep)
		sb.WriteString(strings.TrimSuffix(lines[n-1], "\r"))
	}
	return sb.String()
}

// EvalError is a failure raised while a compiled template runs, annotated
// with the source region it came from.
type EvalError struct {
	Filename string // Logical filename, empty for anonymous templates
	Line     int    // 1-indexed line of the failing tag
	Excerpt  string // Source lines around Line
	Kind     string // Host error name such as "ReferenceError"; empty for Go errors
	Message  string // Original failure message
	Cause    error  // Go error behind the failure, if any
}

// NewEvalError annotates a failure with the excerpt around line
func NewEvalError(exec *ExecContext, line int, kind, message string, cause error) *EvalError {
	return &EvalError{
		Filename: exec.Filename,
		Line:     line,
		Excerpt:  Excerpt(exec.Source, line),
		Kind:     kind,
		Message:  message,
		Cause:    cause,
	}
}

// Error renders "<filename>:<line>\n<excerpt>\n\n<message>".
func (e *EvalError) Error() string {
	name := e.Filename
	if name == "" {
		name = DefaultFilename
	}
	return name + ":" + strconv.Itoa(e.Line) + "\n" + e.Excerpt + "\n\n" + e.Message
}

// Unwrap returns the Go cause
func (e *EvalError) Unwrap() error {
	return e.Cause
}
