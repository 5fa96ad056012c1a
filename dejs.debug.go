package dejs

import (
	"fmt"
	"strings"

	"github.com/itsatony/go-dejs/internal"
	"go.uber.org/zap"
)

// ExplainResult describes how a template was compiled: its fragments in
// output order and the generated procedure.
type ExplainResult struct {
	Filename  string
	Fragments []FragmentInfo
	Code      string
}

// FragmentInfo is one parsed fragment
type FragmentInfo struct {
	Kind   string `json:"kind"`             // LITERAL, STATEMENT, EXPRESSION or BIND
	Line   int    `json:"line"`             // Line the tag starts on
	Text   string `json:"text"`             // Literal text or embedded code
	Escape bool   `json:"escape,omitempty"` // Escaped output expression
	Depth  int    `json:"depth,omitempty"`  // Nesting inside binding blocks
}

// Explain returns the compile-time structure of the template
func (t *Template) Explain() *ExplainResult {
	result := &ExplainResult{
		Filename: t.filename,
		Code:     t.program.Code,
	}
	collectFragments(t.fragments, 0, &result.Fragments)
	return result
}

func collectFragments(fragments []internal.Fragment, depth int, out *[]FragmentInfo) {
	for _, f := range fragments {
		info := FragmentInfo{
			Kind:   f.Kind.String(),
			Line:   f.Line,
			Text:   f.Text,
			Escape: f.Escape,
			Depth:  depth,
		}
		if f.Kind == internal.FragmentBind && f.Bind != nil {
			info.Text = strings.Join(f.Bind.Inputs, ", ") + " -> " + strings.Join(f.Bind.Names, ", ")
			*out = append(*out, info)
			collectFragments(f.Bind.Body, depth+1, out)
			continue
		}
		*out = append(*out, info)
	}
}

// String returns a human-readable summary of the compiled template.
func (r *ExplainResult) String() string {
	var sb strings.Builder

	sb.WriteString("=== Template Explanation ===\n")
	sb.WriteString(fmt.Sprintf("Filename: %s\n", displayName(r.Filename)))

	sb.WriteString(fmt.Sprintf("\nFragments (%d):\n", len(r.Fragments)))
	for _, f := range r.Fragments {
		indent := strings.Repeat("  ", f.Depth+1)
		marker := ""
		if f.Escape {
			marker = " (escaped)"
		}
		sb.WriteString(fmt.Sprintf("%s- %s [line %d]%s: %q\n", indent, f.Kind, f.Line, marker, f.Text))
	}

	sb.WriteString("\nGenerated code:\n")
	sb.WriteString(r.Code)
	if !strings.HasSuffix(r.Code, "\n") {
		sb.WriteByte('\n')
	}
	return sb.String()
}

// writeDebug sends generated code to the debug writer and the logger
func (e *Engine) writeDebug(filename, code string) {
	e.logger.Debug(LogMsgGeneratedCode,
		zap.String(LogFieldFilename, filename),
		zap.String(LogFieldCode, code))
	if e.config.debugWriter == nil {
		return
	}
	fmt.Fprintf(e.config.debugWriter, "// %s\n%s\n", displayName(filename), code)
}
