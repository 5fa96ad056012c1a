package internal

import (
	"fmt"
	"strings"
)

// FragmentKind identifies the kind of a parsed fragment
type FragmentKind int

// Fragment kind constants
const (
	FragmentLiteral FragmentKind = iota
	FragmentStatement
	FragmentExpression
	FragmentBind
)

// Fragment kind names for debugging
const (
	FragmentNameLiteral    = "LITERAL"
	FragmentNameStatement  = "STATEMENT"
	FragmentNameExpression = "EXPRESSION"
	FragmentNameBind       = "BIND"
)

// String returns the string representation of the fragment kind
func (k FragmentKind) String() string {
	switch k {
	case FragmentLiteral:
		return FragmentNameLiteral
	case FragmentStatement:
		return FragmentNameStatement
	case FragmentExpression:
		return FragmentNameExpression
	case FragmentBind:
		return FragmentNameBind
	default:
		return FragmentNameLiteral
	}
}

// Fragment is one unit of parser output. Fragments are kept in source order;
// the order is the output concatenation order.
type Fragment struct {
	Kind FragmentKind
	Line int // 1-indexed line the fragment starts on

	// Literal text or embedded code, depending on Kind
	Text string

	// Escape is set for expressions written with the escaped-output marker
	Escape bool

	// Bind is set for FragmentBind only
	Bind *BindBlock
}

// BindBlock is an async-binding region: the producers are resolved, their
// values are bound to Names and Body runs in the bound scope. Trailing holds
// the statements given before the closing '<-'.
type BindBlock struct {
	Inputs      []string
	Names       []string
	MultiInput  bool
	MultiOutput bool
	Body        []Fragment
	Trailing    string
	CloseLine   int
}

// NewLiteral creates a literal text fragment
func NewLiteral(text string, line int) Fragment {
	return Fragment{Kind: FragmentLiteral, Text: text, Line: line}
}

// NewStatement creates a code statement fragment
func NewStatement(code string, line int) Fragment {
	return Fragment{Kind: FragmentStatement, Text: code, Line: line}
}

// NewExpression creates an output expression fragment
func NewExpression(code string, escape bool, line int) Fragment {
	return Fragment{Kind: FragmentExpression, Text: code, Escape: escape, Line: line}
}

// NewBind creates an async-binding fragment around block
func NewBind(block *BindBlock, line int) Fragment {
	return Fragment{Kind: FragmentBind, Bind: block, Line: line}
}

// String returns a compact representation used in tests and debug output
func (f Fragment) String() string {
	switch f.Kind {
	case FragmentExpression:
		return fmt.Sprintf("%s(%q, escape=%t)@%d", f.Kind, f.Text, f.Escape, f.Line)
	case FragmentBind:
		if f.Bind == nil {
			return fmt.Sprintf("%s(nil)@%d", f.Kind, f.Line)
		}
		body := make([]string, len(f.Bind.Body))
		for i, child := range f.Bind.Body {
			body[i] = child.String()
		}
		return fmt.Sprintf("%s([%s] -> [%s] {%s} <- %q)@%d",
			f.Kind,
			strings.Join(f.Bind.Inputs, ", "),
			strings.Join(f.Bind.Names, ", "),
			strings.Join(body, "; "),
			f.Bind.Trailing,
			f.Line)
	default:
		return fmt.Sprintf("%s(%q)@%d", f.Kind, f.Text, f.Line)
	}
}
