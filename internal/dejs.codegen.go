package internal

import (
	"strconv"
	"strings"
)

// GenerateOptions controls code generation
type GenerateOptions struct {
	// Strict emits a "use strict" directive at the top of the procedure
	Strict bool
}

// Generate assembles fragments into the source of a JavaScript function
// expression taking (__dejs, escape). Invoking it returns a Promise that
// resolves to the joined output.
//
// Every output position is reserved in an accumulator array at the point the
// fragment appears, so asynchronous values land in source order no matter
// when they settle.
func Generate(fragments []Fragment, opts GenerateOptions) string {
	g := &generator{}
	g.writeln("(function (" + IdentHelper + ", " + IdentEscape + ") {")
	if opts.Strict {
		g.writeln("'use strict';")
	}
	g.writeln("var " + IdentOut + " = [];")
	g.writeln("try {")
	g.fragments(fragments)
	g.writeln("return " + IdentHelper + "." + HelperJoin + "(" + IdentOut + ");")
	g.writeln("} catch (" + IdentErr + ") {")
	g.writeln(IdentHelper + "." + HelperRethrow + "(" + IdentErr + ");")
	g.writeln("}")
	g.writeln("})")
	return g.sb.String()
}

type generator struct {
	sb strings.Builder
}

func (g *generator) writeln(s string) {
	g.sb.WriteString(s)
	g.sb.WriteByte(CharNewline)
}

func (g *generator) line(n int) {
	g.writeln(IdentHelper + "." + HelperLine + "(" + strconv.Itoa(n) + ");")
}

func (g *generator) fragments(fragments []Fragment) {
	for _, f := range fragments {
		switch f.Kind {
		case FragmentLiteral:
			g.writeln(IdentOut + ".push('" + EscapeLiteral(f.Text) + "');")

		case FragmentStatement:
			g.line(f.Line)
			g.writeln(f.Text)

		case FragmentExpression:
			g.line(f.Line)
			g.writeln(IdentOut + ".push(" + IdentHelper + "." + HelperValue + "(" +
				wrapExpression(f.Text) + ", " + strconv.FormatBool(f.Escape) + ", " + strconv.Itoa(f.Line) + "));")

		case FragmentBind:
			g.bind(f)
		}
	}
}

// bind emits an async-binding block. The block's own accumulator is joined
// into a Promise that occupies a single slot of the enclosing accumulator.
func (g *generator) bind(f Fragment) {
	b := f.Bind
	g.line(f.Line)
	g.writeln(IdentOut + ".push(" + IdentHelper + "." + HelperBind + "([" +
		strings.Join(b.Inputs, ", ") + "], " +
		strconv.FormatBool(b.MultiInput) + ", " +
		strconv.FormatBool(b.MultiOutput) + ", " +
		strconv.Itoa(f.Line) + ", function (" + strings.Join(b.Names, ", ") + ") {")
	g.writeln("var " + IdentOut + " = [];")
	g.fragments(b.Body)

	closeLine := b.CloseLine
	if closeLine == 0 {
		closeLine = f.Line
	}
	g.line(closeLine)
	if b.Trailing == "" {
		g.writeln("return " + IdentHelper + "." + HelperClose + "(" + IdentOut + ", " + strconv.Itoa(closeLine) + ", null);")
	} else {
		g.writeln("return " + IdentHelper + "." + HelperClose + "(" + IdentOut + ", " + strconv.Itoa(closeLine) + ", function () {")
		g.writeln(b.Trailing)
		g.writeln("});")
	}
	g.writeln("}));")
}

// wrapExpression parenthesises an output expression. A line comment at the
// end of the expression must not swallow the closing parenthesis.
func wrapExpression(code string) string {
	if strings.Contains(code, "//") {
		return "(" + code + "\n)"
	}
	return "(" + code + ")"
}

// EscapeLiteral escapes text for a single-quoted JavaScript string.
func EscapeLiteral(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); i++ {
		switch ch := text[i]; ch {
		case CharBackslash:
			sb.WriteString(`\\`)
		case CharSingleQuote:
			sb.WriteString(`\'`)
		case CharNewline:
			sb.WriteString(`\n`)
		case CharCarriageRet:
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(ch)
		}
	}
	// U+2028 and U+2029 end a line inside ES5 string literals
	out := sb.String()
	if strings.ContainsAny(out, "\u2028\u2029") {
		out = strings.NewReplacer("\u2028", `\u2028`, "\u2029", `\u2029`).Replace(out)
	}
	return out
}
