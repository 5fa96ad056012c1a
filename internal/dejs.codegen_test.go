package internal

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeLiteral(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "hello", "hello"},
		{"single quote", "it's", `it\'s`},
		{"backslash", `a\b`, `a\\b`},
		{"newline", "a\nb", `a\nb`},
		{"carriage return", "a\rb", `a\rb`},
		{"line separator", "a\u2028b", `a\u2028b`},
		{"double quote untouched", `say "hi"`, `say "hi"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EscapeLiteral(tt.input))
		})
	}
}

func TestGenerate_Shape(t *testing.T) {
	fragments := mustParse(t, "Hi <%= name %>\n<% var x = 1 %><%- x %>")
	code := Generate(fragments, GenerateOptions{})

	assert.Contains(t, code, "(function (__dejs, escape) {")
	assert.Contains(t, code, "var __out = [];")
	assert.Contains(t, code, "__out.push('Hi ');")
	assert.Contains(t, code, "__dejs.line(1);")
	assert.Contains(t, code, "__out.push(__dejs.value((name), true, 1));")
	assert.Contains(t, code, "__dejs.line(2);\n var x = 1 \n")
	assert.Contains(t, code, "__out.push(__dejs.value((x), false, 2));")
	assert.Contains(t, code, "return __dejs.join(__out);")
	assert.Contains(t, code, "__dejs.rethrow(__err);")
	assert.NotContains(t, code, "use strict")

	strict := Generate(fragments, GenerateOptions{Strict: true})
	assert.Contains(t, strict, "'use strict';")
}

func TestGenerate_Bind(t *testing.T) {
	fragments := mustParse(t, "<% [a(), b()] -> [x, y] %><%= x %><% log(y) <- %>")
	code := Generate(fragments, GenerateOptions{})

	assert.Contains(t, code, "__out.push(__dejs.bind([a(), b()], true, true, 1, function (x, y) {")
	assert.Contains(t, code, "return __dejs.close(__out, 1, function () {\nlog(y)\n});")
}

func TestGenerate_LineCommentInExpression(t *testing.T) {
	fragments := mustParse(t, "<%= 1 // one %>")
	code := Generate(fragments, GenerateOptions{})
	assert.Contains(t, code, "((1 // one\n), true, 1)")
}

func TestGenerate_Compiles(t *testing.T) {
	sources := []string{
		"",
		"plain 'quoted' \\ text\nline two",
		"<% for (var i = 0; i < 3; i++) { %><%= i %><% } %>",
		"<% p -> v %><%= v %><% <- %>",
		"<% [p, q] -> [v, w] %><%= v %><% p -> z %><%= z %><% <- %><% w = 1 <- %>",
	}

	for _, src := range sources {
		fragments := mustParse(t, src)
		_, err := goja.Compile("test", Generate(fragments, GenerateOptions{}), false)
		require.NoError(t, err, src)
	}
}
