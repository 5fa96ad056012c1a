package dejs

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/itsatony/go-cuserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// recordingSource remembers which paths were read
type recordingSource struct {
	Source
	mu    sync.Mutex
	reads []string
}

func (s *recordingSource) Read(ctx context.Context, p string) (string, error) {
	s.mu.Lock()
	s.reads = append(s.reads, p)
	s.mu.Unlock()
	return s.Source.Read(ctx, p)
}

func (s *recordingSource) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reads...)
}

func delayedValue(d time.Duration, v any) *Future[any] {
	return Go(context.Background(), func(context.Context) (any, error) {
		time.Sleep(d)
		return v, nil
	})
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		engine, err := New()
		require.NoError(t, err)
		assert.NotNil(t, engine.Cache())
		assert.IsType(t, &FilesystemSource{}, engine.Source())
	})

	t.Run("invalid delimiters", func(t *testing.T) {
		_, err := New(WithDelimiters("{{", "{{"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgInvalidDelimiters)

		var customErr *cuserr.CustomError
		require.True(t, errors.As(err, &customErr))
		open, ok := customErr.GetMetadata(MetaKeyOpen)
		assert.True(t, ok)
		assert.Equal(t, "{{", open)
	})

	t.Run("MustNew panics", func(t *testing.T) {
		assert.Panics(t, func() {
			MustNew(WithDelimiters("<%", "<%"))
		})
	})

	t.Run("shared cache", func(t *testing.T) {
		cache := NewCache()
		a := MustNew(WithCache(cache))
		b := MustNew(WithCache(cache))
		assert.Same(t, a.Cache(), b.Cache())
	})
}

func TestEngine_Render(t *testing.T) {
	engine := MustNew()
	ctx := context.Background()

	tests := []struct {
		name     string
		source   string
		locals   map[string]any
		expected string
	}{
		{"no tags is identity", "C:\\dir\\file 'quoted'\nline two", nil, "C:\\dir\\file 'quoted'\nline two"},
		{"escaped script", "<%= x %>", map[string]any{"x": "<script>"}, "&lt;script&gt;"},
		{"raw script", "<%- x %>", map[string]any{"x": "<script>"}, "<script>"},
		{"trailing trim", "a<% if (true) { -%>\nb<% } %>", nil, "ab"},
		{"loop", "<% items.forEach(function (it) { %>[<%= it %>]<% }) %>", map[string]any{"items": []string{"a", "b"}}, "[a][b]"},
		{"numbers", "<%= n * 2 %>", map[string]any{"n": 21}, "42"},
		{"undefined renders empty", "<%= locals.missing %>", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := engine.Render(ctx, tt.source, &RenderOptions{Locals: tt.locals})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestEngine_Render_Futures(t *testing.T) {
	engine := MustNew()
	ctx := context.Background()

	t.Run("positional multi bind with out of order completion", func(t *testing.T) {
		out, err := engine.Render(ctx,
			"<% [p1, p2, p3] -> [A, B, C] %><%= A %>,<%= B %>,<%= C %><% <- %>",
			&RenderOptions{Locals: map[string]any{
				"p1": delayedValue(30*time.Millisecond, "1"),
				"p2": delayedValue(5*time.Millisecond, "2"),
				"p3": delayedValue(15*time.Millisecond, "3"),
			}})
		require.NoError(t, err)
		assert.Equal(t, "1,2,3", out)
	})

	t.Run("bind opened from an output tag", func(t *testing.T) {
		out, err := engine.Render(ctx, "<%= p -> x %>[<%= x %>]<% <- %>",
			&RenderOptions{Locals: map[string]any{"p": Resolved[any](5)}})
		require.NoError(t, err)
		assert.Equal(t, "[5]", out)
	})

	t.Run("async func local", func(t *testing.T) {
		var lookup AsyncFunc = func(ctx context.Context, args ...any) (any, error) {
			return "user:" + args[0].(string), nil
		}
		out, err := engine.Render(ctx, "<% lookup('ada') -> u %><%= u %><% <- %>",
			&RenderOptions{Locals: map[string]any{"lookup": lookup}})
		require.NoError(t, err)
		assert.Equal(t, "user:ada", out)
	})

	t.Run("rejected future", func(t *testing.T) {
		_, err := engine.Render(ctx, "a\n<%= v %>",
			&RenderOptions{Locals: map[string]any{"v": Rejected[any](errors.New("db down"))}})
		require.Error(t, err)

		var evalErr *EvalError
		require.True(t, errors.As(err, &evalErr))
		assert.Equal(t, 2, evalErr.Line)
		assert.Contains(t, err.Error(), "db down")
	})

	t.Run("RenderAsync", func(t *testing.T) {
		out, err := engine.RenderAsync(ctx, "<%= v %>",
			&RenderOptions{Locals: map[string]any{"v": "x"}}).Await(ctx)
		require.NoError(t, err)
		assert.Equal(t, "x", out)
	})

	t.Run("stalled render", func(t *testing.T) {
		_, err := engine.Render(ctx, "<%= new Promise(function () {}) %>", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgRenderFailed)
	})

	t.Run("context deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := engine.Render(ctx, "<%= v %>",
			&RenderOptions{Locals: map[string]any{"v": delayedValue(time.Second, "late")}})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestEngine_Render_Errors(t *testing.T) {
	engine := MustNew()
	ctx := context.Background()

	t.Run("reference error carries line and excerpt", func(t *testing.T) {
		_, err := engine.Render(ctx, "one\ntwo <%= nope %>\nthree", &RenderOptions{Filename: "page.ejs"})
		require.Error(t, err)

		var evalErr *EvalError
		require.True(t, errors.As(err, &evalErr))
		assert.Equal(t, "page.ejs", evalErr.Filename)
		assert.Equal(t, 2, evalErr.Line)
		assert.Equal(t, "ReferenceError", evalErr.Kind)
		assert.True(t, strings.HasPrefix(err.Error(), "page.ejs:2\n"))
		assert.Contains(t, err.Error(), " >> 2| two <%= nope %>")
	})

	t.Run("anonymous template uses default name", func(t *testing.T) {
		_, err := engine.Render(ctx, "<% null.x %>", nil)
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), DefaultFilename+":1\n"))
	})

	t.Run("unterminated tag", func(t *testing.T) {
		_, err := engine.Render(ctx, "a\n<%= x", &RenderOptions{Filename: "bad.ejs"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgParseFailed)

		var customErr *cuserr.CustomError
		require.True(t, errors.As(err, &customErr))
		line, ok := customErr.GetMetadata(MetaKeyLine)
		assert.True(t, ok)
		assert.Equal(t, "2", line)
		name, ok := customErr.GetMetadata(MetaKeyFilename)
		assert.True(t, ok)
		assert.Equal(t, "bad.ejs", name)
	})

	t.Run("invalid embedded code", func(t *testing.T) {
		_, err := engine.Render(ctx, "<% if ( %>", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgHostSyntax)
	})

	t.Run("reserved local", func(t *testing.T) {
		_, err := engine.Render(ctx, "x", &RenderOptions{Locals: map[string]any{"__out": 1}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgReservedLocal)

		var customErr *cuserr.CustomError
		require.True(t, errors.As(err, &customErr))
		name, _ := customErr.GetMetadata(MetaKeyLocal)
		assert.Equal(t, "__out", name)
	})

	t.Run("invalid delimiter override", func(t *testing.T) {
		_, err := engine.Render(ctx, "x", &RenderOptions{Open: "%>"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgInvalidDelimiters)
	})
}

func TestEngine_Compile(t *testing.T) {
	ctx := context.Background()

	t.Run("reusable template", func(t *testing.T) {
		engine := MustNew()
		tmpl, err := engine.Compile("Hi <%= name %>", nil)
		require.NoError(t, err)

		for _, name := range []string{"a", "b"} {
			out, err := tmpl.Execute(ctx, map[string]any{"name": name})
			require.NoError(t, err)
			assert.Equal(t, "Hi "+name, out)
		}
		assert.Equal(t, "Hi <%= name %>", tmpl.Source())
		assert.Contains(t, tmpl.Code(), "__out")
	})

	t.Run("cache requires filename", func(t *testing.T) {
		engine := MustNew()
		_, err := engine.Compile("x", &RenderOptions{Cache: true})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCacheRequiresFilename)
	})

	t.Run("cached by filename", func(t *testing.T) {
		engine := MustNew()
		first, err := engine.Compile("one", &RenderOptions{Cache: true, Filename: "t"})
		require.NoError(t, err)
		second, err := engine.Compile("two", &RenderOptions{Cache: true, Filename: "t"})
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, 1, engine.Cache().Stats().Templates)

		engine.ClearCache()
		third, err := engine.Compile("two", &RenderOptions{Cache: true, Filename: "t"})
		require.NoError(t, err)
		assert.NotSame(t, first, third)
	})

	t.Run("caching by default", func(t *testing.T) {
		engine := MustNew(WithCaching(true))
		_, err := engine.Compile("x", nil)
		assert.ErrorIs(t, err, ErrCacheRequiresFilename)
	})

	t.Run("custom delimiters", func(t *testing.T) {
		engine := MustNew(WithDelimiters("{{", "}}"))
		out, err := engine.Render(ctx, "{{= v }} <%= v %>", &RenderOptions{Locals: map[string]any{"v": 1}})
		require.NoError(t, err)
		assert.Equal(t, "1 <%= v %>", out)

		out, err = engine.Render(ctx, "[[= v ]]", &RenderOptions{Open: "[[", Close: "]]", Locals: map[string]any{"v": 2}})
		require.NoError(t, err)
		assert.Equal(t, "2", out)
	})

	t.Run("custom escape", func(t *testing.T) {
		engine := MustNew(WithEscape(strings.ToUpper))
		out, err := engine.Render(ctx, "<%= v %>", &RenderOptions{Locals: map[string]any{"v": "abc"}})
		require.NoError(t, err)
		assert.Equal(t, "ABC", out)
	})

	t.Run("strict mode", func(t *testing.T) {
		engine := MustNew(WithStrict(true))
		_, err := engine.Render(ctx, "<% undeclared = 1 %>", nil)
		require.Error(t, err)

		var evalErr *EvalError
		require.True(t, errors.As(err, &evalErr))
		assert.Equal(t, "ReferenceError", evalErr.Kind)
	})

	t.Run("scope is this", func(t *testing.T) {
		engine := MustNew()
		out, err := engine.Render(ctx, "<%= this.name %>", &RenderOptions{Scope: map[string]any{"name": "self"}})
		require.NoError(t, err)
		assert.Equal(t, "self", out)
	})
}

func TestEngine_Debug(t *testing.T) {
	var buf bytes.Buffer
	core, logs := observer.New(zapcore.DebugLevel)
	engine := MustNew(WithDebugWriter(&buf), WithLogger(zap.New(core)))

	_, err := engine.Render(context.Background(), "<%= 1 %>", &RenderOptions{Debug: true, Filename: "dbg.ejs"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(buf.String(), "// dbg.ejs\n"))
	assert.Contains(t, buf.String(), "__out")
	assert.Equal(t, 1, logs.FilterMessage(LogMsgGeneratedCode).Len())
	assert.Positive(t, logs.FilterMessage(LogMsgCompileStart).Len())
}

func TestTemplate_Explain(t *testing.T) {
	engine := MustNew()
	tmpl, err := engine.Compile("a<%= x %>\n<% p -> v %><%- v %><% <- %>", &RenderOptions{Filename: "ex.ejs"})
	require.NoError(t, err)

	result := tmpl.Explain()
	assert.Equal(t, "ex.ejs", result.Filename)
	require.Len(t, result.Fragments, 5)
	assert.Equal(t, "LITERAL", result.Fragments[0].Kind)
	assert.Equal(t, "EXPRESSION", result.Fragments[1].Kind)
	assert.True(t, result.Fragments[1].Escape)
	assert.Equal(t, "BIND", result.Fragments[3].Kind)
	assert.Equal(t, "p -> v", result.Fragments[3].Text)
	assert.Equal(t, 1, result.Fragments[4].Depth)
	assert.Equal(t, 2, result.Fragments[4].Line)

	s := result.String()
	assert.Contains(t, s, "Filename: ex.ejs")
	assert.Contains(t, s, "Generated code:")
}

func TestEngine_ConcurrentRenders(t *testing.T) {
	engine := MustNew()
	ctx := context.Background()
	tmpl, err := engine.Compile("<% v -> x %><%= x %><% <- %>", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = tmpl.Execute(ctx, map[string]any{"v": delayedValue(time.Millisecond, i)})
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, strconv.Itoa(i), results[i])
	}
}
