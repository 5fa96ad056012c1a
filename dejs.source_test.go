package dejs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySource(t *testing.T) {
	ctx := context.Background()
	source := NewMemorySource(map[string]string{"./views/a.ejs": "a"})

	t.Run("paths are cleaned", func(t *testing.T) {
		ok, err := source.Exists(ctx, "views/a.ejs")
		require.NoError(t, err)
		assert.True(t, ok)

		src, err := source.Read(ctx, "views/../views/a.ejs")
		require.NoError(t, err)
		assert.Equal(t, "a", src)
	})

	t.Run("set and delete", func(t *testing.T) {
		source.Set("b.ejs", "b")
		assert.Equal(t, []string{"b.ejs", "views/a.ejs"}, source.Paths())

		assert.True(t, source.Delete("b.ejs"))
		assert.False(t, source.Delete("b.ejs"))
	})

	t.Run("missing template", func(t *testing.T) {
		ok, err := source.Exists(ctx, "nope.ejs")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = source.Read(ctx, "nope.ejs")
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := source.Read(cancelled, "views/a.ejs")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFilesystemSource(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "views", "dir.ejs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "views", "page.ejs"), []byte("hello <%= n %>"), 0o644))

	source := NewFilesystemSource(root)
	assert.Equal(t, root, source.Root())

	t.Run("exists", func(t *testing.T) {
		tests := []struct {
			path     string
			expected bool
		}{
			{"views/page.ejs", true},
			{"views/missing.ejs", false},
			{"views/dir.ejs", false},
		}
		for _, tt := range tests {
			t.Run(tt.path, func(t *testing.T) {
				ok, err := source.Exists(ctx, tt.path)
				require.NoError(t, err)
				assert.Equal(t, tt.expected, ok)
			})
		}
	})

	t.Run("read", func(t *testing.T) {
		src, err := source.Read(ctx, "views/page.ejs")
		require.NoError(t, err)
		assert.Equal(t, "hello <%= n %>", src)

		_, err = source.Read(ctx, "views/missing.ejs")
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})

	t.Run("render through engine", func(t *testing.T) {
		engine := MustNew(WithSource(source))
		out, err := engine.RenderFile(ctx, "views/page", &RenderOptions{Locals: map[string]any{"n": "fs"}})
		require.NoError(t, err)
		assert.Equal(t, "hello fs", out)
	})
}

func TestCountingSource(t *testing.T) {
	ctx := context.Background()
	source := NewCountingSource(NewMemorySource(map[string]string{"a": "a"}))

	_, _ = source.Exists(ctx, "a")
	_, _ = source.Exists(ctx, "b")
	_, _ = source.Read(ctx, "a")
	assert.Equal(t, int64(2), source.ExistsCalls())
	assert.Equal(t, int64(1), source.ReadCalls())

	source.Reset()
	assert.Zero(t, source.ExistsCalls())
	assert.Zero(t, source.ReadCalls())
}

func TestEngine_Close(t *testing.T) {
	engine := MustNew(WithSource(NewMemorySource(nil)))
	assert.NoError(t, engine.Close())
}
