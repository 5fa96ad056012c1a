//go:build integration

package dejs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresContainer creates an ephemeral PostgreSQL container for testing.
func setupPostgresContainer(t *testing.T) (*PostgresSource, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15",
		postgres.WithDatabase("dejs_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	source, err := NewPostgresSource(PostgresConfig{
		ConnectionString: connStr,
		AutoMigrate:      true,
		QueryTimeout:     30 * time.Second,
	})
	require.NoError(t, err, "failed to create postgres source")

	cleanup := func() {
		if source != nil {
			_ = source.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	}

	return source, cleanup
}

func TestPostgres_E2E_Source(t *testing.T) {
	source, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("schema version", func(t *testing.T) {
		version, err := source.CurrentSchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, version)

		require.NoError(t, source.RunMigrations(ctx))
		version, err = source.CurrentSchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, version)
	})

	t.Run("put read exists", func(t *testing.T) {
		require.NoError(t, source.Put(ctx, "views/page.ejs", "v1"))
		require.NoError(t, source.Put(ctx, "./views/page.ejs", "v2"))

		ok, err := source.Exists(ctx, "views/page.ejs")
		require.NoError(t, err)
		assert.True(t, ok)

		src, err := source.Read(ctx, "views/page.ejs")
		require.NoError(t, err)
		assert.Equal(t, "v2", src)

		ok, err = source.Exists(ctx, "views/none.ejs")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = source.Read(ctx, "views/none.ejs")
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})

	t.Run("paths and delete", func(t *testing.T) {
		require.NoError(t, source.Put(ctx, "a.ejs", "a"))
		paths, err := source.Paths(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.ejs", "views/page.ejs"}, paths)

		removed, err := source.Delete(ctx, "a.ejs")
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = source.Delete(ctx, "a.ejs")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("engine renders with inheritance and caching", func(t *testing.T) {
		require.NoError(t, source.Put(ctx, "views/layout.ejs", "<main><%- contents %></main>"))
		require.NoError(t, source.Put(ctx, "views/home.ejs", "<% inherits('layout') %><%= greeting %>"))

		engine := MustNew(WithSource(source), WithCaching(true))
		for i := 0; i < 2; i++ {
			out, err := engine.RenderFile(ctx, "views/home", &RenderOptions{
				Cache:  true,
				Locals: map[string]any{"greeting": "<hi>"},
			})
			require.NoError(t, err)
			assert.Equal(t, "<main>&lt;hi&gt;</main>", out)
		}
	})

	t.Run("closed source", func(t *testing.T) {
		require.NoError(t, source.Close())
		_, err := source.Read(ctx, "views/page.ejs")
		assert.ErrorIs(t, err, ErrSourceClosed)
		assert.NoError(t, source.Close())
	})
}

func TestPostgres_NewPostgresSource_EmptyDSN(t *testing.T) {
	_, err := NewPostgresSource(PostgresConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgPostgresEmptyDSN)
}
