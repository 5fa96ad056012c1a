package dejs

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresConfig configures a PostgresSource. Zero fields take the values of
// DefaultPostgresConfig.
type PostgresConfig struct {
	ConnectionString string        // lib/pq DSN or postgres:// URL
	TablePrefix      string        // Prefix of the templates and migrations tables
	AutoMigrate      bool          // Apply pending migrations when opening
	QueryTimeout     time.Duration // Upper bound for each statement
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
}

// DefaultPostgresConfig returns the pool and table defaults
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		TablePrefix:     PostgresTablePrefix,
		QueryTimeout:    PostgresDefaultQueryTimeout,
		MaxOpenConns:    PostgresDefaultMaxOpenConns,
		MaxIdleConns:    PostgresDefaultMaxIdleConns,
		ConnMaxLifetime: PostgresDefaultConnMaxLifetime,
		ConnMaxIdleTime: PostgresDefaultConnMaxIdleTime,
	}
}

// withDefaults fills zero fields from DefaultPostgresConfig
func (c PostgresConfig) withDefaults() PostgresConfig {
	d := DefaultPostgresConfig()
	c.TablePrefix = cmp.Or(c.TablePrefix, d.TablePrefix)
	c.QueryTimeout = cmp.Or(c.QueryTimeout, d.QueryTimeout)
	c.MaxOpenConns = cmp.Or(c.MaxOpenConns, d.MaxOpenConns)
	c.MaxIdleConns = cmp.Or(c.MaxIdleConns, d.MaxIdleConns)
	c.ConnMaxLifetime = cmp.Or(c.ConnMaxLifetime, d.ConnMaxLifetime)
	c.ConnMaxIdleTime = cmp.Or(c.ConnMaxIdleTime, d.ConnMaxIdleTime)
	return c
}

// PostgresSource serves templates stored in a PostgreSQL table keyed by
// logical path. The resolver probes it exactly like a directory tree.
type PostgresSource struct {
	db     *sql.DB
	config PostgresConfig
	mu     sync.RWMutex
	closed bool
}

// NewPostgresSource connects to PostgreSQL and verifies the connection.
func NewPostgresSource(config PostgresConfig) (*PostgresSource, error) {
	if config.ConnectionString == "" {
		return nil, NewConfigError(ErrMsgPostgresEmptyDSN, nil)
	}

	config = config.withDefaults()

	db, err := sql.Open(PostgresDriverName, config.ConnectionString)
	if err != nil {
		return nil, NewSourceError(ErrMsgPostgresConnect, "", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.QueryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, NewSourceError(ErrMsgPostgresConnect, "", err)
	}

	source := &PostgresSource{
		db:     db,
		config: config,
	}

	if config.AutoMigrate {
		if err := source.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	return source, nil
}

func (s *PostgresSource) tableName() string {
	return s.config.TablePrefix + "templates"
}

func (s *PostgresSource) migrationsTableName() string {
	return s.config.TablePrefix + "schema_migrations"
}

// begin guards a call against a closed source and applies the query timeout
func (s *PostgresSource) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if s.closed {
		return nil, nil, NewSourceError(ErrMsgSourceUnavailable, "", ErrSourceClosed)
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	return ctx, cancel, nil
}

// Exists reports whether a template row exists for p
func (s *PostgresSource) Exists(ctx context.Context, p string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE path = $1)`, s.tableName())
	if err := s.db.QueryRowContext(ctx, query, path.Clean(p)).Scan(&exists); err != nil {
		return false, NewSourceError(ErrMsgPostgresQuery, p, err)
	}
	return exists, nil
}

// Read returns the template text stored for p
func (s *PostgresSource) Read(ctx context.Context, p string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	var src string
	query := fmt.Sprintf(`SELECT source FROM %s WHERE path = $1`, s.tableName())
	if err := s.db.QueryRowContext(ctx, query, path.Clean(p)).Scan(&src); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", NewSourceError(ErrMsgSourceRead, p, ErrTemplateNotFound)
		}
		return "", NewSourceError(ErrMsgPostgresQuery, p, err)
	}
	return src, nil
}

// Put stores or replaces the template at p
func (s *PostgresSource) Put(ctx context.Context, p, source string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (path, source, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (path) DO UPDATE
		SET source = EXCLUDED.source, updated_at = NOW()`, s.tableName())
	if _, err := s.db.ExecContext(ctx, query, path.Clean(p), source); err != nil {
		return NewSourceError(ErrMsgPostgresQuery, p, err)
	}
	return nil
}

// Delete removes the template at p. It reports whether a row was removed.
func (s *PostgresSource) Delete(ctx context.Context, p string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE path = $1`, s.tableName()), path.Clean(p))
	if err != nil {
		return false, NewSourceError(ErrMsgPostgresQuery, p, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, NewSourceError(ErrMsgPostgresQuery, p, err)
	}
	return n > 0, nil
}

// Paths lists stored template paths in sorted order
func (s *PostgresSource) Paths(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT path FROM %s ORDER BY path`, s.tableName()))
	if err != nil {
		return nil, NewSourceError(ErrMsgPostgresQuery, "", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, NewSourceError(ErrMsgPostgresQuery, "", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, NewSourceError(ErrMsgPostgresQuery, "", err)
	}
	return paths, nil
}

// Close releases the connection pool. Further calls fail with ErrSourceClosed.
func (s *PostgresSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// RunMigrations applies pending database migrations.
func (s *PostgresSource) RunMigrations(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version     INTEGER PRIMARY KEY,
			applied_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			description VARCHAR(255)
		)`, s.migrationsTableName()))
	if err != nil {
		return NewSourceError(ErrMsgPostgresMigration, "", err)
	}

	applied := make(map[int]bool)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT version FROM %s", s.migrationsTableName()))
	if err != nil {
		return NewSourceError(ErrMsgPostgresMigration, "", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return NewSourceError(ErrMsgPostgresMigration, "", err)
		}
		applied[v] = true
	}

	for _, m := range s.migrations() {
		if applied[m.Version] {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return NewSourceError(ErrMsgPostgresMigration, "", err)
		}

		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return NewSourceError(ErrMsgPostgresMigration, "", fmt.Errorf("migration %d failed: %w", m.Version, err))
		}

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (version, description) VALUES ($1, $2)", s.migrationsTableName()),
			m.Version, m.Description); err != nil {
			_ = tx.Rollback()
			return NewSourceError(ErrMsgPostgresMigration, "", err)
		}

		if err := tx.Commit(); err != nil {
			return NewSourceError(ErrMsgPostgresMigration, "", err)
		}
	}

	return nil
}

// CurrentSchemaVersion returns the current schema version.
func (s *PostgresSource) CurrentSchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT MAX(version) FROM %s", s.migrationsTableName())).Scan(&version)
	if err != nil {
		return 0, NewSourceError(ErrMsgPostgresQuery, "", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

type postgresMigration struct {
	Version     int
	Description string
	SQL         string
}

func (s *PostgresSource) migrations() []postgresMigration {
	return []postgresMigration{
		{
			Version:     1,
			Description: "Template table keyed by path",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					path       TEXT PRIMARY KEY,
					source     TEXT NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				)`, s.tableName()),
		},
	}
}
