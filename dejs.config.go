package dejs

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML form of the engine options.
//
//	delimiters: {open: "<%", close: "%>"}
//	extensions: [".ejs", ".html"]
//	cache: true
//	max_include_depth: 10
//	source:
//	  kind: filesystem
//	  root: ./views
type Config struct {
	Delimiters          *DelimiterConfig `yaml:"delimiters,omitempty"`
	Extensions          []string         `yaml:"extensions,omitempty"`
	Cache               bool             `yaml:"cache,omitempty"`
	Strict              bool             `yaml:"strict,omitempty"`
	MaxIncludeDepth     *int             `yaml:"max_include_depth,omitempty"`
	MaxInheritanceDepth *int             `yaml:"max_inheritance_depth,omitempty"`
	Source              *SourceConfig    `yaml:"source,omitempty"`
}

// DelimiterConfig sets the tag delimiters
type DelimiterConfig struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// SourceConfig selects where template files come from
type SourceConfig struct {
	Kind      string                `yaml:"kind"`
	Root      string                `yaml:"root,omitempty"`
	Templates map[string]string     `yaml:"templates,omitempty"`
	Postgres  *PostgresSourceConfig `yaml:"postgres,omitempty"`
}

// PostgresSourceConfig is the YAML form of PostgresConfig
type PostgresSourceConfig struct {
	DSN          string        `yaml:"dsn"`
	TablePrefix  string        `yaml:"table_prefix,omitempty"`
	AutoMigrate  bool          `yaml:"auto_migrate,omitempty"`
	MaxOpenConns int           `yaml:"max_open_conns,omitempty"`
	MaxIdleConns int           `yaml:"max_idle_conns,omitempty"`
	QueryTimeout time.Duration `yaml:"query_timeout,omitempty"`
}

// LoadConfig reads and parses a YAML configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigError(ErrMsgConfigRead, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data.
// Returns an error if data exceeds DefaultMaxConfigSize.
func ParseConfig(data []byte) (*Config, error) {
	if len(data) > DefaultMaxConfigSize {
		return nil, NewConfigError(ErrMsgConfigTooLarge, nil)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewConfigError(ErrMsgConfigParse, err)
	}
	if cfg.Delimiters != nil {
		if err := validateDelimiters(cfg.Delimiters.Open, cfg.Delimiters.Close); err != nil {
			return nil, err
		}
	}
	if cfg.Source != nil {
		switch cfg.Source.Kind {
		case "", SourceKindFilesystem, SourceKindMemory:
		case SourceKindPostgres:
			if cfg.Source.Postgres == nil || cfg.Source.Postgres.DSN == "" {
				return nil, NewConfigError(ErrMsgPostgresEmptyDSN, nil)
			}
		default:
			return nil, NewSourceKindError(cfg.Source.Kind)
		}
	}
	return &cfg, nil
}

// Options converts the configuration into engine options. A postgres source
// is connected here; the caller owns it through Engine.Close.
func (c *Config) Options() ([]Option, error) {
	var opts []Option
	if c.Delimiters != nil {
		opts = append(opts, WithDelimiters(c.Delimiters.Open, c.Delimiters.Close))
	}
	if len(c.Extensions) > 0 {
		opts = append(opts, WithExtensions(c.Extensions...))
	}
	if c.Cache {
		opts = append(opts, WithCaching(true))
	}
	if c.Strict {
		opts = append(opts, WithStrict(true))
	}
	if c.MaxIncludeDepth != nil {
		opts = append(opts, WithMaxIncludeDepth(*c.MaxIncludeDepth))
	}
	if c.MaxInheritanceDepth != nil {
		opts = append(opts, WithMaxInheritanceDepth(*c.MaxInheritanceDepth))
	}

	if c.Source != nil {
		source, err := c.Source.open()
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSource(source))
	}
	return opts, nil
}

func (s *SourceConfig) open() (Source, error) {
	switch s.Kind {
	case "", SourceKindFilesystem:
		return NewFilesystemSource(s.Root), nil
	case SourceKindMemory:
		return NewMemorySource(s.Templates), nil
	case SourceKindPostgres:
		if s.Postgres == nil {
			return nil, NewConfigError(ErrMsgPostgresEmptyDSN, nil)
		}
		source, err := NewPostgresSource(PostgresConfig{
			ConnectionString: s.Postgres.DSN,
			TablePrefix:      s.Postgres.TablePrefix,
			AutoMigrate:      s.Postgres.AutoMigrate,
			MaxOpenConns:     s.Postgres.MaxOpenConns,
			MaxIdleConns:     s.Postgres.MaxIdleConns,
			QueryTimeout:     s.Postgres.QueryTimeout,
		})
		if err != nil {
			return nil, err
		}
		return source, nil
	default:
		return nil, NewSourceKindError(s.Kind)
	}
}
