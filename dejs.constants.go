package dejs

import "time"

// Delimiter defaults
const (
	DefaultOpenDelim  = "<%"
	DefaultCloseDelim = "%>"
)

// Default template file extensions, tried in order for references without one
var DefaultExtensions = []string{".ejs", ".html", ".tmpl"}

// Limits
const (
	DefaultMaxIncludeDepth     = 10 // Nested render() calls
	DefaultMaxInheritanceDepth = 10 // Parent templates above a child
)

// DefaultMaxConfigSize bounds configuration files accepted by ParseConfig
const DefaultMaxConfigSize = 1 << 20

// Names the engine injects into every render's locals
const (
	LocalRender   = "render"
	LocalInherits = "inherits"
	LocalContents = "contents"
)

// DefaultFilename is used in diagnostics for templates compiled without one
const DefaultFilename = "dejs"

// Source kinds accepted in configuration files
const (
	SourceKindFilesystem = "filesystem"
	SourceKindMemory     = "memory"
	SourceKindPostgres   = "postgres"
)

// PostgreSQL source defaults
const (
	PostgresTablePrefix            = "dejs_"
	PostgresDefaultMaxOpenConns    = 10
	PostgresDefaultMaxIdleConns    = 2
	PostgresDefaultConnMaxLifetime = 5 * time.Minute
	PostgresDefaultConnMaxIdleTime = 5 * time.Minute
	PostgresDefaultQueryTimeout    = 10 * time.Second
	PostgresDriverName             = "postgres"
)

// Error metadata keys
const (
	MetaKeyLine      = "line"
	MetaKeyColumn    = "column"
	MetaKeyFilename  = "filename"
	MetaKeyReference = "reference"
	MetaKeyFrom      = "from"
	MetaKeyAttempted = "attempted"
	MetaKeyPath      = "path"
	MetaKeyDepth     = "depth"
	MetaKeyMaxDepth  = "max_depth"
	MetaKeyChain     = "chain"
	MetaKeyOpen      = "open"
	MetaKeyClose     = "close"
	MetaKeyLocal     = "local"
	MetaKeySource    = "source"
)

// Log message constants
const (
	LogMsgEngineCreated      = "engine created"
	LogMsgCompileStart       = "compiling template"
	LogMsgCompileCacheHit    = "compiled template cache hit"
	LogMsgGeneratedCode      = "generated template code"
	LogMsgRenderStart        = "rendering template"
	LogMsgRenderFailed       = "render failed"
	LogMsgResolveStart       = "resolving template reference"
	LogMsgResolveCacheHit    = "resolution cache hit"
	LogMsgResolved           = "template reference resolved"
	LogMsgContentCacheHit    = "content cache hit"
	LogMsgInheritParent      = "rendering parent template"
	LogMsgIncludeStart       = "rendering sub-template"
	LogMsgCacheCleared       = "cache cleared"
	LogMsgConfigLoaded       = "configuration loaded"
	LogMsgRenderFilesStarted = "batch render started"
)

// Log field names
const (
	LogFieldFilename  = "filename"
	LogFieldReference = "reference"
	LogFieldFrom      = "from"
	LogFieldPath      = "path"
	LogFieldDepth     = "depth"
	LogFieldCode      = "code"
	LogFieldCount     = "count"
	LogFieldOpen      = "open"
	LogFieldClose     = "close"
	LogFieldExtension = "extensions"
)
