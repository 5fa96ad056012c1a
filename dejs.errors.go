package dejs

import (
	"errors"
	"strconv"
	"strings"

	"github.com/itsatony/go-cuserr"
	"github.com/itsatony/go-dejs/internal"
)

// Error message constants
const (
	ErrMsgParseFailed           = "template parsing failed"
	ErrMsgHostSyntax            = "generated template code does not compile"
	ErrMsgRenderFailed          = "template render failed"
	ErrMsgInvalidDelimiters     = "delimiters must be non-empty and distinct"
	ErrMsgTemplateNotFound      = "template not found"
	ErrMsgResolveFailed         = "cannot resolve template reference"
	ErrMsgUsage                 = "invalid template usage"
	ErrMsgInheritsCalledTwice   = "inherits called more than once in one render"
	ErrMsgCacheRequiresFilename = "caching requires a filename"
	ErrMsgInheritanceCycle      = "template inheritance cycle"
	ErrMsgInheritanceDepth      = "template inheritance too deep"
	ErrMsgIncludeDepth          = "sub-template render nested too deep"
	ErrMsgReservedLocal         = "local name is reserved"
	ErrMsgInvalidReference      = "template reference must be a non-empty string"
	ErrMsgConfigRead            = "cannot read configuration file"
	ErrMsgConfigParse           = "invalid configuration file"
	ErrMsgConfigSourceKind      = "unknown template source kind"
	ErrMsgConfigTooLarge        = "configuration file too large"
	ErrMsgSourceRead            = "cannot read template source"
	ErrMsgSourceClosed          = "template source is closed"
	ErrMsgSourceUnavailable     = "template source unavailable"
	ErrMsgPostgresEmptyDSN      = "postgres connection string is empty"
	ErrMsgPostgresConnect       = "cannot connect to postgres"
	ErrMsgPostgresQuery         = "postgres query failed"
	ErrMsgPostgresMigration     = "postgres migration failed"
)

// Error code constants for categorization
const (
	ErrCodeParse   = "DEJS_PARSE"
	ErrCodeResolve = "DEJS_RESOLVE"
	ErrCodeUsage   = "DEJS_USAGE"
	ErrCodeConfig  = "DEJS_CONFIG"
	ErrCodeSource  = "DEJS_SOURCE"
	ErrCodeRender  = "DEJS_RENDER"
)

// Sentinel errors, matchable with errors.Is
var (
	ErrTemplateNotFound      = errors.New(ErrMsgTemplateNotFound)
	ErrInheritsCalledTwice   = errors.New(ErrMsgInheritsCalledTwice)
	ErrCacheRequiresFilename = errors.New(ErrMsgCacheRequiresFilename)
	ErrSourceClosed          = errors.New(ErrMsgSourceClosed)
)

// EvalError is a failure raised while a template runs. Its message carries
// the filename, line and a source excerpt around the failing tag.
type EvalError = internal.EvalError

// ResolutionError lists every path tried for a reference that could not be
// resolved, in the order they were tried.
type ResolutionError struct {
	Reference string
	From      string
	Attempted []string
}

func (e *ResolutionError) Error() string {
	return ErrMsgTemplateNotFound + ": " + strconv.Quote(e.Reference) +
		" (tried " + strings.Join(e.Attempted, ", ") + ")"
}

// Unwrap makes errors.Is(err, ErrTemplateNotFound) hold
func (e *ResolutionError) Unwrap() error {
	return ErrTemplateNotFound
}

// NewParseError wraps a template syntax error with its position
func NewParseError(filename string, cause error) error {
	var line, column int
	var perr *internal.ParseError
	if errors.As(cause, &perr) {
		line, column = perr.Line, perr.Column
	}
	return cuserr.WrapStdError(cause, ErrCodeParse, ErrMsgParseFailed).
		WithMetadata(MetaKeyFilename, displayName(filename)).
		WithMetadata(MetaKeyLine, strconv.Itoa(line)).
		WithMetadata(MetaKeyColumn, strconv.Itoa(column))
}

// NewHostSyntaxError reports generated code the evaluator rejected. This
// happens when embedded code is not valid JavaScript.
func NewHostSyntaxError(filename string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeParse, ErrMsgHostSyntax).
		WithMetadata(MetaKeyFilename, displayName(filename))
}

// NewDelimiterError reports an invalid delimiter pair
func NewDelimiterError(open, close string) error {
	return cuserr.NewValidationError(ErrCodeConfig, ErrMsgInvalidDelimiters).
		WithMetadata(MetaKeyOpen, open).
		WithMetadata(MetaKeyClose, close)
}

// NewResolutionError creates a not-found error carrying the attempted paths
func NewResolutionError(reference, from string, attempted []string) error {
	cause := &ResolutionError{
		Reference: reference,
		From:      from,
		Attempted: attempted,
	}
	return cuserr.WrapStdError(cause, ErrCodeResolve, ErrMsgResolveFailed).
		WithMetadata(MetaKeyReference, reference).
		WithMetadata(MetaKeyFrom, from).
		WithMetadata(MetaKeyAttempted, strings.Join(attempted, ","))
}

// NewInvalidReferenceError reports a render or inherits call without a usable reference
func NewInvalidReferenceError() error {
	return cuserr.NewValidationError(ErrCodeUsage, ErrMsgInvalidReference)
}

// NewInheritsCalledTwiceError reports a second inherits call in one render
func NewInheritsCalledTwiceError(filename, first, second string) error {
	return cuserr.WrapStdError(ErrInheritsCalledTwice, ErrCodeUsage, ErrMsgUsage).
		WithMetadata(MetaKeyFilename, displayName(filename)).
		WithMetadata(MetaKeyReference, first+","+second)
}

// NewCacheRequiresFilenameError reports caching requested for an anonymous template
func NewCacheRequiresFilenameError() error {
	return cuserr.WrapStdError(ErrCacheRequiresFilename, ErrCodeUsage, ErrMsgUsage)
}

// NewInheritanceCycleError reports a parent chain that revisits a template
func NewInheritanceCycleError(chain []string) error {
	return cuserr.NewValidationError(ErrCodeUsage, ErrMsgInheritanceCycle).
		WithMetadata(MetaKeyChain, strings.Join(chain, " -> "))
}

// NewDepthError reports an inheritance chain or render() nesting beyond its limit
func NewDepthError(msg, filename string, depth, limit int) error {
	return cuserr.NewValidationError(ErrCodeUsage, msg).
		WithMetadata(MetaKeyFilename, displayName(filename)).
		WithMetadata(MetaKeyDepth, strconv.Itoa(depth)).
		WithMetadata(MetaKeyMaxDepth, strconv.Itoa(limit))
}

// NewReservedLocalError reports a local that would shadow a generated name
func NewReservedLocalError(name string) error {
	return cuserr.NewValidationError(ErrCodeUsage, ErrMsgReservedLocal).
		WithMetadata(MetaKeyLocal, name)
}

// NewSourceError wraps a failure of a template source
func NewSourceError(msg, path string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeSource, msg).
		WithMetadata(MetaKeyPath, path)
}

// NewConfigError wraps a configuration failure
func NewConfigError(msg string, cause error) error {
	if cause == nil {
		return cuserr.NewValidationError(ErrCodeConfig, msg)
	}
	return cuserr.WrapStdError(cause, ErrCodeConfig, msg)
}

// NewSourceKindError reports an unknown source kind in a configuration file
func NewSourceKindError(kind string) error {
	return cuserr.NewValidationError(ErrCodeConfig, ErrMsgConfigSourceKind).
		WithMetadata(MetaKeySource, kind)
}

func displayName(filename string) string {
	if filename == "" {
		return DefaultFilename
	}
	return filename
}
