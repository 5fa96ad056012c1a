package internal

// Default delimiters
const (
	StrOpenDelim  = "<%"
	StrCloseDelim = "%>"
)

// Tag kind markers, read from the character right after the open delimiter
const (
	MarkerEscaped  = '='
	MarkerRaw      = '-'
	MarkerComment  = '#'
	MarkerLiteral  = '%'
	MarkerTrimTail = '-'
)

// Async-binding operators
const (
	OpProduce = "->"
	OpConsume = "<-"
)

// Character constants
const (
	CharSingleQuote  = '\''
	CharDoubleQuote  = '"'
	CharBackslash    = '\\'
	CharNewline      = '\n'
	CharCarriageRet  = '\r'
	CharSpace        = ' '
	CharOpenBracket  = '['
	CharCloseBracket = ']'
	CharComma        = ','
)

// Block comment markers recognised by the splitter
const (
	StrCommentOpen  = "/*"
	StrCommentClose = "*/"
)

// Names the generated procedure relies on. Locals must not shadow them.
const (
	IdentHelper = "__dejs"
	IdentOut    = "__out"
	IdentErr    = "__err"
	IdentEscape = "escape"
	IdentLocals = "locals"
)

// Helper method names exposed on the __dejs object
const (
	HelperLine    = "line"
	HelperValue   = "value"
	HelperBind    = "bind"
	HelperClose   = "close"
	HelperJoin    = "join"
	HelperRethrow = "rethrow"
	HelperCollect = "collect"
)

// Diagnostics
const (
	DefaultFilename      = "dejs"
	ExcerptContextLines  = 3
	ExcerptMarkerFailing = " >> "
	ExcerptMarkerOther   = "    "
	ExcerptLineSep       = "| "
)

// Log message constants
const (
	LogMsgParserCreated   = "parser created"
	LogMsgParseStart      = "starting parse"
	LogMsgParseEnd        = "parse complete"
	LogMsgExecuteStart    = "starting execution"
	LogMsgExecuteEnd      = "execution complete"
	LogMsgExecuteFailed   = "execution failed"
	LogMsgLoopStalled     = "event loop stalled with pending render"
	LogMsgFutureScheduled = "go future scheduled on loop"
)

// Log field names
const (
	LogFieldSource    = "source_length"
	LogFieldFragments = "fragment_count"
	LogFieldFilename  = "filename"
	LogFieldPending   = "pending"
	LogFieldError     = "error"
)

// Parser error messages
const (
	ErrMsgUnterminatedTag   = "unterminated tag"
	ErrMsgUnbalancedConsume = "'<-' without an open binding block"
	ErrMsgUnclosedBindBlock = "binding block opened with '->' is never closed with '<-'"
	ErrMsgEmptyProducer     = "missing producer expression before '->'"
	ErrMsgInvalidBinding    = "invalid binding target after '->'"
	ErrMsgBindingArity      = "number of producers does not match number of bindings"
	ErrMsgInvalidDelimiters = "delimiters must be non-empty and distinct"
)

// Runtime error messages
const (
	ErrMsgNotAFunction     = "compiled template did not evaluate to a function"
	ErrMsgRenderStalled    = "render stalled: pending result with no outstanding work"
	ErrMsgFutureNil        = "nil future"
	ErrMsgReservedLocal    = "local name is reserved"
	ErrMsgRuntimeInterrupt = "render interrupted"
)
