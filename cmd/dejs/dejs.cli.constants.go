package main

// Command names
const (
	CmdNameRender  = "render"
	CmdNameCompile = "compile"
	CmdNameVersion = "version"
	CmdNameHelp    = "help"
)

// Flag names - long form
const (
	FlagTemplate = "template"
	FlagData     = "data"
	FlagDataFile = "data-file"
	FlagConfig   = "config"
	FlagOutput   = "output"
	FlagOutDir   = "out-dir"
	FlagOutExt   = "out-ext"
	FlagJobs     = "jobs"
	FlagCache    = "cache"
	FlagDebug    = "debug"
	FlagVerbose  = "verbose"
	FlagFormat   = "format"
)

// Flag names - short form
const (
	FlagTemplateShort = "t"
	FlagDataShort     = "d"
	FlagDataFileShort = "f"
	FlagConfigShort   = "c"
	FlagOutputShort   = "o"
	FlagJobsShort     = "j"
	FlagVerboseShort  = "v"
	FlagFormatShort   = "F"
)

// Flag default values
const (
	FlagDefaultOutput = "-" // stdout
	FlagDefaultOutExt = ".html"
	FlagDefaultJobs   = 4
	FlagDefaultFormat = "text"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Exit codes
const (
	ExitCodeSuccess    = 0
	ExitCodeError      = 1
	ExitCodeUsageError = 2
	ExitCodeInputError = 4
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// Error messages - ALL must be constants
const (
	ErrMsgUnknownCommand    = "unknown command"
	ErrMsgMissingTemplate   = "template required"
	ErrMsgTemplateConflict  = "use either --template or positional templates"
	ErrMsgOutDirRequired    = "--out-dir is required when rendering several templates"
	ErrMsgInvalidJSON       = "invalid JSON data"
	ErrMsgReadFileFailed    = "failed to read file"
	ErrMsgWriteOutputFailed = "failed to write output"
	ErrMsgCompileFailed     = "template compilation failed"
	ErrMsgExecuteFailed     = "template execution failed"
	ErrMsgInvalidFormat     = "invalid output format"
	ErrMsgConfigFailed      = "invalid configuration"
	ErrMsgEngineFailed      = "failed to create engine"
)

// Help text templates
const (
	HelpMainUsage = `go-dejs - embedded JavaScript templates with deferred values

Usage:
    dejs <command> [options]

Commands:
    render      Render one or more templates with data
    compile     Show the fragments and generated code of a template
    version     Show version information
    help        Show help for a command

Use "dejs help <command>" for more information about a command.`

	HelpRenderUsage = `Render one or more templates with data

Usage:
    dejs render [options] [template...]

Options:
    -t, --template <file>   Template file (use "-" for stdin)
    -d, --data <json>       JSON data string
    -f, --data-file <file>  JSON data file
    -c, --config <file>     YAML engine configuration
    -o, --output <file>     Output file (default: stdout)
    --out-dir <dir>         Output directory for positional templates
    --out-ext <ext>         Output extension in --out-dir (default: .html)
    -j, --jobs <n>          Concurrent renders (default: 4)
    --cache                 Cache resolution, reads and compiled templates
    --debug                 Print generated code to stderr
    -v, --verbose           Debug logging to stderr

Examples:
    dejs render -t views/page.ejs -d '{"title": "Home"}'
    cat page.ejs | dejs render -t - -f data.json
    dejs render -c dejs.yaml --out-dir public views/index views/about`

	HelpCompileUsage = `Show the fragments and generated code of a template

Usage:
    dejs compile [options]

Options:
    -t, --template <file>   Template file (use "-" for stdin)
    -c, --config <file>     YAML engine configuration
    -F, --format <format>   Output format: text, json (default: text)

Examples:
    dejs compile -t views/page.ejs
    dejs compile -t views/page.ejs -F json`

	HelpVersionUsage = `Show version information

Usage:
    dejs version [options]

Options:
    -F, --format <format>   Output format: text, json (default: text)`

	HelpHelpUsage = `Show help for a command

Usage:
    dejs help [command]

Commands:
    render      Show help for render command
    compile     Show help for compile command
    version     Show help for version command`
)

// Version output format templates
const (
	VersionTextTemplate = "go-dejs version %s\nCommit: %s\nBranch: %s\nBuilt: %s\nGo: %s"
	VersionUnknown      = "unknown"
)

// CLI metadata
const (
	CLIName = "dejs"
)

// File permission constants
const (
	FilePermissions = 0644
	DirPermissions  = 0755
)

// Format string constants
const (
	FmtErrorWithDetail = "%s: %s\n"
	FmtErrorWithCause  = "%s: %v\n"
	FmtNewline         = "\n"
)
