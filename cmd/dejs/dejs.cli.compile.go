package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/itsatony/go-dejs"
)

// compileConfig holds parsed compile command configuration
type compileConfig struct {
	templatePath string
	configPath   string
	format       string
}

// compileOutput represents JSON output for compile
type compileOutput struct {
	Filename  string              `json:"filename"`
	Fragments []dejs.FragmentInfo `json:"fragments"`
	Code      string              `json:"code"`
}

func runCompile(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseCompileFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMissingTemplate, err)
		return ExitCodeUsageError
	}

	src, err := readInput(cfg.templatePath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	engine, err := newEngine(cfg.configPath, newLogger(false, stderr), stderr)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgEngineFailed, err)
		return ExitCodeUsageError
	}
	defer func() { _ = engine.Close() }()

	filename := ""
	if cfg.templatePath != InputSourceStdin {
		filename = filepath.ToSlash(cfg.templatePath)
	}
	tmpl, err := engine.Compile(string(src), &dejs.RenderOptions{Filename: filename})
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgCompileFailed, err)
		return ExitCodeError
	}

	result := tmpl.Explain()
	if cfg.format == OutputFormatJSON {
		jsonBytes, _ := json.MarshalIndent(compileOutput{
			Filename:  result.Filename,
			Fragments: result.Fragments,
			Code:      result.Code,
		}, "", "  ")
		fmt.Fprintln(stdout, string(jsonBytes))
		return ExitCodeSuccess
	}
	fmt.Fprint(stdout, result.String())
	return ExitCodeSuccess
}

func parseCompileFlags(args []string) (*compileConfig, error) {
	fs := flag.NewFlagSet(CmdNameCompile, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &compileConfig{}
	fs.StringVar(&cfg.templatePath, FlagTemplate, "", "")
	fs.StringVar(&cfg.templatePath, FlagTemplateShort, "", "")
	fs.StringVar(&cfg.configPath, FlagConfig, "", "")
	fs.StringVar(&cfg.configPath, FlagConfigShort, "", "")
	fs.StringVar(&cfg.format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&cfg.format, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.templatePath == "" {
		return nil, errors.New(ErrMsgMissingTemplate)
	}
	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}
	return cfg, nil
}
