package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/itsatony/go-dejs"
	"golang.org/x/sync/errgroup"
)

// renderConfig holds parsed render command configuration
type renderConfig struct {
	templatePath string
	references   []string
	dataJSON     string
	dataFilePath string
	configPath   string
	outputPath   string
	outDir       string
	outExt       string
	jobs         int
	cache        bool
	debug        bool
	verbose      bool
}

func runRender(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseRenderFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMissingTemplate, err)
		return ExitCodeUsageError
	}

	data, err := loadData(cfg.dataJSON, cfg.dataFilePath)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidJSON, err)
		return ExitCodeInputError
	}

	logger := newLogger(cfg.verbose, stderr)
	defer func() { _ = logger.Sync() }()

	engine, err := newEngine(cfg.configPath, logger, stderr)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgEngineFailed, err)
		return ExitCodeUsageError
	}
	defer func() { _ = engine.Close() }()

	ctx := context.Background()
	if cfg.templatePath != "" {
		return renderOne(ctx, engine, cfg, data, stdin, stdout, stderr)
	}
	return renderMany(ctx, engine, cfg, data, stdout, stderr)
}

// renderOne renders --template to --output
func renderOne(ctx context.Context, engine *dejs.Engine, cfg *renderConfig, data map[string]any, stdin io.Reader, stdout, stderr io.Writer) int {
	ro := &dejs.RenderOptions{
		Locals: data,
		Cache:  cfg.cache,
		Debug:  cfg.debug,
	}

	var result string
	if cfg.templatePath == InputSourceStdin {
		src, err := readInput(cfg.templatePath, stdin)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
			return ExitCodeInputError
		}
		ro.Cache = false
		result, err = engine.Render(ctx, string(src), ro)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgExecuteFailed, err)
			return ExitCodeError
		}
	} else {
		var err error
		result, err = engine.RenderFile(ctx, filepath.ToSlash(cfg.templatePath), ro)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgExecuteFailed, err)
			return ExitCodeError
		}
	}

	if err := writeOutput(cfg.outputPath, []byte(result), stdout); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}
	return ExitCodeSuccess
}

// renderMany renders every positional template into --out-dir, up to
// --jobs at a time. The first failure cancels the remaining renders.
func renderMany(ctx context.Context, engine *dejs.Engine, cfg *renderConfig, data map[string]any, stdout, stderr io.Writer) int {
	if err := os.MkdirAll(cfg.outDir, DirPermissions); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}

	written := make([]string, len(cfg.references))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.jobs)
	for i, ref := range cfg.references {
		g.Go(func() error {
			result, err := engine.RenderFile(gctx, filepath.ToSlash(ref), &dejs.RenderOptions{
				Locals: data,
				Cache:  cfg.cache,
				Debug:  cfg.debug,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", ref, err)
			}
			target := filepath.Join(cfg.outDir, outputName(ref, cfg.outExt))
			if err := os.WriteFile(target, []byte(result), FilePermissions); err != nil {
				return fmt.Errorf("%s: %w", target, err)
			}
			written[i] = target
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgExecuteFailed, err)
		return ExitCodeError
	}

	for _, target := range written {
		fmt.Fprintln(stdout, target)
	}
	return ExitCodeSuccess
}

// outputName maps a template reference to its file name in --out-dir
func outputName(reference, ext string) string {
	base := filepath.Base(reference)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

func parseRenderFlags(args []string) (*renderConfig, error) {
	fs := flag.NewFlagSet(CmdNameRender, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &renderConfig{}

	fs.StringVar(&cfg.templatePath, FlagTemplate, "", "")
	fs.StringVar(&cfg.templatePath, FlagTemplateShort, "", "")
	fs.StringVar(&cfg.dataJSON, FlagData, "", "")
	fs.StringVar(&cfg.dataJSON, FlagDataShort, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFile, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFileShort, "", "")
	fs.StringVar(&cfg.configPath, FlagConfig, "", "")
	fs.StringVar(&cfg.configPath, FlagConfigShort, "", "")
	fs.StringVar(&cfg.outputPath, FlagOutput, FlagDefaultOutput, "")
	fs.StringVar(&cfg.outputPath, FlagOutputShort, FlagDefaultOutput, "")
	fs.StringVar(&cfg.outDir, FlagOutDir, "", "")
	fs.StringVar(&cfg.outExt, FlagOutExt, FlagDefaultOutExt, "")
	fs.IntVar(&cfg.jobs, FlagJobs, FlagDefaultJobs, "")
	fs.IntVar(&cfg.jobs, FlagJobsShort, FlagDefaultJobs, "")
	fs.BoolVar(&cfg.cache, FlagCache, false, "")
	fs.BoolVar(&cfg.debug, FlagDebug, false, "")
	fs.BoolVar(&cfg.verbose, FlagVerbose, false, "")
	fs.BoolVar(&cfg.verbose, FlagVerboseShort, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.references = fs.Args()

	// Validation
	switch {
	case cfg.templatePath == "" && len(cfg.references) == 0:
		return nil, errors.New(ErrMsgMissingTemplate)
	case cfg.templatePath != "" && len(cfg.references) > 0:
		return nil, errors.New(ErrMsgTemplateConflict)
	case len(cfg.references) > 0 && cfg.outDir == "":
		return nil, errors.New(ErrMsgOutDirRequired)
	}
	if cfg.jobs < 1 {
		cfg.jobs = 1
	}

	return cfg, nil
}
