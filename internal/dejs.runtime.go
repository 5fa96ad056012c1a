package internal

import (
	"context"
	"errors"
	"slices"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Program is generated template code compiled for the host evaluator. It
// is immutable and may be executed concurrently.
type Program struct {
	Code     string
	Source   string
	Filename string
	program  *goja.Program
}

// CompileProgram compiles code produced by Generate. source and filename are
// kept for diagnostics.
func CompileProgram(code, source, filename string) (*Program, error) {
	name := filename
	if name == "" {
		name = DefaultFilename
	}
	prg, err := goja.Compile(name, code, false)
	if err != nil {
		return nil, err
	}
	return &Program{
		Code:     code,
		Source:   source,
		Filename: filename,
		program:  prg,
	}, nil
}

// Env holds the bindings visible to a render. Locals become global names of
// the runtime and are also reachable through the locals object. Scope is the
// receiver of the procedure (`this` in template code).
type Env struct {
	Locals map[string]any
	Scope  any
}

// RuntimeOptions configures one execution
type RuntimeOptions struct {
	Escape func(string) string // Escaper for <%= %>; defaults to EscapeHTML
	Logger *zap.Logger
}

var reservedLocals = []string{IdentHelper, IdentOut, IdentErr, IdentLocals}

// IsReservedLocal reports whether name collides with a binding the
// generated procedure relies on.
func IsReservedLocal(name string) bool {
	return slices.Contains(reservedLocals, name)
}

// Execute runs the program in a fresh runtime and returns its output. The
// calling goroutine drives the runtime until the output settles, ctx is
// done, or no outstanding work can settle it.
func (p *Program) Execute(ctx context.Context, env Env, opts RuntimeOptions) (string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	escape := opts.Escape
	if escape == nil {
		escape = EscapeHTML
	}

	logger.Debug(LogMsgExecuteStart, zap.String(LogFieldFilename, p.Filename))

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	loop := newEventLoop(vm, logger)
	defer loop.close()

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ErrMsgRuntimeInterrupt)
	})
	defer stop()

	exec := NewExecContext(p.Source, p.Filename)
	h := newHelpers(vm, loop, exec, escape)

	locals := vm.NewObject()
	for name, v := range env.Locals {
		if IsReservedLocal(name) {
			return "", &ReservedLocalError{Name: name}
		}
		jv := loop.toValue(ctx, v)
		if err := vm.Set(name, jv); err != nil {
			return "", err
		}
		if err := locals.Set(name, jv); err != nil {
			return "", err
		}
	}
	if err := vm.Set(IdentLocals, locals); err != nil {
		return "", err
	}

	fnVal, err := vm.RunProgram(p.program)
	if err != nil {
		return "", p.fail(ctx, logger, h.errorOf(err))
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return "", errors.New(ErrMsgNotAFunction)
	}

	this := goja.Undefined()
	if env.Scope != nil {
		this = loop.toValue(ctx, env.Scope)
	}
	ret, err := fn(this, h.object(), h.escapeValue())
	if err != nil {
		return "", p.fail(ctx, logger, h.errorOf(err))
	}

	var (
		out     string
		failure error
		done    bool
	)
	h.collect([]goja.Value{ret}, func(values []goja.Value) {
		out = values[0].String()
		done = true
	}, func(reason goja.Value) {
		failure = h.failure(reason, exec.Line)
		done = true
	})

	if err := loop.run(ctx, func() bool { return done }); err != nil {
		return "", p.fail(ctx, logger, err)
	}
	if failure != nil {
		return "", p.fail(ctx, logger, failure)
	}

	logger.Debug(LogMsgExecuteEnd, zap.String(LogFieldFilename, p.Filename))
	return out, nil
}

// fail logs err. An interrupted runtime reports the context error instead.
func (p *Program) fail(ctx context.Context, logger *zap.Logger, err error) error {
	var interrupted *goja.InterruptedError
	if ctx.Err() != nil && (errors.As(err, &interrupted) || errors.Is(err, ctx.Err())) {
		err = ctx.Err()
	}
	logger.Debug(LogMsgExecuteFailed,
		zap.String(LogFieldFilename, p.Filename),
		zap.Error(err))
	return err
}

// ReservedLocalError reports a local that would shadow a generated name
type ReservedLocalError struct {
	Name string
}

func (e *ReservedLocalError) Error() string {
	return ErrMsgReservedLocal + ": " + e.Name
}
