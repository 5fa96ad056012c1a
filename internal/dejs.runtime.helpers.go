package internal

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

const classPromise = "Promise"

var htmlReplacer = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// EscapeHTML replaces the four characters that matter inside element
// content and double-quoted attributes. An ampersand that already starts a
// named entity such as "&amp;" is left alone.
func EscapeHTML(s string) string {
	if !strings.Contains(s, "&") {
		return htmlReplacer.Replace(s)
	}
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if s[i] == '&' && !startsEntity(s[i+1:]) {
			sb.WriteString("&amp;")
			continue
		}
		sb.WriteByte(s[i])
	}
	return htmlReplacer.Replace(sb.String())
}

// startsEntity reports whether s begins with one or more word characters
// followed by ';'.
func startsEntity(s string) bool {
	n := 0
	for n < len(s) && isWordChar(s[n]) {
		n++
	}
	return n > 0 && n < len(s) && s[n] == ';'
}

func isWordChar(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ('0' <= ch && ch <= '9')
}

// helpers backs the __dejs object handed to the generated procedure
type helpers struct {
	vm     *goja.Runtime
	loop   *eventLoop
	exec   *ExecContext
	escape func(string) string
}

func newHelpers(vm *goja.Runtime, loop *eventLoop, exec *ExecContext, escape func(string) string) *helpers {
	return &helpers{vm: vm, loop: loop, exec: exec, escape: escape}
}

func (h *helpers) object() *goja.Object {
	obj := h.vm.NewObject()
	methods := map[string]func(goja.FunctionCall) goja.Value{
		HelperLine:    h.jsLine,
		HelperValue:   h.jsValue,
		HelperBind:    h.jsBind,
		HelperClose:   h.jsClose,
		HelperJoin:    h.jsJoin,
		HelperRethrow: h.jsRethrow,
		HelperCollect: h.jsCollect,
	}
	for name, fn := range methods {
		_ = obj.Set(name, fn)
	}
	return obj
}

// escapeValue is the escape function visible to template code
func (h *helpers) escapeValue() goja.Value {
	return h.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return h.vm.ToValue(h.stringify(call.Argument(0), true))
	})
}

// line(n)
func (h *helpers) jsLine(call goja.FunctionCall) goja.Value {
	h.exec.Line = int(call.Argument(0).ToInteger())
	return goja.Undefined()
}

// value(v, escape, line) yields the output text of v, or a Promise of it
// when v is pending.
func (h *helpers) jsValue(call goja.FunctionCall) goja.Value {
	escape := call.Argument(1).ToBoolean()
	line := int(call.Argument(2).ToInteger())
	return h.after([]goja.Value{call.Argument(0)}, line, func(vs []goja.Value) goja.Value {
		return h.vm.ToValue(h.stringify(vs[0], escape))
	})
}

// bind(producers, multiIn, multiOut, line, body) waits for every producer,
// then runs body with the bound names.
func (h *helpers) jsBind(call goja.FunctionCall) goja.Value {
	producers := h.items(call.Argument(0))
	multiIn := call.Argument(1).ToBoolean()
	multiOut := call.Argument(2).ToBoolean()
	line := int(call.Argument(3).ToInteger())
	body, ok := goja.AssertFunction(call.Argument(4))
	if !ok {
		panic(h.vm.NewTypeError(ErrMsgNotAFunction))
	}
	return h.after(producers, line, func(vs []goja.Value) goja.Value {
		ret, err := body(goja.Undefined(), h.bindings(vs, multiIn, multiOut)...)
		if err != nil {
			panic(throwable(err))
		}
		return ret
	})
}

// close(out, line, trailing) joins a block's accumulator and then runs the
// trailing statements of its closing tag.
func (h *helpers) jsClose(call goja.FunctionCall) goja.Value {
	items := h.items(call.Argument(0))
	line := int(call.Argument(1).ToInteger())
	trailing, hasTrailing := goja.AssertFunction(call.Argument(2))
	return h.after(items, line, func(vs []goja.Value) goja.Value {
		out := concat(vs)
		if hasTrailing {
			h.exec.Line = line
			if _, err := trailing(goja.Undefined()); err != nil {
				panic(throwable(err))
			}
		}
		return h.vm.ToValue(out)
	})
}

// join(out)
func (h *helpers) jsJoin(call goja.FunctionCall) goja.Value {
	return h.after(h.items(call.Argument(0)), h.exec.Line, func(vs []goja.Value) goja.Value {
		return h.vm.ToValue(concat(vs))
	})
}

// rethrow(err) annotates err with the current line and throws it again
func (h *helpers) jsRethrow(call goja.FunctionCall) goja.Value {
	panic(h.vm.NewGoError(h.failure(call.Argument(0), h.exec.Line)))
}

// collect(array) returns a Promise of the settled values of array
func (h *helpers) jsCollect(call goja.FunctionCall) goja.Value {
	p, resolve, reject := h.vm.NewPromise()
	h.collect(h.items(call.Argument(0)), func(vs []goja.Value) {
		h.loop.check(resolve(h.array(vs)))
	}, func(reason goja.Value) {
		h.loop.check(reject(reason))
	})
	return h.vm.ToValue(p)
}

// collect waits for every value and calls onResolved with the results in
// order, or onRejected with the first failure. Plain values and settled
// Promises are read in place, so when nothing is pending a callback runs
// before collect returns. Later outcomes never override the first failure.
func (h *helpers) collect(values []goja.Value, onResolved func([]goja.Value), onRejected func(goja.Value)) {
	results := make([]goja.Value, len(values))
	thens := make(map[int]goja.Callable)

	for i, v := range values {
		state, result, then := h.inspect(v)
		switch state {
		case goja.PromiseStateFulfilled:
			results[i] = result
		case goja.PromiseStateRejected:
			onRejected(result)
			return
		default:
			thens[i] = then
		}
	}
	if len(thens) == 0 {
		onResolved(results)
		return
	}

	remaining := len(thens)
	failed := false
	fail := func(reason goja.Value) {
		if failed {
			return
		}
		failed = true
		onRejected(reason)
	}
	for i, then := range thens {
		fulfilled := h.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if failed {
				return goja.Undefined()
			}
			results[i] = call.Argument(0)
			remaining--
			if remaining == 0 {
				onResolved(results)
			}
			return goja.Undefined()
		})
		rejected := h.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			fail(call.Argument(0))
			return goja.Undefined()
		})
		if _, err := then(values[i], fulfilled, rejected); err != nil {
			var ex *goja.Exception
			if errors.As(err, &ex) {
				fail(ex.Value())
				continue
			}
			h.loop.check(err)
			fail(h.vm.NewGoError(err))
		}
	}
}

// inspect classifies v. Non-thenables count as fulfilled with themselves.
func (h *helpers) inspect(v goja.Value) (goja.PromiseState, goja.Value, goja.Callable) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return goja.PromiseStateFulfilled, v, nil
	}
	if obj.ClassName() == classPromise {
		if p, ok := obj.Export().(*goja.Promise); ok {
			switch p.State() {
			case goja.PromiseStateFulfilled:
				return goja.PromiseStateFulfilled, p.Result(), nil
			case goja.PromiseStateRejected:
				return goja.PromiseStateRejected, p.Result(), nil
			}
		}
	}
	then, ok := goja.AssertFunction(obj.Get("then"))
	if !ok {
		return goja.PromiseStateFulfilled, v, nil
	}
	return goja.PromiseStatePending, nil, then
}

// after runs next once values have settled. When nothing is pending the
// result of next is returned directly and failures are thrown; otherwise a
// Promise of the result is returned. Producer failures are attributed to
// line, failures inside next to the current line.
func (h *helpers) after(values []goja.Value, line int, next func([]goja.Value) goja.Value) goja.Value {
	var (
		result   goja.Value
		failure  *EvalError
		settled  bool
		deferred bool
		resolve  func(any) error
		reject   func(any) error
	)
	finish := func(v goja.Value, err *EvalError) {
		settled = true
		if !deferred {
			result, failure = v, err
			return
		}
		if err != nil {
			h.loop.check(reject(h.vm.NewGoError(err)))
			return
		}
		h.loop.check(resolve(v))
	}

	h.collect(values, func(vs []goja.Value) {
		var v goja.Value
		if ex := h.vm.Try(func() { v = next(vs) }); ex != nil {
			finish(nil, h.failure(ex.Value(), h.exec.Line))
			return
		}
		finish(v, nil)
	}, func(reason goja.Value) {
		finish(nil, h.failure(reason, line))
	})

	if settled {
		if failure != nil {
			panic(h.vm.NewGoError(failure))
		}
		return result
	}
	deferred = true
	p, res, rej := h.vm.NewPromise()
	resolve, reject = res, rej
	return h.vm.ToValue(p)
}

// bindings shapes settled producer values into arguments for a bound body
func (h *helpers) bindings(values []goja.Value, multiIn, multiOut bool) []goja.Value {
	switch {
	case multiIn && multiOut:
		return values
	case multiOut:
		return h.items(values[0])
	case multiIn:
		return []goja.Value{h.array(values)}
	default:
		if len(values) == 0 {
			return nil
		}
		return values[:1]
	}
}

func (h *helpers) failure(reason goja.Value, line int) (ee *EvalError) {
	if ex := h.vm.Try(func() { ee = Annotate(h.exec, reason, line) }); ex != nil {
		ee = NewEvalError(h.exec, line, "", ex.Error(), ex)
	}
	return ee
}

// errorOf converts an error returned by a call into the runtime
func (h *helpers) errorOf(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return err
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return h.failure(ex.Value(), h.exec.Line)
	}
	return err
}

func (h *helpers) stringify(v goja.Value, escape bool) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	if escape {
		return h.escape(v.String())
	}
	return v.String()
}

func (h *helpers) items(v goja.Value) []goja.Value {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	length := obj.Get("length")
	if length == nil {
		return nil
	}
	out := make([]goja.Value, max(length.ToInteger(), 0))
	for i := range out {
		item := obj.Get(strconv.Itoa(i))
		if item == nil {
			item = goja.Undefined()
		}
		out[i] = item
	}
	return out
}

func (h *helpers) array(values []goja.Value) *goja.Object {
	items := make([]any, len(values))
	for i, v := range values {
		items[i] = v
	}
	return h.vm.NewArray(items...)
}

func concat(values []goja.Value) string {
	var sb strings.Builder
	for _, v := range values {
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			continue
		}
		sb.WriteString(v.String())
	}
	return sb.String()
}

// throwable turns an error returned by a goja call back into a panic value
// that rethrows it.
func throwable(err error) any {
	var ex *goja.Exception
	var interrupted *goja.InterruptedError
	if errors.As(err, &ex) && !errors.As(err, &interrupted) {
		return ex.Value()
	}
	return err
}

// Annotate converts a thrown or rejected value into an EvalError positioned
// at line. A value that already carries an EvalError passes through.
func Annotate(exec *ExecContext, reason goja.Value, line int) *EvalError {
	if err := goErrorOf(reason); err != nil {
		var annotated *EvalError
		if errors.As(err, &annotated) {
			return annotated
		}
		return NewEvalError(exec, line, "", err.Error(), err)
	}
	kind, message := describe(reason)
	return NewEvalError(exec, line, kind, message, nil)
}

// goErrorOf extracts the Go error carried by a GoError object or by a
// reflected Go error value.
func goErrorOf(v goja.Value) error {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	if inner := obj.Get("value"); inner != nil {
		if err, ok := inner.Export().(error); ok {
			return err
		}
	}
	if err, ok := obj.Export().(error); ok {
		return err
	}
	return nil
}

func describe(reason goja.Value) (kind, message string) {
	if reason == nil || goja.IsUndefined(reason) {
		return "", "undefined"
	}
	if obj, ok := reason.(*goja.Object); ok {
		name, msg := obj.Get("name"), obj.Get("message")
		if name != nil && msg != nil {
			return name.String(), msg.String()
		}
	}
	return "", reason.String()
}
