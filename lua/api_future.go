package lua

import (
	"github.com/drake/hostbridge/file"
	"github.com/drake/hostbridge/future"
	glua "github.com/yuin/gopher-lua"
)

const luaFutureTypeName = "future"

// luaFuture binds a string future to the engine that settles it in Lua.
type luaFuture struct {
	f   *future.Future[string]
	e   *Engine
	gen uint64
}

// registerFutureType registers the future userdata type.
func registerFutureType(L *glua.LState) {
	mt := L.NewTypeMetatable(luaFutureTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), futureMethods))
}

// futureMethods defines the methods available on future objects in Lua.
var futureMethods = map[string]glua.LGFunction{
	"next":  futureNext,
	"state": futureState,
	"value": futureValue,
	"error": futureError,
}

// registerFileFuncs registers bridge.read_file.
func (e *Engine) registerFileFuncs() {
	// bridge.read_file(path): Returns a future of the file contents
	e.L.SetField(e.bridgeTable, "read_file", e.L.NewFunction(func(L *glua.LState) int {
		path := L.CheckString(1)

		var opts []future.Option
		if e.observer != nil {
			opts = append(opts, future.WithObserver(e.observer))
		}
		if e.reportPost != nil {
			opts = append(opts, future.WithDeferredReport(e.reportPost))
		}
		f := file.ReadFile(e.files, path, opts...)

		L.Push(e.newFuture(f))
		return 1
	}))
}

// newFuture wraps f as Lua userdata.
func (e *Engine) newFuture(f *future.Future[string]) *glua.LUserData {
	ud := e.L.NewUserData()
	ud.Value = &luaFuture{f: f, e: e, gen: e.gen}
	e.L.SetMetatable(ud, e.L.GetTypeMetatable(luaFutureTypeName))
	return ud
}

// checkFuture retrieves a future from Lua userdata at the given stack position.
func checkFuture(L *glua.LState, n int) *luaFuture {
	ud := L.CheckUserData(n)
	if v, ok := ud.Value.(*luaFuture); ok {
		return v
	}
	L.ArgError(n, "future expected")
	return nil
}

// futureNext registers settlement callbacks and returns the future.
// on_ok receives the value, on_err the error message. Either may be nil.
// Usage: f:next(on_ok, on_err)
func futureNext(L *glua.LState) int {
	lf := checkFuture(L, 1)
	onOk := L.OptFunction(2, nil)
	onErr := L.OptFunction(3, nil)

	var resolve func(string)
	if onOk != nil {
		resolve = func(v string) {
			lf.e.invoke(lf.gen, "future", onOk, glua.LString(v))
		}
	}
	var reject func(error)
	if onErr != nil {
		reject = func(err error) {
			lf.e.invoke(lf.gen, "future", onErr, glua.LString(err.Error()))
		}
	}
	lf.f.Then(resolve, reject)

	L.Push(L.Get(1))
	return 1
}

// futureState returns "pending", "resolved" or "rejected".
// Usage: f:state()
func futureState(L *glua.LState) int {
	lf := checkFuture(L, 1)
	L.Push(glua.LString(lf.f.State().String()))
	return 1
}

// futureValue returns the resolved value, or nil.
// Usage: f:value()
func futureValue(L *glua.LState) int {
	lf := checkFuture(L, 1)
	if lf.f.State() != future.Resolved {
		L.Push(glua.LNil)
		return 1
	}
	v, _ := lf.f.Result()
	L.Push(glua.LString(v))
	return 1
}

// futureError returns the rejection message, or nil.
// Usage: f:error()
func futureError(L *glua.LState) int {
	lf := checkFuture(L, 1)
	if _, err := lf.f.Result(); err != nil {
		L.Push(glua.LString(err.Error()))
		return 1
	}
	L.Push(glua.LNil)
	return 1
}
