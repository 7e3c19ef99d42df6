package lua

import (
	"math"
	"strconv"
	"strings"

	"github.com/drake/hostbridge/timer"
	glua "github.com/yuin/gopher-lua"
)

const luaTimerTypeName = "timer"

// registerTimerType registers the timer userdata type. Methods mirror the
// bridge.timer.* functions with the handle as receiver.
func registerTimerType(e *Engine) {
	mt := e.L.NewTypeMetatable(luaTimerTypeName)
	e.L.SetField(mt, "__index", e.L.SetFuncs(e.L.NewTable(), map[string]glua.LGFunction{
		"start": e.timerStart,
		"stop":  e.timerStop,
		"armed": timerArmed,
		"mode":  timerMode,
	}))
}

// registerTimerFuncs registers bridge.timer.* primitives.
func (e *Engine) registerTimerFuncs() {
	timerTable := e.L.NewTable()
	e.L.SetField(e.bridgeTable, "timer", timerTable)

	// bridge.timer.create(): New unarmed handle
	e.L.SetField(timerTable, "create", e.L.NewFunction(func(L *glua.LState) int {
		ud := L.NewUserData()
		ud.Value = timer.NewHandle(e.timers)
		L.SetMetatable(ud, L.GetTypeMetatable(luaTimerTypeName))
		L.Push(ud)
		return 1
	}))

	// bridge.timer.start(handle, ms, repeat, callback): Arm the handle
	e.L.SetField(timerTable, "start", e.L.NewFunction(e.timerStart))

	// bridge.timer.stop(handle): Disarm the handle, no-op when unarmed
	e.L.SetField(timerTable, "stop", e.L.NewFunction(e.timerStop))
}

// checkTimer retrieves a timer handle from Lua userdata at the given stack position.
func checkTimer(L *glua.LState, n int) *timer.Handle {
	ud := L.CheckUserData(n)
	if h, ok := ud.Value.(*timer.Handle); ok {
		return h
	}
	L.ArgError(n, "timer expected")
	return nil
}

// timerStart arms a handle.
// Usage: bridge.timer.start(h, ms, repeat, fn) or h:start(ms, repeat, fn)
func (e *Engine) timerStart(L *glua.LState) int {
	h := checkTimer(L, 1)
	ms := toNumber(L, 2)
	repeat := toNumber(L, 3)
	fn := L.CheckFunction(4)

	gen := e.gen
	onFire := func() {
		if _, ok := h.Mode(); !ok {
			// One-shot handles are disarmed before their callback runs.
			delete(e.armed, h)
		}
		e.invoke(gen, "timer", fn)
	}

	if err := h.Start(ms, repeat, onFire); err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	e.armed[h] = struct{}{}
	return 0
}

// timerStop disarms a handle.
// Usage: bridge.timer.stop(h) or h:stop()
func (e *Engine) timerStop(L *glua.LState) int {
	h := checkTimer(L, 1)
	h.Stop()
	delete(e.armed, h)
	return 0
}

// timerArmed reports whether the handle is armed.
// Usage: h:armed()
func timerArmed(L *glua.LState) int {
	h := checkTimer(L, 1)
	L.Push(glua.LBool(h.Armed()))
	return 1
}

// timerMode returns "once", "repeat", or nil when unarmed.
// Usage: h:mode()
func timerMode(L *glua.LState) int {
	h := checkTimer(L, 1)
	mode, ok := h.Mode()
	if !ok {
		L.Push(glua.LNil)
		return 1
	}
	L.Push(glua.LString(mode.String()))
	return 1
}

// toNumber coerces a timer argument: nil is 0, numeric strings are parsed,
// and unparsable strings become NaN.
func toNumber(L *glua.LState, n int) float64 {
	switch v := L.Get(n).(type) {
	case *glua.LNilType:
		return 0
	case glua.LNumber:
		return float64(v)
	case glua.LString:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	L.ArgError(n, "number expected")
	return 0
}
