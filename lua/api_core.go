package lua

import (
	"strings"

	glua "github.com/yuin/gopher-lua"
)

// registerCoreFuncs registers bridge.* lifecycle and output primitives
func (e *Engine) registerCoreFuncs() {
	printFn := e.L.NewFunction(func(L *glua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		e.sys.Print(strings.Join(parts, "\t"))
		return 0
	})

	// bridge.print(...): Outputs text through the host; also replaces the global print
	e.L.SetField(e.bridgeTable, "print", printFn)
	e.L.SetGlobal("print", printFn)

	// bridge.quit(): Stop the session
	e.L.SetField(e.bridgeTable, "quit", e.L.NewFunction(func(L *glua.LState) int {
		e.sys.Quit()
		return 0
	}))

	// bridge.load(path): Load a Lua script (runs immediately, no round-trip)
	e.L.SetField(e.bridgeTable, "load", e.L.NewFunction(func(L *glua.LState) int {
		path := L.CheckString(1)
		if err := e.DoFile(path); err != nil {
			L.Push(glua.LString(err.Error()))
			return 1
		}
		return 0
	}))
}
