package lua

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/drake/hostbridge/future"
	"github.com/drake/hostbridge/timer"
	glua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps gopher-lua and manages the VM lifecycle.
// It is a pure mechanism: it knows how to run Lua code and expose APIs.
// It does NOT know about config dirs or boot sequences.
//
// An Engine is driven by a single goroutine; every service callback must be
// delivered on that goroutine.
type Engine struct {
	L      *glua.LState
	chunks *chunkCache

	// Cached table reference
	bridgeTable *glua.LTable

	timers TimerService
	files  FileService
	sys    SystemService

	logger     *zap.Logger
	observer   future.Observer
	reportPost func(func())

	// Armed timer handles created by the current VM. Stopped on Init/Close.
	armed map[*timer.Handle]struct{}

	// Incremented on every Init so callbacks from a discarded VM are dropped.
	gen uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver attaches a rejection observer to every future the engine creates.
func WithObserver(o future.Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithDeferredReport runs unhandled rejection checks through post, one loop
// turn after settlement.
func WithDeferredReport(post func(func())) Option {
	return func(e *Engine) {
		e.reportPost = post
	}
}

// WithChunkCacheSize sets how many compiled script files are retained.
func WithChunkCacheSize(n int) Option {
	return func(e *Engine) {
		e.chunks = newChunkCache(n)
	}
}

// NewEngine creates an Engine with the given services.
func NewEngine(timers TimerService, files FileService, sys SystemService, opts ...Option) *Engine {
	e := &Engine{
		timers: timers,
		files:  files,
		sys:    sys,
		logger: zap.NewNop(),
		armed:  make(map[*timer.Handle]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.chunks == nil {
		e.chunks = newChunkCache(defaultChunkCacheSize)
	}
	return e
}

// --- Lifecycle ---

// Init initializes (or re-initializes) the Lua VM with fresh state.
// It registers the API but does NOT load any scripts - that's the caller's job.
func (e *Engine) Init() error {
	// Close old Lua state if it exists
	if e.L != nil {
		e.L.Close()
	}

	// Release every host timer owned by the previous VM
	e.stopAll()
	e.gen++

	e.L = glua.NewState()

	registerTimerType(e)
	registerFutureType(e.L)

	e.registerAPIs()

	return nil
}

// Close stops all timers and cleans up the Lua state.
func (e *Engine) Close() {
	e.stopAll()
	e.gen++
	if e.L != nil {
		e.L.Close()
		e.L = nil
	}
}

func (e *Engine) stopAll() {
	for h := range e.armed {
		h.Stop()
	}
	e.armed = make(map[*timer.Handle]struct{})
}

// --- Execution Primitives (Mechanism) ---

// DoString executes a raw string of Lua code.
// The name parameter is used for stack traces.
func (e *Engine) DoString(name, code string) error {
	fn, err := e.L.Load(strings.NewReader(code), name)
	if err != nil {
		return err
	}
	e.L.Push(fn)
	return e.L.PCall(0, 0, nil)
}

// DoFile executes a Lua file from the filesystem.
// It temporarily adjusts package.path to allow local requires.
func (e *Engine) DoFile(path string) error {
	path = expandTilde(path)

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absPath)

	proto, err := e.chunks.compile(absPath)
	if err != nil {
		return err
	}

	// Temporarily prepend script's directory to package.path
	pkg := e.L.GetGlobal("package").(*glua.LTable)
	oldPath := e.L.GetField(pkg, "path").String()
	newPath := dir + "/?.lua;" + oldPath
	e.L.SetField(pkg, "path", glua.LString(newPath))

	e.L.Push(e.L.NewFunctionFromProto(proto))
	err = e.L.PCall(0, 0, nil)

	// Restore original path
	e.L.SetField(pkg, "path", glua.LString(oldPath))

	return err
}

// --- Callbacks ---

// invoke runs a Lua callback with a protected call. Callbacks scheduled by a
// previous VM generation are dropped.
func (e *Engine) invoke(gen uint64, source string, fn *glua.LFunction, args ...glua.LValue) {
	if e.L == nil || gen != e.gen {
		return
	}
	if err := e.L.CallByParam(glua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.reportError(source, err)
	}
}

// reportError hands a callback failure to bridge.on_error when the script
// defines one, and logs it otherwise.
func (e *Engine) reportError(source string, err error) {
	handler, ok := e.L.GetField(e.bridgeTable, "on_error").(*glua.LFunction)
	if ok {
		herr := e.L.CallByParam(glua.P{
			Fn:      handler,
			NRet:    0,
			Protect: true,
		}, glua.LString(source), glua.LString(err.Error()))
		if herr == nil {
			return
		}
		e.logger.Error("on_error handler failed", lfdSource(source), zap.Error(herr))
	}
	e.logger.Error("callback failed", lfdSource(source), zap.Error(err))
}

// --- Stats ---

// Stats is a snapshot of engine state for diagnostics.
type Stats struct {
	StackSize   int
	ArmedTimers int
	CachedChunk int
}

// Stats returns engine statistics. It must be called on the engine goroutine.
func (e *Engine) Stats() Stats {
	s := Stats{
		ArmedTimers: len(e.armed),
		CachedChunk: e.chunks.len(),
	}
	if e.L != nil {
		s.StackSize = e.L.GetTop()
	}
	return s
}

// --- API Registration ---

func (e *Engine) registerAPIs() {
	e.bridgeTable = e.L.NewTable()
	e.L.SetGlobal("bridge", e.bridgeTable)

	e.registerCoreFuncs()
	e.registerTimerFuncs()
	e.registerFileFuncs()
}

// --- Private Helpers ---

// expandTilde expands ~ to home directory.
func expandTilde(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func lfdSource(source string) zap.Field {
	return zap.String("source", source)
}
