package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/drake/hostbridge/event"
	"github.com/drake/hostbridge/file"
	"github.com/drake/hostbridge/internal/buffer"
	"github.com/drake/hostbridge/lua"
	"github.com/drake/hostbridge/timer"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// Ensure Session implements the engine services at compile time
var (
	_ lua.TimerService  = (*Session)(nil)
	_ lua.FileService   = (*Session)(nil)
	_ lua.SystemService = (*Session)(nil)
)

// Config holds session configuration
type Config struct {
	ConfigDir   string    // Directory holding init.lua; empty skips it
	UserScripts []string  // CLI script arguments
	Stdout      io.Writer // Destination of print; defaults to os.Stdout

	EventQueueLimit int // Queued events before the oldest is dropped; 0 is unlimited
	ChunkCacheSize  int // Compiled script files retained across reloads

	// ExitWhenIdle ends Run once no timers are armed, no reads are in
	// flight and no events are queued.
	ExitWhenIdle bool
}

// Session orchestrates the engine, the timer service and async file reads
// on a single goroutine.
type Session struct {
	// Components
	engine *lua.Engine
	timer  *timer.Service
	files  *file.AsyncReader
	logger *zap.Logger
	out    io.Writer

	// Channels
	eventsIn    chan<- event.Event
	eventsOut   <-chan event.Event
	timerEvents chan timer.Event

	// Pending work, used for idle detection and stats
	queued    atomic.Int64
	inflight  atomic.Int64
	processed atomic.Uint64
	luaStats  atomic.Pointer[lua.Stats]

	// Config
	config Config

	// Shutdown coordination
	done      chan struct{}
	closeOnce sync.Once
	postMu    sync.RWMutex
	closed    bool
}

// New creates a new Session. It is passive - the loop starts in Run.
func New(cfg Config, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := cfg.Stdout
	if out == nil {
		out = os.Stdout
	}

	timerEvents := make(chan timer.Event, 1024)

	s := &Session{
		timer:       timer.NewService(timerEvents),
		timerEvents: timerEvents,
		logger:      logger.Named("session"),
		out:         out,
		config:      cfg,
		done:        make(chan struct{}),
	}

	s.eventsIn, s.eventsOut = buffer.Unbounded[event.Event](100, cfg.EventQueueLimit, s.dropEvent)
	s.files = &file.AsyncReader{Post: func(fn func()) {
		s.post(event.Event{Type: event.ReadResult, Callback: fn})
	}}

	opts := []lua.Option{
		lua.WithLogger(logger.Named("lua")),
		lua.WithObserver(&rejectionLogger{logger: logger.Named("future")}),
		lua.WithDeferredReport(func(fn func()) {
			s.post(event.Event{Type: event.AsyncResult, Callback: fn})
		}),
	}
	if cfg.ChunkCacheSize > 0 {
		opts = append(opts, lua.WithChunkCacheSize(cfg.ChunkCacheSize))
	}
	s.engine = lua.NewEngine(s, s, s, opts...)

	return s
}

// Run boots the scripts and processes events until ctx is done, a script
// calls bridge.quit(), or the session goes idle when ExitWhenIdle is set.
func (s *Session) Run(ctx context.Context) error {
	defer s.shutdown()

	if err := s.boot(); err != nil {
		return pkgerrors.WithMessage(err, "boot")
	}

	return s.processEvents(ctx)
}

// processEvents is the main event loop.
func (s *Session) processEvents(ctx context.Context) error {
	for {
		s.luaStats.Store(ptr(s.engine.Stats()))

		select {
		case <-s.done:
			return nil
		default:
		}
		if s.config.ExitWhenIdle && s.idle() {
			s.logger.Debug("session idle, exiting")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case ev := <-s.eventsOut:
			s.queued.Add(-1)
			s.handleEvent(ev)
		case ev := <-s.timerEvents:
			s.timer.Dispatch(ev)
		}
		s.processed.Add(1)
	}
}

// handleEvent executes a single event on the session loop.
func (s *Session) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.AsyncResult:
		if ev.Callback != nil {
			ev.Callback()
		}

	case event.ReadResult:
		s.inflight.Add(-1)
		if ev.Callback != nil {
			ev.Callback()
		}

	case event.SystemControl:
		s.handleControl(ev.Control)
	}
}

// handleControl processes system control events.
func (s *Session) handleControl(ctrl event.ControlOp) {
	switch ctrl.Action {
	case event.ActionQuit:
		s.stop()
	case event.ActionLoadScript:
		s.loadScript(ctrl.ScriptPath)
	}
}

// dropEvent is called by the event queue when its limit forces out the
// oldest event. A dropped read leaves its future pending but no longer
// keeps the session busy.
func (s *Session) dropEvent(dropped event.Event) {
	s.queued.Add(-1)
	if dropped.Type == event.ReadResult {
		s.inflight.Add(-1)
	}
	s.logger.Warn("event queue limit reached, dropping oldest event",
		zap.Int("limit", s.config.EventQueueLimit), zap.Int("type", int(dropped.Type)))
}

// idle reports whether nothing can produce further events.
func (s *Session) idle() bool {
	return s.timer.Active() == 0 && s.inflight.Load() == 0 && s.queued.Load() == 0
}

// boot loads the VM state.
func (s *Session) boot() error {
	if err := s.engine.Init(); err != nil {
		return err
	}

	if s.config.ConfigDir != "" {
		// Set config directory
		setupCode := fmt.Sprintf("bridge.config_dir = [[%s]]", s.config.ConfigDir)
		if err := s.engine.DoString("boot_config", setupCode); err != nil {
			return err
		}

		// Load user init.lua
		initPath := filepath.Join(s.config.ConfigDir, "init.lua")
		if _, err := os.Stat(initPath); err == nil {
			if err := s.engine.DoFile(initPath); err != nil {
				return fmt.Errorf("init.lua: %w", err)
			}
			s.logger.Info("script loaded", lfdScript(initPath))
		}
	}

	// Load CLI scripts
	for _, path := range s.config.UserScripts {
		if err := s.engine.DoFile(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		s.logger.Info("script loaded", lfdScript(path))
	}

	return nil
}

// post enqueues an event for the session loop. Events posted after shutdown
// are discarded.
func (s *Session) post(ev event.Event) {
	s.postMu.RLock()
	defer s.postMu.RUnlock()
	if s.closed {
		return
	}
	s.queued.Add(1)
	s.eventsIn <- ev
}

// stop ends the event loop. Cleanup happens when Run returns.
func (s *Session) stop() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// shutdown releases timers, the VM and the event queue. Runs on the session goroutine.
func (s *Session) shutdown() {
	s.stop()
	s.engine.Close()
	s.timer.Close()

	s.postMu.Lock()
	if !s.closed {
		s.closed = true
		close(s.eventsIn)
		// Let the buffer flush so its goroutine exits.
		go func() {
			for range s.eventsOut {
			}
		}()
	}
	s.postMu.Unlock()
}

func ptr[T any](v T) *T { return &v }
