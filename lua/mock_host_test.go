package lua

import (
	"io/fs"
	"sort"
	"sync"
	"time"

	"github.com/drake/hostbridge/timer"
)

type mockTimer struct {
	fire   func()
	repeat bool
}

type pendingRead struct {
	path     string
	encoding string
	cb       func(error, string)
}

// MockHost implements the engine services for testing. Timers and reads
// only complete when the test asks for it.
type MockHost struct {
	mu sync.Mutex

	// Captured calls
	PrintCalls      []string
	QuitCalled      bool
	ScheduledTimers []struct {
		Token    timer.Token
		Duration time.Duration
		Repeat   bool
	}
	CancelCalls []struct {
		Token  timer.Token
		Repeat bool
	}

	// Files served by CompleteReads
	Files map[string]string

	// PanicOnRead makes ReadFileAsync panic. SyncReads completes reads
	// before ReadFileAsync returns.
	PanicOnRead bool
	SyncReads   bool

	timers    map[timer.Token]*mockTimer
	nextToken timer.Token
	reads     []pendingRead
}

func NewMockHost() *MockHost {
	return &MockHost{
		Files:  make(map[string]string),
		timers: make(map[timer.Token]*mockTimer),
	}
}

func (m *MockHost) Print(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PrintCalls = append(m.PrintCalls, text)
}

func (m *MockHost) Quit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QuitCalled = true
}

func (m *MockHost) ScheduleOnce(d time.Duration, fire func()) (timer.Token, error) {
	return m.schedule(d, fire, false), nil
}

func (m *MockHost) ScheduleRepeating(d time.Duration, fire func()) (timer.Token, error) {
	return m.schedule(d, fire, true), nil
}

func (m *MockHost) schedule(d time.Duration, fire func(), repeat bool) timer.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextToken++
	m.timers[m.nextToken] = &mockTimer{fire: fire, repeat: repeat}
	m.ScheduledTimers = append(m.ScheduledTimers, struct {
		Token    timer.Token
		Duration time.Duration
		Repeat   bool
	}{m.nextToken, d, repeat})
	return m.nextToken
}

func (m *MockHost) CancelOnce(tok timer.Token) {
	m.cancel(tok, false)
}

func (m *MockHost) CancelRepeating(tok timer.Token) {
	m.cancel(tok, true)
}

func (m *MockHost) cancel(tok timer.Token, repeat bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelCalls = append(m.CancelCalls, struct {
		Token  timer.Token
		Repeat bool
	}{tok, repeat})
	if t, ok := m.timers[tok]; ok && t.repeat == repeat {
		delete(m.timers, tok)
	}
}

// ActiveTimers returns the number of live registrations.
func (m *MockHost) ActiveTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// FireAll fires every live timer once, in token order. Timers cancelled by
// an earlier callback in the same round are skipped.
func (m *MockHost) FireAll() int {
	m.mu.Lock()
	tokens := make([]timer.Token, 0, len(m.timers))
	for tok := range m.timers {
		tokens = append(tokens, tok)
	}
	m.mu.Unlock()
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

	fired := 0
	for _, tok := range tokens {
		m.mu.Lock()
		t, ok := m.timers[tok]
		if ok && !t.repeat {
			delete(m.timers, tok)
		}
		m.mu.Unlock()
		if ok {
			t.fire()
			fired++
		}
	}
	return fired
}

func (m *MockHost) ReadFileAsync(path, encoding string, cb func(error, string)) {
	m.mu.Lock()
	if m.PanicOnRead {
		m.mu.Unlock()
		panic("mock host: read failed")
	}
	r := pendingRead{path: path, encoding: encoding, cb: cb}
	if m.SyncReads {
		m.mu.Unlock()
		m.complete(r)
		return
	}
	m.reads = append(m.reads, r)
	m.mu.Unlock()
}

// CompleteReads settles every pending read from Files.
func (m *MockHost) CompleteReads() int {
	m.mu.Lock()
	reads := m.reads
	m.reads = nil
	m.mu.Unlock()

	for _, r := range reads {
		m.complete(r)
	}
	return len(reads)
}

func (m *MockHost) complete(r pendingRead) {
	m.mu.Lock()
	contents, ok := m.Files[r.path]
	m.mu.Unlock()
	if !ok {
		r.cb(&fs.PathError{Op: "open", Path: r.path, Err: fs.ErrNotExist}, "")
		return
	}
	r.cb(nil, contents)
}

// DrainPrints returns and clears captured prints.
func (m *MockHost) DrainPrints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := m.PrintCalls
	m.PrintCalls = nil
	return calls
}
