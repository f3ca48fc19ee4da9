package practice

import (
	"context"
	"sync"
	"time"

	"echo-moon/internal/journal"
)

// View is a read-only snapshot of the live session.
type View struct {
	ScenarioID    string
	Title         string
	State         State
	Segment       int
	SegmentCount  int
	Guidance      string
	TimeLeft      int
	TotalDuration int
	Elapsed       int
}

// Result describes what an operation did. Record is set only by the
// operation that entered the summary; Discarded only by a discarding exit.
type Result struct {
	View      View
	Record    *journal.PracticeSession
	Discarded bool
}

// Manager owns at most one live session and the countdown feeding it.
// Ticks are delivered on Ticks() and must be handed back through Tick by
// the caller's event loop, so the session itself is only ever driven from
// that loop.
type Manager struct {
	ctx  context.Context
	opts []Option

	mu        sync.Mutex
	session   *Session
	countdown *Countdown
	run       uint64
	ticks     chan Tick
}

func NewManager(ctx context.Context, interval time.Duration, opts ...Option) *Manager {
	return &Manager{
		ctx:       ctx,
		opts:      opts,
		countdown: NewCountdown(interval),
		ticks:     make(chan Tick, 1),
	}
}

func (m *Manager) Ticks() <-chan Tick {
	return m.ticks
}

// Begin starts sc. A session that is still live is discarded first and its
// countdown stopped before the new run exists.
func (m *Manager) Begin(sc Scenario) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := New(sc, m.opts...)
	if err != nil {
		return View{}, err
	}

	m.countdown.Stop()
	m.run++
	m.session = s
	return m.view(), nil
}

// Current returns the live session snapshot.
func (m *Manager) Current() (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return View{}, false
	}
	return m.view(), true
}

func (m *Manager) Advance() (Result, error) {
	return m.apply((*Session).Advance)
}

func (m *Manager) Pause() (Result, error) {
	return m.apply((*Session).Pause)
}

func (m *Manager) Resume() (Result, error) {
	return m.apply((*Session).Resume)
}

func (m *Manager) Finish() (Result, error) {
	return m.apply((*Session).Finish)
}

func (m *Manager) RequestExit() (Result, error) {
	return m.apply((*Session).RequestExit)
}

func (m *Manager) CancelExit() (Result, error) {
	return m.apply((*Session).CancelExit)
}

func (m *Manager) ConfirmExit() (Result, error) {
	return m.apply(func(s *Session) error {
		_, err := s.ConfirmExit()
		return err
	})
}

// Close leaves the summary. The record was already reported when the
// summary was entered; it is returned again for display only.
func (m *Manager) Close() (journal.PracticeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return journal.PracticeSession{}, ErrNoActiveSession
	}
	rec, err := m.session.Close()
	if err != nil {
		return journal.PracticeSession{}, err
	}
	m.reconcile()
	return rec, nil
}

// Tick applies one countdown beat. Beats from an earlier run or arriving
// while the session is not running are dropped and reported as not applied.
func (m *Manager) Tick(t Tick) (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || t.Run != m.run || !m.session.Ticking() {
		return Result{}, false
	}
	res, err := m.step((*Session).Tick)
	if err != nil {
		return Result{}, false
	}
	return res, true
}

// Shutdown stops any countdown and drops the live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.countdown.Stop()
	m.session = nil
	m.run++
}

// CountdownRunning reports whether the ticking goroutine is alive.
func (m *Manager) CountdownRunning() bool {
	return m.countdown.Running()
}

func (m *Manager) apply(op func(*Session) error) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return Result{}, ErrNoActiveSession
	}
	return m.step(op)
}

func (m *Manager) step(op func(*Session) error) (Result, error) {
	s := m.session
	before := s.State()

	if err := op(s); err != nil {
		return Result{View: m.view()}, err
	}

	res := Result{View: m.view()}
	if before != StateSummary && s.State() == StateSummary {
		rec, _ := s.Record()
		res.Record = &rec
	}
	res.Discarded = s.Discarded()

	m.reconcile()
	return res, nil
}

// reconcile keeps the countdown alive exactly while the session is running
// and forgets sessions that went idle.
func (m *Manager) reconcile() {
	s := m.session
	switch {
	case s == nil || s.State() == StateIdle:
		m.countdown.Stop()
		m.session = nil
	case s.Ticking():
		if !m.countdown.Running() {
			// beats buffered before a pause belong to the old run
			m.run++
			m.countdown.Start(m.ctx, m.run, m.ticks)
		}
	default:
		m.countdown.Stop()
	}
}

func (m *Manager) view() View {
	s := m.session
	sc := s.Scenario()
	return View{
		ScenarioID:    sc.ID,
		Title:         sc.Title,
		State:         s.State(),
		Segment:       s.Segment(),
		SegmentCount:  len(sc.Guidance),
		Guidance:      s.Guidance(),
		TimeLeft:      s.TimeLeft(),
		TotalDuration: sc.TotalDuration,
		Elapsed:       s.Elapsed(),
	}
}
