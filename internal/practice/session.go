// Package practice drives one timed guided meditation: paced intro text, a
// pausable countdown, and a scored summary with an early-exit sub-flow.
package practice

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"echo-moon/internal/journal"
)

// DefaultDiscardThreshold is how many engaged seconds an exited run needs
// before it is recorded instead of discarded.
const DefaultDiscardThreshold = 5

const (
	minEnergy = 10
	maxEnergy = 100
)

// State is the phase of a guided run.
type State int

const (
	StateIdle State = iota
	StateIntro
	StateRunning
	StatePaused
	StateExitConfirm
	StateSummary
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIntro:
		return "intro"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateExitConfirm:
		return "exit_confirm"
	case StateSummary:
		return "summary"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Active reports whether the countdown phase has begun and not ended.
func (s State) Active() bool {
	return s == StateRunning || s == StatePaused
}

// Clock supplies the start time stamped on records.
type Clock interface {
	Now() time.Time
}

// IDGenerator supplies record identifiers.
type IDGenerator interface {
	New() string
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// uuidV7 yields time-ordered identifiers.
type uuidV7 struct{}

func (uuidV7) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Option configures a Session.
type Option func(*Session)

func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

func WithIDGenerator(g IDGenerator) Option {
	return func(s *Session) { s.ids = g }
}

// WithDiscardThreshold sets the elapsed seconds at or below which a
// confirmed exit leaves no record.
func WithDiscardThreshold(seconds int) Option {
	return func(s *Session) { s.discardAfter = seconds }
}

// Session is the state machine of a single guided run. It is not safe for
// concurrent use; Manager serializes access.
type Session struct {
	scenario     Scenario
	state        State
	resume       State
	segment      int
	timeLeft     int
	discardAfter int
	discarded    bool

	clock Clock
	ids   IDGenerator

	record *journal.PracticeSession
}

// New starts a run of sc in the intro state.
func New(sc Scenario, opts ...Option) (*Session, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		scenario:     sc,
		state:        StateIntro,
		timeLeft:     sc.TotalDuration,
		discardAfter: DefaultDiscardThreshold,
		clock:        systemClock{},
		ids:          uuidV7{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Session) State() State { return s.state }
func (s *Session) Scenario() Scenario { return s.scenario }
func (s *Session) Segment() int { return s.segment }
func (s *Session) TimeLeft() int { return s.timeLeft }
func (s *Session) Discarded() bool { return s.discarded }
func (s *Session) Elapsed() int { return s.scenario.TotalDuration - s.timeLeft }
func (s *Session) Ticking() bool { return s.state == StateRunning }
func (s *Session) Guidance() string { return s.scenario.Guidance[s.segment] }
func (s *Session) LastSegment() bool { return s.segment == len(s.scenario.Guidance)-1 }
func (s *Session) ExitResumes() State { return s.resume }

// Record returns the finished session once the summary has been reached.
func (s *Session) Record() (journal.PracticeSession, bool) {
	if s.record == nil {
		return journal.PracticeSession{}, false
	}
	return *s.record, true
}

// Advance acknowledges the current guidance segment. Acknowledging the last
// segment starts the countdown.
func (s *Session) Advance() error {
	if err := s.expect("advance", StateIntro); err != nil {
		return err
	}
	if s.segment < len(s.scenario.Guidance)-1 {
		s.segment++
		return nil
	}
	s.state = StateRunning
	return nil
}

// Tick consumes one second of countdown. Reaching zero completes the run.
func (s *Session) Tick() error {
	if err := s.expect("tick", StateRunning); err != nil {
		return err
	}
	s.timeLeft--
	if s.timeLeft <= 0 {
		s.timeLeft = 0
		s.finish(true)
	}
	return nil
}

func (s *Session) Pause() error {
	if err := s.expect("pause", StateRunning); err != nil {
		return err
	}
	s.state = StatePaused
	return nil
}

func (s *Session) Resume() error {
	if err := s.expect("resume", StatePaused); err != nil {
		return err
	}
	s.state = StateRunning
	return nil
}

// Finish ends an active run early and records the engaged share.
func (s *Session) Finish() error {
	if err := s.expect("finish", StateRunning, StatePaused); err != nil {
		return err
	}
	s.finish(false)
	return nil
}

// RequestExit opens the exit confirmation and halts the countdown.
func (s *Session) RequestExit() error {
	if err := s.expect("request exit", StateIntro, StateRunning, StatePaused); err != nil {
		return err
	}
	s.resume = StateIntro
	if s.state.Active() {
		s.resume = StateRunning
	}
	s.state = StateExitConfirm
	return nil
}

// CancelExit returns to the intro, or to a running countdown if the exit was
// requested during the active phase.
func (s *Session) CancelExit() error {
	if err := s.expect("cancel exit", StateExitConfirm); err != nil {
		return err
	}
	s.state = s.resume
	return nil
}

// ConfirmExit records the run when enough time was engaged, otherwise it
// discards it and the session goes idle. It reports whether a record exists.
func (s *Session) ConfirmExit() (bool, error) {
	if err := s.expect("confirm exit", StateExitConfirm); err != nil {
		return false, err
	}
	if s.Elapsed() > s.discardAfter {
		s.finish(false)
		return true, nil
	}
	s.discarded = true
	s.state = StateIdle
	return false, nil
}

// Close leaves the summary and hands back the record.
func (s *Session) Close() (journal.PracticeSession, error) {
	if err := s.expect("close", StateSummary); err != nil {
		return journal.PracticeSession{}, err
	}
	s.state = StateIdle
	return *s.record, nil
}

func (s *Session) finish(completed bool) {
	elapsed := s.Elapsed()
	if completed {
		elapsed = s.scenario.TotalDuration
	}

	s.record = &journal.PracticeSession{
		ID:              s.ids.New(),
		ScenarioID:      s.scenario.ID,
		ScenarioTitle:   s.scenario.ShortTitle(),
		DurationSeconds: elapsed,
		TotalDuration:   s.scenario.TotalDuration,
		EnergyScore:     EnergyScore(elapsed, s.scenario.TotalDuration, completed),
		Completed:       completed,
		Timestamp:       s.clock.Now(),
	}
	s.state = StateSummary
}

func (s *Session) expect(op string, allowed ...State) error {
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, s.state)
}

// EnergyScore is 100 for a natural completion, otherwise the floored engaged
// percentage with a floor of 10.
func EnergyScore(elapsed, total int, completed bool) int {
	if completed {
		return maxEnergy
	}
	if total <= 0 {
		return minEnergy
	}
	percent := elapsed * 100 / total
	return min(maxEnergy-1, max(minEnergy, percent))
}
