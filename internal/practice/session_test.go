package practice

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

type seqID struct{ n int }

func (s *seqID) New() string {
	s.n++
	return fmt.Sprintf("sess-%d", s.n)
}

var started = time.Date(2024, 4, 23, 21, 0, 0, 0, time.UTC)

func moonScenario(t *testing.T) Scenario {
	t.Helper()
	sc, err := NewScenario("moon", "月亮 · 潜意识净化", 300, []string{"想象你躺在荒原", "月光流淌下来", "你在发光"})
	require.NoError(t, err)
	return sc
}

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock{started}), WithIDGenerator(&seqID{})}, opts...)
	s, err := New(moonScenario(t), opts...)
	require.NoError(t, err)
	return s
}

func toRunning(t *testing.T, s *Session) {
	t.Helper()
	for s.State() == StateIntro {
		require.NoError(t, s.Advance())
	}
	require.Equal(t, StateRunning, s.State())
}

func tickN(t *testing.T, s *Session, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.Tick())
	}
}

func TestNewScenario_Validation(t *testing.T) {
	_, err := NewScenario("x", "X", 0, []string{"a"})
	assert.ErrorIs(t, err, ErrInvalidScenario)

	_, err = NewScenario("x", "X", -5, []string{"a"})
	assert.ErrorIs(t, err, ErrInvalidScenario)

	_, err = NewScenario("x", "X", 60, nil)
	assert.ErrorIs(t, err, ErrInvalidScenario)

	_, err = NewScenario("x", "X", 60, []string{"a", "  "})
	assert.ErrorIs(t, err, ErrInvalidScenario)

	_, err = NewScenario("", "X", 60, []string{"a"})
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestSplitGuidanceAndShortTitle(t *testing.T) {
	got := SplitGuidance("吸气——光芒汇聚。呼气——光芒爆发。 。你是银河的一部分。")
	assert.Equal(t, []string{"吸气——光芒汇聚", "呼气——光芒爆发", "你是银河的一部分"}, got)

	sc := Scenario{Title: "星星 · 宇宙呼吸"}
	assert.Equal(t, "星星", sc.ShortTitle())
	assert.Equal(t, "plain", Scenario{Title: "plain"}.ShortTitle())
}

func TestIntro_WalksEverySegment(t *testing.T) {
	s := newSession(t)
	assert.Equal(t, StateIntro, s.State())
	assert.Equal(t, 300, s.TimeLeft())
	assert.Equal(t, "想象你躺在荒原", s.Guidance())

	require.NoError(t, s.Advance())
	assert.Equal(t, StateIntro, s.State())
	assert.Equal(t, "月光流淌下来", s.Guidance())

	require.NoError(t, s.Advance())
	assert.Equal(t, StateIntro, s.State())
	assert.True(t, s.LastSegment())

	require.NoError(t, s.Advance())
	assert.Equal(t, StateRunning, s.State())
	assert.True(t, s.Ticking())

	assert.ErrorIs(t, s.Advance(), ErrInvalidTransition)
}

func TestNaturalCompletion(t *testing.T) {
	s := newSession(t)
	toRunning(t, s)
	tickN(t, s, 300)

	assert.Equal(t, StateSummary, s.State())
	assert.Equal(t, 0, s.TimeLeft())

	rec, ok := s.Record()
	require.True(t, ok)
	assert.True(t, rec.Completed)
	assert.Equal(t, 100, rec.EnergyScore)
	assert.Equal(t, 300, rec.DurationSeconds)
	assert.Equal(t, 300, rec.TotalDuration)
	assert.Equal(t, "moon", rec.ScenarioID)
	assert.Equal(t, "月亮", rec.ScenarioTitle)
	assert.Equal(t, "sess-1", rec.ID)
	assert.Equal(t, started, rec.Timestamp)

	assert.ErrorIs(t, s.Tick(), ErrInvalidTransition)
}

func TestManualFinish(t *testing.T) {
	s := newSession(t)
	toRunning(t, s)
	tickN(t, s, 200)

	require.NoError(t, s.Finish())
	rec, ok := s.Record()
	require.True(t, ok)
	assert.False(t, rec.Completed)
	assert.Equal(t, 66, rec.EnergyScore)
	assert.Equal(t, 200, rec.DurationSeconds)
}

func TestManualFinish_FromPausedAndMinimum(t *testing.T) {
	s := newSession(t)
	toRunning(t, s)
	tickN(t, s, 1)
	require.NoError(t, s.Pause())

	require.NoError(t, s.Finish())
	rec, _ := s.Record()
	assert.Equal(t, 10, rec.EnergyScore)
	assert.Equal(t, 1, rec.DurationSeconds)
}

func TestFinish_NotFromIntro(t *testing.T) {
	s := newSession(t)
	assert.ErrorIs(t, s.Finish(), ErrInvalidTransition)
}

func TestPause_StopsCountdown(t *testing.T) {
	s := newSession(t)
	toRunning(t, s)
	tickN(t, s, 10)

	require.NoError(t, s.Pause())
	assert.False(t, s.Ticking())
	assert.ErrorIs(t, s.Tick(), ErrInvalidTransition)
	assert.Equal(t, 290, s.TimeLeft())
	assert.ErrorIs(t, s.Pause(), ErrInvalidTransition)

	require.NoError(t, s.Resume())
	tickN(t, s, 1)
	assert.Equal(t, 289, s.TimeLeft())
	assert.ErrorIs(t, s.Resume(), ErrInvalidTransition)
}

func TestExitConfirm_DiscardsShortRuns(t *testing.T) {
	s := newSession(t)
	toRunning(t, s)
	tickN(t, s, 3)

	require.NoError(t, s.RequestExit())
	assert.Equal(t, StateExitConfirm, s.State())
	assert.ErrorIs(t, s.Tick(), ErrInvalidTransition)

	recorded, err := s.ConfirmExit()
	require.NoError(t, err)
	assert.False(t, recorded)
	assert.True(t, s.Discarded())
	assert.Equal(t, StateIdle, s.State())

	_, ok := s.Record()
	assert.False(t, ok)
}

func TestExitConfirm_AtThresholdDiscards(t *testing.T) {
	s := newSession(t)
	toRunning(t, s)
	tickN(t, s, 5)
	require.NoError(t, s.RequestExit())

	recorded, err := s.ConfirmExit()
	require.NoError(t, err)
	assert.False(t, recorded)
}

func TestExitConfirm_RecordsLongerRuns(t *testing.T) {
	s := newSession(t)
	toRunning(t, s)
	tickN(t, s, 6)
	require.NoError(t, s.RequestExit())

	recorded, err := s.ConfirmExit()
	require.NoError(t, err)
	assert.True(t, recorded)
	assert.Equal(t, StateSummary, s.State())

	rec, ok := s.Record()
	require.True(t, ok)
	assert.False(t, rec.Completed)
	assert.Equal(t, 10, rec.EnergyScore)
	assert.Equal(t, 6, rec.DurationSeconds)
}

func TestExitConfirm_FromIntroIsDiscarded(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.RequestExit())

	recorded, err := s.ConfirmExit()
	require.NoError(t, err)
	assert.False(t, recorded)
	assert.Equal(t, StateIdle, s.State())
}

func TestExitConfirm_CustomThreshold(t *testing.T) {
	s := newSession(t, WithDiscardThreshold(10))
	toRunning(t, s)
	tickN(t, s, 6)
	require.NoError(t, s.RequestExit())

	recorded, err := s.ConfirmExit()
	require.NoError(t, err)
	assert.False(t, recorded)
}

func TestCancelExit(t *testing.T) {
	t.Run("back to intro", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, s.Advance())
		require.NoError(t, s.RequestExit())
		require.NoError(t, s.CancelExit())
		assert.Equal(t, StateIntro, s.State())
		assert.Equal(t, 1, s.Segment())
	})

	t.Run("running resumes", func(t *testing.T) {
		s := newSession(t)
		toRunning(t, s)
		require.NoError(t, s.RequestExit())
		require.NoError(t, s.CancelExit())
		assert.Equal(t, StateRunning, s.State())
	})

	t.Run("paused resumes running", func(t *testing.T) {
		s := newSession(t)
		toRunning(t, s)
		require.NoError(t, s.Pause())
		require.NoError(t, s.RequestExit())
		assert.Equal(t, StateRunning, s.ExitResumes())
		require.NoError(t, s.CancelExit())
		assert.Equal(t, StateRunning, s.State())
	})

	t.Run("nothing to cancel", func(t *testing.T) {
		s := newSession(t)
		assert.ErrorIs(t, s.CancelExit(), ErrInvalidTransition)
		_, err := s.ConfirmExit()
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestClose(t *testing.T) {
	s := newSession(t)
	_, err := s.Close()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	toRunning(t, s)
	tickN(t, s, 120)
	require.NoError(t, s.Finish())

	rec, err := s.Close()
	require.NoError(t, err)
	assert.Equal(t, 40, rec.EnergyScore)
	assert.Equal(t, StateIdle, s.State())

	_, err = s.Close()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, s.RequestExit(), ErrInvalidTransition)
}

func TestEnergyScore_Invariants(t *testing.T) {
	for total := 1; total <= 400; total += 7 {
		assert.Equal(t, 100, EnergyScore(total, total, true))
		for elapsed := 0; elapsed < total; elapsed++ {
			got := EnergyScore(elapsed, total, false)
			require.GreaterOrEqual(t, got, 10)
			require.Less(t, got, 100)
		}
	}
	assert.Equal(t, 66, EnergyScore(200, 300, false))
	assert.Equal(t, 29, EnergyScore(29, 100, false))
}

func TestTimeLeft_StaysInRange(t *testing.T) {
	sc, err := NewScenario("short", "Short", 3, []string{"go"})
	require.NoError(t, err)
	s, err := New(sc)
	require.NoError(t, err)

	require.NoError(t, s.Advance())
	for s.State() == StateRunning {
		require.NoError(t, s.Tick())
		assert.GreaterOrEqual(t, s.TimeLeft(), 0)
		assert.LessOrEqual(t, s.TimeLeft(), 3)
	}
	assert.Equal(t, StateSummary, s.State())

	rec, ok := s.Record()
	require.True(t, ok)
	assert.NotEmpty(t, rec.ID)
}
