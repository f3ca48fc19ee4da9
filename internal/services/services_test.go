package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"echo-moon/internal/catalog"
	"echo-moon/internal/database"
	"echo-moon/internal/dialogue"
	"echo-moon/internal/journal"
	"echo-moon/internal/lunar"
	"echo-moon/internal/practice"
	"echo-moon/internal/utils"
)

// 2024-04-24 is a Wednesday of ISO week 17 and a full moon
var now = time.Date(2024, 4, 24, 20, 0, 0, 0, time.UTC)

type scriptedGenerator struct {
	replies map[dialogue.Mode]string
}

func (g scriptedGenerator) Generate(_ context.Context, req dialogue.Request) (string, error) {
	return g.replies[req.Mode], nil
}

type recordingSender struct {
	messages []string
}

func (s *recordingSender) SendMessage(text string) error {
	s.messages = append(s.messages, text)
	return nil
}

type fixture struct {
	sm     *ServiceManager
	db     *database.Database
	deps   Dependencies
	sender *recordingSender
}

func newFixture(t *testing.T, gen dialogue.Generator) *fixture {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "echo.db"), zap.NewNop())
	require.NoError(t, err)

	cat, err := catalog.Default()
	require.NoError(t, err)

	deps := Dependencies{
		Catalog:          cat,
		Guide:            dialogue.NewGuide(gen, zap.NewNop()),
		Calendar:         utils.NewFixedCalendar(time.UTC, now),
		Logger:           zap.NewNop(),
		Tick:             2 * time.Millisecond,
		DiscardThreshold: practice.DefaultDiscardThreshold,
	}

	ctx, cancel := context.WithCancel(context.Background())
	sm := NewServiceManager(ctx, db, deps)
	sender := &recordingSender{}
	sm.SetNotificationSender(sender)

	t.Cleanup(func() {
		sm.Practice.Shutdown()
		cancel()
		db.Close()
	})
	return &fixture{sm: sm, db: db, deps: deps, sender: sender}
}

func (f *fixture) entry(t *testing.T, date string) journal.DayEntry {
	t.Helper()
	e, ok, err := f.sm.Journal.Entry(date)
	require.NoError(t, err)
	require.True(t, ok, "no entry for %s", date)
	return e
}

func TestJournalService_UpsertsOneEntryPerDate(t *testing.T) {
	f := newFixture(t, nil)
	js := f.sm.Journal

	rec := journal.PracticeSession{ID: "p1", ScenarioID: "moon", ScenarioTitle: "月亮", DurationSeconds: 300,
		TotalDuration: 300, EnergyScore: 100, Completed: true, Timestamp: now}
	require.NoError(t, js.RecordPractice("2024-04-24", rec))

	rec.ID = "p2"
	require.NoError(t, js.RecordPractice("2024-04-24", rec))
	require.NoError(t, js.SaveAwareness("2024-04-24", journal.TodayAwareness{CardID: "c17", Status: journal.StatusDone}))
	require.NoError(t, js.RecordPractice("2024-04-22", rec))

	entries, err := js.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	day := f.entry(t, "2024-04-24")
	assert.Equal(t, lunar.FullMoon, day.MoonPhase)
	assert.Len(t, day.Practices, 2)
	require.NotNil(t, day.TodayAwareness)
	assert.Equal(t, "c17", day.TodayAwareness.CardID)

	assert.Equal(t, lunar.WaxingGibbous, f.entry(t, "2024-04-22").MoonPhase)

	_, ok, err := js.Entry("2024-01-01")
	require.NoError(t, err)
	assert.False(t, ok)
}

func nextTick(t *testing.T, ps *PracticeService) practice.Tick {
	t.Helper()
	select {
	case tk := <-ps.Ticks():
		return tk
	case <-time.After(2 * time.Second):
		t.Fatal("no tick delivered")
		return practice.Tick{}
	}
}

func toRunning(t *testing.T, ps *PracticeService, scenarioID string) {
	t.Helper()
	_, err := ps.Begin(scenarioID)
	require.NoError(t, err)
	for {
		res, err := ps.Advance()
		require.NoError(t, err)
		if res.View.State == practice.StateRunning {
			return
		}
	}
}

func TestPracticeService_RecordsOnSummary(t *testing.T) {
	f := newFixture(t, nil)
	ps := f.sm.Practice

	_, err := ps.Begin("sun")
	assert.ErrorIs(t, err, ErrUnknownScenario)
	assert.Len(t, ps.Scenarios(), 4)

	toRunning(t, ps, "star")
	for applied := 0; applied < 3; {
		if _, ok := ps.Tick(nextTick(t, ps)); ok {
			applied++
		}
	}

	res, err := ps.Finish()
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	assert.Equal(t, 10, res.Record.EnergyScore)

	day := f.entry(t, "2024-04-24")
	require.Len(t, day.Practices, 1)
	assert.Equal(t, "star", day.Practices[0].ScenarioID)
	assert.Equal(t, 3, day.Practices[0].DurationSeconds)

	rec, err := ps.Close()
	require.NoError(t, err)
	assert.Equal(t, res.Record.ID, rec.ID)
	assert.Len(t, f.entry(t, "2024-04-24").Practices, 1, "close must not store twice")
}

func TestPracticeService_DiscardedExitStoresNothing(t *testing.T) {
	f := newFixture(t, nil)
	ps := f.sm.Practice

	toRunning(t, ps, "moon")
	_, err := ps.RequestExit()
	require.NoError(t, err)
	res, err := ps.ConfirmExit()
	require.NoError(t, err)
	assert.True(t, res.Discarded)

	_, ok, err := f.sm.Journal.Entry("2024-04-24")
	require.NoError(t, err)
	assert.False(t, ok)
	_, live := ps.Current()
	assert.False(t, live)
}

func TestSensoryService(t *testing.T) {
	f := newFixture(t, nil)
	ss := f.sm.Sensory

	_, err := ss.Begin("sixth")
	assert.ErrorIs(t, err, ErrUnknownSense)

	_, err = ss.Save("something")
	assert.ErrorIs(t, err, ErrNothingPending)

	prompt, err := ss.Begin(" Visual ")
	require.NoError(t, err)
	assert.Contains(t, prompt.Sense.Tasks, prompt.Task)

	_, err = ss.Save("   ")
	assert.ErrorIs(t, err, journal.ErrEmptyObservation)
	_, pending := ss.Pending()
	assert.True(t, pending)

	log, err := ss.Save(" 窗台上的一点反光 ")
	require.NoError(t, err)
	assert.Equal(t, "窗台上的一点反光", log.Content)
	assert.Equal(t, "视觉", log.SenseTitle)
	assert.NotEmpty(t, log.ID)

	_, pending = ss.Pending()
	assert.False(t, pending)

	day := f.entry(t, "2024-04-24")
	require.Len(t, day.SensoryLogs, 1)
	assert.Equal(t, prompt.Task, day.SensoryLogs[0].Prompt)
}

func TestSensoryService_Cancel(t *testing.T) {
	f := newFixture(t, nil)
	ss := f.sm.Sensory

	_, err := ss.Begin("audio")
	require.NoError(t, err)

	ss.Cancel()
	_, pending := ss.Pending()
	assert.False(t, pending)

	_, err = ss.Save("雨声")
	assert.ErrorIs(t, err, ErrNothingPending)
}

// gatedGenerator holds chat replies until release is closed
type gatedGenerator struct {
	started chan struct{}
	release chan struct{}
}

func (g gatedGenerator) Generate(ctx context.Context, req dialogue.Request) (string, error) {
	if req.Mode != dialogue.ModeChat {
		return "", nil
	}
	g.started <- struct{}{}
	select {
	case <-g.release:
		return "嗯。", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestReflectionService_RestartWhileReplying(t *testing.T) {
	gen := gatedGenerator{started: make(chan struct{}, 1), release: make(chan struct{})}
	f := newFixture(t, gen)
	rs := f.sm.Reflection

	_, err := rs.Start(context.Background())
	require.NoError(t, err)

	errs := make(chan error, 1)
	go func() {
		_, _, err := rs.Reply(context.Background(), "今天很累")
		errs <- err
	}()
	<-gen.started

	// сервис не заблокирован, пока модель думает
	assert.True(t, rs.Active())
	_, err = rs.Start(context.Background())
	require.NoError(t, err)

	close(gen.release)
	assert.ErrorIs(t, <-errs, ErrNoReflection)

	// новый разговор не получил чужую реплику
	titles, err := rs.Titles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dialogue.FallbackTitles, titles)
	awareness, err := rs.ChooseTitle(0)
	require.NoError(t, err)
	assert.Len(t, awareness.ChatHistory, 1)
}

func TestReflectionService_FullEvening(t *testing.T) {
	gen := scriptedGenerator{replies: map[dialogue.Mode]string{
		dialogue.ModeCard:   "画面里哪一处最先抓住了你？",
		dialogue.ModeChat:   "那一刻身体有什么反应？",
		dialogue.ModeTitles: "雾中的路|加班后的月光|安静的勇气",
		dialogue.ModeSeeds:  "喝一杯温水|看一次日落",
		dialogue.ModeReview: "星辰为你加冕。",
	}}
	f := newFixture(t, gen)
	rs := f.sm.Reflection
	ctx := context.Background()

	_, _, err := rs.Reply(ctx, "你好")
	assert.ErrorIs(t, err, ErrNoReflection)

	opening, err := rs.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "画面里哪一处最先抓住了你？", opening.Question)
	_, ok := f.deps.Catalog.Card(opening.Card.ID)
	assert.True(t, ok)
	assert.True(t, rs.Active())

	reply, score, err := rs.Reply(ctx, "那只狼让我有点不安和焦虑")
	require.NoError(t, err)
	assert.Equal(t, "那一刻身体有什么反应？", reply)
	assert.Positive(t, score)

	titles, err := rs.Titles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"雾中的路", "加班后的月光", "安静的勇气"}, titles)

	_, err = rs.ChooseTitle(3)
	assert.ErrorIs(t, err, ErrInvalidChoice)

	awareness, err := rs.ChooseTitle(1)
	require.NoError(t, err)
	assert.Equal(t, "加班后的月光", awareness.SelectedTitle)
	assert.Len(t, awareness.ChatHistory, 3)
	assert.Equal(t, score, awareness.ComplexityScore)

	offer, err := rs.OfferSeeds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"喝一杯温水", "看一次日落"}, offer.Suggestions)

	_, err = rs.ChooseSeed(2)
	assert.ErrorIs(t, err, ErrInvalidChoice)

	seed, err := rs.ChooseSeed(1)
	require.NoError(t, err)
	assert.Equal(t, "看一次日落", seed.EnergySeed)
	assert.Equal(t, offer.Card.ID, seed.CardID)
	assert.False(t, rs.Active())

	day := f.entry(t, "2024-04-24")
	require.NotNil(t, day.TodayAwareness)
	require.NotNil(t, day.TomorrowSeed)
	assert.Equal(t, journal.StatusDone, day.TomorrowSeed.Status)

	// the next evening looks back on the seed
	tomorrow := NewReflectionService(f.sm.Journal, f.deps.Guide, f.deps.Catalog,
		utils.NewFixedCalendar(time.UTC, now.AddDate(0, 0, 1)))

	review, ok, err := tomorrow.PendingReview()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-04-24", review.Date)

	text, err := tomorrow.Review(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "星辰为你加冕。", text)

	_, ok, err = tomorrow.PendingReview()
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = tomorrow.Review(ctx, false)
	assert.ErrorIs(t, err, ErrNothingToReview)

	stored := f.entry(t, "2024-04-24").TomorrowSeed
	assert.True(t, stored.Reviewed)
	assert.True(t, stored.Achieved)
}

func TestReflectionService_FallbackTitles(t *testing.T) {
	f := newFixture(t, nil)
	rs := f.sm.Reflection
	ctx := context.Background()

	opening, err := rs.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, dialogue.FallbackCard, opening.Question)

	titles, err := rs.Titles(ctx)
	require.NoError(t, err)
	assert.Equal(t, dialogue.FallbackTitles, titles)

	_, err = rs.PlantSeed("早睡")
	assert.ErrorIs(t, err, ErrNoReflection, "a seed needs a drawn seed card")
}

func TestTrendService(t *testing.T) {
	f := newFixture(t, nil)
	js := f.sm.Journal

	awareness := func(card string, userText ...string) journal.TodayAwareness {
		a := journal.TodayAwareness{CardID: card, Status: journal.StatusDone, ComplexityScore: 40, SelectedTitle: "t-" + card}
		for _, txt := range userText {
			a.ChatHistory = append(a.ChatHistory,
				journal.Message{Role: journal.RoleModel, Text: "嗯？"},
				journal.Message{Role: journal.RoleUser, Text: txt})
		}
		return a
	}
	require.NoError(t, js.SaveAwareness("2024-04-20", awareness("c18", "有点不安")))
	require.NoError(t, js.SaveAwareness("2024-04-21", awareness("c17", "hope")))
	require.NoError(t, js.SaveAwareness("2024-04-23", awareness("c17")))
	require.NoError(t, js.RecordSensoryLog("2024-04-26", journal.SensoryLog{ID: "s", SenseID: journal.Taste, Content: "水", Timestamp: now}))

	stats, err := f.sm.Trend.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalDays)
	assert.Equal(t, 8, stats.TotalChars)
	assert.Equal(t, []string{"希望", "灵感", "宁静"}, stats.TopKeywords)

	points, err := f.sm.Trend.Chart()
	require.NoError(t, err)
	require.Len(t, points, 3, "future dates are not charted")
	assert.Equal(t, "04/20", points[0].Label)
	assert.Equal(t, 40, points[0].Score)
	assert.Equal(t, "t-c18", points[0].Title)
	assert.Equal(t, "2024-04-23", points[2].Date)

	insight, err := f.sm.Trend.MonthlyInsight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dialogue.FallbackInsight, insight)
}

func TestTrendService_TopKeywordsTieOrder(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.sm.Journal.SaveAwareness("2024-04-02", journal.TodayAwareness{CardID: "c1"}))
	require.NoError(t, f.sm.Journal.SaveAwareness("2024-04-01", journal.TodayAwareness{CardID: "c0"}))

	stats, err := f.sm.Trend.Stats()
	require.NoError(t, err)
	assert.Equal(t, []string{"新的开始", "天真", "自发性"}, stats.TopKeywords)
	assert.Zero(t, stats.TotalChars)
}

func TestTrendService_WeeklyAnalytics(t *testing.T) {
	f := newFixture(t, nil)
	js := f.sm.Journal

	rec := journal.PracticeSession{ID: "p1", ScenarioID: "moon", ScenarioTitle: "月亮", DurationSeconds: 300,
		TotalDuration: 300, EnergyScore: 100, Completed: true, Timestamp: now}
	require.NoError(t, js.RecordPractice("2024-04-22", rec))
	rec.ID, rec.EnergyScore, rec.Completed, rec.DurationSeconds = "p2", 20, false, 60
	require.NoError(t, js.RecordPractice("2024-04-28", rec))
	rec.ID = "p3"
	require.NoError(t, js.RecordPractice("2024-04-21", rec))

	week, err := f.sm.Trend.GetWeeklyAnalytics()
	require.NoError(t, err)
	assert.Equal(t, 17, week.WeekNumber)
	assert.Equal(t, "2024-04-22", week.StartDate)
	assert.Equal(t, "2024-04-28", week.EndDate)
	assert.Equal(t, 2, week.TotalSessions)
	assert.Equal(t, 1, week.TotalDone)
	assert.InDelta(t, 60.0, week.AvgEnergy, 0.001)
	assert.Contains(t, week.Insights, "知觉校准")
}

func TestFirstDayOfISOWeek(t *testing.T) {
	f := newFixture(t, nil)
	ts := f.sm.Trend

	assert.Equal(t, "2024-01-01", ts.firstDayOfISOWeek(2024, 1).Format(journal.DateLayout))
	assert.Equal(t, "2020-12-28", ts.firstDayOfISOWeek(2020, 53).Format(journal.DateLayout))
	assert.Equal(t, "2021-01-04", ts.firstDayOfISOWeek(2021, 1).Format(journal.DateLayout))
}

func TestProfileService(t *testing.T) {
	f := newFixture(t, nil)
	ps := f.sm.Profile

	_, ok, err := ps.Get()
	require.NoError(t, err)
	assert.False(t, ok)

	details, p, err := ps.NatalPhase()
	require.NoError(t, err)
	assert.True(t, p.IsSkipped)
	assert.Equal(t, lunar.WaningCrescent, details.Phase)

	assert.ErrorIs(t, ps.Save(journal.UserProfile{BirthDate: "21.01.2000"}), ErrInvalidProfile)
	assert.ErrorIs(t, ps.Save(journal.UserProfile{BirthDate: "2000-01-21", BirthTime: "25:00"}), ErrInvalidProfile)

	require.NoError(t, ps.Save(journal.UserProfile{BirthDate: "2000-01-21", BirthLocation: " 杭州 ", IsSkipped: true}))
	got, ok, err := ps.Get()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, journal.UserProfile{BirthDate: "2000-01-21", BirthTime: "00:00", BirthLocation: "杭州"}, got)

	details, _, err = ps.NatalPhase()
	require.NoError(t, err)
	assert.Equal(t, lunar.FullMoon, details.Phase)

	require.NoError(t, ps.Skip())
	got, _, err = ps.Get()
	require.NoError(t, err)
	assert.Equal(t, journal.DefaultProfile(), got)
}

func TestNotificationService(t *testing.T) {
	f := newFixture(t, nil)
	ns := f.sm.Notification

	ns.SendMorningMoon()
	require.Len(t, f.sender.messages, 1)
	assert.Contains(t, f.sender.messages[0], "满月")
	assert.Contains(t, f.sender.messages[0], "2024-04-24")

	ns.SendEveningReminder()
	require.Len(t, f.sender.messages, 2)
	assert.Contains(t, f.sender.messages[1], "/reflect")

	require.NoError(t, f.sm.Journal.SaveAwareness("2024-04-24",
		journal.TodayAwareness{CardID: "c9", Status: journal.StatusDone, SelectedTitle: "<独处>"}))
	ns.SendEveningReminder()
	assert.Len(t, f.sender.messages, 2, "no reminder once reflected")

	ns.SendDailySummary()
	require.Len(t, f.sender.messages, 3)
	assert.Contains(t, f.sender.messages[2], "&lt;独处&gt;")

	ns.SendWeeklyTrend()
	require.Len(t, f.sender.messages, 4)
	assert.True(t, strings.Contains(f.sender.messages[3], "第 17 周"))
}
