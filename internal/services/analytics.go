package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"echo-moon/internal/catalog"
	"echo-moon/internal/database"
	"echo-moon/internal/dialogue"
	"echo-moon/internal/journal"
	"echo-moon/internal/lunar"
	"echo-moon/internal/utils"
)

const topKeywords = 3

// Stats сводка по всему дневнику
type Stats struct {
	TotalDays   int
	TotalChars  int
	TopKeywords []string
}

// ChartPoint одна точка графика сложности разговоров
type ChartPoint struct {
	Date  string
	Label string
	Score int
	Title string
	Phase lunar.Phase
}

type TrendService struct {
	repository *database.Repository
	journal    *JournalService
	guide      *dialogue.Guide
	catalog    *catalog.Catalog
	calendar   *utils.Calendar
}

func NewTrendService(repo *database.Repository, js *JournalService, guide *dialogue.Guide, cat *catalog.Catalog, cal *utils.Calendar) *TrendService {
	return &TrendService{
		repository: repo,
		journal:    js,
		guide:      guide,
		catalog:    cat,
		calendar:   cal,
	}
}

func (ts *TrendService) Stats() (Stats, error) {
	entries, err := ts.journal.Entries()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalDays:   len(entries),
		TotalChars:  userChars(entries),
		TopKeywords: ts.topKeywords(entries),
	}, nil
}

// Chart точки до сегодняшнего дня включительно, по возрастанию даты
func (ts *TrendService) Chart() ([]ChartPoint, error) {
	entries, err := ts.journal.Entries()
	if err != nil {
		return nil, err
	}
	return chart(entries, ts.calendar.Today()), nil
}

func (ts *TrendService) MonthlyInsight(ctx context.Context) (string, error) {
	stats, err := ts.Stats()
	if err != nil {
		return "", err
	}
	return ts.guide.MonthlyInsight(ctx, stats.TopKeywords), nil
}

func (ts *TrendService) GetWeeklyAnalytics() (*database.WeeklyAnalytics, error) {
	now := ts.calendar.Now()
	year, week := now.ISOWeek()
	startDate := ts.firstDayOfISOWeek(year, week)
	endDate := startDate.AddDate(0, 0, 6)

	analytics, err := ts.repository.GetWeeklyAnalytics(
		startDate.Format(journal.DateLayout),
		endDate.Format(journal.DateLayout),
	)
	if err != nil {
		return nil, err
	}

	analytics.WeekNumber = week
	analytics.Insights = ts.generateInsights(analytics)

	return analytics, nil
}

func (ts *TrendService) generateInsights(analytics *database.WeeklyAnalytics) string {
	if analytics.TotalSessions == 0 && analytics.SensoryLogs == 0 {
		return "📊 本周还没有记录。从一次三分钟的星星呼吸开始吧。"
	}

	var insights []string

	if analytics.TotalSessions > 0 {
		completionRate := float64(analytics.TotalDone) / float64(analytics.TotalSessions) * 100
		switch {
		case completionRate < 50:
			insights = append(insights, "🌑 很多练习中途停下了。试试更短的星星呼吸。")
		case completionRate > 80:
			insights = append(insights, "🌕 几乎每次都走完了全程，节奏很稳。")
		default:
			insights = append(insights, "🌓 完成度在慢慢上升，继续保持。")
		}

		if analytics.AvgEnergy >= 80 {
			insights = append(insights, "⚡ 平均能量很高！")
		} else if analytics.AvgEnergy < 40 {
			insights = append(insights, "🔋 平均能量偏低，留意睡眠和休息。")
		}
	}

	if analytics.SensoryLogs == 0 {
		insights = append(insights, "👁 本周还没有知觉校准，可以试试 /sense visual")
	}

	return strings.Join(insights, "\n")
}

func (ts *TrendService) firstDayOfISOWeek(year, week int) time.Time {
	date := time.Date(year, 1, 1, 0, 0, 0, 0, ts.calendar.Location())
	isoYear, isoWeek := date.ISOWeek()

	for date.Weekday() != time.Monday {
		date = date.AddDate(0, 0, -1)
		isoYear, isoWeek = date.ISOWeek()
	}

	for isoYear < year {
		date = date.AddDate(0, 0, 7)
		isoYear, isoWeek = date.ISOWeek()
	}

	for isoWeek < week {
		date = date.AddDate(0, 0, 7)
		_, isoWeek = date.ISOWeek()
	}

	return date
}

// topKeywords считает ключевые слова карт дня; при равенстве выигрывает
// слово, встреченное раньше.
func (ts *TrendService) topKeywords(entries []journal.DayEntry) []string {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b journal.DayEntry) int { return strings.Compare(a.Date, b.Date) })

	counts := make(map[string]int)
	var order []string
	for _, e := range sorted {
		if e.TodayAwareness == nil || e.TodayAwareness.CardID == "" {
			continue
		}
		card, ok := ts.catalog.Card(e.TodayAwareness.CardID)
		if !ok {
			continue
		}
		for _, k := range card.Keywords {
			if counts[k] == 0 {
				order = append(order, k)
			}
			counts[k]++
		}
	}

	slices.SortStableFunc(order, func(a, b string) int { return counts[b] - counts[a] })
	if len(order) > topKeywords {
		order = order[:topKeywords]
	}
	return order
}

func userChars(entries []journal.DayEntry) int {
	total := 0
	for _, e := range entries {
		if e.TodayAwareness == nil {
			continue
		}
		for _, m := range e.TodayAwareness.ChatHistory {
			if m.Role == journal.RoleUser {
				total += utf8.RuneCountInString(m.Text)
			}
		}
	}
	return total
}

func chart(entries []journal.DayEntry, today string) []ChartPoint {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b journal.DayEntry) int { return strings.Compare(a.Date, b.Date) })

	var points []ChartPoint
	for _, e := range sorted {
		if e.Date > today {
			continue
		}
		p := ChartPoint{Date: e.Date, Label: chartLabel(e.Date), Phase: e.MoonPhase}
		if a := e.TodayAwareness; a != nil {
			p.Score = a.ComplexityScore
			p.Title = a.SelectedTitle
		}
		points = append(points, p)
	}
	return points
}

// chartLabel превращает YYYY-MM-DD в MM/DD
func chartLabel(date string) string {
	parts := strings.SplitN(date, "-", 3)
	if len(parts) != 3 {
		return date
	}
	return fmt.Sprintf("%s/%s", parts[1], parts[2])
}
