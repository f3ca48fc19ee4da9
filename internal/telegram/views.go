package telegram

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"echo-moon/internal/catalog"
	"echo-moon/internal/journal"
	"echo-moon/internal/lunar"
	"echo-moon/internal/practice"
	"echo-moon/internal/services"
	"echo-moon/internal/utils"
)

// панель практики перерисовывается раз в столько секунд
const panelRefreshEvery = 10

var errBadCallback = errors.New("malformed callback data")

// renderSession рисует панель живой сессии
func renderSession(v practice.View) string {
	emoji := utils.GetScenarioEmoji(v.ScenarioID)

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", emoji, html.EscapeString(v.Title))

	switch v.State {
	case practice.StateIntro:
		fmt.Fprintf(&b, "<i>%s</i>\n\n", html.EscapeString(v.Guidance))
		fmt.Fprintf(&b, "引导 %d/%d · 时长 %s", v.Segment+1, v.SegmentCount, utils.FormatClock(v.TotalDuration))
	case practice.StateRunning:
		fmt.Fprintf(&b, "⏳ <b>%s</b>\n\n", utils.FormatClock(v.TimeLeft))
		b.WriteString("闭上眼睛，跟随呼吸。")
	case practice.StatePaused:
		fmt.Fprintf(&b, "⏸ <b>%s</b>\n\n", utils.FormatClock(v.TimeLeft))
		b.WriteString("已暂停。准备好时继续。")
	case practice.StateExitConfirm:
		fmt.Fprintf(&b, "⏳ %s\n\n", utils.FormatClock(v.TimeLeft))
		b.WriteString("确定要离开吗？过短的练习不会被记录。")
	case practice.StateSummary:
		fmt.Fprintf(&b, "已练习 %s", utils.FormatClock(v.Elapsed))
	}
	return b.String()
}

// renderSummary итоговый экран практики
func renderSummary(rec journal.PracticeSession) string {
	var b strings.Builder
	if rec.Completed {
		b.WriteString("🌕 <b>练习完成</b>\n\n")
	} else {
		b.WriteString("🌗 <b>提前结束</b>\n\n")
	}
	fmt.Fprintf(&b, "%s %s\n", utils.GetScenarioEmoji(rec.ScenarioID), html.EscapeString(rec.ScenarioTitle))
	fmt.Fprintf(&b, "⏱ %s / %s\n", utils.FormatClock(rec.DurationSeconds), utils.FormatClock(rec.TotalDuration))
	fmt.Fprintf(&b, "⚡ 能量 %d %s", rec.EnergyScore, utils.EnergyBar(rec.EnergyScore))
	return b.String()
}

func sessionKeyboard(state practice.State) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	switch state {
	case practice.StateIntro:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶ 下一段", "intro_next"),
			tgbotapi.NewInlineKeyboardButtonData("✖ 退出", "exit"),
		))
	case practice.StateRunning:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏸ 暂停", "pause"),
			tgbotapi.NewInlineKeyboardButtonData("✅ 完成", "finish"),
			tgbotapi.NewInlineKeyboardButtonData("✖ 退出", "exit"),
		))
	case practice.StatePaused:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶ 继续", "resume"),
			tgbotapi.NewInlineKeyboardButtonData("✅ 完成", "finish"),
			tgbotapi.NewInlineKeyboardButtonData("✖ 退出", "exit"),
		))
	case practice.StateExitConfirm:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("确认退出", "exit_confirm"),
			tgbotapi.NewInlineKeyboardButtonData("返回", "exit_cancel"),
		))
	case practice.StateSummary:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌙 关闭", "close"),
		))
	default:
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func scenarioKeyboard(scenarios []practice.Scenario) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, sc := range scenarios {
		label := fmt.Sprintf("%s %s · %s", utils.GetScenarioEmoji(sc.ID), sc.Title, utils.FormatClock(sc.TotalDuration))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "scenario_"+sc.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// choiceKeyboard одна кнопка на строку: prefix_0, prefix_1, ...
func choiceKeyboard(prefix string, options []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, opt := range options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(opt, fmt.Sprintf("%s_%d", prefix, i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func reviewKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✨ 做到了", "review_done"),
			tgbotapi.NewInlineKeyboardButtonData("🌑 没做到", "review_missed"),
		),
	)
}

// parseIndex разбирает callback вида prefix_N
func parseIndex(data, prefix string) (int, error) {
	raw, ok := strings.CutPrefix(data, prefix+"_")
	if !ok {
		return 0, errBadCallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errBadCallback
	}
	return n, nil
}

// parseProfileArgs разбирает "/profile <YYYY-MM-DD> [HH:MM] [место]".
// skip=true для "/profile skip".
func parseProfileArgs(args string) (p journal.UserProfile, skip bool, err error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return journal.UserProfile{}, false, services.ErrInvalidProfile
	}
	if len(fields) == 1 && strings.EqualFold(fields[0], "skip") {
		return journal.UserProfile{}, true, nil
	}

	p.BirthDate = fields[0]
	rest := fields[1:]
	if len(rest) > 0 {
		if _, err := time.Parse("15:04", rest[0]); err == nil {
			p.BirthTime = rest[0]
			rest = rest[1:]
		}
	}
	p.BirthLocation = strings.Join(rest, " ")
	return p, false, nil
}

// parseMoonDate разбирает аргумент /moon; пустой аргумент означает сегодня
func parseMoonDate(arg string, cal *utils.Calendar) (time.Time, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return cal.Now(), nil
	}
	return cal.ParseDate(arg)
}

func renderDay(entry journal.DayEntry, cat *catalog.Catalog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 <b>%s</b>\n\n", entry.Date)

	if len(entry.Practices) == 0 {
		b.WriteString("🧘 还没有冥想\n")
	}
	for _, p := range entry.Practices {
		mark := "🌗"
		if p.Completed {
			mark = "🌕"
		}
		fmt.Fprintf(&b, "%s %s %s · ⚡%d\n", mark, html.EscapeString(p.ScenarioTitle),
			utils.FormatClock(p.DurationSeconds), p.EnergyScore)
	}

	if len(entry.SensoryLogs) > 0 {
		b.WriteString("\n")
	}
	for _, l := range entry.SensoryLogs {
		fmt.Fprintf(&b, "%s %s：%s\n", utils.GetSenseEmoji(string(l.SenseID)),
			html.EscapeString(l.SenseTitle), html.EscapeString(l.Content))
	}

	if a := entry.TodayAwareness; a != nil {
		name := a.CardID
		if card, ok := cat.Card(a.CardID); ok {
			name = card.Name
		}
		fmt.Fprintf(&b, "\n🃏 %s\n📖 %s · 深度 %d\n", html.EscapeString(name), html.EscapeString(a.SelectedTitle), a.ComplexityScore)
	}
	if s := entry.TomorrowSeed; s != nil {
		fmt.Fprintf(&b, "🌱 明日种子：%s\n", html.EscapeString(s.EnergySeed))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTrend(stats services.Stats, points []services.ChartPoint, insight string) string {
	var b strings.Builder
	b.WriteString("📈 <b>觉察轨迹</b>\n\n")
	fmt.Fprintf(&b, "🗓 觉察天数：%d\n", stats.TotalDays)
	fmt.Fprintf(&b, "✍️ 累计字数：%d\n", stats.TotalChars)
	if len(stats.TopKeywords) > 0 {
		tags := make([]string, len(stats.TopKeywords))
		for i, k := range stats.TopKeywords {
			tags[i] = "#" + html.EscapeString(k)
		}
		fmt.Fprintf(&b, "🔮 关键词：%s\n", strings.Join(tags, " "))
	}

	if len(points) > 7 {
		points = points[len(points)-7:]
	}
	if len(points) > 0 {
		b.WriteString("\n")
	}
	for _, p := range points {
		fmt.Fprintf(&b, "%s %s %s %d", p.Label, lunar.InfoFor(p.Phase).Emoji, utils.EnergyBar(p.Score), p.Score)
		if p.Title != "" {
			fmt.Fprintf(&b, " · %s", html.EscapeString(p.Title))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n🌙 <i>%s</i>", html.EscapeString(insight))
	return b.String()
}
