package services

import (
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"echo-moon/internal/database"
	"echo-moon/internal/lunar"
	"echo-moon/internal/utils"
)

// NotificationSender интерфейс для отправки уведомлений
type NotificationSender interface {
	SendMessage(text string) error
}

type NotificationService struct {
	sender     NotificationSender
	repository *database.Repository
	trend      *TrendService
	calendar   *utils.Calendar
	logger     *zap.Logger
}

func NewNotificationService(sender NotificationSender, repo *database.Repository, trend *TrendService, cal *utils.Calendar, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		sender:     sender,
		repository: repo,
		trend:      trend,
		calendar:   cal,
		logger:     logger,
	}
}

// SendMorningMoon отправляет утреннее сообщение с фазой луны
func (ns *NotificationService) SendMorningMoon() {
	details := lunar.ForTime(ns.calendar.Now())
	ns.send("morning", FormatMoon(ns.calendar.Today(), details))
}

// SendEveningReminder напоминает о вечерней рефлексии, если её ещё не было
func (ns *NotificationService) SendEveningReminder() {
	today := ns.calendar.Today()
	summary, err := ns.repository.GetDailySummary(today)
	if err != nil {
		ns.logger.Warn("⚠️ Ошибка получения сводки дня", zap.Error(err))
		return
	}
	if summary.HasAwareness {
		ns.logger.Debug("🌙 Рефлексия уже записана, напоминание не нужно", zap.String("date", today))
		return
	}

	ns.send("evening", "🌙 <b>夜深了</b>\n\n"+
		"今天还没有和自己对话。抽一张牌，聊聊今天吧：/reflect")
}

// SendDailySummary отправляет итоги дня
func (ns *NotificationService) SendDailySummary() {
	today := ns.calendar.Today()
	summary, err := ns.repository.GetDailySummary(today)
	if err != nil {
		ns.logger.Warn("⚠️ Ошибка получения сводки дня", zap.Error(err))
		return
	}
	ns.send("summary", FormatDailySummary(summary))
}

// SendWeeklyTrend отправляет недельную аналитику
func (ns *NotificationService) SendWeeklyTrend() {
	analytics, err := ns.trend.GetWeeklyAnalytics()
	if err != nil {
		ns.logger.Warn("⚠️ Ошибка получения недельной аналитики", zap.Error(err))
		return
	}
	ns.send("weekly", FormatWeekly(analytics))
}

func (ns *NotificationService) send(kind, text string) {
	ns.logger.Info("📨 Отправляю уведомление", zap.String("kind", kind))
	if err := ns.sender.SendMessage(text); err != nil {
		ns.logger.Error("❌ Ошибка отправки уведомления", zap.String("kind", kind), zap.Error(err))
	}
}

// FormatMoon форматирует фазу луны для сообщения
func FormatMoon(date string, d lunar.Details) string {
	info := lunar.InfoFor(d.Phase)

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s · %s</b>\n\n", info.Emoji, date, info.Name)
	fmt.Fprintf(&b, "亮度：%d%%\n", d.IlluminationPercent)
	fmt.Fprintf(&b, "月龄：%.1f 天\n\n", d.Age)
	fmt.Fprintf(&b, "✨ %s\n", info.Blessing)
	fmt.Fprintf(&b, "💡 %s", info.Tip)
	return b.String()
}

func FormatDailySummary(s *database.DailySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s 的回响</b>\n\n", s.Date)
	fmt.Fprintf(&b, "🧘 冥想：%d 次（完成 %d 次）\n", s.Practices, s.Completed)
	if s.Practices > 0 {
		fmt.Fprintf(&b, "⏱ 时长：%s\n", utils.FormatDuration(s.TotalSeconds))
		fmt.Fprintf(&b, "⚡ 最高能量：%d %s\n", s.BestEnergy, utils.EnergyBar(s.BestEnergy))
	}
	fmt.Fprintf(&b, "👁 知觉校准：%d 条\n", s.SensoryLogs)
	if s.HasAwareness {
		fmt.Fprintf(&b, "📖 今日标题：%s\n", html.EscapeString(s.SelectedTitle))
	} else {
		b.WriteString("📖 今日觉察：未记录\n")
	}
	if s.HasSeed {
		b.WriteString("🌱 明日种子已种下\n")
	}
	b.WriteString("\n明天又是新的月相 🌅")
	return b.String()
}

func FormatWeekly(a *database.WeeklyAnalytics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📈 <b>第 %d 周</b> (%s ~ %s)\n\n", a.WeekNumber, a.StartDate, a.EndDate)
	fmt.Fprintf(&b, "🧘 冥想：%d 次，完成 %d 次\n", a.TotalSessions, a.TotalDone)
	if a.TotalSessions > 0 {
		fmt.Fprintf(&b, "⏱ 总时长：%s\n", utils.FormatDuration(a.TotalSeconds))
		fmt.Fprintf(&b, "⚡ 平均能量：%.0f\n", a.AvgEnergy)
	}
	fmt.Fprintf(&b, "👁 知觉校准：%d 条\n\n", a.SensoryLogs)
	b.WriteString(a.Insights)
	return b.String()
}
