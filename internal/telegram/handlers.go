package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"echo-moon/internal/journal"
	"echo-moon/internal/lunar"
	"echo-moon/internal/services"
	"echo-moon/internal/utils"
)

// handlers.go - обработчики команд Telegram бота

const helpText = `🌙 <b>Echo Moon · 月相回响</b>

/moon [日期] - 月相
/natal - 出生月相
/profile 1990-05-01 [08:30] [地点] - 设置出生信息
/profile skip - 跳过
/practice - 冥想
/sense visual|audio|touch|smell|taste - 知觉校准
/reflect - 今日觉察
/title - 为今天命名
/seed [文字] - 种下明日种子
/today - 今天的记录
/trend - 觉察轨迹
/week - 本周回响
/help - 帮助`

func (b *Bot) handleStart(_ context.Context, _ *tgbotapi.Message) {
	b.SendMessageOrLogError(helpText)

	_, ok, err := b.services.Profile.Get()
	if err != nil {
		b.reportError(err)
		return
	}
	if !ok {
		b.SendMessageOrLogError("🌱 先告诉我你的出生日期吧：\n/profile 1990-05-01 08:30 上海\n不想填写可以 /profile skip")
	}
}

func (b *Bot) handleHelp(_ context.Context, _ *tgbotapi.Message) {
	b.SendMessageOrLogError(helpText)
}

func (b *Bot) handleMoon(_ context.Context, msg *tgbotapi.Message) {
	cal := b.services.Calendar
	day, err := parseMoonDate(msg.CommandArguments(), cal)
	if err != nil {
		b.SendMessageOrLogError("❌ 日期格式：YYYY-MM-DD")
		return
	}
	date := day.Format("2006-01-02")
	b.SendMessageOrLogError(services.FormatMoon(date, lunar.ForTime(day)))
}

func (b *Bot) handleNatal(_ context.Context, _ *tgbotapi.Message) {
	details, profile, err := b.services.Profile.NatalPhase()
	if err != nil {
		b.reportError(err)
		return
	}

	var message strings.Builder
	message.WriteString("🌌 <b>你的出生月相</b>\n")
	if profile.IsSkipped {
		message.WriteString("<i>未设置出生信息，使用默认值</i>\n")
	}
	message.WriteString("\n")
	message.WriteString(services.FormatMoon(profile.BirthDate, details))
	fmt.Fprintf(&message, "\n\n📍 %s · %s", html.EscapeString(profile.BirthLocation), profile.BirthTime)
	b.SendMessageOrLogError(message.String())
}

func (b *Bot) handleProfile(_ context.Context, msg *tgbotapi.Message) {
	args := msg.CommandArguments()
	if strings.TrimSpace(args) == "" {
		profile, ok, err := b.services.Profile.Get()
		if err != nil {
			b.reportError(err)
			return
		}
		if !ok {
			b.reportError(services.ErrInvalidProfile)
			return
		}
		b.SendMessageOrLogError(fmt.Sprintf("👤 %s %s · %s",
			profile.BirthDate, profile.BirthTime, html.EscapeString(profile.BirthLocation)))
		return
	}

	profile, skip, err := parseProfileArgs(args)
	if err != nil {
		b.reportError(err)
		return
	}
	if skip {
		if err := b.services.Profile.Skip(); err != nil {
			b.reportError(err)
			return
		}
		b.SendMessageOrLogError("👌 已跳过。随时可以用 /profile 补充")
		return
	}
	if err := b.services.Profile.Save(profile); err != nil {
		b.reportError(err)
		return
	}
	b.SendMessageOrLogError("✅ 出生信息已保存。看看 /natal")
}

func (b *Bot) handlePractice(_ context.Context, _ *tgbotapi.Message) {
	b.sendWithKeyboard("🧘 <b>选择冥想场景</b>", scenarioKeyboard(b.services.Practice.Scenarios()))
}

func (b *Bot) handleScenario(id string, pickerID int) {
	b.services.Sensory.Cancel()
	if b.panelID != 0 {
		b.editMessage(b.panelID, "🌫 上一次练习已被新的练习取代", nil)
		b.panelID = 0
	}

	view, err := b.services.Practice.Begin(id)
	if err != nil {
		b.reportError(err)
		return
	}
	b.safeDeleteMessage(pickerID)

	if sc, ok := b.services.Catalog.Scenario(id); ok && sc.Description != "" {
		b.SendMessageOrLogError(fmt.Sprintf("%s <i>%s</i>", utils.GetScenarioEmoji(id), html.EscapeString(sc.Description)))
	}
	keyboard := sessionKeyboard(view.State)
	if keyboard != nil {
		b.panelID = b.sendWithKeyboard(renderSession(view), *keyboard)
	}
}

func (b *Bot) handleClose() {
	rec, err := b.services.Practice.Close()
	if err != nil {
		b.reportError(err)
		return
	}
	if b.panelID != 0 {
		b.editMessage(b.panelID, renderSummary(rec), nil)
		b.panelID = 0
	}
}

func (b *Bot) handleSense(_ context.Context, msg *tgbotapi.Message) {
	id := msg.CommandArguments()
	if strings.TrimSpace(id) == "" {
		var message strings.Builder
		message.WriteString("👁 <b>知觉校准</b>\n\n")
		for _, s := range b.services.Catalog.Senses {
			fmt.Fprintf(&message, "%s /sense %s · %s\n", utils.GetSenseEmoji(string(s.ID)), s.ID, html.EscapeString(s.Title))
		}
		b.SendMessageOrLogError(message.String())
		return
	}

	prompt, err := b.services.Sensory.Begin(id)
	if err != nil {
		b.reportError(err)
		return
	}

	var message strings.Builder
	fmt.Fprintf(&message, "%s <b>%s</b>\n\n", utils.GetSenseEmoji(string(prompt.Sense.ID)), html.EscapeString(prompt.Sense.Title))
	if prompt.Sense.Guide != "" {
		fmt.Fprintf(&message, "<i>%s</i>\n\n", html.EscapeString(prompt.Sense.Guide))
	}
	fmt.Fprintf(&message, "📝 %s\n\n写下你的观察：", html.EscapeString(prompt.Task))
	b.SendMessageOrLogError(message.String())
}

// handleText отдаёт свободный текст ожидающему наблюдению или разговору
func (b *Bot) handleText(ctx context.Context, text string) {
	if _, ok := b.services.Sensory.Pending(); ok {
		entry, err := b.services.Sensory.Save(text)
		if err != nil {
			b.reportError(err)
			return
		}
		b.SendMessageOrLogError(fmt.Sprintf("✅ 已记录 %s %s 的观察", utils.GetSenseEmoji(string(entry.SenseID)), html.EscapeString(entry.SenseTitle)))
		return
	}

	if b.services.Reflection.Active() {
		b.background(ctx, func(ctx context.Context) func() {
			reply, score, err := b.services.Reflection.Reply(ctx, text)
			return func() {
				if err != nil {
					b.reportError(err)
					return
				}
				b.SendMessageOrLogError(fmt.Sprintf("%s\n\n<i>深度 %d · 准备好了就 /title</i>", html.EscapeString(reply), score))
			}
		})
		return
	}

	b.SendMessageOrLogError("🌙 试试 /reflect 开始今天的觉察，或 /help")
}

// handleReflect сбрасывает ожидающее наблюдение: дальше текст идёт в разговор
func (b *Bot) handleReflect(ctx context.Context, _ *tgbotapi.Message) {
	b.services.Sensory.Cancel()

	review, ok, err := b.services.Reflection.PendingReview()
	if err != nil {
		b.reportError(err)
		return
	}
	if ok {
		b.sendWithKeyboard(fmt.Sprintf("🌱 昨天的种子：<b>%s</b>\n\n做到了吗？", html.EscapeString(review.Seed.EnergySeed)), reviewKeyboard())
		return
	}
	b.startReflection(ctx)
}

func (b *Bot) handleReview(ctx context.Context, achieved bool, messageID int) {
	b.background(ctx, func(ctx context.Context) func() {
		reply, err := b.services.Reflection.Review(ctx, achieved)
		if err != nil {
			return func() { b.reportError(err) }
		}
		opening, err := b.services.Reflection.Start(ctx)
		return func() {
			b.safeDeleteMessage(messageID)
			b.SendMessageOrLogError("🌙 " + html.EscapeString(reply))
			b.showOpening(opening, err)
		}
	})
}

func (b *Bot) startReflection(ctx context.Context) {
	b.background(ctx, func(ctx context.Context) func() {
		opening, err := b.services.Reflection.Start(ctx)
		return func() { b.showOpening(opening, err) }
	})
}

func (b *Bot) showOpening(opening services.Opening, err error) {
	if err != nil {
		b.reportError(err)
		return
	}

	card := opening.Card
	caption := fmt.Sprintf("🃏 <b>%s</b>\n<i>%s</i>\n\n%s",
		html.EscapeString(card.Name), html.EscapeString(strings.Join(card.Keywords, " · ")), html.EscapeString(opening.Question))
	if card.ImageURL == "" {
		b.SendMessageOrLogError(caption)
		return
	}

	photo := tgbotapi.NewPhoto(b.chatID, tgbotapi.FileURL(card.ImageURL))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if _, err := b.client.Send(photo); err != nil {
		b.logger.Warn("⚠️ Не удалось отправить карту", zap.String("card", card.ID), zap.Error(err))
		b.SendMessageOrLogError(caption)
	}
}

func (b *Bot) handleTitle(ctx context.Context, _ *tgbotapi.Message) {
	b.background(ctx, func(ctx context.Context) func() {
		titles, err := b.services.Reflection.Titles(ctx)
		return func() {
			if err != nil {
				b.reportError(err)
				return
			}
			b.sendWithKeyboard("📖 <b>为今天选一个标题</b>", choiceKeyboard("title", titles))
		}
	})
}

func (b *Bot) handleTitleChoice(ctx context.Context, data string, messageID int) {
	n, err := parseIndex(data, "title")
	if err != nil {
		b.logger.Warn("⚠️ Некорректный callback", zap.String("data", data))
		return
	}
	awareness, err := b.services.Reflection.ChooseTitle(n)
	if err != nil {
		b.reportError(err)
		return
	}
	b.safeDeleteMessage(messageID)
	b.SendMessageOrLogError(fmt.Sprintf("✅ 今天的标题：<b>%s</b>", html.EscapeString(awareness.SelectedTitle)))
	b.offerSeeds(ctx)
}

func (b *Bot) handleSeed(ctx context.Context, msg *tgbotapi.Message) {
	if text := strings.TrimSpace(msg.CommandArguments()); text != "" {
		b.plantSeed(ctx, text)
		return
	}
	b.offerSeeds(ctx)
}

func (b *Bot) offerSeeds(ctx context.Context) {
	b.background(ctx, func(ctx context.Context) func() {
		offer, err := b.services.Reflection.OfferSeeds(ctx)
		return func() {
			if err != nil {
				b.reportError(err)
				return
			}
			text := fmt.Sprintf("🌱 <b>明日种子</b> · %s\n\n选一个，或发送 /seed 你自己的种子", html.EscapeString(offer.Card.Name))
			b.sendWithKeyboard(text, choiceKeyboard("seed", offer.Suggestions))
		}
	})
}

// plantSeed сажает собственное семя; карта семени тянется, если её ещё нет
func (b *Bot) plantSeed(ctx context.Context, text string) {
	seed, err := b.services.Reflection.PlantSeed(text)
	if errors.Is(err, services.ErrNoReflection) && b.services.Reflection.Active() {
		b.background(ctx, func(ctx context.Context) func() {
			var planted journal.TomorrowSeed
			_, err := b.services.Reflection.OfferSeeds(ctx)
			if err == nil {
				planted, err = b.services.Reflection.PlantSeed(text)
			}
			return func() { b.seedPlanted(planted, err) }
		})
		return
	}
	b.seedPlanted(seed, err)
}

func (b *Bot) seedPlanted(seed journal.TomorrowSeed, err error) {
	if err != nil {
		b.reportError(err)
		return
	}
	b.SendMessageOrLogError(fmt.Sprintf("🌱 已种下：<b>%s</b>\n晚安 🌙", html.EscapeString(seed.EnergySeed)))
}

func (b *Bot) handleSeedChoice(data string, messageID int) {
	n, err := parseIndex(data, "seed")
	if err != nil {
		b.logger.Warn("⚠️ Некорректный callback", zap.String("data", data))
		return
	}
	seed, err := b.services.Reflection.ChooseSeed(n)
	if err == nil {
		b.safeDeleteMessage(messageID)
	}
	b.seedPlanted(seed, err)
}

func (b *Bot) handleToday(_ context.Context, _ *tgbotapi.Message) {
	today := b.services.Calendar.Today()
	entry, ok, err := b.services.Journal.Entry(today)
	if err != nil {
		b.reportError(err)
		return
	}
	if !ok {
		b.SendMessageOrLogError("📭 今天还没有记录")
		return
	}

	message := renderDay(entry, b.services.Catalog) + "\n\n" + b.services.Calendar.GetTimezoneInfo()
	b.SendMessageOrLogError(message)
}

func (b *Bot) handleTrend(ctx context.Context, _ *tgbotapi.Message) {
	stats, err := b.services.Trend.Stats()
	if err != nil {
		b.reportError(err)
		return
	}
	points, err := b.services.Trend.Chart()
	if err != nil {
		b.reportError(err)
		return
	}
	b.background(ctx, func(ctx context.Context) func() {
		insight, err := b.services.Trend.MonthlyInsight(ctx)
		return func() {
			if err != nil {
				b.reportError(err)
				return
			}
			b.SendMessageOrLogError(renderTrend(stats, points, insight))
		}
	})
}

func (b *Bot) handleWeek(_ context.Context, _ *tgbotapi.Message) {
	analytics, err := b.services.Trend.GetWeeklyAnalytics()
	if err != nil {
		b.reportError(err)
		return
	}
	b.SendMessageOrLogError(services.FormatWeekly(analytics))
}
