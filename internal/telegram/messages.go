package telegram

import (
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"echo-moon/internal/journal"
	"echo-moon/internal/practice"
	"echo-moon/internal/services"
)

func (b *Bot) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.client.Send(msg)
	return err
}

func (b *Bot) SendMessageOrLogError(message string) {
	if err := b.SendMessage(message); err != nil {
		b.logger.Error("❌ Ошибка отправки сообщения", zap.Error(err))
	}
}

// sendWithKeyboard возвращает id отправленного сообщения, 0 при ошибке
func (b *Bot) sendWithKeyboard(text string, keyboard tgbotapi.InlineKeyboardMarkup) int {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	sent, err := b.client.Send(msg)
	if err != nil {
		b.logger.Error("❌ Ошибка отправки сообщения", zap.Error(err))
		return 0
	}
	return sent.MessageID
}

func (b *Bot) editMessage(messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(b.chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = keyboard
	if _, err := b.client.Send(edit); err != nil {
		// телеграм отвечает ошибкой, если текст не изменился
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		b.logger.Warn("⚠️ Ошибка редактирования сообщения", zap.Int("message_id", messageID), zap.Error(err))
	}
}

// showResult перерисовывает панель практики, создавая её при необходимости
func (b *Bot) showResult(res practice.Result) {
	if res.Discarded {
		if b.panelID != 0 {
			b.editMessage(b.panelID, "🌑 练习已结束。时间太短，没有记录。", nil)
			b.panelID = 0
		}
		return
	}

	text := renderSession(res.View)
	if res.View.State == practice.StateSummary && res.Record != nil {
		text = renderSummary(*res.Record)
	}
	keyboard := sessionKeyboard(res.View.State)

	if b.panelID == 0 {
		if keyboard == nil {
			b.SendMessageOrLogError(text)
			return
		}
		b.panelID = b.sendWithKeyboard(text, *keyboard)
		return
	}
	b.editMessage(b.panelID, text, keyboard)
}

func (b *Bot) applySession(res practice.Result, err error) {
	if err != nil {
		b.reportError(err)
		if res.Record == nil {
			return
		}
	}
	b.showResult(res)
}

// reportError переводит доменные ошибки в ответ пользователю
func (b *Bot) reportError(err error) {
	switch {
	case errors.Is(err, practice.ErrNoActiveSession):
		b.SendMessageOrLogError("🧘 没有进行中的练习。使用 /practice 开始")
	case errors.Is(err, practice.ErrInvalidTransition):
		b.SendMessageOrLogError("⚠️ 当前状态下无法执行该操作")
	case errors.Is(err, services.ErrUnknownScenario):
		b.SendMessageOrLogError("❌ 未知的冥想场景")
	case errors.Is(err, services.ErrUnknownSense):
		b.SendMessageOrLogError("❌ 未知的感官。可选：visual audio touch smell taste")
	case errors.Is(err, services.ErrNoReflection):
		b.SendMessageOrLogError("🃏 今天的觉察还没有开始。使用 /reflect")
	case errors.Is(err, services.ErrNothingToReview):
		b.SendMessageOrLogError("🌱 没有需要回顾的种子")
	case errors.Is(err, services.ErrInvalidChoice):
		b.SendMessageOrLogError("⚠️ 这个选项已失效")
	case errors.Is(err, services.ErrInvalidProfile):
		b.SendMessageOrLogError("❌ 格式：/profile 1990-05-01 [08:30] [地点] 或 /profile skip")
	case errors.Is(err, journal.ErrEmptyObservation):
		b.SendMessageOrLogError("✍️ 观察内容不能为空")
	default:
		b.logger.Error("❌ Ошибка обработки запроса", zap.Error(err))
		b.SendMessageOrLogError("❌ 出了点问题，请稍后再试")
	}
}
