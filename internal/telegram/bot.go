package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"echo-moon/internal/practice"
	"echo-moon/internal/services"
)

// chatClient часть BotAPI, через которую бот пишет в чат
type chatClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api      *tgbotapi.BotAPI
	client   chatClient
	chatID   int64
	services *services.ServiceManager
	logger   *zap.Logger
	handlers map[string]func(context.Context, *tgbotapi.Message)

	// Вызовы проводника идут в workers, их результат применяется
	// в цикле через done.
	workers errgroup.Group
	done    chan func()

	// Поля ниже трогаются только из цикла run.
	// panelID сообщение с панелью текущей практики, 0 если панели нет.
	panelID  int
	thinking bool
}

func NewBot(token string, chatID int64, serviceManager *services.ServiceManager, logger *zap.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания бота: %w", err)
	}

	bot := newBot(botAPI, chatID, serviceManager, logger)
	bot.api = botAPI
	logger.Info("🤖 Бот инициализирован", zap.String("username", botAPI.Self.UserName))
	return bot, nil
}

func newBot(client chatClient, chatID int64, serviceManager *services.ServiceManager, logger *zap.Logger) *Bot {
	bot := &Bot{
		client:   client,
		chatID:   chatID,
		services: serviceManager,
		logger:   logger,
		handlers: make(map[string]func(context.Context, *tgbotapi.Message)),
		done:     make(chan func()),
	}
	bot.registerHandlers()
	return bot
}

func (b *Bot) registerHandlers() {
	b.handlers["start"] = b.handleStart
	b.handlers["help"] = b.handleHelp
	b.handlers["moon"] = b.handleMoon
	b.handlers["natal"] = b.handleNatal
	b.handlers["profile"] = b.handleProfile
	b.handlers["practice"] = b.handlePractice
	b.handlers["sense"] = b.handleSense
	b.handlers["reflect"] = b.handleReflect
	b.handlers["title"] = b.handleTitle
	b.handlers["seed"] = b.handleSeed
	b.handlers["today"] = b.handleToday
	b.handlers["trend"] = b.handleTrend
	b.handlers["week"] = b.handleWeek
}

func (b *Bot) GetUsername() string {
	if b.api == nil {
		return ""
	}
	return b.api.Self.UserName
}

// Start крутит цикл обновлений и тиков практики до отмены ctx.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.run(ctx, updates)
}

// run единственный владелец panelID и thinking.
func (b *Bot) run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		_ = b.workers.Wait()
	}()

	ticks := b.services.Practice.Ticks()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		case t := <-ticks:
			b.handleTick(t)
		case apply := <-b.done:
			b.thinking = false
			apply()
		}
	}
}

// background выполняет work вне цикла; возвращённая функция применяется
// уже в цикле. Одновременно думает только один запрос.
func (b *Bot) background(ctx context.Context, work func(context.Context) func()) {
	if b.thinking {
		b.SendMessageOrLogError("⏳ 还在思考上一条消息，请稍候")
		return
	}
	b.thinking = true

	b.workers.Go(func() error {
		apply := work(ctx)
		select {
		case b.done <- apply:
		case <-ctx.Done():
		}
		return nil
	})
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	if update.Message.Chat.ID != b.chatID {
		b.logger.Warn("⛔ Сообщение из чужого чата", zap.Int64("chat_id", update.Message.Chat.ID))
		return
	}

	b.handleMessage(ctx, update.Message)
}

// handleMessage обрабатывает команды и свободный текст
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Text == "" {
		return
	}

	if msg.IsCommand() {
		if handler, exists := b.handlers[msg.Command()]; exists {
			handler(ctx, msg)
		} else {
			b.SendMessageOrLogError("❌ 未知命令。使用 /help")
		}
		return
	}

	b.handleText(ctx, msg.Text)
}

func (b *Bot) handleTick(t practice.Tick) {
	res, applied := b.services.Practice.Tick(t)
	if !applied {
		return
	}
	if res.View.State == practice.StateSummary || res.View.TimeLeft%panelRefreshEvery == 0 {
		b.showResult(res)
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	defer func(c tgbotapi.Chattable) {
		_, err := b.client.Request(c)
		if err != nil {
			b.logger.Warn("⚠️ Ошибка ответа на callback", zap.Error(err))
		}
	}(tgbotapi.NewCallback(callback.ID, "✅"))

	if callback.Message == nil || callback.Message.Chat.ID != b.chatID {
		return
	}

	data := callback.Data
	b.logger.Debug("Received callback", zap.String("data", data))

	switch {
	case strings.HasPrefix(data, "scenario_"):
		b.handleScenario(strings.TrimPrefix(data, "scenario_"), callback.Message.MessageID)
	case data == "intro_next":
		b.applySession(b.services.Practice.Advance())
	case data == "pause":
		b.applySession(b.services.Practice.Pause())
	case data == "resume":
		b.applySession(b.services.Practice.Resume())
	case data == "finish":
		b.applySession(b.services.Practice.Finish())
	case data == "exit":
		b.applySession(b.services.Practice.RequestExit())
	case data == "exit_cancel":
		b.applySession(b.services.Practice.CancelExit())
	case data == "exit_confirm":
		b.applySession(b.services.Practice.ConfirmExit())
	case data == "close":
		b.handleClose()
	case data == "review_done":
		b.handleReview(ctx, true, callback.Message.MessageID)
	case data == "review_missed":
		b.handleReview(ctx, false, callback.Message.MessageID)
	case strings.HasPrefix(data, "title_"):
		b.handleTitleChoice(ctx, data, callback.Message.MessageID)
	case strings.HasPrefix(data, "seed_"):
		b.handleSeedChoice(data, callback.Message.MessageID)
	}
}

// safeDeleteMessage вспомогательная функция для безопасного удаления сообщений
func (b *Bot) safeDeleteMessage(messageID int) {
	deleteConfig := tgbotapi.NewDeleteMessage(b.chatID, messageID)

	resp, err := b.client.Request(deleteConfig)
	if err != nil {
		b.logger.Warn("⚠️ Ошибка при удалении сообщения", zap.Int("message_id", messageID), zap.Error(err))
		return
	}

	var ok bool
	if err := json.Unmarshal(resp.Result, &ok); err != nil {
		b.logger.Warn("⚠️ Не удалось декодировать ответ при удалении сообщения",
			zap.Int("message_id", messageID), zap.Error(err))
		return
	}
	if ok {
		b.logger.Debug("✅ Сообщение удалено", zap.Int("message_id", messageID))
	}
}
