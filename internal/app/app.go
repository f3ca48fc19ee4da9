package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"echo-moon/internal/catalog"
	"echo-moon/internal/config"
	"echo-moon/internal/database"
	"echo-moon/internal/dialogue"
	"echo-moon/internal/services"
	"echo-moon/internal/telegram"
	"echo-moon/internal/utils"
)

// Расписание в поясе владельца
const (
	morningMoonSpec     = "0 8 * * *"
	eveningReminderSpec = "0 21 * * *"
	dailySummarySpec    = "30 22 * * *"
	weeklyTrendSpec     = "0 20 * * 0"
)

type Application struct {
	config     *config.Config
	db         *database.Database
	bot        *telegram.Bot
	services   *services.ServiceManager
	cron       *cron.Cron
	logger     *zap.Logger
	group      *errgroup.Group
	cancelFunc context.CancelFunc
	ctx        context.Context
}

func New(parent context.Context, cfg *config.Config, logger *zap.Logger) (*Application, error) {
	db, err := database.New(cfg.Database.Path, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)

	var gen dialogue.Generator
	if cfg.AIEnabled() {
		gemini, err := dialogue.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			cancel()
			db.Close()
			return nil, fmt.Errorf("ошибка создания клиента Gemini: %w", err)
		}
		gen = gemini
	} else {
		logger.Warn("⚠️ GEMINI_API_KEY не задан, проводник работает на заготовленных ответах")
	}

	calendar := utils.NewCalendar(cfg.Timezone)
	guide := dialogue.NewGuide(gen, logger,
		dialogue.WithTimeout(cfg.Gemini.Timeout),
		dialogue.WithRatePerMinute(cfg.Gemini.RatePerMinute),
	)

	cat, err := catalog.Default()
	if err != nil {
		cancel()
		db.Close()
		return nil, err
	}

	serviceManager := services.NewServiceManager(ctx, db, services.Dependencies{
		Catalog:          cat,
		Guide:            guide,
		Calendar:         calendar,
		Logger:           logger,
		Tick:             cfg.Practice.Tick,
		DiscardThreshold: cfg.Practice.DiscardThreshold,
	})

	bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID, serviceManager, logger)
	if err != nil {
		cancel()
		db.Close()
		return nil, err
	}
	serviceManager.SetNotificationSender(bot)

	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger))
	app := &Application{
		config:   cfg,
		db:       db,
		bot:      bot,
		services: serviceManager,
		cron: cron.New(
			cron.WithLocation(calendar.Location()),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		logger:     logger,
		cancelFunc: cancel,
		ctx:        ctx,
	}

	if err := app.setupCronJobs(); err != nil {
		cancel()
		db.Close()
		return nil, err
	}

	return app, nil
}

func (a *Application) Start() error {
	a.logger.Info("🚀 Запуск приложения...")

	g, ctx := errgroup.WithContext(a.ctx)
	a.group = g

	g.Go(func() error {
		a.bot.Start(ctx)
		return nil
	})

	a.cron.Start()
	a.sendWelcomeMessage()

	a.logger.Info("✅ Приложение запущено",
		zap.String("bot", a.bot.GetUsername()),
		zap.String("timezone", a.config.Timezone),
		zap.Bool("ai", a.config.AIEnabled()),
	)
	return nil
}

// Wait блокируется, пока работает цикл бота
func (a *Application) Wait() error {
	if a.group == nil {
		return nil
	}
	return a.group.Wait()
}

func (a *Application) Stop() error {
	a.logger.Info("🛑 Остановка приложения...")

	a.cancelFunc()
	<-a.cron.Stop().Done()
	if err := a.Wait(); err != nil {
		a.logger.Warn("⚠️ Цикл бота завершился с ошибкой", zap.Error(err))
	}
	a.services.Practice.Shutdown()

	if err := a.db.Close(); err != nil {
		a.logger.Warn("⚠️ Ошибка закрытия БД", zap.Error(err))
	}

	a.logger.Info("✅ Приложение остановлено")
	return nil
}

func (a *Application) setupCronJobs() error {
	jobs := []struct {
		spec string
		name string
		run  func()
	}{
		{morningMoonSpec, "morning_moon", func() { a.services.Notification.SendMorningMoon() }},
		{eveningReminderSpec, "evening_reminder", func() { a.services.Notification.SendEveningReminder() }},
		{dailySummarySpec, "daily_summary", func() { a.services.Notification.SendDailySummary() }},
		{weeklyTrendSpec, "weekly_trend", func() { a.services.Notification.SendWeeklyTrend() }},
	}

	for _, job := range jobs {
		if _, err := a.cron.AddFunc(job.spec, job.run); err != nil {
			return fmt.Errorf("ошибка расписания %s: %w", job.name, err)
		}
	}
	return nil
}

func (a *Application) sendWelcomeMessage() {
	message := fmt.Sprintf("🌙 <b>Echo Moon</b>\n\n已启动。今天是 %s\n\n/help 查看命令", a.services.Calendar.Today())
	a.bot.SendMessageOrLogError(message)
}
