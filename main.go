package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"echo-moon/internal/app"
	"echo-moon/internal/catalog"
	"echo-moon/internal/config"
	"echo-moon/internal/logging"
	"echo-moon/internal/lunar"
	"echo-moon/internal/utils"

	_ "time/tzdata"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "echo-moon",
		Short:         "Лунный дневник осознанности в Telegram",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMoonCmd(), newScenariosCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить бота и расписание уведомлений",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("❌ Ошибка загрузки конфигурации: %w", err)
			}

			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("❌ Ошибка создания приложения: %w", err)
			}
			if err := application.Start(); err != nil {
				return fmt.Errorf("❌ Ошибка запуска приложения: %w", err)
			}

			<-ctx.Done()
			logger.Info("👋 Приложение завершает работу", zap.NamedError("reason", context.Cause(ctx)))
			return application.Stop()
		},
	}
}

func newMoonCmd() *cobra.Command {
	var timezone string
	cmd := &cobra.Command{
		Use:   "moon [YYYY-MM-DD]",
		Short: "Показать фазу луны на дату (по умолчанию сегодня)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if timezone == "" {
				zone, err := config.Timezone()
				if err != nil {
					return err
				}
				timezone = zone
			}
			cal := utils.NewCalendar(timezone)
			day := cal.Now()
			if len(args) == 1 {
				parsed, err := cal.ParseDate(args[0])
				if err != nil {
					return fmt.Errorf("❌ неверная дата %q: %w", args[0], err)
				}
				day = parsed
			}

			d := lunar.ForTime(day)
			info := lunar.InfoFor(d.Phase)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s  %s (%s)\n", info.Emoji, day.Format(time.DateOnly), info.Name, d.Phase)
			fmt.Fprintf(out, "亮度 %d%%  月龄 %.1f 天\n", d.IlluminationPercent, d.Age)
			fmt.Fprintf(out, "%s\n%s\n", info.Blessing, info.Tip)
			return nil
		},
	}
	cmd.Flags().StringVar(&timezone, "tz", "", "часовой пояс для «сегодня» (по умолчанию TIMEZONE)")
	return cmd
}

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "Список сценариев медитации",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.Default()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, sc := range cat.Scenarios {
				fmt.Fprintf(out, "%s %-8s %s  %s  (%d 段)\n", utils.GetScenarioEmoji(sc.ID), sc.ID, sc.Title,
					utils.FormatClock(sc.TotalDuration), len(sc.Guidance))
			}
			return nil
		},
	}
}
