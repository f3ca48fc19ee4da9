package services

import (
	"fmt"

	"go.uber.org/zap"

	"echo-moon/internal/catalog"
	"echo-moon/internal/journal"
	"echo-moon/internal/practice"
	"echo-moon/internal/utils"
)

// PracticeService ведёт живую сессию и сохраняет её запись в дневник в
// момент перехода в итог.
type PracticeService struct {
	manager  *practice.Manager
	catalog  *catalog.Catalog
	journal  *JournalService
	calendar *utils.Calendar
	logger   *zap.Logger
}

func NewPracticeService(m *practice.Manager, cat *catalog.Catalog, js *JournalService, cal *utils.Calendar, logger *zap.Logger) *PracticeService {
	return &PracticeService{
		manager:  m,
		catalog:  cat,
		journal:  js,
		calendar: cal,
		logger:   logger,
	}
}

func (ps *PracticeService) Scenarios() []practice.Scenario {
	return ps.catalog.Scenarios
}

// Begin запускает сценарий; прежняя сессия, если была, отбрасывается
func (ps *PracticeService) Begin(scenarioID string) (practice.View, error) {
	sc, ok := ps.catalog.Scenario(scenarioID)
	if !ok {
		return practice.View{}, fmt.Errorf("%w: %q", ErrUnknownScenario, scenarioID)
	}
	if prev, live := ps.manager.Current(); live {
		ps.logger.Info("♻️ Предыдущая сессия отброшена", zap.String("scenario", prev.ScenarioID))
	}
	return ps.manager.Begin(sc)
}

func (ps *PracticeService) Current() (practice.View, bool) {
	return ps.manager.Current()
}

func (ps *PracticeService) Ticks() <-chan practice.Tick {
	return ps.manager.Ticks()
}

func (ps *PracticeService) Advance() (practice.Result, error) {
	return ps.persist(ps.manager.Advance())
}

func (ps *PracticeService) Pause() (practice.Result, error) {
	return ps.persist(ps.manager.Pause())
}

func (ps *PracticeService) Resume() (practice.Result, error) {
	return ps.persist(ps.manager.Resume())
}

func (ps *PracticeService) Finish() (practice.Result, error) {
	return ps.persist(ps.manager.Finish())
}

func (ps *PracticeService) RequestExit() (practice.Result, error) {
	return ps.persist(ps.manager.RequestExit())
}

func (ps *PracticeService) CancelExit() (practice.Result, error) {
	return ps.persist(ps.manager.CancelExit())
}

func (ps *PracticeService) ConfirmExit() (practice.Result, error) {
	res, err := ps.persist(ps.manager.ConfirmExit())
	if err == nil && res.Discarded {
		ps.logger.Info("🗑 Короткая сессия отброшена без записи")
	}
	return res, err
}

// Close закрывает итоговый экран. Запись уже сохранена при входе в итог.
func (ps *PracticeService) Close() (journal.PracticeSession, error) {
	return ps.manager.Close()
}

// Tick применяет удар таймера. applied=false для устаревших ударов.
func (ps *PracticeService) Tick(t practice.Tick) (practice.Result, bool) {
	res, applied := ps.manager.Tick(t)
	if !applied {
		return res, false
	}
	res, _ = ps.persist(res, nil)
	return res, true
}

func (ps *PracticeService) Shutdown() {
	ps.manager.Shutdown()
}

func (ps *PracticeService) persist(res practice.Result, err error) (practice.Result, error) {
	if err != nil || res.Record == nil {
		return res, err
	}
	if err := ps.journal.RecordPractice(ps.calendar.Today(), *res.Record); err != nil {
		ps.logger.Error("❌ Ошибка записи практики", zap.String("id", res.Record.ID), zap.Error(err))
		return res, fmt.Errorf("ошибка записи практики: %w", err)
	}
	return res, nil
}
