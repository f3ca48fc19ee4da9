package services

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"echo-moon/internal/database"
	"echo-moon/internal/journal"
)

// JournalService единственный писатель дневника: чтение, свёртка и запись
// одной даты выполняются под мьютексом.
type JournalService struct {
	mu         sync.Mutex
	repository *database.Repository
	logger     *zap.Logger
}

func NewJournalService(repo *database.Repository, logger *zap.Logger) *JournalService {
	return &JournalService{
		repository: repo,
		logger:     logger,
	}
}

func (js *JournalService) Entries() ([]journal.DayEntry, error) {
	return js.repository.ListDayEntries()
}

// Entry возвращает запись за дату; ok=false, если записи ещё нет
func (js *JournalService) Entry(date string) (journal.DayEntry, bool, error) {
	entry, err := js.repository.GetDayEntry(date)
	if errors.Is(err, database.ErrNotFound) {
		return journal.DayEntry{}, false, nil
	}
	if err != nil {
		return journal.DayEntry{}, false, err
	}
	return entry, true, nil
}

func (js *JournalService) RecordPractice(date string, s journal.PracticeSession) error {
	err := js.update(date, func(entries []journal.DayEntry) ([]journal.DayEntry, error) {
		return journal.AppendPractice(entries, date, s)
	})
	if err == nil {
		js.logger.Info("🧘 Практика записана",
			zap.String("date", date), zap.String("scenario", s.ScenarioID), zap.Int("energy", s.EnergyScore))
	}
	return err
}

func (js *JournalService) RecordSensoryLog(date string, l journal.SensoryLog) error {
	return js.update(date, func(entries []journal.DayEntry) ([]journal.DayEntry, error) {
		return journal.AppendSensoryLog(entries, date, l)
	})
}

func (js *JournalService) SaveAwareness(date string, a journal.TodayAwareness) error {
	return js.update(date, func(entries []journal.DayEntry) ([]journal.DayEntry, error) {
		return journal.SetAwareness(entries, date, a)
	})
}

func (js *JournalService) SaveSeed(date string, seed journal.TomorrowSeed) error {
	return js.update(date, func(entries []journal.DayEntry) ([]journal.DayEntry, error) {
		return journal.SetSeed(entries, date, seed)
	})
}

func (js *JournalService) update(date string, apply func([]journal.DayEntry) ([]journal.DayEntry, error)) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	var current []journal.DayEntry
	entry, ok, err := js.Entry(date)
	if err != nil {
		return fmt.Errorf("ошибка чтения дня %s: %w", date, err)
	}
	if ok {
		current = append(current, entry)
	}

	next, err := apply(current)
	if err != nil {
		return err
	}

	updated, _ := journal.Find(next, date)
	return js.repository.SaveDayEntry(updated)
}
