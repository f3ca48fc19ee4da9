package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"echo-moon/internal/catalog"
	"echo-moon/internal/dialogue"
	"echo-moon/internal/journal"
	"echo-moon/internal/utils"
)

// SensoryPrompt задание знакомства с одним чувством, ждущее ответа
type SensoryPrompt struct {
	Sense catalog.Sense
	Task  string
}

type SensoryService struct {
	mu       sync.Mutex
	pending  *SensoryPrompt
	catalog  *catalog.Catalog
	guide    *dialogue.Guide
	journal  *JournalService
	calendar *utils.Calendar
}

func NewSensoryService(cat *catalog.Catalog, guide *dialogue.Guide, js *JournalService, cal *utils.Calendar) *SensoryService {
	return &SensoryService{
		catalog:  cat,
		guide:    guide,
		journal:  js,
		calendar: cal,
	}
}

// Begin выбирает задание для чувства и запоминает его до ответа
func (ss *SensoryService) Begin(senseID string) (SensoryPrompt, error) {
	sense, ok := ss.catalog.Sense(journal.Sense(strings.ToLower(strings.TrimSpace(senseID))))
	if !ok {
		return SensoryPrompt{}, fmt.Errorf("%w: %q", ErrUnknownSense, senseID)
	}

	prompt := SensoryPrompt{Sense: sense, Task: ss.guide.SensoryTask(sense.Tasks)}

	ss.mu.Lock()
	ss.pending = &prompt
	ss.mu.Unlock()
	return prompt, nil
}

func (ss *SensoryService) Pending() (SensoryPrompt, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.pending == nil {
		return SensoryPrompt{}, false
	}
	return *ss.pending, true
}

func (ss *SensoryService) Cancel() {
	ss.mu.Lock()
	ss.pending = nil
	ss.mu.Unlock()
}

// Save записывает наблюдение по ожидающему заданию. Пустой текст
// отклоняется, задание при этом остаётся ждать.
func (ss *SensoryService) Save(content string) (journal.SensoryLog, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.pending == nil {
		return journal.SensoryLog{}, ErrNothingPending
	}
	if strings.TrimSpace(content) == "" {
		return journal.SensoryLog{}, journal.ErrEmptyObservation
	}

	log := journal.SensoryLog{
		ID:         uuid.NewString(),
		SenseID:    ss.pending.Sense.ID,
		SenseTitle: ss.pending.Sense.ShortTitle(),
		Prompt:     ss.pending.Task,
		Content:    strings.TrimSpace(content),
		Timestamp:  ss.calendar.Now(),
	}
	if err := ss.journal.RecordSensoryLog(ss.calendar.Today(), log); err != nil {
		return journal.SensoryLog{}, err
	}
	ss.pending = nil
	return log, nil
}
