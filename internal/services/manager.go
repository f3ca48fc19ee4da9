package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"echo-moon/internal/catalog"
	"echo-moon/internal/database"
	"echo-moon/internal/dialogue"
	"echo-moon/internal/practice"
	"echo-moon/internal/utils"
)

var (
	ErrUnknownSense    = errors.New("unknown sense")
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrNoReflection    = errors.New("no reflection in progress")
	ErrNothingPending  = errors.New("no observation pending")
	ErrNothingToReview = errors.New("no seed to review")
	ErrInvalidChoice   = errors.New("invalid choice")
)

// Dependencies собирает всё, что нужно сервисам помимо БД
type Dependencies struct {
	Catalog          *catalog.Catalog
	Guide            *dialogue.Guide
	Calendar         *utils.Calendar
	Logger           *zap.Logger
	Tick             time.Duration
	DiscardThreshold int
}

type ServiceManager struct {
	Notification *NotificationService
	Journal      *JournalService
	Practice     *PracticeService
	Sensory      *SensoryService
	Reflection   *ReflectionService
	Trend        *TrendService
	Profile      *ProfileService
	Catalog      *catalog.Catalog
	Calendar     *utils.Calendar
	repository   *database.Repository
	logger       *zap.Logger
}

// NewServiceManager связывает сервисы. ctx ограничивает жизнь таймера практики.
func NewServiceManager(ctx context.Context, db *database.Database, deps Dependencies) *ServiceManager {
	repo := database.NewRepository(db)
	journalService := NewJournalService(repo, deps.Logger)

	manager := practice.NewManager(ctx, deps.Tick, practice.WithDiscardThreshold(deps.DiscardThreshold))

	return &ServiceManager{
		Notification: nil,
		Journal:      journalService,
		Practice:     NewPracticeService(manager, deps.Catalog, journalService, deps.Calendar, deps.Logger),
		Sensory:      NewSensoryService(deps.Catalog, deps.Guide, journalService, deps.Calendar),
		Reflection:   NewReflectionService(journalService, deps.Guide, deps.Catalog, deps.Calendar),
		Trend:        NewTrendService(repo, journalService, deps.Guide, deps.Catalog, deps.Calendar),
		Profile:      NewProfileService(repo),
		Catalog:      deps.Catalog,
		Calendar:     deps.Calendar,
		repository:   repo,
		logger:       deps.Logger,
	}
}

func (sm *ServiceManager) SetNotificationSender(sender NotificationSender) {
	sm.Notification = NewNotificationService(sender, sm.repository, sm.Trend, sm.Calendar, sm.logger)
}
