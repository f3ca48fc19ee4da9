package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"echo-moon/internal/catalog"
	"echo-moon/internal/complexity"
	"echo-moon/internal/dialogue"
	"echo-moon/internal/journal"
	"echo-moon/internal/utils"
)

// Review вчерашнее семя, ещё не оценённое владельцем
type Review struct {
	Date string
	Seed journal.TomorrowSeed
}

type Opening struct {
	Card     catalog.Card
	Question string
}

type SeedOffer struct {
	Card        catalog.Card
	Suggestions []string
}

type reflection struct {
	date     string
	card     catalog.Card
	history  []journal.Message
	titles   []string
	seedCard *catalog.Card
	seeds    []string
}

// ReflectionService ведёт вечерний цикл: оценка вчерашнего семени, разговор
// по карте, выбор заголовка и новое семя на завтра.
type ReflectionService struct {
	mu       sync.Mutex
	flow     *reflection
	journal  *JournalService
	guide    *dialogue.Guide
	catalog  *catalog.Catalog
	calendar *utils.Calendar
}

func NewReflectionService(js *JournalService, guide *dialogue.Guide, cat *catalog.Catalog, cal *utils.Calendar) *ReflectionService {
	return &ReflectionService{
		journal:  js,
		guide:    guide,
		catalog:  cat,
		calendar: cal,
	}
}

func (rs *ReflectionService) PendingReview() (Review, bool, error) {
	date := rs.calendar.Yesterday()
	entry, ok, err := rs.journal.Entry(date)
	if err != nil || !ok {
		return Review{}, false, err
	}
	seed := entry.TomorrowSeed
	if seed == nil || seed.EnergySeed == "" || seed.Reviewed {
		return Review{}, false, nil
	}
	return Review{Date: date, Seed: *seed}, true, nil
}

// Review отмечает вчерашнее семя и возвращает отклик проводника
func (rs *ReflectionService) Review(ctx context.Context, achieved bool) (string, error) {
	review, ok, err := rs.PendingReview()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNothingToReview
	}

	seed := review.Seed
	seed.Reviewed = true
	seed.Achieved = achieved
	if err := rs.journal.SaveSeed(review.Date, seed); err != nil {
		return "", err
	}
	return rs.guide.ReviewYesterday(ctx, seed.EnergySeed, achieved), nil
}

// Start тянет карту дня и открывает разговор. Незаконченный разговор
// начинается заново.
func (rs *ReflectionService) Start(ctx context.Context) (Opening, error) {
	card := rs.catalog.Draw()
	question := rs.guide.StartCardReflection(ctx, card.Name)

	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.flow = &reflection{
		date:    rs.calendar.Today(),
		card:    card,
		history: []journal.Message{{Role: journal.RoleModel, Text: question}},
	}
	return Opening{Card: card, Question: question}, nil
}

func (rs *ReflectionService) Active() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.flow != nil
}

// Reply добавляет реплику владельца, получает ответ и текущую сложность
// разговора. Проводник вызывается без блокировки сервиса.
func (rs *ReflectionService) Reply(ctx context.Context, text string) (string, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0, journal.ErrEmptyObservation
	}
	flow, history, err := rs.snapshot()
	if err != nil {
		return "", 0, err
	}

	reply := rs.guide.ChatReply(ctx, history, text)

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.flow != flow {
		return "", 0, ErrNoReflection
	}
	flow.history = append(flow.history,
		journal.Message{Role: journal.RoleUser, Text: text},
		journal.Message{Role: journal.RoleModel, Text: reply},
	)
	return reply, complexity.Score(flow.history), nil
}

func (rs *ReflectionService) Titles(ctx context.Context) ([]string, error) {
	flow, history, err := rs.snapshot()
	if err != nil {
		return nil, err
	}

	titles := rs.guide.GenerateTitles(ctx, history)

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.flow != flow {
		return nil, ErrNoReflection
	}
	flow.titles = titles
	return titles, nil
}

// snapshot возвращает текущий разговор и копию его истории.
// Разговор, начатый заново за время вызова проводника, уже другой.
func (rs *ReflectionService) snapshot() (*reflection, []journal.Message, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.flow == nil {
		return nil, nil, ErrNoReflection
	}
	return rs.flow, slices.Clone(rs.flow.history), nil
}

// ChooseTitle сохраняет осознанность дня с выбранным заголовком
func (rs *ReflectionService) ChooseTitle(n int) (journal.TodayAwareness, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.flow == nil {
		return journal.TodayAwareness{}, ErrNoReflection
	}
	if n < 0 || n >= len(rs.flow.titles) {
		return journal.TodayAwareness{}, fmt.Errorf("%w: title %d", ErrInvalidChoice, n)
	}

	awareness := journal.TodayAwareness{
		CardID:          rs.flow.card.ID,
		ChatHistory:     slices.Clone(rs.flow.history),
		ComplexityScore: complexity.Score(rs.flow.history),
		Status:          journal.StatusDone,
		SelectedTitle:   rs.flow.titles[n],
	}
	if err := rs.journal.SaveAwareness(rs.flow.date, awareness); err != nil {
		return journal.TodayAwareness{}, err
	}
	return awareness, nil
}

// OfferSeeds тянет карту семени и предлагает до трёх маленьких целей на завтра
func (rs *ReflectionService) OfferSeeds(ctx context.Context) (SeedOffer, error) {
	flow, _, err := rs.snapshot()
	if err != nil {
		return SeedOffer{}, err
	}

	card := rs.catalog.Draw()
	seeds := rs.guide.SeedSuggestions(ctx, card.Name)

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.flow != flow {
		return SeedOffer{}, ErrNoReflection
	}
	flow.seedCard = &card
	flow.seeds = seeds
	return SeedOffer{Card: card, Suggestions: seeds}, nil
}

func (rs *ReflectionService) ChooseSeed(n int) (journal.TomorrowSeed, error) {
	rs.mu.Lock()
	if rs.flow == nil {
		rs.mu.Unlock()
		return journal.TomorrowSeed{}, ErrNoReflection
	}
	if n < 0 || n >= len(rs.flow.seeds) {
		rs.mu.Unlock()
		return journal.TomorrowSeed{}, fmt.Errorf("%w: seed %d", ErrInvalidChoice, n)
	}
	text := rs.flow.seeds[n]
	rs.mu.Unlock()

	return rs.PlantSeed(text)
}

// PlantSeed сохраняет семя на завтра и завершает вечерний цикл
func (rs *ReflectionService) PlantSeed(text string) (journal.TomorrowSeed, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.flow == nil || rs.flow.seedCard == nil {
		return journal.TomorrowSeed{}, ErrNoReflection
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return journal.TomorrowSeed{}, fmt.Errorf("%w: empty seed", ErrInvalidChoice)
	}

	seed := journal.TomorrowSeed{
		CardID:       rs.flow.seedCard.ID,
		EnergySeed:   text,
		AISuggestion: strings.Join(rs.flow.seeds, "|"),
		Status:       journal.StatusDone,
	}
	if err := rs.journal.SaveSeed(rs.flow.date, seed); err != nil {
		return journal.TomorrowSeed{}, err
	}
	rs.flow = nil
	return seed, nil
}
