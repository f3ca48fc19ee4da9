package dialogue

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"echo-moon/internal/journal"
)

const (
	DefaultTimeout       = 20 * time.Second
	DefaultRatePerMinute = 12
	maxChoices           = 3
)

// Fallback lines used whenever the model gives nothing usable.
const (
	FallbackReviewAchieved = "做得好，能量在流动。"
	FallbackReviewMissed   = "没关系，这只是一个逗号。"
	FallbackCard           = "闭上眼睛。想到这张牌，你脑海里浮现了什么画面？"
	FallbackChat           = "我在倾听..."
	FallbackInsightEmpty   = "本月的能量在静谧中流淌，等待着觉察的光亮。"
	FallbackInsight        = "潮汐起伏，皆是生命的韵律。"
	FallbackSensoryTask    = "静静感受当下的呼吸。"
)

var (
	FallbackTitles = []string{"静谧反思", "今日智慧", "月之低语"}
	FallbackSeeds  = []string{"静坐一分钟", "整理相册", "写下一句感恩"}
)

// Guide wraps a Generator with a per-call timeout, a request budget and
// static fallbacks. A nil generator means every call falls back.
type Guide struct {
	gen     Generator
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
	pick    func(n int) int
}

type GuideOption func(*Guide)

func WithTimeout(d time.Duration) GuideOption {
	return func(g *Guide) { g.timeout = d }
}

// WithRatePerMinute sets the request budget. Bursts up to the full minute's
// budget are allowed.
func WithRatePerMinute(n int) GuideOption {
	return func(g *Guide) {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}
}

// WithPicker replaces the random index source used by SensoryTask.
func WithPicker(pick func(n int) int) GuideOption {
	return func(g *Guide) { g.pick = pick }
}

func NewGuide(gen Generator, logger *zap.Logger, opts ...GuideOption) *Guide {
	g := &Guide{
		gen:     gen,
		timeout: DefaultTimeout,
		logger:  logger,
		pick:    rand.IntN,
	}
	WithRatePerMinute(DefaultRatePerMinute)(g)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enabled reports whether a model is attached.
func (g *Guide) Enabled() bool {
	return g.gen != nil
}

func (g *Guide) ReviewYesterday(ctx context.Context, goal string, achieved bool) string {
	fallback := FallbackReviewMissed
	if achieved {
		fallback = FallbackReviewAchieved
	}
	return g.ask(ctx, Request{Mode: ModeReview, System: guideSystem, Prompt: reviewPrompt(goal, achieved)}, fallback)
}

func (g *Guide) StartCardReflection(ctx context.Context, cardName string) string {
	return g.ask(ctx, Request{Mode: ModeCard, System: guideSystem, Prompt: cardPrompt(cardName)}, FallbackCard)
}

func (g *Guide) ChatReply(ctx context.Context, history []journal.Message, input string) string {
	return g.ask(ctx, Request{
		Mode:   ModeChat,
		System: guideSystem,
		Prompt: chatPrompt(history, input),
		Turns:  history,
		Input:  input,
	}, FallbackChat)
}

// GenerateTitles proposes up to three diary titles for a conversation.
func (g *Guide) GenerateTitles(ctx context.Context, history []journal.Message) []string {
	text := g.ask(ctx, Request{Mode: ModeTitles, Prompt: titlesPrompt(history), Turns: history}, "")
	return choices(text, FallbackTitles)
}

// SeedSuggestions proposes up to three small goals for tomorrow.
func (g *Guide) SeedSuggestions(ctx context.Context, cardName string) []string {
	text := g.ask(ctx, Request{Mode: ModeSeeds, System: guideSystem, Prompt: seedsPrompt(cardName)}, "")
	return choices(text, FallbackSeeds)
}

func (g *Guide) MonthlyInsight(ctx context.Context, keywords []string) string {
	if len(keywords) == 0 {
		return FallbackInsightEmpty
	}
	return g.ask(ctx, Request{Mode: ModeInsight, System: guideSystem, Prompt: insightPrompt(keywords)}, FallbackInsight)
}

// SensoryTask draws one task from the bank without calling the model.
func (g *Guide) SensoryTask(bank []string) string {
	if len(bank) == 0 {
		return FallbackSensoryTask
	}
	return bank[g.pick(len(bank))]
}

func (g *Guide) ask(ctx context.Context, req Request, fallback string) string {
	if g.gen == nil {
		return fallback
	}
	if !g.limiter.Allow() {
		g.logger.Warn("⏳ Лимит запросов к модели исчерпан", zap.String("mode", string(req.Mode)))
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.gen.Generate(ctx, req)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyResponse
	}
	if err != nil {
		g.logger.Warn("⚠️ Модель не ответила, используем запасной текст",
			zap.String("mode", string(req.Mode)), zap.Error(err))
		return fallback
	}
	return strings.TrimSpace(text)
}

func choices(text string, fallback []string) []string {
	var out []string
	for _, part := range strings.Split(text, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
		if len(out) == maxChoices {
			break
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
