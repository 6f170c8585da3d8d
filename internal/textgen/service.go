package textgen

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/verte-zerg/neontype/internal/generator"
	"github.com/verte-zerg/neontype/internal/texts"
)

const (
	// DefaultPracticeText is the last resort when every source fails.
	DefaultPracticeText = "The quick brown fox jumps over the lazy dog."
	// DefaultDailyText is the last resort for the daily contest.
	DefaultDailyText = "The quick brown fox jumps over the lazy dog. This is a default text because the primary fallback file could not be read."

	defaultWordCount = 100
	dailyWordCount   = 100
	temperature      = 0.9
)

// Topics are the practice subjects a prompt is drawn from.
var Topics = []string{
	"the history of video games",
	"the science of sleep",
	"the process of making chocolate",
	"the architecture of skyscrapers",
	"the basics of quantum physics",
	"a journey through the Amazon rainforest",
	"the life of a honeybee",
	"the art of storytelling",
	"the impact of social media",
	"the exploration of Mars",
	"the creation of a coral reef",
}

var wordCounts = map[int]int{1: 100, 2: 200, 5: 450}

// WordCount returns the paragraph length requested for a time limit.
func WordCount(minutes int) int {
	if n, ok := wordCounts[minutes]; ok {
		return n
	}
	return defaultWordCount
}

// Source names where a text came from.
type Source string

const (
	SourceProvider  Source = "provider"
	SourceBank      Source = "bank"
	SourceGenerator Source = "generator"
	SourceDefault   Source = "default"
)

// Text is a typing text and its origin.
type Text struct {
	Body   string
	Source Source
}

// Option configures a Service.
type Option func(*Service)

// WithGenerator enables the word-list fallback.
func WithGenerator(g *generator.Generator) Option {
	return func(s *Service) { s.gen = g }
}

// WithTimeout bounds each provider call, retries included.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithLogger sets the logger for fallback events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTopicPicker replaces the random topic choice.
func WithTopicPicker(pick func([]string) string) Option {
	return func(s *Service) { s.pickTopic = pick }
}

// Service produces practice and contest texts. A nil provider runs in
// fallback-only mode.
type Service struct {
	provider  Provider
	bank      *texts.Bank
	gen       *generator.Generator
	timeout   time.Duration
	logger    *slog.Logger
	pickTopic func([]string) string
}

// NewService builds a Service. bank may be nil.
func NewService(provider Provider, bank *texts.Bank, opts ...Option) *Service {
	if bank == nil {
		bank = texts.NewBank(nil)
	}
	s := &Service{
		provider: provider,
		bank:     bank,
		timeout:  30 * time.Second,
		logger:   slog.Default(),
		pickTopic: func(topics []string) string {
			return topics[rand.IntN(len(topics))]
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ModelID reports the configured model, or "none" in fallback-only mode.
func (s *Service) ModelID() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.ModelID()
}

// PracticePrompt builds the prompt for a practice or test paragraph.
func PracticePrompt(wordCount int, topic string) string {
	return fmt.Sprintf("Generate a paragraph of about %d words for a typing test. The topic is %s. The text should be engaging, grammatically correct, and contain no special characters or quotes.", wordCount, topic)
}

// ContestPrompt is the prompt for the shared daily text.
const ContestPrompt = "Generate a paragraph of about 100 words for a competitive daily typing contest. The text should be engaging, with a mix of common and slightly complex words, and contain no special characters or quotes."

// PracticeText returns a paragraph sized for minutes. Provider failures fall
// back to the text bank, then the word generator, then a fixed sentence. The
// only error is ctx's.
func (s *Service) PracticeText(ctx context.Context, minutes int) (Text, error) {
	words := WordCount(minutes)
	prompt := PracticePrompt(words, s.pickTopic(Topics))
	if text, ok := s.generate(ctx, prompt); ok {
		return Text{Body: text, Source: SourceProvider}, nil
	}
	if err := ctx.Err(); err != nil {
		return Text{}, err
	}
	if text, ok := s.bank.Random(minutes); ok {
		return Text{Body: Normalize(text), Source: SourceBank}, nil
	}
	if s.gen != nil {
		if text := s.gen.Paragraph(words); text != "" {
			return Text{Body: text, Source: SourceGenerator}, nil
		}
	}
	return Text{Body: DefaultPracticeText, Source: SourceDefault}, nil
}

// DailyText returns the contest paragraph, falling back to the one-minute
// bank entries and then a fixed text.
func (s *Service) DailyText(ctx context.Context) (Text, error) {
	if text, ok := s.generate(ctx, ContestPrompt); ok {
		return Text{Body: text, Source: SourceProvider}, nil
	}
	if err := ctx.Err(); err != nil {
		return Text{}, err
	}
	if text, ok := s.bank.Random(1); ok {
		return Text{Body: Normalize(text), Source: SourceBank}, nil
	}
	if s.gen != nil {
		if text := s.gen.Paragraph(dailyWordCount); text != "" {
			return Text{Body: text, Source: SourceGenerator}, nil
		}
	}
	return Text{Body: DefaultDailyText, Source: SourceDefault}, nil
}

func (s *Service) generate(ctx context.Context, prompt string) (string, bool) {
	if s.provider == nil {
		return "", false
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.provider.Generate(ctx, Request{Prompt: prompt, Temperature: temperature})
	if err != nil {
		s.logger.Warn("text generation failed, using fallback", "model", s.provider.ModelID(), "error", err)
		return "", false
	}
	text := Normalize(resp.Text)
	if text == "" {
		s.logger.Warn("text generation returned blank text, using fallback", "model", s.provider.ModelID())
		return "", false
	}
	return text, true
}

// Normalize trims the text and collapses all whitespace runs to one space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
