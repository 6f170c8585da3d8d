package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/verte-zerg/neontype/internal/config"
	"github.com/verte-zerg/neontype/internal/generator"
	"github.com/verte-zerg/neontype/internal/store"
	"github.com/verte-zerg/neontype/internal/textgen"
	"github.com/verte-zerg/neontype/internal/texts"
	"github.com/verte-zerg/neontype/internal/wordlist"
)

func newLogger(format, level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openStore(ctx context.Context, s config.Settings) (store.Store, error) {
	switch s.StoreBackend {
	case config.BackendMongo:
		st, err := store.OpenMongo(ctx, s.MongoURI, s.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to open mongo store: %w", err)
		}
		return st, nil
	default:
		st, err := store.Open(s.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		return st, nil
	}
}

// newTextService builds the text pipeline: provider, then text bank, then
// the word list generator. A provider that fails to initialize leaves the
// service in fallback-only mode.
func newTextService(ctx context.Context, s config.Settings, logger *slog.Logger) (*textgen.Service, *texts.Bank, error) {
	bank, err := texts.Load(s.TextsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load texts: %w", err)
	}

	opts := []textgen.Option{
		textgen.WithLogger(logger),
		textgen.WithTimeout(s.RequestTimeout),
	}
	if s.WordListPath != "" {
		words, err := wordlist.LoadWords(s.WordListPath, wordlist.FilterForLang("en"))
		if err != nil {
			logger.Warn("word list unavailable", "path", s.WordListPath, "error", err)
		} else {
			opts = append(opts, textgen.WithGenerator(generator.New(words)))
		}
	}

	retry := textgen.DefaultRetryConfig()
	retry.MaxAttempts = s.MaxRetries
	provider, err := textgen.NewProvider(ctx, textgen.ProviderConfig{
		Provider: s.Provider,
		APIKey:   s.APIKey,
		Model:    s.Model,
		Retry:    retry,
	})
	if err != nil {
		logger.Warn("text provider unavailable, using fallback texts", "provider", s.Provider, "error", err)
		provider = nil
	}
	return textgen.NewService(provider, bank, opts...), bank, nil
}
