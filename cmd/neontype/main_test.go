package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/neontype/internal/config"
	"github.com/verte-zerg/neontype/internal/model"
	"github.com/verte-zerg/neontype/internal/textgen"
)

func TestPracticeConfigValidation(t *testing.T) {
	settings := config.Defaults()
	cases := []struct {
		minutes int
		mode    string
		ok      bool
	}{
		{1, "practice", true},
		{5, "CONTEST", true},
		{2, "", true},
		{3, "practice", false},
		{1, "sprint", false},
	}
	for _, tc := range cases {
		practiceMinutes, practiceMode = tc.minutes, tc.mode
		_, err := practiceConfig(settings)
		if (err == nil) != tc.ok {
			t.Fatalf("minutes=%d mode=%q: unexpected err %v", tc.minutes, tc.mode, err)
		}
	}

	practiceMinutes, practiceMode, practiceName = 2, "test", "  Ann "
	cfg, err := practiceConfig(settings)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Mode != model.ModeTest || cfg.Name != "Ann" || cfg.TimeLimitSeconds() != 120 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestApplyConfigRespectsFlags(t *testing.T) {
	cmd := newRootCmd()
	minutes := 5
	mode := "test"
	if err := cmd.Flags().Set("mode", "contest"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	applyIntConfig(cmd, "minutes", &practiceMinutes, &minutes)
	applyStringConfig(cmd, "mode", &practiceMode, &mode)
	if practiceMinutes != 5 {
		t.Fatalf("expected file minutes to apply, got %d", practiceMinutes)
	}
	if practiceMode != "contest" {
		t.Fatalf("expected flag to win, got %q", practiceMode)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("json", "warn", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected info to be filtered, got %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("expected json output, got %s", out)
	}
	if parseLevel("nonsense") != slog.LevelInfo {
		t.Fatalf("expected unknown levels to default to info")
	}
}

func TestNewTextServiceFallback(t *testing.T) {
	dir := t.TempDir()
	words := filepath.Join(dir, "en.txt")
	if err := os.WriteFile(words, []byte("neon\nlight\ncity\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	settings := config.Defaults()
	settings.Provider = config.ProviderNone
	settings.TextsPath = filepath.Join(dir, "texts.json")
	settings.WordListPath = words

	svc, bank, err := newTextService(context.Background(), settings, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("text service: %v", err)
	}
	if bank.Len() != 0 {
		t.Fatalf("expected empty bank, got %d", bank.Len())
	}
	if svc.ModelID() != "none" {
		t.Fatalf("expected fallback-only service, got %q", svc.ModelID())
	}
	text, err := svc.PracticeText(context.Background(), 1)
	if err != nil {
		t.Fatalf("practice text: %v", err)
	}
	if text.Source != textgen.SourceGenerator {
		t.Fatalf("expected generator text, got %s", text.Source)
	}
}

func TestOpenStoreSQLite(t *testing.T) {
	settings := config.Defaults()
	settings.DBPath = filepath.Join(t.TempDir(), "data", "neontype.db")
	st, err := openStore(context.Background(), settings)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			t.Fatalf("close: %v", cerr)
		}
	}()
	if st.Backend() != config.BackendSQLite {
		t.Fatalf("unexpected backend %q", st.Backend())
	}
}
