// Package main provides the CLI entrypoint for neontype.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/neontype/internal/config"
	"github.com/verte-zerg/neontype/internal/model"
	"github.com/verte-zerg/neontype/internal/scores"
	"github.com/verte-zerg/neontype/internal/store"
	"github.com/verte-zerg/neontype/internal/textgen"
	"github.com/verte-zerg/neontype/internal/tui"
)

const (
	defaultMinutes = 1
	defaultMode    = string(model.ModePractice)
)

var (
	practiceMinutes int
	practiceMode    string
	practiceName    string
	practiceEmail   string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "neontype",
		Short:         "Typing speed trainer with a daily contest",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().IntVar(&practiceMinutes, "minutes", defaultMinutes, "time limit in minutes (1, 2 or 5)")
	rootCmd.Flags().StringVar(&practiceMode, "mode", defaultMode, "practice, test or contest")
	rootCmd.Flags().StringVar(&practiceName, "name", "", "contestant name (contest mode)")
	rootCmd.Flags().StringVar(&practiceEmail, "email", "", "contestant email (contest mode)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newDailyCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

// loadSettings reads .env, the TOML file and the environment.
func loadSettings() (config.Settings, config.FileConfig, error) {
	config.LoadDotEnv()
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.Settings{}, config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	settings, err := config.Resolve(fileCfg)
	if err != nil {
		return config.Settings{}, config.FileConfig{}, fmt.Errorf("failed to resolve config: %w", err)
	}
	return settings, fileCfg, nil
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	settings, fileCfg, err := loadSettings()
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "minutes", &practiceMinutes, fileCfg.Practice.Minutes)
	applyStringConfig(cmd, "mode", &practiceMode, fileCfg.Practice.Mode)
	applyStringConfig(cmd, "name", &practiceName, fileCfg.Practice.Name)
	applyStringConfig(cmd, "email", &practiceEmail, fileCfg.Practice.Email)

	cfg, err := practiceConfig(settings)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	// The alternate screen owns the terminal; outcomes are printed after it closes.
	logger := slog.New(slog.DiscardHandler)

	st, err := openStore(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close store: %v\n", cerr)
		}
	}()

	texts, _, err := newTextService(ctx, settings, logger)
	if err != nil {
		return err
	}

	opts := tui.Options{Config: cfg, Store: st}
	var sink *scores.ScoreSink
	if cfg.Mode == model.ModeContest {
		text, s, err := prepareContest(ctx, settings, cfg, st, texts, logger)
		if err != nil {
			return err
		}
		sink = s
		opts.Sink = sink
		opts.Text = func(context.Context) (string, error) { return text, nil }
	} else {
		opts.Text = func(ctx context.Context) (string, error) {
			t, err := texts.PracticeText(ctx, cfg.Minutes)
			if err != nil {
				return "", err
			}
			return t.Body, nil
		}
	}

	program := tea.NewProgram(tui.NewModel(opts), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	if sink != nil {
		reportContestOutcome(sink)
	}
	return nil
}

func practiceConfig(settings config.Settings) (model.Config, error) {
	if !model.ValidMinutes(practiceMinutes) {
		return model.Config{}, fmt.Errorf("--minutes must be 1, 2 or 5")
	}
	mode, ok := model.ParseMode(practiceMode)
	if !ok {
		return model.Config{}, fmt.Errorf("--mode must be practice, test or contest")
	}
	return model.Config{
		Minutes:      practiceMinutes,
		Mode:         mode,
		Name:         strings.TrimSpace(practiceName),
		Email:        strings.TrimSpace(practiceEmail),
		TextsPath:    settings.TextsPath,
		WordListPath: settings.WordListPath,
	}, nil
}

// prepareContest checks the contestant has not played today and returns
// today's text, creating the contest locally when the day has none yet.
func prepareContest(ctx context.Context, settings config.Settings, cfg model.Config, st store.Store, texts *textgen.Service, logger *slog.Logger) (string, *scores.ScoreSink, error) {
	svc := scores.NewService(st, settings.IdentityKey, scores.WithLocation(settings.Location))
	key := model.UserKey(svc.IdentityKey(), cfg.Name, cfg.Email)
	if key == "" {
		return "", nil, fmt.Errorf("contest mode requires --%s", svc.IdentityKey())
	}
	if cfg.Name == "" {
		return "", nil, fmt.Errorf("contest mode requires --name")
	}
	played, err := svc.Status(ctx, key)
	if err != nil {
		return "", nil, fmt.Errorf("failed to check contest status: %w", err)
	}
	if played {
		return "", nil, fmt.Errorf("you have already played today's contest (%s)", svc.Today())
	}

	contests := scores.NewContests(st, texts, settings.Location, logger)
	contest, _, err := contests.Ensure(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load today's contest: %w", err)
	}
	sink := scores.NewScoreSink(ctx, svc, cfg.Name, cfg.Email, model.ModeContest, logger)
	return contest.Text, sink, nil
}

func reportContestOutcome(sink *scores.ScoreSink) {
	accepted, err := sink.Wait()
	switch {
	case errors.Is(err, scores.ErrAlreadyPlayed):
		logErrln("Score not saved: today's contest was already played.")
	case err != nil:
		logErrf("Score not saved: %v\n", err)
	case accepted != nil:
		logErrln(accepted.Message)
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.DefaultConfigTemplate), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
