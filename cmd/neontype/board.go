package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/neontype/internal/boardui"
	"github.com/verte-zerg/neontype/internal/model"
	"github.com/verte-zerg/neontype/internal/scores"
	"github.com/verte-zerg/neontype/internal/stats"
)

const defaultTrendWindow = 5

var (
	boardUser  string
	boardPlain bool

	historySince  string
	historyLast   int
	historyWindow int
)

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show today's contest leaderboard",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboardCmd,
	}
	cmd.Flags().StringVar(&boardUser, "user", "", "name or email to locate on the board")
	cmd.Flags().BoolVar(&boardPlain, "plain", false, "print a plain table instead of the TUI")
	return cmd
}

func runLeaderboardCmd(cmd *cobra.Command, _ []string) error {
	settings, fileCfg, err := loadSettings()
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("user") {
		var name, email string
		if fileCfg.Practice.Name != nil {
			name = *fileCfg.Practice.Name
		}
		if fileCfg.Practice.Email != nil {
			email = *fileCfg.Practice.Email
		}
		boardUser = model.UserKey(settings.IdentityKey, name, email)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close store: %v\n", cerr)
		}
	}()

	svc := scores.NewService(st, settings.IdentityKey, scores.WithLocation(settings.Location))
	user := model.UserKey(settings.IdentityKey, boardUser, boardUser)

	if boardPlain {
		board, err := svc.Leaderboard(ctx, user)
		if err != nil {
			return fmt.Errorf("failed to load leaderboard: %w", err)
		}
		return boardui.RenderPlain(cmd.OutOrStdout(), svc.Today(), board)
	}

	load := func(ctx context.Context) (model.Leaderboard, error) {
		return svc.Leaderboard(ctx, user)
	}
	program := tea.NewProgram(boardui.NewModel(svc.Today(), load), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run leaderboard TUI: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show local session history",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&historyWindow, "window", defaultTrendWindow, "moving average window")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if historyWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}
	cfg := model.HistoryConfig{Since: sinceTime, Last: historyLast, Window: historyWindow}

	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := openStore(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close store: %v\n", cerr)
		}
	}()

	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, sessions); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderSessionTable(out, sessions); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderTrend(out, sessions, cfg.Window, stats.TerminalWidth()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
