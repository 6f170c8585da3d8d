package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/neontype/internal/auth"
	"github.com/verte-zerg/neontype/internal/scores"
	"github.com/verte-zerg/neontype/internal/server"
)

var (
	serveAddr  string
	serveStore string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :5000)")
	cmd.Flags().StringVar(&serveStore, "store", "", "store backend: sqlite or mongo")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		settings.Addr = serveAddr
	}
	if cmd.Flags().Changed("store") {
		settings.StoreBackend = serveStore
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	logger := newLogger(settings.LogFormat, settings.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := openStore(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Error("failed to close store", "error", cerr)
		}
	}()

	texts, bank, err := newTextService(ctx, settings, logger)
	if err != nil {
		return err
	}
	if err := bank.Watch(ctx, settings.TextsPath,
		func(n int) { logger.Info("texts reloaded", "count", n) },
		func(err error) { logger.Warn("texts reload failed", "error", err) },
	); err != nil {
		logger.Warn("texts hot reload disabled", "path", settings.TextsPath, "error", err)
	}

	svc := scores.NewService(st, settings.IdentityKey, scores.WithLocation(settings.Location))
	contests := scores.NewContests(st, texts, settings.Location, logger)

	app := server.New(server.Deps{
		Settings: settings,
		Store:    st,
		Texts:    texts,
		Scores:   svc,
		Contests: contests,
		Auth:     auth.NewService(auth.GoogleVerifier{ClientID: settings.GoogleClientID}, st),
		Logger:   logger,
	})
	logger.Info("texts loaded", "count", bank.Len(), "path", settings.TextsPath)
	return app.Run(ctx)
}

func newDailyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daily",
		Short: "Create today's contest text if missing",
		Args:  cobra.NoArgs,
		RunE:  runDailyCmd,
	}
}

func runDailyCmd(cmd *cobra.Command, _ []string) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	logger := newLogger(settings.LogFormat, settings.LogLevel, os.Stderr)
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

	texts, _, err := newTextService(ctx, settings, logger)
	if err != nil {
		return err
	}
	contest, created, err := scores.NewContests(st, texts, settings.Location, logger).Ensure(ctx)
	if err != nil {
		return fmt.Errorf("failed to create daily contest: %w", err)
	}
	status := "exists"
	if created {
		status = "created"
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Contest %s %s\n\n%s\n", contest.Date, status, contest.Text); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
