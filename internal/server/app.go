// Package server exposes typing texts, contest scores and live sessions over
// HTTP and websockets.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/verte-zerg/neontype/internal/auth"
	"github.com/verte-zerg/neontype/internal/config"
	"github.com/verte-zerg/neontype/internal/scores"
	"github.com/verte-zerg/neontype/internal/store"
	"github.com/verte-zerg/neontype/internal/textgen"
	"github.com/verte-zerg/neontype/internal/typing"
)

// Deps are the services an App serves.
type Deps struct {
	Settings config.Settings
	Store    store.Store
	Texts    *textgen.Service
	Scores   *scores.Service
	Contests *scores.Contests
	Auth     *auth.Service
	Logger   *slog.Logger
	// Clock drives live websocket sessions. Nil means the system clock.
	Clock typing.Clock
}

// App holds every dependency of the HTTP server.
type App struct {
	settings config.Settings
	store    store.Store
	texts    *textgen.Service
	scores   *scores.Service
	contests *scores.Contests
	auth     *auth.Service
	logger   *slog.Logger
	clock    typing.Clock

	upgrader  websocket.Upgrader
	startTime time.Time

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// New creates an App.
func New(d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := d.Clock
	if clock == nil {
		clock = typing.SystemClock
	}
	app := &App{
		settings:  d.Settings,
		store:     d.Store,
		texts:     d.Texts,
		scores:    d.Scores,
		contests:  d.Contests,
		auth:      d.Auth,
		logger:    logger,
		clock:     clock,
		startTime: time.Now(),
		limiters:  make(map[string]*rate.Limiter),
	}
	app.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     app.checkOrigin,
	}
	return app
}

// Router builds the gin engine with all routes and middleware.
func (app *App) Router() *gin.Engine {
	if app.settings.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(app.loggingMiddleware())
	router.Use(app.corsMiddleware())
	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedPaths([]string{"/ws"})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		app.logger.Warn("failed to set trusted proxies", "error", err)
	}

	api := router.Group("/api", noStoreMiddleware())
	api.POST("/generate-text", app.rateLimitMiddleware(), app.generateTextHandler)
	api.GET("/daily-contest/status", app.contestStatusHandler)
	api.GET("/daily-contest/text", app.contestTextHandler)
	api.POST("/submit-score", app.rateLimitMiddleware(), app.submitScoreHandler)
	api.GET("/leaderboard", app.leaderboardHandler)
	api.POST("/auth/google/signin", app.rateLimitMiddleware(), app.signInHandler)
	api.POST("/auth/register", app.rateLimitMiddleware(), app.registerHandler)

	router.GET("/ws/session", app.sessionHandler)
	router.GET("/healthz", app.healthHandler)
	return router
}

// Run serves HTTP and runs the daily contest job until ctx is cancelled or
// the process receives SIGINT or SIGTERM.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              app.settings.Addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	var wg sync.WaitGroup
	if app.contests != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.contests.Run(ctx, app.settings.DailyCheckInterval)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("server starting", "addr", app.settings.Addr, "env", app.settings.Env,
			"store", app.store.Backend(), "model", app.texts.ModelID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutdown signal received, shutting down server gracefully")
	case err, ok := <-errCh:
		if ok {
			serveErr = fmt.Errorf("failed to serve: %w", err)
		}
		stop()
	}

	timeout := app.settings.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Warn("http server shutdown", "error", err)
	}
	wg.Wait()
	app.logger.Info("server shutdown complete")
	return serveErr
}
