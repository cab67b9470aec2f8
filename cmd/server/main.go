package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/coinkong/internal/auth"
	"github.com/ksred/coinkong/internal/clock"
	"github.com/ksred/coinkong/internal/commands"
	"github.com/ksred/coinkong/internal/config"
	"github.com/ksred/coinkong/internal/database"
	"github.com/ksred/coinkong/internal/exchange"
	"github.com/ksred/coinkong/internal/journal"
	"github.com/ksred/coinkong/internal/notify"
	"github.com/ksred/coinkong/internal/observability"
	"github.com/ksred/coinkong/internal/quote"
	"github.com/ksred/coinkong/internal/random"
	"github.com/ksred/coinkong/internal/swap"
	"github.com/ksred/coinkong/pkg/middleware"
	"github.com/ksred/coinkong/pkg/response"
)

const heartbeatInterval = 30 * time.Second

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// app holds the wired components the HTTP layer and shutdown need
type app struct {
	settings  *config.Settings
	processor *swap.Processor
	ws        *notify.Manager
	metrics   *observability.Metrics

	auth            *auth.Service
	authHandlers    *auth.GinHandlers
	commandHandlers *commands.GinHandlers
}

// newApp wires every component from settings
func newApp(settings *config.Settings, clk clock.Clock, rnd random.Source) (*app, error) {
	db, err := database.NewDatabase(settings.JournalDSN)
	if err != nil {
		return nil, err
	}
	events := journal.NewDatabase(db)

	store := config.NewStore(settings)
	metrics := observability.NewMetrics("coinkong")
	ws := notify.NewManager()

	router := exchange.NewRouter(store, rnd, clk, settings.DexDelay, settings.DexFailureRate)
	registry := swap.NewRegistry()
	processor := swap.NewProcessor(registry, router, notify.Multi{notify.LogNotifier{}, ws}, clk, rnd, swap.Options{
		InitiationDelay:   settings.InitiationDelay,
		ConfirmationDelay: settings.ConfirmationDelay,
		SuccessRate:       settings.SuccessRate,
	}).
		WithJournal(events).
		WithMetrics(metrics)

	service := commands.NewService(store, quote.NewEngine(store, rnd), registry, processor, clk).
		WithHistory(events).
		WithMetrics(metrics)

	authService := auth.NewService(settings.JWTSecret)
	authService.RegisterAPICredentials(settings.GatewayAPIKey, settings.GatewayAPISecret)

	return &app{
		settings:        settings,
		processor:       processor,
		ws:              ws,
		metrics:         metrics,
		auth:            authService,
		authHandlers:    auth.NewGinHandlers(authService),
		commandHandlers: commands.NewGinHandlers(service),
	}, nil
}

// main loads configuration, serves the bot API and drains in-flight swaps
// on shutdown
func main() {
	settings, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if settings.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if settings.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(settings, clock.Real{}, random.NewTimeSeeded())
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize application")
	}

	heartbeatCtx, heartbeatCancel := context.WithCancel(context.Background())
	defer heartbeatCancel()
	go a.ws.Heartbeat(heartbeatCtx, heartbeatInterval)

	srv := &http.Server{
		Addr:    ":" + settings.Port,
		Handler: a.routes(),
	}

	go func() {
		zlog.Info().Str("addr", srv.Addr).Msg("CoinKong bot API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Swaps keep running after the listener closes; give them the rest of
	// the shutdown window before dropping the gateways.
	zlog.Info().Int("in_flight", a.processor.InFlight()).Msg("Waiting for in-flight swaps")
	if err := a.processor.Wait(shutdownCtx); err != nil {
		zlog.Warn().Err(err).Msg("In-flight swaps abandoned")
	}
	heartbeatCancel()
	a.ws.CloseAll()

	zlog.Info().Msg("Server exiting")
}

// routes configures all API endpoints:
// - Auth routes: public, exchange gateway credentials for a token
// - Command routes: JWT protected, act for the user in X-User-ID
// - Notification stream: JWT protected websocket
// - Metrics and health: unauthenticated
func (a *app) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{
			"status":       "ok",
			"in_flight":    a.processor.InFlight(),
			"ws_listeners": a.ws.Count(),
		})
	})
	router.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", a.authHandlers.GenerateTokenHandler())
		}

		notifications := v1.Group("/notifications")
		notifications.Use(middleware.JWTAuth(a.auth))
		{
			notifications.GET("/ws", a.ws.Handler())
		}

		bot := v1.Group("")
		bot.Use(middleware.JWTAuth(a.auth))
		a.commandHandlers.RegisterRoutes(bot)
	}

	return router
}
