package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-quiz/internal/config"
	"github.com/gokatarajesh/trivia-quiz/internal/logging"
	"github.com/gokatarajesh/trivia-quiz/internal/opentdb"
	"github.com/gokatarajesh/trivia-quiz/internal/quiz"
	"github.com/gokatarajesh/trivia-quiz/internal/server"
	"github.com/gokatarajesh/trivia-quiz/internal/session"
	"github.com/gokatarajesh/trivia-quiz/internal/throttle"
	"github.com/gokatarajesh/trivia-quiz/internal/web"
	ws "github.com/gokatarajesh/trivia-quiz/pkg/http/ws"
)

// Application aggregates shared infrastructure (sessions, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	redis    *redis.Client
	http     *http.Server
	sessions *session.Manager
	hub      *ws.Hub

	cancel    context.CancelFunc
	bgCancels []context.CancelFunc
}

// New bootstraps logger, question client, throttle store, sessions and the
// HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	var redisClient *redis.Client
	var store throttle.Store
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		store = throttle.NewRedisStore(redisClient, 2*cfg.Quiz.MinInterval)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("throttle state in redis")
	} else {
		store = throttle.NewMemoryStore(2 * cfg.Quiz.MinInterval)
		logger.Warn().Msg("REDIS_ADDR not set; throttle state kept in memory")
	}

	client := opentdb.NewClient(cfg.OpenTDB.BaseURL, &http.Client{Timeout: cfg.OpenTDB.HTTPTimeout})

	appCtx, cancel := context.WithCancel(ctx)
	sessions := session.NewManager(appCtx, session.Deps{
		Tokens:    client,
		Questions: client,
		Engine: quiz.Options{
			Throttle: throttle.New(cfg.Quiz.MinInterval, store, nil),
			MaxWrong: cfg.Quiz.MaxWrongAnswers,
			Metrics:  quiz.NewMetrics(prometheus.DefaultRegisterer),
		},
	}, session.ManagerOptions{
		IdleTTL:       cfg.Session.IdleTTL,
		SweepInterval: cfg.Session.SweepInterval,
		Registerer:    prometheus.DefaultRegisterer,
	}, logger)

	signer := session.NewCookieSigner([]byte(cfg.Session.Secret), cfg.Session.CookieTTL, cfg.Name)
	wsHub := ws.NewHub(logger)
	handlers := web.NewHandlers(sessions, signer, wsHub, web.Options{
		SecureCookies: cfg.Env == "production",
	}, logger)

	apiServer := server.NewHTTPServer(cfg, logger, redisClient, handlers)

	return &Application{
		cfg:       cfg,
		logger:    logger,
		redis:     redisClient,
		http:      apiServer,
		sessions:  sessions,
		hub:       wsHub,
		cancel:    cancel,
		bgCancels: make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	a.hub.CloseAll()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.sessions.CloseAll()
	a.cancel()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := a.sessions.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("session sweeper stopped")
		}
	}()
}
