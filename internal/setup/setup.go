// Package setup provides application initialization.
package setup

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/rest"
	"github.com/presetworks/overseer/internal/bot"
	"github.com/presetworks/overseer/internal/database"
	"github.com/presetworks/overseer/internal/interaction"
	"github.com/presetworks/overseer/internal/ratelimit"
	"github.com/presetworks/overseer/internal/redis"
	"github.com/presetworks/overseer/internal/setup/config"
	"github.com/presetworks/overseer/internal/setup/logger"
	"github.com/presetworks/overseer/internal/upstream"
	"go.uber.org/zap"
)

// App bundles the shared resources every component runs on.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Redis    *redis.Manager
	DB       database.Client
	Upstream *upstream.Client
	Rest     rest.Rest
	Verifier *interaction.Verifier
	Router   *interaction.Router
}

// InitializeApp sets up the application in dependency order: configuration,
// logging, stores, clients, then the interaction router with every handler
// registered.
func InitializeApp(ctx context.Context) (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Debug.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	verifier, err := interaction.NewVerifier(cfg.Discord.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse webhook public key: %w", err)
	}

	redisManager := redis.NewManager(&cfg.Redis, log)

	db, err := database.NewConnection(ctx, &cfg.PostgreSQL, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	upstreamClient := upstream.NewClient(&cfg.Upstream, log)
	restClient := rest.New(rest.NewClient(cfg.Discord.Token))

	router := interaction.NewRouter(log)

	ratelimitClient, err := redisManager.GetClient(redis.RatelimitDBIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit Redis client: %w", err)
	}

	limiter := ratelimit.New(ratelimitClient, log)
	router.UseAdvisor(ratelimit.NewMiddleware(limiter, ratelimit.DefaultConfigs(), log))

	allowList := bot.NewAllowList(config.ParseModeratorIDs(cfg.Discord.ModeratorIDs, log))
	bot.New(&cfg.Discord, allowList, restClient, upstreamClient, db.Model().Ban(), db.Model().Preset(), router, log)

	return &App{
		Config:   cfg,
		Logger:   log,
		Redis:    redisManager,
		DB:       db,
		Upstream: upstreamClient,
		Rest:     restClient,
		Verifier: verifier,
		Router:   router,
	}, nil
}

// Cleanup releases shared resources in reverse dependency order.
func (a *App) Cleanup(_ context.Context) {
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}

	a.Redis.Close()

	_ = a.Logger.Sync()
}
