package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/WebisityStudio/CircleEye-sub000/internal/api"
	"github.com/WebisityStudio/CircleEye-sub000/internal/api/handlers/http/public"
	"github.com/WebisityStudio/CircleEye-sub000/internal/api/handlers/http/stream"
	"github.com/WebisityStudio/CircleEye-sub000/internal/auth"
	"github.com/WebisityStudio/CircleEye-sub000/internal/config"
	"github.com/WebisityStudio/CircleEye-sub000/internal/observability"
	"github.com/WebisityStudio/CircleEye-sub000/internal/redis"
	"github.com/WebisityStudio/CircleEye-sub000/internal/service"
	"github.com/WebisityStudio/CircleEye-sub000/internal/storage/postgres"
)

type Components struct {
	logger     *slog.Logger
	HttpServer *api.Server
	Postgres   *postgres.Postgres
	Redis      *redis.Redis
}

func InitComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	logger.Info("initializing Postgres")
	storage, err := postgres.NewPostgres(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	logger.Info("initializing Redis")
	redisClient, err := redis.NewRedis(ctx, cfg, logger)
	if err != nil {
		storage.Pool.Close()
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	changeStream := redis.NewChangeStream(redisClient, logger)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	clock := clockwork.NewRealClock()

	store := service.NewIncidentStore(
		storage.Incidents,
		storage.Likes,
		auth.ContextProvider{},
		changeStream,
		logger,
		metrics,
		clock,
		service.StoreOptions{
			DefaultRadiusKm:  cfg.Incidents.DefaultRadiusKm,
			NearbyLimit:      cfg.Incidents.NearbyLimit,
			BoundsLimit:      cfg.Incidents.BoundsLimit,
			Lifetime:         cfg.Incidents.Lifetime(),
			GeohashPrecision: cfg.Incidents.GeohashPrecision,
		},
	)

	publicHandler := public.NewHandler(logger, store)
	streamHandler := stream.NewHandler(logger, store, changeStream, metrics, clock, cfg.Incidents)

	httpServer := api.NewServer(cfg, logger, publicHandler, streamHandler)
	logger.Info("initialized server")

	return &Components{
		logger:     logger,
		HttpServer: httpServer,
		Postgres:   storage,
		Redis:      redisClient,
	}, nil
}

func SetupLogger(env string) *slog.Logger {
	switch env {
	case "local":
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	case "dev":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	}
}

func (c *Components) ShutdownAll() {
	start := time.Now()
	c.logger.Info("component shutdown started")

	c.Postgres.Pool.Close()
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Error("redis close failed", slog.String("err", err.Error()))
		}
	}

	c.logger.Info("all components shut down",
		slog.Duration("latency", time.Since(start)))
}
