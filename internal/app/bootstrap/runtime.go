// Package bootstrap wires the booking runtime from configuration.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/careslot/internal/availability"
	"github.com/wolfman30/careslot/internal/booking"
	"github.com/wolfman30/careslot/internal/calcom"
	appconfig "github.com/wolfman30/careslot/internal/config"
	"github.com/wolfman30/careslot/internal/normalize"
	"github.com/wolfman30/careslot/internal/observability/metrics"
	"github.com/wolfman30/careslot/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, idempotent replay disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects to Postgres or returns nil when DATABASE_URL is
// unset or unreachable. The attempt log is optional, so failures only warn.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *pgxpool.Pool {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("postgres config invalid, attempt log disabled", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Warn("postgres not available, attempt log disabled", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// Runtime is the wired booking core plus the handles main must close.
type Runtime struct {
	Service *booking.Service
	Metrics *metrics.BookingMetrics
	Redis   *redis.Client
	DB      *pgxpool.Pool
}

// Close releases backing connections.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
	if rt.DB != nil {
		rt.DB.Close()
	}
}

// BuildRuntime assembles the Cal.com client, availability reconciler, contact
// validator and booking service. Redis and Postgres are attached when
// configured and reachable.
func BuildRuntime(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg prometheus.Registerer) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}

	var bookingMetrics *metrics.BookingMetrics
	if reg != nil {
		bookingMetrics = metrics.NewBookingMetrics(reg)
	}

	client := calcom.NewClient(calcom.Config{
		BaseURL: cfg.CalcomBaseURL,
		APIKey:  cfg.CalcomAPIKey,
		Timeout: cfg.CalcomTimeout,
	}, logger.With("component", "calcom")).WithMetrics(bookingMetrics)

	reconciler := availability.New(client, cfg.CalcomEventTypeID, logger.With("component", "availability"), bookingMetrics)
	contacts := normalize.NewValidator(logger.With("component", "normalize"), bookingMetrics)

	svc := booking.NewService(client, reconciler, contacts, cfg.CalcomEventTypeID, logger.With("component", "booking")).
		WithMetrics(bookingMetrics)

	rt := &Runtime{Service: svc, Metrics: bookingMetrics}

	if rt.Redis = BuildRedisClient(ctx, cfg, logger, true); rt.Redis != nil {
		svc.WithOutcomeCache(booking.NewRedisOutcomeCache(rt.Redis, cfg.IdempotencyTTL))
		logger.Info("idempotent replay enabled", "ttl", cfg.IdempotencyTTL.String())
	}
	if rt.DB = BuildPostgresPool(ctx, cfg, logger); rt.DB != nil {
		svc.WithAttemptRecorder(booking.NewPostgresAttemptLog(rt.DB))
		logger.Info("booking attempt log enabled")
	}
	return rt, nil
}
