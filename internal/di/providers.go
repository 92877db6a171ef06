package di

import (
	"context"
	"fmt"
	"time"

	"GridPull/internal/domain/repository"
	"GridPull/internal/handler/api"
	internalrepo "GridPull/internal/repository"
	"GridPull/internal/service/aemo"
	"GridPull/internal/service/ratelimit"
	"GridPull/internal/service/token"
	"GridPull/internal/store"
	"GridPull/internal/usecase"
	"GridPull/pkg/cache"
	"GridPull/pkg/config"
	xhttp "GridPull/pkg/http"
	pkgkafka "GridPull/pkg/kafka"
	"GridPull/pkg/logger"
	"GridPull/pkg/metrics"
	"GridPull/pkg/server"

	"github.com/labstack/echo/v4"
)

// Distinct types so wire can tell the two shards apart.
type (
	// IntervalShard holds price intervals.
	IntervalShard *store.Shard
	// AbuseShard holds rate-limit accounting rows.
	AbuseShard *store.Shard
)

const schemaInitTimeout = 10 * time.Second

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideIntervalShard opens the interval shard.
func ProvideIntervalShard(cfg *config.Config) (IntervalShard, error) {
	s, err := store.Open(cfg.Store.DataDir, "intervals")
	if err != nil {
		return nil, fmt.Errorf("interval shard: %w", err)
	}
	return IntervalShard(s), nil
}

// ProvideAbuseShard opens the abuse shard.
func ProvideAbuseShard(cfg *config.Config) (AbuseShard, error) {
	s, err := store.Open(cfg.Store.DataDir, "abuse")
	if err != nil {
		return nil, fmt.Errorf("abuse shard: %w", err)
	}
	return AbuseShard(s), nil
}

// ProvideShards collects the shards for lifecycle management.
func ProvideShards(iv IntervalShard, ab AbuseShard) []*store.Shard {
	return []*store.Shard{(*store.Shard)(iv), (*store.Shard)(ab)}
}

// ProvideIntervalStore creates interval storage and its schema.
func ProvideIntervalStore(shard IntervalShard) (repository.IntervalStore, error) {
	st := internalrepo.NewIntervalStore((*store.Shard)(shard))

	ctx, cancel := context.WithTimeout(context.Background(), schemaInitTimeout)
	defer cancel()
	if err := st.Init(ctx); err != nil {
		return nil, fmt.Errorf("interval schema: %w", err)
	}
	return st, nil
}

// ProvideAbuseStore creates abuse-tracking storage and its schema.
func ProvideAbuseStore(shard AbuseShard) (repository.AbuseStore, error) {
	st := internalrepo.NewAbuseStore((*store.Shard)(shard))

	ctx, cancel := context.WithTimeout(context.Background(), schemaInitTimeout)
	defer cancel()
	if err := st.Init(ctx); err != nil {
		return nil, fmt.Errorf("abuse schema: %w", err)
	}
	return st, nil
}

// ProvideUpstream creates the upstream price client.
func ProvideUpstream(cfg *config.Config) usecase.Upstream {
	return aemo.New(cfg.Upstream.URL, cfg.Upstream.Headers, cfg.Upstream.Timeout)
}

// ProvidePublisher creates the optional Kafka publisher; nil when disabled.
func ProvidePublisher(cfg *config.Config) (repository.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideCache creates the optional latest-query cache; nil when disabled.
func ProvideCache(cfg *config.Config) cache.Service {
	if !cfg.Cache.Enabled {
		return nil
	}
	var redisCache *cache.RedisCache
	if cfg.Cache.Redis.Enabled {
		redisCache = cache.NewRedisCache(cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB)
	}
	return cache.NewLayeredCache(cache.NewMemoryCache(1000), redisCache)
}

// ProvideTokenService parses the signing key set and client allow-list.
func ProvideTokenService(cfg *config.Config) (*token.Service, error) {
	return token.New(cfg.Auth.SigningKeys, cfg.Auth.ClientIDs, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
}

// ProvideLimiter creates the sliding-window rate limiter.
func ProvideLimiter(cfg *config.Config, abuse repository.AbuseStore, m repository.Metrics) *ratelimit.Limiter {
	return ratelimit.New(abuse, m, cfg.RateLimit.Max, cfg.RateLimit.WindowSec)
}

// ProvideIngestor creates the ingestion engine.
func ProvideIngestor(
	up usecase.Upstream,
	st repository.IntervalStore,
	pub repository.Publisher,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *usecase.Ingestor {
	return usecase.NewIngestor(up, st, pub, m, log, cfg.Upstream.FixedOffset)
}

// ProvideQueryEngine creates the query engine.
func ProvideQueryEngine(st repository.IntervalStore, c cache.Service, cfg *config.Config, log *logger.Logger) *usecase.QueryEngine {
	return usecase.NewQueryEngine(st, c, cfg.Cache.LatestTTL, log)
}

// ProvideHandler creates the API handler. Debug routes stay off in production.
func ProvideHandler(
	log *logger.Logger,
	ingestor *usecase.Ingestor,
	query *usecase.QueryEngine,
	tokens *token.Service,
	st repository.IntervalStore,
	abuse repository.AbuseStore,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewHandler(log, ingestor, query, tokens, st, abuse, cfg.Environment != "production")
}

// ProvideMiddleware assembles the gateway middleware applied before routing.
func ProvideMiddleware(limiter *ratelimit.Limiter, log *logger.Logger) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{api.RateLimit(limiter, log)}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	ingestor *usecase.Ingestor,
	handler xhttp.Handler,
	mw []echo.MiddlewareFunc,
	pub repository.Publisher,
	shards []*store.Shard,
) *server.App {
	return server.New(cfg, log, ingestor, handler, mw, pub, shards)
}
