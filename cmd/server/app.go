package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Elelei/Blockchain-Land-Registry-System/internal/bootstrap"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/events"
	jwttoken "github.com/Elelei/Blockchain-Land-Registry-System/internal/jwt_token"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/config"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/database"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/kafka"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/metrics"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/redis"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/platform/tracing"
	ratelimitmw "github.com/Elelei/Blockchain-Land-Registry-System/internal/ratelimit/middleware"
	ratelimitmodels "github.com/Elelei/Blockchain-Land-Registry-System/internal/ratelimit/models"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/ratelimit/store/bucket"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/registry"
	"github.com/Elelei/Blockchain-Land-Registry-System/internal/registry/handler"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/audit"
	auditmemory "github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/audit/store/memory"
	auditpg "github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/audit/store/postgres"
)

// tokenAudience is the aud claim of every caller token.
const tokenAudience = "land-registry-api"

// app is a fully wired registry process.
type app struct {
	router   http.Handler
	registry *registry.Registry
	closers  []func(context.Context) error
}

// Close releases resources in reverse acquisition order.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func buildApp(ctx context.Context, cfg config.Server, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	tp, shutdownTracing, err := tracing.Setup(cfg.TracingEnabled, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	a.onClose(shutdownTracing)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	stores, err := openStores(cfg, a)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(events.WithLogger(logger), events.WithRegisterer(reg))
	a.onClose(func(context.Context) error {
		bus.Close()
		return nil
	})
	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		a.onClose(func(context.Context) error { return redisClient.Close() })
	}
	if err := subscribeSinks(ctx, cfg, bus, redisClient, a, logger); err != nil {
		return nil, err
	}

	assembly := registry.Assemble(stores, nil, logger,
		registry.WithPublisher(bus),
		registry.WithTracerProvider(tp),
		registry.WithMetrics(m),
	)
	a.registry = assembly.Registry

	seed, err := bootstrap.LoadSeed(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	if err := bootstrap.Apply(ctx, assembly.Access, cfg.Superadmins, seed, logger); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	tokens := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, tokenAudience))
	limiter := newRateLimiter(cfg, redisClient, logger)
	a.router = newRouter(cfg, reg, handler.New(assembly.Registry, logger, m, tokens,
		handler.WithRateLimit(limiter.PerCaller),
	))
	return a, nil
}

func openStores(cfg config.Server, a *app) (registry.Stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		return registry.MemoryStores(), nil
	}
	db, err := database.Open(cfg.StoreDriver, cfg.DatabaseDSN)
	if err != nil {
		return registry.Stores{}, err
	}
	a.onClose(func(context.Context) error { return database.Close(db) })
	return registry.GormStores(db)
}

// subscribeSinks attaches the audit trail plus whichever brokers are
// configured.
func subscribeSinks(ctx context.Context, cfg config.Server, bus *events.Bus, redisClient *redis.Client, a *app, logger *slog.Logger) error {
	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	if cfg.AuditDSN != "" {
		db, err := openAudit(ctx, cfg.AuditDSN)
		if err != nil {
			return err
		}
		a.onClose(func(context.Context) error { return db.Close() })
		auditStore = auditpg.New(db)
	}
	bus.Subscribe(events.NewAuditSink(audit.NewPublisher(auditStore)))

	if redisClient != nil {
		bus.Subscribe(events.NewRedisSink(redisClient.Client, cfg.RedisChannel))
		logger.Info("redis fact sink enabled", "channel", cfg.RedisChannel)
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		a.onClose(func(context.Context) error {
			producer.Close()
			return nil
		})
		bus.Subscribe(events.NewKafkaSink(producer, cfg.KafkaTopic))
		logger.Info("kafka fact sink enabled", "topic", cfg.KafkaTopic)
	}
	return nil
}

// newRateLimiter shares windows through redis when it is configured.
func newRateLimiter(cfg config.Server, redisClient *redis.Client, logger *slog.Logger) *ratelimitmw.Middleware {
	var store ratelimitmw.BucketStore = bucket.NewInMemoryBucketStore()
	if redisClient != nil {
		store = bucket.NewRedisBucketStore(redisClient.Client)
	}
	limits := map[ratelimitmodels.Class]ratelimitmodels.Limit{
		ratelimitmodels.ClassWrite: {Requests: cfg.RateLimitWrites, Window: cfg.RateLimitWindow},
		ratelimitmodels.ClassRead:  {Requests: cfg.RateLimitReads, Window: cfg.RateLimitWindow},
	}
	return ratelimitmw.New(store, limits, logger, ratelimitmw.WithDisabled(cfg.RateLimitDisabled))
}

func openAudit(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := database.OpenAudit(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := auditpg.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newRouter(cfg config.Server, reg *prometheus.Registry, h *handler.Handler) http.Handler {
	r := chi.NewRouter()
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	h.Register(r)
	return r
}
