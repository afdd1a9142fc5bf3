// Package bootstrap assembles the resource API from configuration. The HTTP
// server and the Lambda entry point share it.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sifan077/ResourceHub/config"
	"github.com/sifan077/ResourceHub/internal/app/model"
	"github.com/sifan077/ResourceHub/internal/app/repository"
	"github.com/sifan077/ResourceHub/internal/app/secret"
	appserver "github.com/sifan077/ResourceHub/internal/app/server"
	"github.com/sifan077/ResourceHub/internal/app/service"
	inthttp "github.com/sifan077/ResourceHub/internal/http/handler"
	awsclient "github.com/sifan077/ResourceHub/internal/infra/aws"
	natsclient "github.com/sifan077/ResourceHub/internal/infra/nats"
	"github.com/sifan077/ResourceHub/internal/infra/perplexity"
	infraPostgres "github.com/sifan077/ResourceHub/internal/infra/postgres"
	"github.com/sifan077/ResourceHub/internal/infra/prometheus"
	infraRedis "github.com/sifan077/ResourceHub/internal/infra/redis"
	"go.uber.org/zap"
)

// Runtime is a fully wired application.
type Runtime struct {
	Server   *appserver.Server
	Registry *prom.Registry
	Metrics  *prometheus.Metrics

	closers []func()
}

// Close releases connections and background workers in reverse order of creation.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

type builder struct {
	cfg    *config.Config
	log    *zap.Logger
	rt     *Runtime
	checks map[string]inthttp.HealthCheck

	awsCfg    *aws.Config
	loadAWS   func(ctx context.Context, cfg config.AWSConfig) (aws.Config, error)
	publisher service.ResourcePublisher
}

// Build connects every configured backend and returns the wired runtime. On
// error, whatever was opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger, middleware ...fiber.Handler) (*Runtime, error) {
	b := newBuilder(cfg, log)

	rt, err := b.build(ctx, middleware)
	if err != nil {
		b.rt.Close()
		return nil, err
	}
	return rt, nil
}

func newBuilder(cfg *config.Config, log *zap.Logger) *builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &builder{
		cfg:     cfg,
		log:     log,
		rt:      &Runtime{},
		checks:  make(map[string]inthttp.HealthCheck),
		loadAWS: awsclient.LoadConfig,
	}
}

func (b *builder) build(ctx context.Context, middleware []fiber.Handler) (*Runtime, error) {
	if b.cfg.Prometheus.Enabled {
		b.rt.Registry = prom.NewRegistry()
		b.rt.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		b.rt.Metrics = prometheus.NewMetrics(b.rt.Registry)
	}

	repo, err := b.repository(ctx)
	if err != nil {
		return nil, err
	}

	secrets, err := b.secrets(ctx)
	if err != nil {
		return nil, err
	}

	if err := b.events(); err != nil {
		return nil, err
	}

	resources := service.NewResourceService(repo, b.publisher, b.log, b.cfg.App.Location())
	enricher := service.NewEnricher(
		repo,
		secrets,
		perplexity.NewClient(perplexity.Config{
			BaseURL: b.cfg.Perplexity.BaseURL,
			Model:   b.cfg.Perplexity.Model,
			Timeout: b.cfg.Perplexity.Timeout,
		}),
		b.publisher,
		b.rt.Metrics,
		b.log,
		service.EnricherConfig{
			SecretName:       b.cfg.Perplexity.APIKeyParam,
			TTLDays:          b.cfg.Enrich.TTLDays,
			WriteConcurrency: b.cfg.Enrich.WriteConcurrency,
		},
	)

	b.rt.Server = appserver.New(appserver.Dependencies{
		Logger:       b.log,
		Resources:    resources,
		Enricher:     enricher,
		Metrics:      b.rt.Metrics,
		HealthChecks: b.checks,
		Middleware:   middleware,
	})

	return b.rt, nil
}

// repository builds the record store for the configured driver, then layers the
// cache and instrumentation on top.
func (b *builder) repository(ctx context.Context) (repository.ResourceRepository, error) {
	var repo repository.ResourceRepository

	switch b.cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := infraPostgres.NewGorm(b.cfg.Postgres, b.log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("postgres: retrieve sql db: %w", err)
		}
		b.closeWith(func() { _ = sqlDB.Close() })

		if err := infraPostgres.AutoMigrate(ctx, db, &model.Resource{}); err != nil {
			return nil, err
		}
		b.checks["postgres"] = sqlDB.PingContext

		store := repository.NewGormResourceRepository(db)
		sweeper := service.NewExpirySweeper(b.log, store, b.cfg.Sweeper.Interval)
		sweeper.Start()
		b.closeWith(sweeper.Stop)

		repo = store
		b.log.Info("Using Postgres record store",
			zap.String("host", b.cfg.Postgres.Host),
			zap.String("database", b.cfg.Postgres.Database),
		)

	case config.DriverDynamoDB:
		awsCfg, err := b.aws(ctx)
		if err != nil {
			return nil, err
		}
		client := awsclient.NewDynamoClient(awsCfg, b.cfg.AWS.Endpoint)
		table := b.cfg.Store.Table
		b.checks["dynamodb"] = func(ctx context.Context) error {
			_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
			return err
		}

		repo = repository.NewDynamoResourceRepository(client, table, b.cfg.Store.TypeIndex)
		b.log.Info("Using DynamoDB record store",
			zap.String("table", table),
			zap.String("type_index", b.cfg.Store.TypeIndex),
		)

	default:
		return nil, config.ErrUnknownDriver
	}

	if b.cfg.Redis.Enabled {
		rdb, err := infraRedis.NewClient(ctx, b.cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.closeWith(func() { _ = rdb.Close() })
		b.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

		repo = repository.NewCachedResourceRepository(repo, rdb, b.cfg.Redis.CacheTTL, b.log)
		b.log.Info("Redis read-through cache enabled", zap.Duration("ttl", b.cfg.Redis.CacheTTL))
	}

	if b.rt.Metrics != nil {
		repo = repository.NewInstrumentedResourceRepository(repo, b.rt.Metrics)
	}

	return repo, nil
}

// secrets prefers a configured key and otherwise reads it from SSM.
func (b *builder) secrets(ctx context.Context) (secret.Provider, error) {
	if b.cfg.Perplexity.APIKey != "" {
		return secret.NewStaticProvider(b.cfg.Perplexity.APIKey), nil
	}

	awsCfg, err := b.aws(ctx)
	if err != nil {
		return nil, err
	}
	return secret.NewSSMProvider(awsclient.NewSSMClient(awsCfg)), nil
}

func (b *builder) events() error {
	if !b.cfg.NATS.Enabled {
		return nil
	}

	conn, js, err := natsclient.Connect(b.cfg.NATS, b.log)
	if err != nil {
		return err
	}
	b.closeWith(func() { _ = conn.Drain() })
	b.checks["nats"] = func(context.Context) error {
		if status := conn.Status(); status != nats.CONNECTED {
			return fmt.Errorf("nats: connection %s", status)
		}
		return nil
	}

	publisher := service.NewNATSResourcePublisher(js)
	if err := publisher.EnsureStream(); err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	b.publisher = publisher
	b.log.Info("Publishing resource events to NATS", zap.String("stream", model.ResourceStreamName))
	return nil
}

func (b *builder) aws(ctx context.Context) (aws.Config, error) {
	if b.awsCfg != nil {
		return *b.awsCfg, nil
	}
	awsCfg, err := b.loadAWS(ctx, b.cfg.AWS)
	if err != nil {
		return aws.Config{}, err
	}
	b.awsCfg = &awsCfg
	return awsCfg, nil
}

func (b *builder) closeWith(fn func()) {
	b.rt.closers = append(b.rt.closers, fn)
}
