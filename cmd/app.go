package cmd

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/challan/config"
	"example.com/backstage/services/challan/internal/cache"
	"example.com/backstage/services/challan/internal/db"
	"example.com/backstage/services/challan/internal/messaging"
	"example.com/backstage/services/challan/internal/metrics"
	"example.com/backstage/services/challan/internal/pdf"
	"example.com/backstage/services/challan/internal/repository"
	"example.com/backstage/services/challan/internal/search"
	"example.com/backstage/services/challan/internal/service"
	"example.com/backstage/services/challan/internal/tracing"
)

// app holds the collaborators shared by serve, worker and backup
type app struct {
	db        *gorm.DB
	metrics   *metrics.Metrics
	tracer    *tracing.NewRelicTracer
	cache     *cache.RedisCache
	publisher *messaging.ServiceBusPublisher
	service   *service.ChallanService
}

// newApp connects the store, runs migrations and wires the optional
// integrations. Optional integrations that fail to start are skipped.
func newApp(cfg config.Config, source string) (*app, error) {
	a := &app{metrics: metrics.NewMetrics()}

	conn, err := db.Connect(cfg.Database, a.metrics)
	if err != nil {
		return nil, err
	}
	a.db = conn

	if err := db.Migrate(conn); err != nil {
		db.Close(conn)
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	deps := service.Dependencies{
		Repository:    repository.NewChallanRepository(conn),
		Renderer:      pdf.NewRenderer(cfg.Document),
		Metrics:       a.metrics,
		RegisterTitle: cfg.Document.Title,
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	} else {
		a.tracer = tracer
		deps.Tracer = tracer
	}

	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		} else {
			a.cache = redisCache
			deps.Cache = redisCache
		}
	}

	if cfg.Elastic.Enabled {
		elasticClient, err := search.NewElasticClient(cfg.Elastic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search indexing")
		} else {
			deps.Indexer = elasticClient
		}
	}

	if cfg.ServiceBus.ConnectionString != "" {
		publisher, err := messaging.NewServiceBusPublisher(cfg.ServiceBus, source)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Azure Service Bus, continuing without events")
		} else {
			a.publisher = publisher
			deps.Publisher = publisher
		}
	}

	a.service = service.NewChallanService(deps)
	return a, nil
}

// Close releases every connection the app opened
func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Service Bus publisher")
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis cache")
		}
	}
	if a.tracer != nil {
		a.tracer.Close()
	}
	db.Close(a.db)
}

// tracerOrNil avoids handing a nil *NewRelicTracer to an interface
func (a *app) tracerOrNil() tracing.Tracer {
	if a.tracer == nil {
		return nil
	}
	return a.tracer
}
