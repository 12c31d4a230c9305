package tracing

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/challan/config"
)

// Tracer defines the interface for tracing
type Tracer interface {
	Middleware() gin.HandlerFunc
	StartSegment(ctx context.Context, name string) *newrelic.Segment
	RecordError(ctx context.Context, err error)
	AddAttribute(ctx context.Context, key string, value interface{})
	Close()
}

// NewRelicTracer implements Tracer using New Relic
type NewRelicTracer struct {
	app     *newrelic.Application
	enabled bool
}

// NewTracer creates a new tracer. Without a license key tracing is disabled.
func NewTracer(cfg config.TracingConfig) (*NewRelicTracer, error) {
	if cfg.LicenseKey == "" {
		log.Warn().Msg("New Relic license key not provided, tracing will be disabled")
		return &NewRelicTracer{enabled: false}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(cfg.DistribTracing),
		newrelic.ConfigAppLogForwardingEnabled(cfg.LogEnabled),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize New Relic")
	}

	return &NewRelicTracer{app: app, enabled: true}, nil
}

// Middleware starts a transaction per request
func (t *NewRelicTracer) Middleware() gin.HandlerFunc {
	if !t.enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return nrgin.Middleware(t.app)
}

// StartSegment starts a segment in the transaction carried by ctx
func (t *NewRelicTracer) StartSegment(ctx context.Context, name string) *newrelic.Segment {
	return newrelic.FromContext(ctx).StartSegment(name)
}

// RecordError records an error in the transaction carried by ctx
func (t *NewRelicTracer) RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	newrelic.FromContext(ctx).NoticeError(err)
}

// AddAttribute adds an attribute to the transaction carried by ctx
func (t *NewRelicTracer) AddAttribute(ctx context.Context, key string, value interface{}) {
	newrelic.FromContext(ctx).AddAttribute(key, value)
}

// Close flushes pending data
func (t *NewRelicTracer) Close() {
	if !t.enabled || t.app == nil {
		return
	}
	t.app.Shutdown(10 * time.Second)
	log.Info().Msg("New Relic tracer shutdown")
}
