package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/challan/internal/cache"
	"example.com/backstage/services/challan/internal/export"
	"example.com/backstage/services/challan/internal/messaging"
	"example.com/backstage/services/challan/internal/metrics"
	"example.com/backstage/services/challan/internal/models"
	"example.com/backstage/services/challan/internal/repository"
	"example.com/backstage/services/challan/internal/tracing"
)

// Renderer produces the challan document
type Renderer interface {
	Render(customerName, challanNo string, items []models.LineItem) ([]byte, error)
}

// DocumentCache holds rendered documents by challan id
type DocumentCache interface {
	GetDocument(ctx context.Context, id uint) (*models.Document, error)
	SetDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, id uint) error
}

// Indexer feeds the search index
type Indexer interface {
	IndexChallan(ctx context.Context, summary models.ChallanSummary) error
}

// EventPublisher announces committed challans
type EventPublisher interface {
	Publish(ctx context.Context, event messaging.Event) error
}

// Dependencies wires a ChallanService. Cache, Indexer and Publisher are optional.
type Dependencies struct {
	Repository repository.ChallanRepository
	Renderer   Renderer
	Cache      DocumentCache
	Indexer    Indexer
	Publisher  EventPublisher
	Metrics    *metrics.Metrics
	Tracer     tracing.Tracer
	// RegisterTitle heads exported registers
	RegisterTitle string
}

// HealthStatus is reported by the health endpoint
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ChallanService creates, lists and serves challans
type ChallanService struct {
	repo          repository.ChallanRepository
	renderer      Renderer
	cache         DocumentCache
	indexer       Indexer
	publisher     EventPublisher
	metrics       *metrics.Metrics
	tracer        tracing.Tracer
	registerTitle string
	now           func() time.Time
}

// NewChallanService creates a new challan service
func NewChallanService(deps Dependencies) *ChallanService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMetrics()
	}
	if deps.Tracer == nil {
		deps.Tracer = &tracing.NewRelicTracer{}
	}
	return &ChallanService{
		repo:          deps.Repository,
		renderer:      deps.Renderer,
		cache:         deps.Cache,
		indexer:       deps.Indexer,
		publisher:     deps.Publisher,
		metrics:       deps.Metrics,
		tracer:        deps.Tracer,
		registerTitle: deps.RegisterTitle,
		now:           time.Now,
	}
}

// CreateChallan validates input, renders the document and stores the challan.
// Nothing is rendered or stored when validation fails.
func (s *ChallanService) CreateChallan(ctx context.Context, input CreateChallanInput) (*models.Challan, error) {
	start := time.Now()
	defer s.metrics.RecordDuration(metrics.TimerCreate, start)

	challan, err := s.createChallan(ctx, input)
	switch {
	case err == nil:
		s.metrics.IncrementCounter(metrics.CounterChallansCreated)
		s.metrics.RecordResult(metrics.RateCreate, nil)
	case models.IsValidation(err) || errors.Is(err, models.ErrDuplicateChallanNo):
		s.metrics.IncrementCounter(metrics.CounterChallansRejected)
	default:
		s.metrics.RecordResult(metrics.RateCreate, err)
		s.tracer.RecordError(ctx, err)
	}
	return challan, err
}

func (s *ChallanService) createChallan(ctx context.Context, input CreateChallanInput) (*models.Challan, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	renderStart := time.Now()
	seg := s.tracer.StartSegment(ctx, "render-challan")
	content, err := s.renderer.Render(input.CustomerName, input.ChallanNo, input.Items)
	seg.End()
	s.metrics.RecordDuration(metrics.TimerRender, renderStart)
	if err != nil {
		if models.IsValidation(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to render challan")
	}

	challan := models.NewChallan(input.CustomerName, input.ChallanNo, input.Items, content)

	seg = s.tracer.StartSegment(ctx, "store-challan")
	err = s.repo.Create(ctx, challan)
	seg.End()
	if err != nil {
		return nil, err
	}

	s.tracer.AddAttribute(ctx, "challan_id", challan.ID)
	log.Info().
		Uint("challan_id", challan.ID).
		Str("challan_no", challan.ChallanNo).
		Str("total_price", challan.TotalPrice.StringFixed(2)).
		Msg("Challan created")

	s.afterCreate(ctx, challan)
	return challan, nil
}

// afterCreate runs the best-effort side effects of a committed challan
func (s *ChallanService) afterCreate(ctx context.Context, challan *models.Challan) {
	summary := challan.Summary()
	logger := log.With().Uint("challan_id", challan.ID).Logger()

	if s.cache != nil {
		doc := &models.Document{
			ID:           challan.ID,
			CustomerName: challan.CustomerName,
			ChallanNo:    challan.ChallanNo,
			CreatedAt:    challan.CreatedAt,
			Content:      challan.PDFContent,
		}
		err := s.cache.SetDocument(ctx, doc)
		s.metrics.RecordResult(metrics.RateSideEffects, err)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to cache challan document")
		}
	}

	if s.indexer != nil {
		err := s.indexer.IndexChallan(ctx, summary)
		s.metrics.RecordResult(metrics.RateSideEffects, err)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to index challan")
		}
	}

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, messaging.NewChallanCreatedEvent(summary, s.now()))
		s.metrics.RecordResult(metrics.RateSideEffects, err)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to publish challan event")
		}
	}
}

// ListChallans returns visible challans matching filter
func (s *ChallanService) ListChallans(ctx context.Context, filter models.ListFilter) ([]models.ChallanSummary, error) {
	defer s.metrics.RecordDuration(metrics.TimerList, time.Now())

	if err := ValidateFilter(filter); err != nil {
		return nil, err
	}

	summaries, err := s.repo.List(ctx, filter)
	if err != nil {
		s.tracer.RecordError(ctx, err)
		return nil, err
	}
	return summaries, nil
}

// GetDocument returns the rendered document of a visible challan
func (s *ChallanService) GetDocument(ctx context.Context, id uint) (*models.Document, error) {
	if s.cache != nil {
		doc, err := s.cache.GetDocument(ctx, id)
		if err == nil {
			// the store owns visibility; a cached copy outlives a soft delete
			visible, err := s.repo.Exists(ctx, id)
			if err != nil {
				return nil, err
			}
			if !visible {
				if err := s.cache.DeleteDocument(ctx, id); err != nil {
					log.Warn().Err(err).Uint("challan_id", id).Msg("Failed to evict challan document")
				}
				return nil, models.ErrNotFound
			}
			s.metrics.IncrementCounter(metrics.CounterDocumentCacheHits)
			s.metrics.IncrementCounter(metrics.CounterDocumentsServed)
			return doc, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Uint("challan_id", id).Msg("Failed to read document cache")
		}
		s.metrics.IncrementCounter(metrics.CounterDocumentCacheMiss)
	}

	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetDocument(ctx, doc); err != nil {
			log.Warn().Err(err).Uint("challan_id", id).Msg("Failed to cache challan document")
		}
	}

	s.metrics.IncrementCounter(metrics.CounterDocumentsServed)
	return doc, nil
}

// GetChallan returns a visible challan with its items
func (s *ChallanService) GetChallan(ctx context.Context, id uint) (*models.Challan, error) {
	return s.repo.GetByID(ctx, id)
}

// ExportChallans renders the listing selected by filter as an .xlsx workbook
func (s *ChallanService) ExportChallans(ctx context.Context, filter models.ListFilter) ([]byte, error) {
	summaries, err := s.ListChallans(ctx, filter)
	if err != nil {
		return nil, err
	}

	data, err := export.WriteRegister(s.registerTitle, summaries, s.now())
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter(metrics.CounterExports)
	return data, nil
}

// ParseItems turns dictated text into line items
func (s *ChallanService) ParseItems(text string) []models.LineItem {
	return ParseItems(text)
}

// Health checks the store
func (s *ChallanService) Health(ctx context.Context) (HealthStatus, error) {
	status := HealthStatus{Status: "healthy", Timestamp: s.now().UTC()}

	if err := s.repo.Ping(ctx); err != nil {
		s.metrics.SetHealth("database", false)
		status.Status = "unhealthy"
		return status, err
	}

	s.metrics.SetHealth("database", true)
	return status, nil
}
