package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/challan/internal/cache"
	"example.com/backstage/services/challan/internal/messaging"
	"example.com/backstage/services/challan/internal/metrics"
	"example.com/backstage/services/challan/internal/models"
)

// Mock repository for testing
type MockChallanRepository struct {
	mock.Mock
}

func (m *MockChallanRepository) Create(ctx context.Context, challan *models.Challan) error {
	args := m.Called(ctx, challan)
	if args.Error(0) == nil {
		challan.ID = 1
		challan.CreatedAt = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	}
	return args.Error(0)
}

func (m *MockChallanRepository) List(ctx context.Context, filter models.ListFilter) ([]models.ChallanSummary, error) {
	args := m.Called(ctx, filter)
	summaries, _ := args.Get(0).([]models.ChallanSummary)
	return summaries, args.Error(1)
}

func (m *MockChallanRepository) GetDocument(ctx context.Context, id uint) (*models.Document, error) {
	args := m.Called(ctx, id)
	doc, _ := args.Get(0).(*models.Document)
	return doc, args.Error(1)
}

func (m *MockChallanRepository) GetByID(ctx context.Context, id uint) (*models.Challan, error) {
	args := m.Called(ctx, id)
	challan, _ := args.Get(0).(*models.Challan)
	return challan, args.Error(1)
}

func (m *MockChallanRepository) Exists(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockChallanRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(customerName, challanNo string, items []models.LineItem) ([]byte, error) {
	args := m.Called(customerName, challanNo, items)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type MockDocumentCache struct {
	mock.Mock
}

func (m *MockDocumentCache) GetDocument(ctx context.Context, id uint) (*models.Document, error) {
	args := m.Called(ctx, id)
	doc, _ := args.Get(0).(*models.Document)
	return doc, args.Error(1)
}

func (m *MockDocumentCache) SetDocument(ctx context.Context, doc *models.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentCache) DeleteDocument(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexChallan(ctx context.Context, summary models.ChallanSummary) error {
	return m.Called(ctx, summary).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event messaging.Event) error {
	return m.Called(ctx, event).Error(0)
}

func validInput() CreateChallanInput {
	return CreateChallanInput{
		CustomerName: "Acme Corp",
		ChallanNo:    "CH-001",
		Items: []models.LineItem{
			{Quantity: decimal.NewFromInt(2), Description: "Bolt", Price: decimal.RequireFromString("5.0")},
			{Quantity: decimal.NewFromInt(1), Description: "Nut", Price: decimal.RequireFromString("2.5")},
		},
	}
}

func TestCreateChallan(t *testing.T) {
	repo := new(MockChallanRepository)
	renderer := new(MockRenderer)
	docCache := new(MockDocumentCache)
	indexer := new(MockIndexer)
	publisher := new(MockPublisher)
	collector := metrics.NewMetrics()

	input := validInput()
	renderer.On("Render", "Acme Corp", "CH-001", input.Items).Return([]byte("%PDF-1.3"), nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Challan")).Return(nil)
	docCache.On("SetDocument", mock.Anything, mock.MatchedBy(func(doc *models.Document) bool {
		return doc.ID == 1 && string(doc.Content) == "%PDF-1.3"
	})).Return(nil)
	indexer.On("IndexChallan", mock.Anything, mock.MatchedBy(func(s models.ChallanSummary) bool {
		return s.ID == 1 && s.DownloadURL == "/api/download-pdf/1"
	})).Return(nil)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e messaging.Event) bool {
		return e.Type == messaging.EventChallanCreated && e.Challan.ChallanNo == "CH-001"
	})).Return(nil)

	service := NewChallanService(Dependencies{
		Repository: repo,
		Renderer:   renderer,
		Cache:      docCache,
		Indexer:    indexer,
		Publisher:  publisher,
		Metrics:    collector,
	})

	challan, err := service.CreateChallan(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, challan)

	assert.Equal(t, uint(1), challan.ID)
	assert.Equal(t, []byte("%PDF-1.3"), challan.PDFContent)
	assert.True(t, challan.TotalItems.Equal(decimal.NewFromInt(3)))
	assert.True(t, challan.TotalPrice.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, int64(1), collector.GetCounters()[metrics.CounterChallansCreated])

	repo.AssertExpectations(t)
	renderer.AssertExpectations(t)
	docCache.AssertExpectations(t)
	indexer.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestCreateChallanSideEffectFailuresAreIgnored(t *testing.T) {
	repo := new(MockChallanRepository)
	renderer := new(MockRenderer)
	docCache := new(MockDocumentCache)
	indexer := new(MockIndexer)
	publisher := new(MockPublisher)
	collector := metrics.NewMetrics()

	renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	docCache.On("SetDocument", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	indexer.On("IndexChallan", mock.Anything, mock.Anything).Return(errors.New("es down"))
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	service := NewChallanService(Dependencies{
		Repository: repo,
		Renderer:   renderer,
		Cache:      docCache,
		Indexer:    indexer,
		Publisher:  publisher,
		Metrics:    collector,
	})

	challan, err := service.CreateChallan(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, uint(1), challan.ID)

	rate := collector.GetErrorRates()[metrics.RateSideEffects]
	assert.Equal(t, int64(3), rate.Total)
	assert.Equal(t, int64(3), rate.Errors)
}

func TestCreateChallanValidationHasNoSideEffects(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateChallanInput
		message string
	}{
		{
			name:    "empty items",
			input:   CreateChallanInput{CustomerName: "Acme", ChallanNo: "CH-1", Items: []models.LineItem{}},
			message: "Items must be a non-empty array",
		},
		{
			name:    "blank customer",
			input:   CreateChallanInput{CustomerName: " ", ChallanNo: "CH-1", Items: validInput().Items},
			message: "customerName must not be empty",
		},
		{
			name: "item without description",
			input: CreateChallanInput{CustomerName: "Acme", ChallanNo: "CH-1", Items: []models.LineItem{
				{Quantity: decimal.NewFromInt(1)},
			}},
			message: "Invalid item at index 0. Each item must have quantity and description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockChallanRepository)
			renderer := new(MockRenderer)
			service := NewChallanService(Dependencies{Repository: repo, Renderer: renderer})

			challan, err := service.CreateChallan(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, challan)
			assert.True(t, models.IsValidation(err))
			assert.Equal(t, tt.message, err.Error())

			renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, mock.Anything)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateChallanDuplicate(t *testing.T) {
	repo := new(MockChallanRepository)
	renderer := new(MockRenderer)
	publisher := new(MockPublisher)
	collector := metrics.NewMetrics()

	renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(models.ErrDuplicateChallanNo)

	service := NewChallanService(Dependencies{
		Repository: repo,
		Renderer:   renderer,
		Publisher:  publisher,
		Metrics:    collector,
	})

	_, err := service.CreateChallan(context.Background(), validInput())
	assert.ErrorIs(t, err, models.ErrDuplicateChallanNo)
	assert.Equal(t, "Challan number already exists", err.Error())
	assert.Equal(t, int64(1), collector.GetCounters()[metrics.CounterChallansRejected])
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestCreateChallanStorageError(t *testing.T) {
	repo := new(MockChallanRepository)
	renderer := new(MockRenderer)

	storageErr := &models.StorageError{Op: "create challan", Err: errors.New("connection reset by peer")}
	renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(storageErr)

	service := NewChallanService(Dependencies{Repository: repo, Renderer: renderer})

	_, err := service.CreateChallan(context.Background(), validInput())
	require.Error(t, err)
	assert.True(t, models.IsStorage(err))
	assert.Equal(t, "connection reset by peer", err.Error())
}

func TestListChallansValidatesFilter(t *testing.T) {
	repo := new(MockChallanRepository)
	service := NewChallanService(Dependencies{Repository: repo})

	tests := []struct {
		filter  models.ListFilter
		message string
	}{
		{models.ListFilter{Sort: "pdf_content"}, `Invalid sort "pdf_content": must be one of created_at, customer_name, challan_no, total_items, total_price, id`},
		{models.ListFilter{Order: "sideways"}, `Invalid order "sideways": must be one of ASC, DESC, asc, desc`},
		{models.ListFilter{StartDate: "05/03/2024"}, `Invalid start_date "05/03/2024": use YYYY-MM-DD or RFC3339`},
		{models.ListFilter{Limit: -1}, "limit must not be negative"},
	}
	for _, tt := range tests {
		_, err := service.ListChallans(context.Background(), tt.filter)
		require.Error(t, err)
		assert.True(t, models.IsValidation(err))
		assert.Equal(t, tt.message, err.Error())
	}
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestListChallans(t *testing.T) {
	repo := new(MockChallanRepository)
	filter := models.ListFilter{Search: "acme", Sort: "customer_name", Order: "ASC", StartDate: "2024-01-01"}
	expected := []models.ChallanSummary{{ID: 1, ChallanNo: "CH-001"}}
	repo.On("List", mock.Anything, filter).Return(expected, nil)

	service := NewChallanService(Dependencies{Repository: repo})
	summaries, err := service.ListChallans(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, expected, summaries)
}

func TestGetDocumentUsesCache(t *testing.T) {
	repo := new(MockChallanRepository)
	docCache := new(MockDocumentCache)
	cached := &models.Document{ID: 3, Content: []byte("cached")}
	docCache.On("GetDocument", mock.Anything, uint(3)).Return(cached, nil)
	repo.On("Exists", mock.Anything, uint(3)).Return(true, nil)

	service := NewChallanService(Dependencies{Repository: repo, Cache: docCache})
	doc, err := service.GetDocument(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, cached, doc)
	repo.AssertNotCalled(t, "GetDocument", mock.Anything, mock.Anything)
	docCache.AssertNotCalled(t, "DeleteDocument", mock.Anything, mock.Anything)
}

func TestGetDocumentCachedButDeleted(t *testing.T) {
	repo := new(MockChallanRepository)
	docCache := new(MockDocumentCache)
	docCache.On("GetDocument", mock.Anything, uint(3)).Return(&models.Document{ID: 3, Content: []byte("cached")}, nil)
	docCache.On("DeleteDocument", mock.Anything, uint(3)).Return(errors.New("connection reset"))
	repo.On("Exists", mock.Anything, uint(3)).Return(false, nil)

	service := NewChallanService(Dependencies{Repository: repo, Cache: docCache})
	doc, err := service.GetDocument(context.Background(), 3)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Nil(t, doc)
	docCache.AssertExpectations(t)
}

func TestGetDocumentCachedStoreUnavailable(t *testing.T) {
	repo := new(MockChallanRepository)
	docCache := new(MockDocumentCache)
	storageErr := &models.StorageError{Op: "check challan", Err: errors.New("database is locked")}
	docCache.On("GetDocument", mock.Anything, uint(3)).Return(&models.Document{ID: 3}, nil)
	repo.On("Exists", mock.Anything, uint(3)).Return(false, storageErr)

	service := NewChallanService(Dependencies{Repository: repo, Cache: docCache})
	_, err := service.GetDocument(context.Background(), 3)
	assert.Equal(t, storageErr, err)
	docCache.AssertNotCalled(t, "DeleteDocument", mock.Anything, mock.Anything)
}

func TestGetDocumentCacheMissFallsBackToStore(t *testing.T) {
	repo := new(MockChallanRepository)
	docCache := new(MockDocumentCache)
	stored := &models.Document{ID: 3, Content: []byte("stored")}
	docCache.On("GetDocument", mock.Anything, uint(3)).Return(nil, cache.ErrCacheMiss)
	docCache.On("SetDocument", mock.Anything, stored).Return(nil)
	repo.On("GetDocument", mock.Anything, uint(3)).Return(stored, nil)

	service := NewChallanService(Dependencies{Repository: repo, Cache: docCache})
	doc, err := service.GetDocument(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, stored, doc)
	docCache.AssertExpectations(t)
}

func TestGetDocumentNotFound(t *testing.T) {
	repo := new(MockChallanRepository)
	repo.On("GetDocument", mock.Anything, uint(9)).Return(nil, models.ErrNotFound)

	service := NewChallanService(Dependencies{Repository: repo})
	_, err := service.GetDocument(context.Background(), 9)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestHealth(t *testing.T) {
	repo := new(MockChallanRepository)
	repo.On("Ping", mock.Anything).Return(nil).Once()
	repo.On("Ping", mock.Anything).Return(errors.New("dial tcp: connection refused")).Once()

	service := NewChallanService(Dependencies{Repository: repo})

	status, err := service.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
	assert.False(t, status.Timestamp.IsZero())

	status, err = service.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, "unhealthy", status.Status)
}

func TestExportChallans(t *testing.T) {
	repo := new(MockChallanRepository)
	repo.On("List", mock.Anything, models.ListFilter{}).Return([]models.ChallanSummary{{ID: 1, ChallanNo: "CH-001"}}, nil)

	service := NewChallanService(Dependencies{Repository: repo, RegisterTitle: "Shakti Trading Co."})
	data, err := service.ExportChallans(context.Background(), models.ListFilter{})
	require.NoError(t, err)
	// xlsx files are zip archives
	assert.Equal(t, []byte("PK"), data[:2])
}
