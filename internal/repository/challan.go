package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/backstage/services/challan/internal/models"
)

// ChallanRepository is the append-only store of rendered challans
type ChallanRepository interface {
	Create(ctx context.Context, challan *models.Challan) error
	List(ctx context.Context, filter models.ListFilter) ([]models.ChallanSummary, error)
	GetDocument(ctx context.Context, id uint) (*models.Document, error)
	GetByID(ctx context.Context, id uint) (*models.Challan, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Ping(ctx context.Context) error
}

var summaryColumns = []string{"id", "customer_name", "challan_no", "created_at", "total_items", "total_price"}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GormChallanRepository implements ChallanRepository with gorm
type GormChallanRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewChallanRepository creates a new challan repository
func NewChallanRepository(db *gorm.DB) *GormChallanRepository {
	return &GormChallanRepository{db: db, now: time.Now}
}

// WithClock returns a copy of the repository that stamps rows with now
func (r *GormChallanRepository) WithClock(now func() time.Time) *GormChallanRepository {
	return &GormChallanRepository{db: r.db, now: now}
}

// Create inserts a challan in its own transaction. The unique index on
// challan_no decides between concurrent inserts of the same number.
func (r *GormChallanRepository) Create(ctx context.Context, challan *models.Challan) error {
	challan.ID = 0
	challan.CreatedAt = r.now().UTC()
	challan.IsDeleted = false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(challan).Error
	})
	return translateError("create challan", err)
}

// List returns the visible challans matching filter
func (r *GormChallanRepository) List(ctx context.Context, filter models.ListFilter) ([]models.ChallanSummary, error) {
	start, end, err := filter.DateRange()
	if err != nil {
		return nil, models.NewValidationError("Invalid date filter: "+err.Error(), "start_date", "end_date")
	}

	q := r.db.WithContext(ctx).
		Model(&models.Challan{}).
		Select(summaryColumns).
		Where("is_deleted = ?", false)

	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		q = q.Where(`(LOWER(customer_name) LIKE ? ESCAPE '\' OR LOWER(challan_no) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if start != nil {
		q = q.Where("created_at >= ?", *start)
	}
	if end != nil {
		q = q.Where("created_at < ?", *end)
	}

	field := filter.SortField()
	desc := filter.SortOrder() == models.OrderDesc
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: string(field)}, Desc: desc})
	if field != models.SortByID {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: string(models.SortByID)}, Desc: desc})
	}

	limit := filter.Limit
	if limit > models.MaxListLimit || (limit == 0 && filter.Offset > 0) {
		limit = models.MaxListLimit
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	summaries := make([]models.ChallanSummary, 0)
	if err := q.Find(&summaries).Error; err != nil {
		return nil, translateError("list challans", err)
	}
	for i := range summaries {
		summaries[i].DownloadURL = models.DownloadURL(summaries[i].ID)
	}

	return summaries, nil
}

// GetDocument returns the stored document bytes of a visible challan
func (r *GormChallanRepository) GetDocument(ctx context.Context, id uint) (*models.Document, error) {
	var challan models.Challan
	err := r.db.WithContext(ctx).
		Select("id", "customer_name", "challan_no", "created_at", "pdf_content").
		Where("id = ? AND is_deleted = ?", id, false).
		Take(&challan).Error
	if err != nil {
		return nil, translateError("get document", err)
	}

	return &models.Document{
		ID:           challan.ID,
		CustomerName: challan.CustomerName,
		ChallanNo:    challan.ChallanNo,
		CreatedAt:    challan.CreatedAt,
		Content:      challan.PDFContent,
	}, nil
}

// GetByID returns a visible challan with its items but without the document
func (r *GormChallanRepository) GetByID(ctx context.Context, id uint) (*models.Challan, error) {
	var challan models.Challan
	err := r.db.WithContext(ctx).
		Omit("pdf_content").
		Where("id = ? AND is_deleted = ?", id, false).
		Take(&challan).Error
	if err != nil {
		return nil, translateError("get challan", err)
	}
	return &challan, nil
}

// Exists reports whether id names a visible challan
func (r *GormChallanRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Challan{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Count(&count).Error
	if err != nil {
		return false, translateError("check challan", err)
	}
	return count > 0, nil
}

// Ping checks the database connection
func (r *GormChallanRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return translateError("ping", err)
	}
	return translateError("ping", sqlDB.PingContext(ctx))
}
