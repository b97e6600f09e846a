package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/edubase-reports-api/internal/models"
)

// ReportFilter narrows report listings.
type ReportFilter struct {
	ReportType models.ReportType
	Status     models.ReportStatus
}

// ReportRepository persists report rows and owns their guarded status
// transitions.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id uint) (models.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]models.Report, error)
	ListRecent(ctx context.Context, limit int) ([]models.Report, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status models.ReportStatus) (int64, error)
	TransitionStatus(ctx context.Context, id uint, from, to models.ReportStatus) error
	Complete(ctx context.Context, id uint, artifactRef string, meta datatypes.JSON) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository constructs the report repository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) FindByID(ctx context.Context, id uint) (models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Preload("Centers").
		First(&report, id).Error
	return report, err
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]models.Report, error) {
	query := r.db.WithContext(ctx).Preload("Centers").Order("created_at DESC")
	if filter.ReportType != "" {
		query = query.Where("report_type = ?", filter.ReportType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var reports []models.Report
	err := query.Find(&reports).Error
	return reports, err
}

func (r *reportRepository) ListRecent(ctx context.Context, limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = 5
	}

	var reports []models.Report
	err := r.db.WithContext(ctx).
		Preload("Centers").
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

func (r *reportRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Report{}).Count(&count).Error
	return count, err
}

func (r *reportRepository) CountByStatus(ctx context.Context, status models.ReportStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// TransitionStatus advances a report along its lifecycle with an optimistic
// guard on the expected current status. If the row has moved on (a concurrent
// transition won), no row matches and gorm.ErrRecordNotFound is returned.
func (r *reportRepository) TransitionStatus(ctx context.Context, id uint, from, to models.ReportStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Complete finalizes a generating report in a single guarded update so the
// completed status and artifact reference land together.
func (r *reportRepository) Complete(ctx context.Context, id uint, artifactRef string, meta datatypes.JSON) error {
	result := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ? AND status = ?", id, models.ReportStatusGenerating).
		Updates(map[string]interface{}{
			"status":       models.ReportStatusCompleted,
			"artifact_ref": artifactRef,
			"meta":         meta,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
