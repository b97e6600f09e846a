package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/edubase-reports-api/internal/models"
)

// ScheduleRepository persists report schedules.
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *models.ReportSchedule) error
	FindByID(ctx context.Context, id uint) (models.ReportSchedule, error)
	List(ctx context.Context, activeOnly bool) ([]models.ReportSchedule, error)
	SetActive(ctx context.Context, id uint, active bool) error
}

type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository constructs the schedule repository.
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *models.ReportSchedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *scheduleRepository) FindByID(ctx context.Context, id uint) (models.ReportSchedule, error) {
	var schedule models.ReportSchedule
	err := r.db.WithContext(ctx).
		Preload("Centers").
		First(&schedule, id).Error
	return schedule, err
}

func (r *scheduleRepository) List(ctx context.Context, activeOnly bool) ([]models.ReportSchedule, error) {
	query := r.db.WithContext(ctx).Preload("Centers").Order("created_at DESC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var schedules []models.ReportSchedule
	err := query.Find(&schedules).Error
	return schedules, err
}

func (r *scheduleRepository) SetActive(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.ReportSchedule{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
