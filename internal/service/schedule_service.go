package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/edubase-reports-api/internal/dto"
	"github.com/noah-isme/edubase-reports-api/internal/models"
	"github.com/noah-isme/edubase-reports-api/internal/repository"
)

// ErrScheduleNotFound indicates the schedule row does not exist.
var ErrScheduleNotFound = errors.New("report schedule not found")

// ScheduleService manages recurring report definitions. Schedules are
// stored and listed only; nothing executes them yet.
type ScheduleService interface {
	Create(ctx context.Context, payload dto.ScheduleCreateRequest, createdBy uint) (dto.ScheduleResponse, error)
	List(ctx context.Context, activeOnly bool) ([]dto.ScheduleResponse, error)
	SetActive(ctx context.Context, id uint, active bool) (dto.ScheduleResponse, error)
}

type scheduleService struct {
	schedules repository.ScheduleRepository
	data      repository.ReportDataRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(schedules repository.ScheduleRepository, data repository.ReportDataRepository, validate *validator.Validate, logger zerolog.Logger) ScheduleService {
	return &scheduleService{
		schedules: schedules,
		data:      data,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "schedule_service").Logger(),
	}
}

func (s *scheduleService) Create(ctx context.Context, payload dto.ScheduleCreateRequest, createdBy uint) (dto.ScheduleResponse, error) {
	if createdBy == 0 {
		return dto.ScheduleResponse{}, ErrIdentityRequired
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ScheduleResponse{}, err
	}

	centers, err := s.data.CentersByIDs(ctx, payload.CenterIDs)
	if err != nil {
		return dto.ScheduleResponse{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if len(centers) != len(payload.CenterIDs) {
		return dto.ScheduleResponse{}, ErrCenterNotFound
	}

	schedule := models.ReportSchedule{
		Name:        s.sanitizer.Sanitize(payload.Name),
		ReportType:  models.ReportType(payload.ReportType),
		Frequency:   models.ScheduleFrequency(payload.Frequency),
		Recipients:  payload.Recipients,
		Centers:     centers,
		IsActive:    true,
		CreatedByID: createdBy,
	}

	if err := s.schedules.Create(ctx, &schedule); err != nil {
		return dto.ScheduleResponse{}, err
	}

	s.logger.Info().Uint("schedule_id", schedule.ID).Str("frequency", string(schedule.Frequency)).Msg("report schedule created")

	return dto.NewScheduleResponse(schedule), nil
}

func (s *scheduleService) List(ctx context.Context, activeOnly bool) ([]dto.ScheduleResponse, error) {
	schedules, err := s.schedules.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	return dto.NewScheduleResponseSlice(schedules), nil
}

func (s *scheduleService) SetActive(ctx context.Context, id uint, active bool) (dto.ScheduleResponse, error) {
	if err := s.schedules.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScheduleResponse{}, ErrScheduleNotFound
		}
		return dto.ScheduleResponse{}, err
	}

	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return dto.ScheduleResponse{}, err
	}

	return dto.NewScheduleResponse(schedule), nil
}
