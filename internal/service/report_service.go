package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/edubase-reports-api/internal/dto"
	"github.com/noah-isme/edubase-reports-api/internal/models"
	"github.com/noah-isme/edubase-reports-api/internal/observability"
	"github.com/noah-isme/edubase-reports-api/internal/repository"
)

// ErrReportNotFound indicates the report row does not exist.
var ErrReportNotFound = errors.New("report not found")

// ErrReportNotPending indicates a generation request raced or repeated; the
// row has already left the pending state.
var ErrReportNotPending = errors.New("report is not pending generation")

// ErrReportNotCompleted indicates no artifact exists for the report yet.
var ErrReportNotCompleted = errors.New("report has no completed artifact")

// ErrInvalidRange indicates date_from is after date_to.
var ErrInvalidRange = errors.New("date_from must not be after date_to")

// ErrIdentityRequired indicates the caller's identity was missing at the
// generation boundary. Reports are never attributed to an implicit user.
var ErrIdentityRequired = errors.New("report generation requires an authenticated identity")

// ErrCenterNotFound indicates a requested center filter id does not exist.
var ErrCenterNotFound = errors.New("one or more centers not found")

// ErrCSVUnsupported indicates the report type has no CSV export.
var ErrCSVUnsupported = errors.New("csv export is only available for attendance reports")

// ArtifactStorage abstracts where rendered report files are kept.
type ArtifactStorage interface {
	Save(ctx context.Context, name string, reader io.Reader) (string, error)
	Exists(ctx context.Context, ref string) (bool, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// ReportService owns the report lifecycle: creation, generation, detail
// aggregation, artifact download and CSV export.
type ReportService interface {
	Create(ctx context.Context, payload dto.ReportCreateRequest, generatedBy uint) (dto.ReportResponse, error)
	Generate(ctx context.Context, reportID uint) (dto.ReportResponse, error)
	Get(ctx context.Context, reportID uint) (dto.ReportResponse, error)
	List(ctx context.Context, query dto.ReportListQuery) ([]dto.ReportResponse, error)
	GetReportData(ctx context.Context, reportID uint) (dto.ReportData, error)
	ExportCSV(ctx context.Context, reportID uint, w io.Writer) (string, error)
	OpenArtifact(ctx context.Context, reportID uint) (io.ReadCloser, string, error)
	Dashboard(ctx context.Context) (dto.ReportsDashboardResponse, error)
}

type generationMeta struct {
	DurationMS int64 `json:"duration_ms"`
	Pages      int   `json:"pages"`
	DetailRows int   `json:"detail_rows"`
	Omitted    int   `json:"omitted_rows"`
}

type reportService struct {
	reports    repository.ReportRepository
	data       repository.ReportDataRepository
	aggregator ReportAggregator
	renderer   *ReportRenderer
	storage    ArtifactStorage
	events     ReportEventPublisher
	cache      *redis.Client
	cacheTTL   time.Duration
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewReportService constructs the lifecycle manager. The report-type
// dispatch table is validated here so wiring gaps surface at startup.
func NewReportService(
	reports repository.ReportRepository,
	data repository.ReportDataRepository,
	aggregator ReportAggregator,
	renderer *ReportRenderer,
	storage ArtifactStorage,
	events ReportEventPublisher,
	cache *redis.Client,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger zerolog.Logger,
) (ReportService, error) {
	if err := validateReportDefinitions(); err != nil {
		return nil, err
	}

	return &reportService{
		reports:    reports,
		data:       data,
		aggregator: aggregator,
		renderer:   renderer,
		storage:    storage,
		events:     events,
		cache:      cache,
		cacheTTL:   cacheTTL,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "report_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/edubase-reports-api/internal/service/report"),
		now:        time.Now,
	}, nil
}

func (s *reportService) Create(ctx context.Context, payload dto.ReportCreateRequest, generatedBy uint) (dto.ReportResponse, error) {
	if generatedBy == 0 {
		return dto.ReportResponse{}, ErrIdentityRequired
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReportResponse{}, err
	}

	from, to := payload.Range()
	if from.After(to) {
		return dto.ReportResponse{}, ErrInvalidRange
	}

	centers, err := s.data.CentersByIDs(ctx, payload.CenterIDs)
	if err != nil {
		return dto.ReportResponse{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if len(centers) != len(payload.CenterIDs) {
		return dto.ReportResponse{}, ErrCenterNotFound
	}

	report := models.Report{
		Title:         s.sanitizer.Sanitize(payload.Title),
		ReportType:    models.ReportType(payload.ReportType),
		Status:        models.ReportStatusPending,
		DateFrom:      from,
		DateTo:        to,
		Centers:       centers,
		GeneratedByID: generatedBy,
	}

	if err := s.reports.Create(ctx, &report); err != nil {
		return dto.ReportResponse{}, err
	}

	return dto.NewReportResponse(report), nil
}

// Generate runs the full pipeline for a pending report. The transition to
// generating happens before any aggregation or rendering work, so a crash
// mid-render leaves the row visibly failed rather than silently pending.
func (s *reportService) Generate(ctx context.Context, reportID uint) (dto.ReportResponse, error) {
	ctx, span := s.tracer.Start(ctx, "reports.generate", trace.WithAttributes(
		attribute.Int("report.id", int(reportID)),
	))
	defer span.End()

	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReportResponse{}, ErrReportNotFound
		}
		return dto.ReportResponse{}, err
	}

	span.SetAttributes(attribute.String("report.type", string(report.ReportType)))

	if report.DateFrom.After(report.DateTo) {
		return dto.ReportResponse{}, ErrInvalidRange
	}

	if err := s.reports.TransitionStatus(ctx, report.ID, models.ReportStatusPending, models.ReportStatusGenerating); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReportResponse{}, ErrReportNotPending
		}
		return dto.ReportResponse{}, err
	}

	start := s.now()
	artifactRef, meta, err := s.run(ctx, report)
	duration := s.now().Sub(start)
	observability.ReportGenerationSeconds().WithLabelValues(string(report.ReportType)).Observe(duration.Seconds())

	if err != nil {
		s.fail(ctx, report, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return dto.ReportResponse{}, err
	}

	meta.DurationMS = duration.Milliseconds()
	metaJSON, marshalErr := json.Marshal(meta)
	if marshalErr != nil {
		metaJSON = nil
	}

	if err := s.reports.Complete(ctx, report.ID, artifactRef, metaJSON); err != nil {
		s.fail(ctx, report, err)
		span.RecordError(err)
		return dto.ReportResponse{}, err
	}

	observability.ReportsGenerated().WithLabelValues(string(report.ReportType), string(models.ReportStatusCompleted)).Inc()
	s.publish(ctx, report, models.ReportStatusCompleted, artifactRef)
	s.logger.Info().
		Uint("report_id", report.ID).
		Str("report_type", string(report.ReportType)).
		Dur("duration", duration).
		Msg("report generated")

	refreshed, err := s.reports.FindByID(ctx, report.ID)
	if err != nil {
		return dto.ReportResponse{}, err
	}

	return dto.NewReportResponse(refreshed), nil
}

// run aggregates, renders and stores the artifact, returning its reference.
func (s *reportService) run(ctx context.Context, report models.Report) (string, generationMeta, error) {
	data, err := s.aggregator.Aggregate(ctx, report)
	if err != nil {
		return "", generationMeta{}, err
	}

	detail, err := s.detailRecords(ctx, report)
	if err != nil {
		return "", generationMeta{}, err
	}

	result, err := s.renderer.Render(report, data, detail)
	if err != nil {
		return "", generationMeta{}, err
	}

	if !mimetype.Detect(result.Data).Is("application/pdf") {
		return "", generationMeta{}, fmt.Errorf("%w: artifact is not a pdf", ErrRenderFailure)
	}

	name := definitionFor(report.ReportType).Artifact(report)
	ref, err := s.storage.Save(ctx, name, bytes.NewReader(result.Data))
	if err != nil {
		return "", generationMeta{}, fmt.Errorf("store artifact: %w", err)
	}

	meta := generationMeta{
		Pages:      result.Pages,
		DetailRows: result.DetailRows,
		Omitted:    result.Omitted,
	}

	return ref, meta, nil
}

func (s *reportService) detailRecords(ctx context.Context, report models.Report) (DetailRecords, error) {
	var detail DetailRecords
	var err error

	switch report.ReportType {
	case models.ReportTypeAttendance:
		detail.Attendance, err = s.data.AttendanceRecords(ctx, report.DateFrom, report.DateTo, report.CenterIDs())
	case models.ReportTypeAcademic:
		detail.Grades, err = s.data.GradeRecords(ctx, report.DateFrom, report.DateTo, report.CenterIDs())
	case models.ReportTypeCenter:
		detail.Centers, err = s.data.CentersWithStats(ctx, report.DateFrom, report.DateTo, report.CenterIDs())
	}
	if err != nil {
		return DetailRecords{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	return detail, nil
}

func (s *reportService) fail(ctx context.Context, report models.Report, cause error) {
	if err := s.reports.TransitionStatus(ctx, report.ID, models.ReportStatusGenerating, models.ReportStatusFailed); err != nil {
		s.logger.Error().Err(err).Uint("report_id", report.ID).Msg("failed to mark report as failed")
	}

	observability.ReportsGenerated().WithLabelValues(string(report.ReportType), string(models.ReportStatusFailed)).Inc()
	s.publish(ctx, report, models.ReportStatusFailed, "")
	s.logger.Error().Err(cause).
		Uint("report_id", report.ID).
		Str("report_type", string(report.ReportType)).
		Msg("report generation failed")
}

func (s *reportService) publish(ctx context.Context, report models.Report, status models.ReportStatus, artifactRef string) {
	if s.events == nil {
		return
	}

	event := ReportEvent{
		ReportID:    report.ID,
		ReportType:  string(report.ReportType),
		Status:      string(status),
		ArtifactRef: artifactRef,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("report_id", report.ID).Msg("failed to publish report event")
	}
}

func (s *reportService) Get(ctx context.Context, reportID uint) (dto.ReportResponse, error) {
	report, err := s.findReport(ctx, reportID)
	if err != nil {
		return dto.ReportResponse{}, err
	}

	return dto.NewReportResponse(report), nil
}

func (s *reportService) List(ctx context.Context, query dto.ReportListQuery) ([]dto.ReportResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	reports, err := s.reports.List(ctx, repository.ReportFilter{
		ReportType: models.ReportType(query.Type),
		Status:     models.ReportStatus(query.Status),
	})
	if err != nil {
		return nil, err
	}

	return dto.NewReportResponseSlice(reports), nil
}

// GetReportData serves the detail view. It is read-only and safe to call
// for any report status; results are cached until the row changes.
func (s *reportService) GetReportData(ctx context.Context, reportID uint) (dto.ReportData, error) {
	report, err := s.findReport(ctx, reportID)
	if err != nil {
		return dto.ReportData{}, err
	}

	cacheKey := fmt.Sprintf("reports:data:%d:%d", report.ID, report.UpdatedAt.Unix())
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var data dto.ReportData
			if unmarshalErr := json.Unmarshal([]byte(cached), &data); unmarshalErr == nil {
				return data, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read report data cache")
		}
	}

	data, err := s.aggregator.Aggregate(ctx, report)
	if err != nil {
		return dto.ReportData{}, err
	}

	if s.cache != nil {
		if payload, marshalErr := json.Marshal(data); marshalErr == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store report data cache")
			}
		}
	}

	return data, nil
}

// ExportCSV streams the attendance rows for the report's range into w and
// returns the download filename.
func (s *reportService) ExportCSV(ctx context.Context, reportID uint, w io.Writer) (string, error) {
	report, err := s.findReport(ctx, reportID)
	if err != nil {
		return "", err
	}

	if report.ReportType != models.ReportTypeAttendance {
		return "", ErrCSVUnsupported
	}

	records, err := s.data.AttendanceRecords(ctx, report.DateFrom, report.DateTo, report.CenterIDs())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	if err := writeAttendanceCSV(w, records); err != nil {
		return "", err
	}

	observability.CSVExports().WithLabelValues(string(report.ReportType)).Inc()

	return report.Title + ".csv", nil
}

// OpenArtifact returns a reader over the stored PDF plus its download name.
func (s *reportService) OpenArtifact(ctx context.Context, reportID uint) (io.ReadCloser, string, error) {
	report, err := s.findReport(ctx, reportID)
	if err != nil {
		return nil, "", err
	}

	if report.Status != models.ReportStatusCompleted || report.ArtifactRef == nil {
		return nil, "", ErrReportNotCompleted
	}

	exists, err := s.storage.Exists(ctx, *report.ArtifactRef)
	if err != nil {
		return nil, "", err
	}
	if !exists {
		return nil, "", ErrReportNotCompleted
	}

	reader, err := s.storage.Open(ctx, *report.ArtifactRef)
	if err != nil {
		return nil, "", err
	}

	return reader, definitionFor(report.ReportType).Artifact(report), nil
}

func (s *reportService) Dashboard(ctx context.Context) (dto.ReportsDashboardResponse, error) {
	now := s.now()

	students, err := s.data.CountActiveStudents(ctx)
	if err != nil {
		return dto.ReportsDashboardResponse{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	centers, err := s.data.CountActiveCenters(ctx)
	if err != nil {
		return dto.ReportsDashboardResponse{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	tally, err := s.data.AttendanceTally(ctx, now.AddDate(0, 0, -30), now, nil)
	if err != nil {
		return dto.ReportsDashboardResponse{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	var rate float64
	if tally.Total > 0 {
		rate = float64(tally.Present) / float64(tally.Total) * 100
	}

	total, err := s.reports.Count(ctx)
	if err != nil {
		return dto.ReportsDashboardResponse{}, err
	}

	completed, err := s.reports.CountByStatus(ctx, models.ReportStatusCompleted)
	if err != nil {
		return dto.ReportsDashboardResponse{}, err
	}

	recent, err := s.reports.ListRecent(ctx, 5)
	if err != nil {
		return dto.ReportsDashboardResponse{}, err
	}

	return dto.ReportsDashboardResponse{
		TotalStudents:    students,
		TotalCenters:     centers,
		AttendanceRate:   rate,
		TotalReports:     total,
		CompletedReports: completed,
		RecentReports:    dto.NewReportResponseSlice(recent),
		GeneratedAt:      now,
	}, nil
}

func (s *reportService) findReport(ctx context.Context, reportID uint) (models.Report, error) {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Report{}, ErrReportNotFound
		}
		return models.Report{}, err
	}
	return report, nil
}
