package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/edubase-reports-api/internal/dto"
	"github.com/noah-isme/edubase-reports-api/internal/models"
	"github.com/noah-isme/edubase-reports-api/internal/repository"
)

// ErrDataUnavailable indicates the backing store could not be reached while
// aggregating. Empty result sets are not an error; they aggregate to zeroes.
var ErrDataUnavailable = errors.New("report data unavailable")

// ReportAggregator computes the transient summary for one report.
type ReportAggregator interface {
	Aggregate(ctx context.Context, report models.Report) (dto.ReportData, error)
}

type reportAggregator struct {
	data   repository.ReportDataRepository
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewReportAggregator constructs the aggregator over the data facade.
func NewReportAggregator(data repository.ReportDataRepository, logger zerolog.Logger) ReportAggregator {
	return &reportAggregator{
		data:   data,
		logger: logger.With().Str("component", "report_aggregator").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/edubase-reports-api/internal/service/report_aggregator"),
	}
}

func (a *reportAggregator) Aggregate(ctx context.Context, report models.Report) (dto.ReportData, error) {
	ctx, span := a.tracer.Start(ctx, "reports.aggregate", trace.WithAttributes(
		attribute.String("report.type", string(report.ReportType)),
		attribute.Int("report.id", int(report.ID)),
	))
	defer span.End()

	definition := definitionFor(report.ReportType)
	data, err := definition.Aggregate(a, ctx, report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregation failed")
		return dto.ReportData{}, err
	}

	return data, nil
}

func (a *reportAggregator) aggregateAttendance(ctx context.Context, report models.Report) (dto.ReportData, error) {
	tally, err := a.data.AttendanceTally(ctx, report.DateFrom, report.DateTo, report.CenterIDs())
	if err != nil {
		return dto.ReportData{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	summary := dto.AttendanceSummary{
		TotalRecords:   int(tally.Total),
		PresentRecords: int(tally.Present),
		AbsentRecords:  int(tally.Total - tally.Present),
	}
	if tally.Total > 0 {
		summary.AttendanceRate = float64(tally.Present) / float64(tally.Total) * 100
	}

	return dto.ReportData{
		ReportType: string(report.ReportType),
		Attendance: &summary,
	}, nil
}

func (a *reportAggregator) aggregateAcademic(ctx context.Context, report models.Report) (dto.ReportData, error) {
	grades, err := a.data.GradeRecords(ctx, report.DateFrom, report.DateTo, report.CenterIDs())
	if err != nil {
		return dto.ReportData{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	summary := dto.AcademicSummary{
		TotalAssessments:  len(grades),
		GradeDistribution: []dto.GradeBucket{},
	}

	if len(grades) > 0 {
		var sumObtained, sumTotal float64
		counts := make(map[string]int)
		for _, grade := range grades {
			sumObtained += float64(grade.MarksObtained)
			sumTotal += float64(grade.TotalMarks)
			counts[grade.GradeLetter]++
		}

		// Average of the aggregate means, not the mean of per-row ratios.
		// This mirrors the numbers the legacy reporting screens produced.
		meanObtained := sumObtained / float64(len(grades))
		meanTotal := sumTotal / float64(len(grades))
		if meanTotal != 0 {
			summary.AveragePercentage = meanObtained / meanTotal * 100
		}

		letters := make([]string, 0, len(counts))
		for letter := range counts {
			letters = append(letters, letter)
		}
		sort.Strings(letters)
		for _, letter := range letters {
			summary.GradeDistribution = append(summary.GradeDistribution, dto.GradeBucket{
				GradeLetter: letter,
				Count:       counts[letter],
			})
		}
	}

	return dto.ReportData{
		ReportType: string(report.ReportType),
		Academic:   &summary,
	}, nil
}

func (a *reportAggregator) aggregateCenter(ctx context.Context, report models.Report) (dto.ReportData, error) {
	stats, err := a.data.CentersWithStats(ctx, report.DateFrom, report.DateTo, report.CenterIDs())
	if err != nil {
		return dto.ReportData{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	summary := dto.CenterSummary{
		TotalCenters: len(stats),
		Centers:      make([]dto.CenterBreakdown, 0, len(stats)),
	}

	for _, center := range stats {
		breakdown := dto.CenterBreakdown{
			Name:     center.Name,
			Location: center.Location,
			Students: center.ActiveStudents,
			Capacity: center.Capacity,
		}
		if center.Capacity > 0 {
			breakdown.Utilization = float64(center.ActiveStudents) / float64(center.Capacity) * 100
		}
		if center.AttendanceTotal > 0 {
			breakdown.AttendanceRate = float64(center.AttendancePresent) / float64(center.AttendanceTotal) * 100
		}

		summary.TotalStudents += center.ActiveStudents
		summary.TotalCapacity += center.Capacity
		summary.Centers = append(summary.Centers, breakdown)
	}

	if summary.TotalCapacity > 0 {
		summary.OverallUtilization = float64(summary.TotalStudents) / float64(summary.TotalCapacity) * 100
	}

	return dto.ReportData{
		ReportType: string(report.ReportType),
		Center:     &summary,
	}, nil
}

func (a *reportAggregator) aggregatePlaceholder(_ context.Context, report models.Report) (dto.ReportData, error) {
	definition := definitionFor(report.ReportType)

	return dto.ReportData{
		ReportType: string(report.ReportType),
		Placeholder: &dto.PlaceholderSummary{
			Title:   definition.Title,
			Message: definition.Placeholder,
		},
	}, nil
}
