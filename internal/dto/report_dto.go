package dto

import (
	"time"

	"github.com/noah-isme/edubase-reports-api/internal/models"
)

const dateLayout = "2006-01-02"

// ReportCreateRequest describes the payload for requesting a new report.
type ReportCreateRequest struct {
	Title      string `json:"title" validate:"required,min=3,max=200"`
	ReportType string `json:"report_type" validate:"required,oneof=attendance academic center financial donor risk"`
	DateFrom   string `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo     string `json:"date_to" validate:"required,datetime=2006-01-02"`
	CenterIDs  []uint `json:"center_ids" validate:"omitempty,dive,min=1"`
}

// Range parses the requested date boundaries. Validation guarantees the
// layout, so parse errors do not occur after a successful Struct call.
func (r ReportCreateRequest) Range() (time.Time, time.Time) {
	from, _ := time.Parse(dateLayout, r.DateFrom)
	to, _ := time.Parse(dateLayout, r.DateTo)
	return from, to
}

// ReportListQuery holds the optional list filters.
type ReportListQuery struct {
	Type   string `query:"type" validate:"omitempty,oneof=attendance academic center financial donor risk"`
	Status string `query:"status" validate:"omitempty,oneof=pending generating completed failed"`
}

// ReportResponse is the serialized representation of a report row.
type ReportResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	ReportType  string    `json:"report_type"`
	Status      string    `json:"status"`
	DateFrom    string    `json:"date_from"`
	DateTo      string    `json:"date_to"`
	CenterNames []string  `json:"center_names"`
	ArtifactRef string    `json:"artifact_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewReportResponse converts a model into a DTO.
func NewReportResponse(report models.Report) ReportResponse {
	names := make([]string, 0, len(report.Centers))
	for _, center := range report.Centers {
		names = append(names, center.Name)
	}

	response := ReportResponse{
		ID:          report.ID,
		Title:       report.Title,
		ReportType:  string(report.ReportType),
		Status:      string(report.Status),
		DateFrom:    report.DateFrom.Format(dateLayout),
		DateTo:      report.DateTo.Format(dateLayout),
		CenterNames: names,
		CreatedAt:   report.CreatedAt,
		UpdatedAt:   report.UpdatedAt,
	}
	if report.ArtifactRef != nil {
		response.ArtifactRef = *report.ArtifactRef
	}

	return response
}

// NewReportResponseSlice converts a slice of models into DTOs.
func NewReportResponseSlice(reports []models.Report) []ReportResponse {
	responses := make([]ReportResponse, 0, len(reports))
	for _, report := range reports {
		responses = append(responses, NewReportResponse(report))
	}

	return responses
}

// ReportData is the transient aggregation produced for one report. Exactly
// one of the summary pointers is set, matching the report type.
type ReportData struct {
	ReportType  string              `json:"report_type"`
	Attendance  *AttendanceSummary  `json:"attendance,omitempty"`
	Academic    *AcademicSummary    `json:"academic,omitempty"`
	Center      *CenterSummary      `json:"center,omitempty"`
	Placeholder *PlaceholderSummary `json:"placeholder,omitempty"`
}

// AttendanceSummary carries the attendance report figures.
type AttendanceSummary struct {
	TotalRecords   int     `json:"total_records"`
	PresentRecords int     `json:"present_records"`
	AbsentRecords  int     `json:"absent_records"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// GradeBucket is one slice of the grade-letter distribution.
type GradeBucket struct {
	GradeLetter string `json:"grade_letter"`
	Count       int    `json:"count"`
}

// AcademicSummary carries the academic report figures. AveragePercentage is
// computed from the aggregate means of obtained and total marks.
type AcademicSummary struct {
	TotalAssessments  int           `json:"total_assessments"`
	AveragePercentage float64       `json:"average_percentage"`
	GradeDistribution []GradeBucket `json:"grade_distribution"`
}

// CenterBreakdown holds the per-center figures inside a center report.
type CenterBreakdown struct {
	Name           string  `json:"name"`
	Location       string  `json:"location"`
	Students       int     `json:"students"`
	Capacity       int     `json:"capacity"`
	Utilization    float64 `json:"utilization"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// CenterSummary carries the center report figures.
type CenterSummary struct {
	TotalCenters       int               `json:"total_centers"`
	TotalStudents      int               `json:"total_students"`
	TotalCapacity      int               `json:"total_capacity"`
	OverallUtilization float64           `json:"overall_utilization"`
	Centers            []CenterBreakdown `json:"centers"`
}

// PlaceholderSummary stands in for report types without real aggregation.
type PlaceholderSummary struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
