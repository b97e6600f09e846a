package dto

import "time"

// ReportsDashboardResponse aggregates headline figures for the reports
// landing screen.
type ReportsDashboardResponse struct {
	TotalStudents    int64            `json:"total_students"`
	TotalCenters     int64            `json:"total_centers"`
	AttendanceRate   float64          `json:"attendance_rate"`
	TotalReports     int64            `json:"total_reports"`
	CompletedReports int64            `json:"completed_reports"`
	RecentReports    []ReportResponse `json:"recent_reports"`
	GeneratedAt      time.Time        `json:"generated_at"`
}
