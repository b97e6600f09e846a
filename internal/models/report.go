package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReportType identifies which aggregation and layout a report uses.
type ReportType string

// Supported report types. Financial, donor and risk reports currently render
// placeholder documents.
const (
	ReportTypeAttendance ReportType = "attendance"
	ReportTypeAcademic   ReportType = "academic"
	ReportTypeCenter     ReportType = "center"
	ReportTypeFinancial  ReportType = "financial"
	ReportTypeDonor      ReportType = "donor"
	ReportTypeRisk       ReportType = "risk"
)

// ReportStatus tracks the lifecycle of a generation request. The progression
// is monotonic: pending -> generating -> completed or failed.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusGenerating ReportStatus = "generating"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusFailed     ReportStatus = "failed"
)

// Report is a generation request plus the reference to its rendered artifact.
// ArtifactRef is non-nil only when Status is completed.
type Report struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Title         string         `gorm:"size:200;not null" json:"title"`
	ReportType    ReportType     `gorm:"size:20;index;not null" json:"report_type"`
	Status        ReportStatus   `gorm:"size:20;index;default:pending" json:"status"`
	DateFrom      time.Time      `gorm:"not null" json:"date_from"`
	DateTo        time.Time      `gorm:"not null" json:"date_to"`
	Centers       []Center       `gorm:"many2many:report_centers" json:"centers"`
	ArtifactRef   *string        `gorm:"size:500" json:"artifact_ref"`
	GeneratedByID uint           `gorm:"index;not null" json:"generated_by_id"`
	Meta          datatypes.JSON `gorm:"type:json" json:"meta"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CenterIDs returns the identifiers of the centers the report is restricted
// to. An empty result means all centers.
func (r Report) CenterIDs() []uint {
	ids := make([]uint, 0, len(r.Centers))
	for _, center := range r.Centers {
		ids = append(ids, center.ID)
	}
	return ids
}

// ScheduleFrequency is how often a scheduled report should run.
type ScheduleFrequency string

const (
	FrequencyDaily     ScheduleFrequency = "daily"
	FrequencyWeekly    ScheduleFrequency = "weekly"
	FrequencyMonthly   ScheduleFrequency = "monthly"
	FrequencyQuarterly ScheduleFrequency = "quarterly"
)

// ReportSchedule describes a recurring report request. Execution is not
// wired up yet; schedules are stored and listed only.
type ReportSchedule struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"size:200;not null" json:"name"`
	ReportType  ReportType        `gorm:"size:20;not null" json:"report_type"`
	Frequency   ScheduleFrequency `gorm:"size:20;not null" json:"frequency"`
	Recipients  string            `gorm:"type:text" json:"recipients"`
	Centers     []Center          `gorm:"many2many:schedule_centers" json:"centers"`
	IsActive    bool              `gorm:"not null" json:"is_active"`
	CreatedByID uint              `gorm:"index;not null" json:"created_by_id"`
	LastRun     *time.Time        `json:"last_run"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
