package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/edubase-reports-api/internal/models"
)

// AttendanceRecord is a flattened attendance row joined with its student and
// center, as consumed by renderers and exporters.
type AttendanceRecord struct {
	StudentName string
	CenterName  string
	Date        time.Time
	IsPresent   bool
	Remarks     string
}

// AttendanceTally holds presence counts for a date range.
type AttendanceTally struct {
	Total   int64
	Present int64
}

// GradeRecord is a flattened assessment row joined with its student and subject.
type GradeRecord struct {
	StudentName   string
	SubjectName   string
	MarksObtained int
	TotalMarks    int
	GradeLetter   string
}

// CenterStats carries per-center enrolment and attendance figures for a
// date range.
type CenterStats struct {
	Name              string
	Location          string
	Capacity          int
	ActiveStudents    int
	AttendanceTotal   int
	AttendancePresent int
}

// ReportDataRepository is the read-only facade the report aggregator and
// renderers query. All methods scope results to the supplied date range and,
// when non-empty, to the given center identifiers.
type ReportDataRepository interface {
	AttendanceRecords(ctx context.Context, from, to time.Time, centerIDs []uint) ([]AttendanceRecord, error)
	AttendanceTally(ctx context.Context, from, to time.Time, centerIDs []uint) (AttendanceTally, error)
	GradeRecords(ctx context.Context, from, to time.Time, centerIDs []uint) ([]GradeRecord, error)
	CentersWithStats(ctx context.Context, from, to time.Time, centerIDs []uint) ([]CenterStats, error)
	CentersByIDs(ctx context.Context, ids []uint) ([]models.Center, error)
	CountActiveStudents(ctx context.Context) (int64, error)
	CountActiveCenters(ctx context.Context) (int64, error)
}

type reportDataRepository struct {
	db *gorm.DB
}

// NewReportDataRepository constructs the report data facade.
func NewReportDataRepository(db *gorm.DB) ReportDataRepository {
	return &reportDataRepository{db: db}
}

func (r *reportDataRepository) AttendanceRecords(ctx context.Context, from, to time.Time, centerIDs []uint) ([]AttendanceRecord, error) {
	var records []AttendanceRecord
	query := r.db.WithContext(ctx).
		Model(&models.Attendance{}).
		Select("students.first_name || ' ' || students.last_name AS student_name, centers.name AS center_name, attendances.date AS date, attendances.is_present AS is_present, attendances.remarks AS remarks").
		Joins("JOIN students ON students.id = attendances.student_id").
		Joins("JOIN centers ON centers.id = students.center_id").
		Where("attendances.date BETWEEN ? AND ?", from, to).
		Order("attendances.date, student_name")
	if len(centerIDs) > 0 {
		query = query.Where("students.center_id IN ?", centerIDs)
	}

	err := query.Scan(&records).Error
	return records, err
}

func (r *reportDataRepository) AttendanceTally(ctx context.Context, from, to time.Time, centerIDs []uint) (AttendanceTally, error) {
	base := r.db.WithContext(ctx).
		Model(&models.Attendance{}).
		Joins("JOIN students ON students.id = attendances.student_id").
		Where("attendances.date BETWEEN ? AND ?", from, to)
	if len(centerIDs) > 0 {
		base = base.Where("students.center_id IN ?", centerIDs)
	}

	var tally AttendanceTally
	if err := base.Session(&gorm.Session{}).Count(&tally.Total).Error; err != nil {
		return AttendanceTally{}, err
	}
	if err := base.Session(&gorm.Session{}).Where("attendances.is_present = ?", true).Count(&tally.Present).Error; err != nil {
		return AttendanceTally{}, err
	}

	return tally, nil
}

func (r *reportDataRepository) GradeRecords(ctx context.Context, from, to time.Time, centerIDs []uint) ([]GradeRecord, error) {
	var records []GradeRecord
	query := r.db.WithContext(ctx).
		Model(&models.Grade{}).
		Select("students.first_name || ' ' || students.last_name AS student_name, subjects.name AS subject_name, grades.marks_obtained AS marks_obtained, grades.total_marks AS total_marks, grades.grade_letter AS grade_letter").
		Joins("JOIN students ON students.id = grades.student_id").
		Joins("JOIN subjects ON subjects.id = grades.subject_id").
		Where("grades.assessment_date BETWEEN ? AND ?", from, to).
		Order("grades.assessment_date, student_name")
	if len(centerIDs) > 0 {
		query = query.Where("students.center_id IN ?", centerIDs)
	}

	err := query.Scan(&records).Error
	return records, err
}

func (r *reportDataRepository) CentersWithStats(ctx context.Context, from, to time.Time, centerIDs []uint) ([]CenterStats, error) {
	centers, err := r.selectCenters(ctx, centerIDs)
	if err != nil {
		return nil, err
	}

	studentCounts, err := r.activeStudentCounts(ctx)
	if err != nil {
		return nil, err
	}

	attendance, err := r.attendanceCounts(ctx, from, to)
	if err != nil {
		return nil, err
	}

	stats := make([]CenterStats, 0, len(centers))
	for _, center := range centers {
		stats = append(stats, CenterStats{
			Name:              center.Name,
			Location:          center.Location,
			Capacity:          center.Capacity,
			ActiveStudents:    int(studentCounts[center.ID]),
			AttendanceTotal:   int(attendance[center.ID].Total),
			AttendancePresent: int(attendance[center.ID].Present),
		})
	}

	return stats, nil
}

func (r *reportDataRepository) CentersByIDs(ctx context.Context, ids []uint) ([]models.Center, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var centers []models.Center
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&centers).Error
	return centers, err
}

func (r *reportDataRepository) CountActiveStudents(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}

func (r *reportDataRepository) CountActiveCenters(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Center{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}

func (r *reportDataRepository) selectCenters(ctx context.Context, centerIDs []uint) ([]models.Center, error) {
	var centers []models.Center
	query := r.db.WithContext(ctx).Model(&models.Center{}).Order("id")
	if len(centerIDs) > 0 {
		query = query.Where("id IN ?", centerIDs)
	} else {
		query = query.Where("is_active = ?", true)
	}

	err := query.Find(&centers).Error
	return centers, err
}

func (r *reportDataRepository) activeStudentCounts(ctx context.Context) (map[uint]int64, error) {
	type row struct {
		CenterID uint
		Count    int64
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Select("center_id AS center_id, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("center_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.CenterID] = r.Count
	}
	return counts, nil
}

func (r *reportDataRepository) attendanceCounts(ctx context.Context, from, to time.Time) (map[uint]AttendanceTally, error) {
	type row struct {
		CenterID uint
		Total    int64
		Present  int64
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Attendance{}).
		Select("students.center_id AS center_id, COUNT(*) AS total, SUM(CASE WHEN attendances.is_present THEN 1 ELSE 0 END) AS present").
		Joins("JOIN students ON students.id = attendances.student_id").
		Where("attendances.date BETWEEN ? AND ?", from, to).
		Group("students.center_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	tallies := make(map[uint]AttendanceTally, len(rows))
	for _, r := range rows {
		tallies[r.CenterID] = AttendanceTally{Total: r.Total, Present: r.Present}
	}
	return tallies, nil
}
