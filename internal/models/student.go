package models

import "time"

// Student is a learner enrolled at a single center.
type Student struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StudentID      string    `gorm:"size:20;uniqueIndex;not null" json:"student_id"`
	FirstName      string    `gorm:"size:100;not null" json:"first_name"`
	LastName       string    `gorm:"size:100;not null" json:"last_name"`
	DateOfBirth    time.Time `json:"date_of_birth"`
	Gender         string    `gorm:"size:1" json:"gender"`
	CenterID       uint      `gorm:"index;not null" json:"center_id"`
	Center         Center    `json:"center"`
	EnrollmentDate time.Time `json:"enrollment_date"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	GuardianName   string    `gorm:"size:200" json:"guardian_name"`
	GuardianPhone  string    `gorm:"size:15" json:"guardian_phone"`
}

// Attendance is a per-student, per-date presence fact.
type Attendance struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"uniqueIndex:idx_attendance_student_date;not null" json:"student_id"`
	Student   Student   `json:"student"`
	Date      time.Time `gorm:"uniqueIndex:idx_attendance_student_date;not null" json:"date"`
	IsPresent bool      `json:"is_present"`
	Remarks   string    `json:"remarks"`
}

// Grade is a per-student, per-subject assessment score.
type Grade struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StudentID      uint      `gorm:"index;not null" json:"student_id"`
	Student        Student   `json:"student"`
	SubjectID      uint      `gorm:"index;not null" json:"subject_id"`
	Subject        Subject   `json:"subject"`
	AssessmentDate time.Time `gorm:"index;not null" json:"assessment_date"`
	MarksObtained  int       `json:"marks_obtained"`
	TotalMarks     int       `json:"total_marks"`
	GradeLetter    string    `gorm:"size:2" json:"grade_letter"`
}
