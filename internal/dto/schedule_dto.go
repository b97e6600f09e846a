package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/edubase-reports-api/internal/models"
)

// ScheduleCreateRequest describes the payload for creating a report schedule.
// Recipients is a comma-separated list of email addresses.
type ScheduleCreateRequest struct {
	Name       string `json:"name" validate:"required,min=3,max=200"`
	ReportType string `json:"report_type" validate:"required,oneof=attendance academic center financial donor risk"`
	Frequency  string `json:"frequency" validate:"required,oneof=daily weekly monthly quarterly"`
	Recipients string `json:"recipients" validate:"required"`
	CenterIDs  []uint `json:"center_ids" validate:"omitempty,dive,min=1"`
}

// ScheduleActivationRequest toggles a schedule on or off.
type ScheduleActivationRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// ScheduleResponse is the serialized representation of a schedule row.
type ScheduleResponse struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	ReportType  string     `json:"report_type"`
	Frequency   string     `json:"frequency"`
	Recipients  []string   `json:"recipients"`
	CenterNames []string   `json:"center_names"`
	IsActive    bool       `json:"is_active"`
	LastRun     *time.Time `json:"last_run"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewScheduleResponse converts a model into a DTO, splitting the stored
// recipients text into individual addresses.
func NewScheduleResponse(schedule models.ReportSchedule) ScheduleResponse {
	names := make([]string, 0, len(schedule.Centers))
	for _, center := range schedule.Centers {
		names = append(names, center.Name)
	}

	return ScheduleResponse{
		ID:          schedule.ID,
		Name:        schedule.Name,
		ReportType:  string(schedule.ReportType),
		Frequency:   string(schedule.Frequency),
		Recipients:  SplitRecipients(schedule.Recipients),
		CenterNames: names,
		IsActive:    schedule.IsActive,
		LastRun:     schedule.LastRun,
		CreatedAt:   schedule.CreatedAt,
	}
}

// NewScheduleResponseSlice converts a slice of models into DTOs.
func NewScheduleResponseSlice(schedules []models.ReportSchedule) []ScheduleResponse {
	responses := make([]ScheduleResponse, 0, len(schedules))
	for _, schedule := range schedules {
		responses = append(responses, NewScheduleResponse(schedule))
	}

	return responses
}

// SplitRecipients parses a comma-separated recipient list, dropping empty
// entries and surrounding whitespace.
func SplitRecipients(raw string) []string {
	parts := strings.Split(raw, ",")
	recipients := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}
