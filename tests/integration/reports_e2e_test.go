package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/edubase-reports-api/internal/config"
	"github.com/noah-isme/edubase-reports-api/internal/dto"
	"github.com/noah-isme/edubase-reports-api/internal/handler"
	"github.com/noah-isme/edubase-reports-api/internal/middleware"
	"github.com/noah-isme/edubase-reports-api/internal/models"
	"github.com/noah-isme/edubase-reports-api/internal/repository"
	"github.com/noah-isme/edubase-reports-api/internal/router"
	"github.com/noah-isme/edubase-reports-api/internal/service"
	"github.com/noah-isme/edubase-reports-api/pkg/storage"
)

func setupReportsApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Center{},
		&models.Subject{},
		&models.Student{},
		&models.Attendance{},
		&models.Grade{},
		&models.Report{},
		&models.ReportSchedule{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	reportRepo := repository.NewReportRepository(db)
	reportDataRepo := repository.NewReportDataRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	artifacts, err := storage.NewLocal(afero.NewMemMapFs(), "artifacts", logger)
	require.NoError(t, err)

	reportService, err := service.NewReportService(
		reportRepo,
		reportDataRepo,
		service.NewReportAggregator(reportDataRepo, logger),
		service.NewReportRenderer(30, logger),
		artifacts,
		nil,
		nil,
		time.Minute,
		validate,
		logger,
	)
	require.NoError(t, err)

	scheduleService := service.NewScheduleService(scheduleRepo, reportDataRepo, validate, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		ReportHandler:   handler.NewReportHandler(reportService, logger),
		ScheduleHandler: handler.NewScheduleHandler(scheduleService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(9001))
			c.Locals("user_role", "admin")
			return c.Next()
		},
	})

	return app, db
}

func seedAttendance(t *testing.T, db *gorm.DB) {
	t.Helper()

	center := models.Center{ID: 1, Name: "North Center", Location: "North District", Capacity: 100, IsActive: true}
	require.NoError(t, db.Create(&center).Error)

	students := []models.Student{
		{ID: 1, StudentID: "STU001", FirstName: "Amina", LastName: "Yusuf", CenterID: 1, IsActive: true},
		{ID: 2, StudentID: "STU002", FirstName: "Ben", LastName: "Okoro", CenterID: 1, IsActive: true},
	}
	require.NoError(t, db.Create(&students).Error)

	attendances := []models.Attendance{
		{StudentID: 1, Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), IsPresent: true},
		{StudentID: 2, Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), IsPresent: false, Remarks: "sick"},
		{StudentID: 1, Date: time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), IsPresent: true},
	}
	require.NoError(t, db.Create(&attendances).Error)
}

func TestReportLifecycleEndToEnd(t *testing.T) {
	app, db := setupReportsApp(t)
	seedAttendance(t, db)

	payload := dto.ReportCreateRequest{
		Title:      "January Attendance",
		ReportType: "attendance",
		DateFrom:   "2026-01-01",
		DateTo:     "2026-01-31",
		CenterIDs:  []uint{1},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Data dto.ReportResponse `json:"data"`
	}
	decodeJSON(t, resp, &created)
	require.Equal(t, "completed", created.Data.Status)
	require.NotEmpty(t, created.Data.ArtifactRef)
	require.Equal(t, []string{"North Center"}, created.Data.CenterNames)

	reportID := strconv.FormatUint(uint64(created.Data.ID), 10)

	// Detail aggregation over the same range.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+reportID+"/data", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var detail struct {
		Data dto.ReportData `json:"data"`
	}
	decodeJSON(t, resp, &detail)
	require.NotNil(t, detail.Data.Attendance)
	require.Equal(t, 3, detail.Data.Attendance.TotalRecords)
	require.Equal(t, 2, detail.Data.Attendance.PresentRecords)

	// Download the rendered artifact.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+reportID+"/download", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	// CSV export of the underlying rows.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+reportID+"/export", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	csvBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	lines := strings.Split(strings.TrimSpace(string(csvBody)), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "Student Name,Center,Date,Status,Remarks", lines[0])

	// Dashboard reflects the generated report.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/reports/dashboard", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var dashboard struct {
		Data dto.ReportsDashboardResponse `json:"data"`
	}
	decodeJSON(t, resp, &dashboard)
	require.Equal(t, int64(2), dashboard.Data.TotalStudents)
	require.Equal(t, int64(1), dashboard.Data.TotalReports)
	require.Equal(t, int64(1), dashboard.Data.CompletedReports)
}

func TestScheduleLifecycleEndToEnd(t *testing.T) {
	app, db := setupReportsApp(t)
	center := models.Center{ID: 1, Name: "North Center", Capacity: 100, IsActive: true}
	require.NoError(t, db.Create(&center).Error)

	payload := dto.ScheduleCreateRequest{
		Name:       "Weekly Attendance",
		ReportType: "attendance",
		Frequency:  "weekly",
		Recipients: "ops@example.com, head@example.com",
		CenterIDs:  []uint{1},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Data dto.ScheduleResponse `json:"data"`
	}
	decodeJSON(t, resp, &created)
	require.True(t, created.Data.IsActive)
	require.Len(t, created.Data.Recipients, 2)

	scheduleID := strconv.FormatUint(uint64(created.Data.ID), 10)

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/schedules/"+scheduleID+"/activation", strings.NewReader(`{"is_active":false}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var updated struct {
		Data dto.ScheduleResponse `json:"data"`
	}
	decodeJSON(t, resp, &updated)
	require.False(t, updated.Data.IsActive)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/schedules?active=true", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed struct {
		Data []dto.ScheduleResponse `json:"data"`
	}
	decodeJSON(t, resp, &listed)
	require.Empty(t, listed.Data)
}

func decodeJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}
