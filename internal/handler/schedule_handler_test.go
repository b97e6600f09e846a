package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edubase-reports-api/internal/dto"
	"github.com/noah-isme/edubase-reports-api/internal/handler"
	"github.com/noah-isme/edubase-reports-api/internal/service"
)

type mockScheduleService struct {
	created dto.ScheduleResponse
	list    []dto.ScheduleResponse
	updated dto.ScheduleResponse

	createErr    error
	setActiveErr error

	lastActiveOnly bool
	lastSetActive  *bool
}

func (m *mockScheduleService) Create(_ context.Context, _ dto.ScheduleCreateRequest, _ uint) (dto.ScheduleResponse, error) {
	if m.createErr != nil {
		return dto.ScheduleResponse{}, m.createErr
	}
	return m.created, nil
}

func (m *mockScheduleService) List(_ context.Context, activeOnly bool) ([]dto.ScheduleResponse, error) {
	m.lastActiveOnly = activeOnly
	return m.list, nil
}

func (m *mockScheduleService) SetActive(_ context.Context, _ uint, active bool) (dto.ScheduleResponse, error) {
	m.lastSetActive = &active
	if m.setActiveErr != nil {
		return dto.ScheduleResponse{}, m.setActiveErr
	}
	return m.updated, nil
}

func newScheduleApp(svc service.ScheduleService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/schedules", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(7))
		return c.Next()
	})
	handler.NewScheduleHandler(svc, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestScheduleHandlerCreate(t *testing.T) {
	svc := &mockScheduleService{created: dto.ScheduleResponse{ID: 1, Name: "Weekly Attendance", IsActive: true}}
	app := newScheduleApp(svc)

	payload := dto.ScheduleCreateRequest{
		Name:       "Weekly Attendance",
		ReportType: "attendance",
		Frequency:  "weekly",
		Recipients: "ops@example.com",
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response struct {
		Data dto.ScheduleResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "Weekly Attendance", response.Data.Name)
}

func TestScheduleHandlerListActiveFilter(t *testing.T) {
	svc := &mockScheduleService{list: []dto.ScheduleResponse{{ID: 1}}}
	app := newScheduleApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedules?active=true", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, svc.lastActiveOnly)
}

func TestScheduleHandlerActivation(t *testing.T) {
	svc := &mockScheduleService{updated: dto.ScheduleResponse{ID: 1, IsActive: false}}
	app := newScheduleApp(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/schedules/1/activation", strings.NewReader(`{"is_active":false}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, svc.lastSetActive)
	require.False(t, *svc.lastSetActive)
}

func TestScheduleHandlerActivationRequiresFlag(t *testing.T) {
	app := newScheduleApp(&mockScheduleService{})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/schedules/1/activation", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestScheduleHandlerActivationNotFound(t *testing.T) {
	svc := &mockScheduleService{setActiveErr: service.ErrScheduleNotFound}
	app := newScheduleApp(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/schedules/99/activation", strings.NewReader(`{"is_active":true}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
