package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/edubase-reports-api/internal/dto"
	"github.com/noah-isme/edubase-reports-api/internal/models"
	"github.com/noah-isme/edubase-reports-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type fakeReportRepo struct {
	reports map[uint]*models.Report
	nextID  uint
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[uint]*models.Report)}
}

func (f *fakeReportRepo) Create(_ context.Context, report *models.Report) error {
	f.nextID++
	report.ID = f.nextID
	stored := *report
	f.reports[report.ID] = &stored
	return nil
}

func (f *fakeReportRepo) FindByID(_ context.Context, id uint) (models.Report, error) {
	report, ok := f.reports[id]
	if !ok {
		return models.Report{}, gorm.ErrRecordNotFound
	}
	return *report, nil
}

func (f *fakeReportRepo) List(_ context.Context, filter repository.ReportFilter) ([]models.Report, error) {
	var reports []models.Report
	for _, report := range f.reports {
		if filter.ReportType != "" && report.ReportType != filter.ReportType {
			continue
		}
		if filter.Status != "" && report.Status != filter.Status {
			continue
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

func (f *fakeReportRepo) ListRecent(ctx context.Context, _ int) ([]models.Report, error) {
	return f.List(ctx, repository.ReportFilter{})
}

func (f *fakeReportRepo) Count(_ context.Context) (int64, error) {
	return int64(len(f.reports)), nil
}

func (f *fakeReportRepo) CountByStatus(_ context.Context, status models.ReportStatus) (int64, error) {
	var count int64
	for _, report := range f.reports {
		if report.Status == status {
			count++
		}
	}
	return count, nil
}

func (f *fakeReportRepo) TransitionStatus(_ context.Context, id uint, from, to models.ReportStatus) error {
	report, ok := f.reports[id]
	if !ok || report.Status != from {
		return gorm.ErrRecordNotFound
	}
	report.Status = to
	return nil
}

func (f *fakeReportRepo) Complete(_ context.Context, id uint, artifactRef string, meta datatypes.JSON) error {
	report, ok := f.reports[id]
	if !ok || report.Status != models.ReportStatusGenerating {
		return gorm.ErrRecordNotFound
	}
	report.Status = models.ReportStatusCompleted
	report.ArtifactRef = &artifactRef
	report.Meta = meta
	return nil
}

type fakeReportData struct {
	attendance    []repository.AttendanceRecord
	tally         repository.AttendanceTally
	grades        []repository.GradeRecord
	centers       []repository.CenterStats
	knownCenters  []models.Center
	students      int64
	activeCenters int64
	err           error
}

func (f *fakeReportData) AttendanceRecords(context.Context, time.Time, time.Time, []uint) ([]repository.AttendanceRecord, error) {
	return f.attendance, f.err
}

func (f *fakeReportData) AttendanceTally(context.Context, time.Time, time.Time, []uint) (repository.AttendanceTally, error) {
	return f.tally, f.err
}

func (f *fakeReportData) GradeRecords(context.Context, time.Time, time.Time, []uint) ([]repository.GradeRecord, error) {
	return f.grades, f.err
}

func (f *fakeReportData) CentersWithStats(context.Context, time.Time, time.Time, []uint) ([]repository.CenterStats, error) {
	return f.centers, f.err
}

func (f *fakeReportData) CentersByIDs(_ context.Context, ids []uint) ([]models.Center, error) {
	if f.err != nil {
		return nil, f.err
	}
	var matched []models.Center
	for _, id := range ids {
		for _, center := range f.knownCenters {
			if center.ID == id {
				matched = append(matched, center)
			}
		}
	}
	return matched, nil
}

func (f *fakeReportData) CountActiveStudents(context.Context) (int64, error) {
	return f.students, f.err
}

func (f *fakeReportData) CountActiveCenters(context.Context) (int64, error) {
	return f.activeCenters, f.err
}

type fakeAggregator struct {
	data  dto.ReportData
	err   error
	calls int
}

func (f *fakeAggregator) Aggregate(context.Context, models.Report) (dto.ReportData, error) {
	f.calls++
	if f.err != nil {
		return dto.ReportData{}, f.err
	}
	return f.data, nil
}

type memStorage struct {
	saved   map[string][]byte
	saveErr error
}

func newMemStorage() *memStorage {
	return &memStorage{saved: make(map[string][]byte)}
}

func (m *memStorage) Save(_ context.Context, name string, reader io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	m.saved[name] = data
	return "mem://" + name, nil
}

func (m *memStorage) Exists(_ context.Context, ref string) (bool, error) {
	_, ok := m.saved[strings.TrimPrefix(ref, "mem://")]
	return ok, nil
}

func (m *memStorage) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	data, ok := m.saved[strings.TrimPrefix(ref, "mem://")]
	if !ok {
		return nil, errors.New("artifact missing")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakePublisher struct {
	events []ReportEvent
}

func (f *fakePublisher) Publish(_ context.Context, event ReportEvent) error {
	f.events = append(f.events, event)
	return nil
}

type serviceFixture struct {
	service   ReportService
	reports   *fakeReportRepo
	data      *fakeReportData
	storage   *memStorage
	publisher *fakePublisher
}

func newServiceFixture(t *testing.T, data *fakeReportData, aggregator ReportAggregator, cache *redis.Client) serviceFixture {
	t.Helper()

	reports := newFakeReportRepo()
	storage := newMemStorage()
	publisher := &fakePublisher{}
	logger := testLogger()

	if aggregator == nil {
		aggregator = NewReportAggregator(data, logger)
	}

	svc, err := NewReportService(
		reports,
		data,
		aggregator,
		NewReportRenderer(30, logger),
		storage,
		publisher,
		cache,
		time.Minute,
		validator.New(validator.WithRequiredStructEnabled()),
		logger,
	)
	require.NoError(t, err)

	return serviceFixture{service: svc, reports: reports, data: data, storage: storage, publisher: publisher}
}

func pendingAttendanceReport() models.Report {
	return models.Report{
		Title:         "Monthly Attendance",
		ReportType:    models.ReportTypeAttendance,
		Status:        models.ReportStatusPending,
		DateFrom:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:        time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		GeneratedByID: 7,
	}
}

func TestReportServiceCreateValidations(t *testing.T) {
	data := &fakeReportData{knownCenters: []models.Center{{ID: 1, Name: "North Center"}}}
	fixture := newServiceFixture(t, data, nil, nil)
	ctx := context.Background()

	payload := dto.ReportCreateRequest{
		Title:      "Monthly Attendance",
		ReportType: "attendance",
		DateFrom:   "2026-01-01",
		DateTo:     "2026-01-31",
	}

	_, err := fixture.service.Create(ctx, payload, 0)
	require.ErrorIs(t, err, ErrIdentityRequired)

	swapped := payload
	swapped.DateFrom, swapped.DateTo = swapped.DateTo, swapped.DateFrom
	_, err = fixture.service.Create(ctx, swapped, 7)
	require.ErrorIs(t, err, ErrInvalidRange)

	unknownCenter := payload
	unknownCenter.CenterIDs = []uint{99}
	_, err = fixture.service.Create(ctx, unknownCenter, 7)
	require.ErrorIs(t, err, ErrCenterNotFound)

	badType := payload
	badType.ReportType = "budget"
	_, err = fixture.service.Create(ctx, badType, 7)
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
}

func TestReportServiceCreateSanitizesTitle(t *testing.T) {
	data := &fakeReportData{knownCenters: []models.Center{{ID: 1, Name: "North Center"}}}
	fixture := newServiceFixture(t, data, nil, nil)

	payload := dto.ReportCreateRequest{
		Title:      "Monthly <script>alert(1)</script>Attendance",
		ReportType: "attendance",
		DateFrom:   "2026-01-01",
		DateTo:     "2026-01-31",
		CenterIDs:  []uint{1},
	}

	response, err := fixture.service.Create(context.Background(), payload, 7)
	require.NoError(t, err)
	require.Equal(t, "Monthly Attendance", response.Title)
	require.Equal(t, "pending", response.Status)
	require.Equal(t, []string{"North Center"}, response.CenterNames)
}

func TestReportServiceGenerateHappyPath(t *testing.T) {
	data := &fakeReportData{
		tally: repository.AttendanceTally{Total: 4, Present: 3},
		attendance: []repository.AttendanceRecord{
			{StudentName: "Amina Yusuf", CenterName: "North Center", Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), IsPresent: true},
			{StudentName: "Ben Okoro", CenterName: "North Center", Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), IsPresent: false, Remarks: "sick"},
		},
	}
	fixture := newServiceFixture(t, data, nil, nil)
	ctx := context.Background()

	report := pendingAttendanceReport()
	require.NoError(t, fixture.reports.Create(ctx, &report))

	response, err := fixture.service.Generate(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, "completed", response.Status)
	require.Equal(t, fmt.Sprintf("mem://attendance_report_%d.pdf", report.ID), response.ArtifactRef)

	artifact := fixture.storage.saved[fmt.Sprintf("attendance_report_%d.pdf", report.ID)]
	require.True(t, bytes.HasPrefix(artifact, []byte("%PDF")))

	stored, err := fixture.reports.FindByID(ctx, report.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Meta)

	require.Len(t, fixture.publisher.events, 1)
	require.Equal(t, "completed", fixture.publisher.events[0].Status)
	require.Equal(t, report.ID, fixture.publisher.events[0].ReportID)
}

func TestReportServiceGenerateRejectsNonPending(t *testing.T) {
	data := &fakeReportData{}
	fixture := newServiceFixture(t, data, nil, nil)
	ctx := context.Background()

	report := pendingAttendanceReport()
	report.Status = models.ReportStatusCompleted
	require.NoError(t, fixture.reports.Create(ctx, &report))

	_, err := fixture.service.Generate(ctx, report.ID)
	require.ErrorIs(t, err, ErrReportNotPending)

	_, err = fixture.service.Generate(ctx, 999)
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestReportServiceGenerateFailureMarksFailed(t *testing.T) {
	data := &fakeReportData{}
	// An aggregation result with no summary makes the renderer refuse the
	// document, exercising the failure path end to end.
	broken := &fakeAggregator{data: dto.ReportData{ReportType: "attendance"}}
	fixture := newServiceFixture(t, data, broken, nil)
	ctx := context.Background()

	report := pendingAttendanceReport()
	require.NoError(t, fixture.reports.Create(ctx, &report))

	_, err := fixture.service.Generate(ctx, report.ID)
	require.ErrorIs(t, err, ErrRenderFailure)

	stored, findErr := fixture.reports.FindByID(ctx, report.ID)
	require.NoError(t, findErr)
	require.Equal(t, models.ReportStatusFailed, stored.Status)
	require.Nil(t, stored.ArtifactRef)

	require.Len(t, fixture.publisher.events, 1)
	require.Equal(t, "failed", fixture.publisher.events[0].Status)
}

func TestReportServiceGetReportDataCaches(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	aggregator := &fakeAggregator{data: dto.ReportData{
		ReportType: "attendance",
		Attendance: &dto.AttendanceSummary{TotalRecords: 10, PresentRecords: 8, AbsentRecords: 2, AttendanceRate: 80},
	}}
	fixture := newServiceFixture(t, &fakeReportData{}, aggregator, cache)
	ctx := context.Background()

	report := pendingAttendanceReport()
	require.NoError(t, fixture.reports.Create(ctx, &report))

	first, err := fixture.service.GetReportData(ctx, report.ID)
	require.NoError(t, err)
	require.NotNil(t, first.Attendance)
	require.Equal(t, 1, aggregator.calls)

	second, err := fixture.service.GetReportData(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, aggregator.calls, "expected cache hit on second read")
}

func TestReportServiceExportCSV(t *testing.T) {
	data := &fakeReportData{
		attendance: []repository.AttendanceRecord{
			{StudentName: "Amina Yusuf", CenterName: "North Center", Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), IsPresent: true},
		},
	}
	fixture := newServiceFixture(t, data, nil, nil)
	ctx := context.Background()

	report := pendingAttendanceReport()
	require.NoError(t, fixture.reports.Create(ctx, &report))

	var buf bytes.Buffer
	filename, err := fixture.service.ExportCSV(ctx, report.ID, &buf)
	require.NoError(t, err)
	require.Equal(t, "Monthly Attendance.csv", filename)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "Student Name,Center,Date,Status,Remarks", lines[0])
	require.Equal(t, "Amina Yusuf,North Center,2026-01-05,Present,", lines[1])

	academic := pendingAttendanceReport()
	academic.ReportType = models.ReportTypeAcademic
	require.NoError(t, fixture.reports.Create(ctx, &academic))

	_, err = fixture.service.ExportCSV(ctx, academic.ID, &buf)
	require.ErrorIs(t, err, ErrCSVUnsupported)
}

func TestReportServiceOpenArtifact(t *testing.T) {
	data := &fakeReportData{tally: repository.AttendanceTally{Total: 1, Present: 1}}
	fixture := newServiceFixture(t, data, nil, nil)
	ctx := context.Background()

	report := pendingAttendanceReport()
	require.NoError(t, fixture.reports.Create(ctx, &report))

	_, _, err := fixture.service.OpenArtifact(ctx, report.ID)
	require.ErrorIs(t, err, ErrReportNotCompleted)

	_, err = fixture.service.Generate(ctx, report.ID)
	require.NoError(t, err)

	reader, filename, err := fixture.service.OpenArtifact(ctx, report.ID)
	require.NoError(t, err)
	defer reader.Close()
	require.Equal(t, fmt.Sprintf("attendance_report_%d.pdf", report.ID), filename)

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}

func TestReportServiceDashboard(t *testing.T) {
	data := &fakeReportData{
		students:      12,
		activeCenters: 3,
		tally:         repository.AttendanceTally{Total: 10, Present: 9},
	}
	fixture := newServiceFixture(t, data, nil, nil)
	ctx := context.Background()

	completed := pendingAttendanceReport()
	completed.Status = models.ReportStatusCompleted
	require.NoError(t, fixture.reports.Create(ctx, &completed))
	pending := pendingAttendanceReport()
	require.NoError(t, fixture.reports.Create(ctx, &pending))

	dashboard, err := fixture.service.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(12), dashboard.TotalStudents)
	require.Equal(t, int64(3), dashboard.TotalCenters)
	require.InDelta(t, 90.0, dashboard.AttendanceRate, 0.001)
	require.Equal(t, int64(2), dashboard.TotalReports)
	require.Equal(t, int64(1), dashboard.CompletedReports)
	require.Len(t, dashboard.RecentReports, 2)
	require.False(t, dashboard.GeneratedAt.IsZero())
}
