package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edubase-reports-api/internal/models"
)

func TestReportDefinitionsFullyWired(t *testing.T) {
	require.NoError(t, validateReportDefinitions())

	for reportType, want := range map[models.ReportType]string{
		models.ReportTypeAttendance: "Attendance Report",
		models.ReportTypeAcademic:   "Academic Performance Report",
		models.ReportTypeCenter:     "Center Performance Report",
		models.ReportTypeFinancial:  "Financial Report",
		models.ReportTypeDonor:      "Donor Impact Report",
		models.ReportTypeRisk:       "Risk Assessment Report",
	} {
		definition := definitionFor(reportType)
		require.Equal(t, want, definition.Title)
		require.NotNil(t, definition.Aggregate)
		require.NotNil(t, definition.Render)
	}
}

func TestDefinitionForUnknownTypeFallsBackToPlaceholder(t *testing.T) {
	report := models.Report{ReportType: models.ReportType("legacy_type")}
	report.ID = 12

	definition := definitionFor(report.ReportType)
	require.Equal(t, "Report", definition.Title)
	require.Equal(t, "legacy_type_report_12.pdf", definition.Artifact(report))

	// The placeholder aggregate resolves its own definition at runtime.
	aggregator := &reportAggregator{logger: testLogger()}
	data, err := definition.Aggregate(aggregator, context.Background(), report)
	require.NoError(t, err)
	require.NotNil(t, data.Placeholder)
	require.Equal(t, "Report", data.Placeholder.Title)
	require.NotEmpty(t, data.Placeholder.Message)
}
