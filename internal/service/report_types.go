package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/edubase-reports-api/internal/dto"
	"github.com/noah-isme/edubase-reports-api/internal/models"
)

// reportDefinition binds a report type to its aggregation, its PDF layout
// and its artifact naming. The table below is validated at startup so a new
// report type cannot ship half-wired.
type reportDefinition struct {
	Title       string
	Placeholder string
	Aggregate   func(a *reportAggregator, ctx context.Context, report models.Report) (dto.ReportData, error)
	Render      func(r *ReportRenderer, doc *pdfDocument, report models.Report, data dto.ReportData, detail DetailRecords) error
	Artifact    func(report models.Report) string
}

func typedArtifactName(report models.Report) string {
	return fmt.Sprintf("%s_report_%d.pdf", report.ReportType, report.ID)
}

// reportDefinitions is populated in init rather than a package-level literal:
// the placeholder aggregate/render funcs resolve their title text through
// definitionFor, which reads this map.
var reportDefinitions map[models.ReportType]reportDefinition

func init() {
	reportDefinitions = map[models.ReportType]reportDefinition{
		models.ReportTypeAttendance: {
			Title:     "Attendance Report",
			Aggregate: (*reportAggregator).aggregateAttendance,
			Render:    (*ReportRenderer).renderAttendance,
			Artifact:  typedArtifactName,
		},
		models.ReportTypeAcademic: {
			Title:     "Academic Performance Report",
			Aggregate: (*reportAggregator).aggregateAcademic,
			Render:    (*ReportRenderer).renderAcademic,
			Artifact:  typedArtifactName,
		},
		models.ReportTypeCenter: {
			Title:     "Center Performance Report",
			Aggregate: (*reportAggregator).aggregateCenter,
			Render:    (*ReportRenderer).renderCenter,
			Artifact:  typedArtifactName,
		},
		models.ReportTypeFinancial: {
			Title:       "Financial Report",
			Placeholder: "Financial data and budget analysis will be implemented here.",
			Aggregate:   (*reportAggregator).aggregatePlaceholder,
			Render:      (*ReportRenderer).renderPlaceholder,
			Artifact:    typedArtifactName,
		},
		models.ReportTypeDonor: {
			Title:       "Donor Impact Report",
			Placeholder: "Donor impact metrics and success stories will be implemented here.",
			Aggregate:   (*reportAggregator).aggregatePlaceholder,
			Render:      (*ReportRenderer).renderPlaceholder,
			Artifact:    typedArtifactName,
		},
		models.ReportTypeRisk: {
			Title:       "Risk Assessment Report",
			Placeholder: "Risk factors and intervention strategies will be implemented here.",
			Aggregate:   (*reportAggregator).aggregatePlaceholder,
			Render:      (*ReportRenderer).renderPlaceholder,
			Artifact:    typedArtifactName,
		},
	}
}

// definitionFor resolves a report type to its definition. Unknown types fall
// back to a generic placeholder document rather than failing, matching the
// list-screen behaviour where stale enum values may still exist in storage.
func definitionFor(reportType models.ReportType) reportDefinition {
	if definition, ok := reportDefinitions[reportType]; ok {
		return definition
	}

	return reportDefinition{
		Title:       "Report",
		Placeholder: "This report type is currently under development.",
		Aggregate:   (*reportAggregator).aggregatePlaceholder,
		Render:      (*ReportRenderer).renderPlaceholder,
		Artifact:    typedArtifactName,
	}
}

// validateReportDefinitions ensures every known report type is fully wired.
func validateReportDefinitions() error {
	types := []models.ReportType{
		models.ReportTypeAttendance,
		models.ReportTypeAcademic,
		models.ReportTypeCenter,
		models.ReportTypeFinancial,
		models.ReportTypeDonor,
		models.ReportTypeRisk,
	}

	for _, reportType := range types {
		definition, ok := reportDefinitions[reportType]
		if !ok {
			return fmt.Errorf("report type %q has no definition", reportType)
		}
		if definition.Title == "" || definition.Aggregate == nil || definition.Render == nil || definition.Artifact == nil {
			return fmt.Errorf("report type %q has an incomplete definition", reportType)
		}
	}

	return nil
}
