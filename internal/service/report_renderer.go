package service

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edubase-reports-api/internal/dto"
	"github.com/noah-isme/edubase-reports-api/internal/models"
	"github.com/noah-isme/edubase-reports-api/internal/repository"
)

// ErrRenderFailure indicates PDF construction failed. No partial artifact is
// ever persisted after this error.
var ErrRenderFailure = errors.New("report rendering failed")

const (
	pageMarginX   = 50.0
	detailRowStep = 15.0
	// Cursor positions past this point trigger a page break before the next row.
	pageBreakLimit = 692.0

	longDateLayout = "January 02, 2006"
	stampLayout    = "January 02, 2006 at 3:04 PM"
	rowDateLayout  = "01/02/2006"
)

// DetailRecords holds the raw rows a report layout may list under its
// summary box. Only the slice matching the report type is consulted.
type DetailRecords struct {
	Attendance []repository.AttendanceRecord
	Grades     []repository.GradeRecord
	Centers    []repository.CenterStats
}

// RenderResult is the rendered artifact plus layout figures for callers
// that record generation metadata.
type RenderResult struct {
	Data       []byte
	Pages      int
	DetailRows int
	Omitted    int
	// HeaderReprints counts column headers redrawn after a page break.
	HeaderReprints int
}

type pdfDocument struct {
	pdf            *gofpdf.Fpdf
	y              float64
	detailRows     int
	omitted        int
	headerReprints int
}

// ReportRenderer lays out report PDFs. Detail listings are capped at
// maxDetailRows; the remainder collapses into a single overflow line.
type ReportRenderer struct {
	maxDetailRows int
	now           func() time.Time
	logger        zerolog.Logger
}

// NewReportRenderer constructs a renderer with the given detail-row cap.
func NewReportRenderer(maxDetailRows int, logger zerolog.Logger) *ReportRenderer {
	if maxDetailRows <= 0 {
		maxDetailRows = 30
	}
	return &ReportRenderer{
		maxDetailRows: maxDetailRows,
		now:           time.Now,
		logger:        logger.With().Str("component", "report_renderer").Logger(),
	}
}

// Render produces the PDF artifact for a report. Any layout or encoding
// error aborts the whole document.
func (r *ReportRenderer) Render(report models.Report, data dto.ReportData, detail DetailRecords) (RenderResult, error) {
	pdf := gofpdf.New("P", "pt", "Letter", "")
	// Row pagination is an explicit per-row decision, not the engine's.
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	doc := &pdfDocument{pdf: pdf}
	definition := definitionFor(report.ReportType)
	if err := definition.Render(r, doc, report, data, detail); err != nil {
		return RenderResult{}, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	if pdf.Err() {
		return RenderResult{}, fmt.Errorf("%w: %v", ErrRenderFailure, pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return RenderResult{}, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}

	return RenderResult{
		Data:           buf.Bytes(),
		Pages:          pdf.PageCount(),
		DetailRows:     doc.detailRows,
		Omitted:        doc.omitted,
		HeaderReprints: doc.headerReprints,
	}, nil
}

func (r *ReportRenderer) renderAttendance(doc *pdfDocument, report models.Report, data dto.ReportData, detail DetailRecords) error {
	summary := data.Attendance
	if summary == nil {
		return errors.New("attendance summary missing")
	}

	r.drawHeader(doc, "Attendance Report", report)

	doc.pdf.Rect(pageMarginX, 200, 500, 80, "D")
	doc.pdf.SetFont("Helvetica", "B", 14)
	doc.pdf.Text(60, 220, "SUMMARY STATISTICS")
	doc.pdf.SetFont("Helvetica", "", 12)
	doc.pdf.Text(60, 240, fmt.Sprintf("Total Attendance Records: %d", summary.TotalRecords))
	doc.pdf.Text(300, 240, fmt.Sprintf("Present: %d", summary.PresentRecords))
	doc.pdf.Text(60, 260, fmt.Sprintf("Absent: %d", summary.AbsentRecords))
	doc.pdf.Text(300, 260, fmt.Sprintf("Attendance Rate: %.1f%%", summary.AttendanceRate))

	doc.pdf.SetFont("Helvetica", "B", 12)
	doc.pdf.Text(pageMarginX, 320, "DETAILED ATTENDANCE DATA")

	columns := func(y float64) {
		doc.pdf.SetFont("Helvetica", "B", 10)
		doc.pdf.Text(50, y, "Student Name")
		doc.pdf.Text(200, y, "Center")
		doc.pdf.Text(350, y, "Date")
		doc.pdf.Text(450, y, "Status")
		doc.pdf.Line(50, y+5, 550, y+5)
	}
	columns(350)
	doc.y = 370

	doc.pdf.SetFont("Helvetica", "", 9)
	r.drawDetailRows(doc, len(detail.Attendance), columns, func(i int, y float64) {
		record := detail.Attendance[i]
		status := "Absent"
		if record.IsPresent {
			status = "Present"
		}
		doc.pdf.Text(50, y, truncate(record.StudentName, 20))
		doc.pdf.Text(200, y, truncate(record.CenterName, 15))
		doc.pdf.Text(350, y, record.Date.Format(rowDateLayout))
		doc.pdf.Text(450, y, status)
	})

	return nil
}

func (r *ReportRenderer) renderAcademic(doc *pdfDocument, report models.Report, data dto.ReportData, detail DetailRecords) error {
	summary := data.Academic
	if summary == nil {
		return errors.New("academic summary missing")
	}

	r.drawHeader(doc, "Academic Performance Report", report)

	doc.pdf.Rect(pageMarginX, 200, 500, 100, "D")
	doc.pdf.SetFont("Helvetica", "B", 14)
	doc.pdf.Text(60, 220, "ACADEMIC PERFORMANCE SUMMARY")
	doc.pdf.SetFont("Helvetica", "", 12)
	doc.pdf.Text(60, 240, fmt.Sprintf("Total Assessments: %d", summary.TotalAssessments))
	doc.pdf.Text(300, 240, fmt.Sprintf("Average Score: %.1f%%", summary.AveragePercentage))

	if len(summary.GradeDistribution) > 0 {
		doc.pdf.Text(60, 260, "Grade Distribution:")
		x := 60.0
		for _, bucket := range summary.GradeDistribution {
			doc.pdf.Text(x, 280, fmt.Sprintf("%s: %d", bucket.GradeLetter, bucket.Count))
			x += 80
		}
	}

	doc.pdf.SetFont("Helvetica", "B", 12)
	doc.pdf.Text(pageMarginX, 340, "DETAILED ASSESSMENT DATA")

	columns := func(y float64) {
		doc.pdf.SetFont("Helvetica", "B", 10)
		doc.pdf.Text(50, y, "Student")
		doc.pdf.Text(200, y, "Subject")
		doc.pdf.Text(350, y, "Marks")
		doc.pdf.Text(450, y, "Grade")
		doc.pdf.Line(50, y+5, 550, y+5)
	}
	columns(370)
	doc.y = 390

	doc.pdf.SetFont("Helvetica", "", 9)
	r.drawDetailRows(doc, len(detail.Grades), columns, func(i int, y float64) {
		record := detail.Grades[i]
		doc.pdf.Text(50, y, truncate(record.StudentName, 20))
		doc.pdf.Text(200, y, truncate(record.SubjectName, 18))
		doc.pdf.Text(350, y, fmt.Sprintf("%d/%d", record.MarksObtained, record.TotalMarks))
		doc.pdf.Text(450, y, record.GradeLetter)
	})

	return nil
}

func (r *ReportRenderer) renderCenter(doc *pdfDocument, report models.Report, data dto.ReportData, detail DetailRecords) error {
	summary := data.Center
	if summary == nil {
		return errors.New("center summary missing")
	}

	r.drawHeader(doc, "Center Performance Report", report)

	doc.pdf.SetFont("Helvetica", "B", 14)
	doc.pdf.Text(pageMarginX, 180, "CENTER PERFORMANCE SUMMARY")

	columns := func(y float64) {
		doc.pdf.SetFont("Helvetica", "B", 10)
		doc.pdf.Text(50, y, "Center Name")
		doc.pdf.Text(180, y, "Location")
		doc.pdf.Text(320, y, "Students")
		doc.pdf.Text(380, y, "Capacity")
		doc.pdf.Text(440, y, "Utilization")
		doc.pdf.Text(500, y, "Attendance")
		doc.pdf.Line(50, y+5, 580, y+5)
	}
	columns(210)
	doc.y = 230

	doc.pdf.SetFont("Helvetica", "", 9)
	for _, breakdown := range summary.Centers {
		if doc.y > pageBreakLimit {
			doc.pdf.AddPage()
			columns(50)
			doc.headerReprints++
			doc.y = 70
			doc.pdf.SetFont("Helvetica", "", 9)
		}

		doc.pdf.Text(50, doc.y, truncate(breakdown.Name, 18))
		doc.pdf.Text(180, doc.y, truncate(breakdown.Location, 18))
		doc.pdf.Text(320, doc.y, fmt.Sprintf("%d", breakdown.Students))
		doc.pdf.Text(380, doc.y, fmt.Sprintf("%d", breakdown.Capacity))
		doc.pdf.Text(440, doc.y, fmt.Sprintf("%.1f%%", breakdown.Utilization))
		doc.pdf.Text(500, doc.y, fmt.Sprintf("%.1f%%", breakdown.AttendanceRate))
		doc.y += detailRowStep
	}

	doc.y += 20
	doc.pdf.Line(50, doc.y, 580, doc.y)
	doc.y += 20

	doc.pdf.SetFont("Helvetica", "B", 12)
	doc.pdf.Text(pageMarginX, doc.y, "TOTALS:")
	doc.y += 20
	doc.pdf.SetFont("Helvetica", "", 11)
	doc.pdf.Text(50, doc.y, fmt.Sprintf("Total Centers: %d", summary.TotalCenters))
	doc.pdf.Text(200, doc.y, fmt.Sprintf("Total Students: %d", summary.TotalStudents))
	doc.y += 15
	doc.pdf.Text(50, doc.y, fmt.Sprintf("Total Capacity: %d", summary.TotalCapacity))
	doc.pdf.Text(200, doc.y, fmt.Sprintf("Overall Utilization: %.1f%%", summary.OverallUtilization))

	return nil
}

func (r *ReportRenderer) renderPlaceholder(doc *pdfDocument, report models.Report, data dto.ReportData, _ DetailRecords) error {
	definition := definitionFor(report.ReportType)
	title := definition.Title
	message := definition.Placeholder
	if data.Placeholder != nil {
		title = data.Placeholder.Title
		message = data.Placeholder.Message
	}

	doc.pdf.SetFont("Helvetica", "B", 20)
	doc.pdf.Text(pageMarginX, 50, title)

	doc.pdf.SetFont("Helvetica", "", 12)
	doc.pdf.Text(pageMarginX, 100, fmt.Sprintf("Report Type: %s", definition.Title))
	doc.pdf.Text(pageMarginX, 120, fmt.Sprintf("Period: %s to %s", report.DateFrom.Format(longDateLayout), report.DateTo.Format(longDateLayout)))
	doc.pdf.Text(pageMarginX, 140, fmt.Sprintf("Generated on: %s", r.now().Format(stampLayout)))

	doc.pdf.Text(pageMarginX, 180, message)
	doc.pdf.Text(pageMarginX, 200, "More detailed analytics will be available in future updates.")

	return nil
}

func (r *ReportRenderer) drawHeader(doc *pdfDocument, heading string, report models.Report) {
	doc.pdf.SetFont("Helvetica", "B", 20)
	doc.pdf.Text(pageMarginX, 50, heading)

	doc.pdf.SetFont("Helvetica", "B", 16)
	doc.pdf.Text(pageMarginX, 80, report.Title)

	doc.pdf.SetFont("Helvetica", "", 12)
	doc.pdf.Text(pageMarginX, 110, fmt.Sprintf("Period: %s to %s", report.DateFrom.Format(longDateLayout), report.DateTo.Format(longDateLayout)))
	doc.pdf.Text(pageMarginX, 130, fmt.Sprintf("Generated on: %s", r.now().Format(stampLayout)))

	if len(report.Centers) > 0 {
		names := make([]string, 0, len(report.Centers))
		for _, center := range report.Centers {
			names = append(names, center.Name)
		}
		doc.pdf.Text(pageMarginX, 150, fmt.Sprintf("Centers: %s", strings.Join(names, ", ")))
	}
}

// drawDetailRows walks the detail listing up to the configured cap, breaking
// to a fresh page (and reprinting the column header) whenever the cursor
// passes the page limit, then appends the overflow line if rows were cut.
func (r *ReportRenderer) drawDetailRows(doc *pdfDocument, total int, columns func(y float64), draw func(i int, y float64)) {
	limit := total
	if limit > r.maxDetailRows {
		limit = r.maxDetailRows
	}

	for i := 0; i < limit; i++ {
		if doc.y > pageBreakLimit {
			doc.pdf.AddPage()
			columns(50)
			doc.headerReprints++
			doc.y = 70
			doc.pdf.SetFont("Helvetica", "", 9)
		}

		draw(i, doc.y)
		doc.y += detailRowStep
		doc.detailRows++
	}

	if total > limit {
		doc.omitted = total - limit
		doc.y += 20
		if doc.y > pageBreakLimit {
			doc.pdf.AddPage()
			doc.y = 70
			doc.pdf.SetFont("Helvetica", "", 9)
		}
		doc.pdf.Text(pageMarginX, doc.y, fmt.Sprintf("... and %d more records", doc.omitted))
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
