package service

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/noah-isme/edubase-reports-api/internal/repository"
)

var attendanceCSVHeader = []string{"Student Name", "Center", "Date", "Status", "Remarks"}

// writeAttendanceCSV streams one row per attendance record after a fixed
// header. There is no row cap; the writer flushes as it goes.
func writeAttendanceCSV(w io.Writer, records []repository.AttendanceRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(attendanceCSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, record := range records {
		status := "Absent"
		if record.IsPresent {
			status = "Present"
		}

		row := []string{
			record.StudentName,
			record.CenterName,
			record.Date.Format("2006-01-02"),
			status,
			record.Remarks,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
