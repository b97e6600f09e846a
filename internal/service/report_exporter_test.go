package service

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edubase-reports-api/internal/repository"
)

func TestWriteAttendanceCSV(t *testing.T) {
	records := []repository.AttendanceRecord{
		{StudentName: "Amina Yusuf", CenterName: "North Center", Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), IsPresent: true},
		{StudentName: "Ben, Jr.", CenterName: "South Center", Date: time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), IsPresent: false, Remarks: "sick"},
	}

	var buf bytes.Buffer
	require.NoError(t, writeAttendanceCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"Student Name", "Center", "Date", "Status", "Remarks"}, rows[0])
	require.Equal(t, []string{"Amina Yusuf", "North Center", "2026-01-05", "Present", ""}, rows[1])
	require.Equal(t, []string{"Ben, Jr.", "South Center", "2026-01-06", "Absent", "sick"}, rows[2])
}

func TestWriteAttendanceCSVEmptyStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeAttendanceCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
