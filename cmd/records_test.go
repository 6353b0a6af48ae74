package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lbansal/face-attendance/internal/store"
)

func TestWriteRecordsCSV(t *testing.T) {
	records := []store.AttendanceRecord{
		{
			SubjectID:          "321654",
			Name:               "Murtaza Hassan",
			Branch:             "R&D",
			Status:             store.StatusPresent,
			TotalAttendance:    7,
			LastAttendanceTime: "2026-01-15 09:12:00",
		},
		{SubjectID: "852741", Name: "Emly Blunt"},
	}

	var buf bytes.Buffer
	if err := writeRecordsCSV(&buf, records); err != nil {
		t.Fatalf("writeRecordsCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "subject_id,name,branch,status,total_attendance,last_attendance_time" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "321654,Murtaza Hassan,R&D,P,7,2026-01-15 09:12:00" {
		t.Errorf("unexpected row: %s", lines[1])
	}
	if lines[2] != "852741,Emly Blunt,,,0," {
		t.Errorf("unexpected never-marked row: %s", lines[2])
	}
}

func TestWriteRecordsCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeRecordsCSV(&buf, nil); err != nil {
		t.Fatalf("writeRecordsCSV failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "subject_id,name,branch,status,total_attendance,last_attendance_time" {
		t.Errorf("expected header only, got %q", buf.String())
	}
}
