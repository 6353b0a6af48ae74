package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemory_GetRecord_Absent(t *testing.T) {
	m := NewMemory()

	rec, err := m.GetRecord(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil for absent record, got %+v", rec)
	}
}

func TestMemory_PutAndGetRecord(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.PutRecord(ctx, AttendanceRecord{
		SubjectID:       "S001",
		Name:            "Jan Novak",
		Branch:          "CS",
		TotalAttendance: 2,
	})
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}

	rec, err := m.GetRecord(ctx, "S001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if rec == nil || rec.Name != "Jan Novak" || rec.TotalAttendance != 2 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestMemory_UpdateRecord_AbsentReturnsNotFound(t *testing.T) {
	m := NewMemory()

	name := "x"
	err := m.UpdateRecord(context.Background(), "missing", RecordFields{Name: &name})
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_UpdateRecord_PartialMerge(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.PutRecord(ctx, AttendanceRecord{SubjectID: "S001", Name: "Jan", Branch: "CS"})

	branch := "EE"
	if err := m.UpdateRecord(ctx, "S001", RecordFields{Branch: &branch}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	rec, _ := m.GetRecord(ctx, "S001")
	if rec.Branch != "EE" {
		t.Errorf("expected branch updated, got %q", rec.Branch)
	}
	if rec.Name != "Jan" {
		t.Errorf("expected name untouched, got %q", rec.Name)
	}
}

func TestMemory_ListRecords_SortedBySubjectID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, id := range []string{"S003", "S001", "S002"} {
		m.PutRecord(ctx, AttendanceRecord{SubjectID: id})
	}

	records, err := m.ListRecords(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"S001", "S002", "S003"} {
		if records[i].SubjectID != want {
			t.Errorf("records[%d] = %s, want %s", i, records[i].SubjectID, want)
		}
	}
}

func TestMemory_MarkAttendance_AcceptsEligible(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	m.PutRecord(ctx, AttendanceRecord{
		SubjectID:          "S001",
		TotalAttendance:    5,
		LastAttendanceTime: "2000-01-01 00:00:00",
	})

	rec, applied, err := m.MarkAttendance(ctx, "S001", now, 30*time.Second)
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if !applied {
		t.Fatal("expected mark to be applied")
	}
	if rec.TotalAttendance != 6 {
		t.Errorf("expected total 6, got %d", rec.TotalAttendance)
	}
	if rec.LastAttendanceTime != now.Format(TimeLayout) {
		t.Errorf("expected timestamp refreshed, got %q", rec.LastAttendanceTime)
	}
}

func TestMemory_MarkAttendance_DeniesWithinCooldown(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	m.PutRecord(ctx, AttendanceRecord{
		SubjectID:          "S001",
		TotalAttendance:    6,
		LastAttendanceTime: now.Add(-5 * time.Second).Format(TimeLayout),
	})

	rec, applied, err := m.MarkAttendance(ctx, "S001", now, 30*time.Second)
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if applied {
		t.Error("expected mark to be denied within cooldown")
	}
	if rec.TotalAttendance != 6 {
		t.Errorf("denied mark must not mutate the record, got total %d", rec.TotalAttendance)
	}
}

func TestMemory_MarkAttendance_AbsentSubject(t *testing.T) {
	m := NewMemory()

	_, _, err := m.MarkAttendance(context.Background(), "missing", time.Now(), time.Second)
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_MarkAttendance_ConcurrentSingleIncrement(t *testing.T) {
	// Two stations racing on the same subject within one cooldown window
	// must produce exactly one increment.
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	m.PutRecord(ctx, AttendanceRecord{SubjectID: "S001"})

	const racers = 16
	var wg sync.WaitGroup
	applies := make(chan bool, racers)

	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, applied, err := m.MarkAttendance(ctx, "S001", now, 30*time.Second)
			if err != nil {
				t.Errorf("mark failed: %v", err)
				return
			}
			applies <- applied
		}()
	}
	wg.Wait()
	close(applies)

	accepted := 0
	for applied := range applies {
		if applied {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("expected exactly one accepted mark, got %d", accepted)
	}

	rec, _ := m.GetRecord(ctx, "S001")
	if rec.TotalAttendance != 1 {
		t.Errorf("expected total 1 after race, got %d", rec.TotalAttendance)
	}
}

func TestMemory_Subjects_CRUD(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.PutSubject(ctx, Subject{
		ID:        "S001",
		Name:      "Jan Novak",
		Embedding: []float32{0.1, 0.2, 0.3},
	})
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}

	s, err := m.GetSubject(ctx, "S001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if s == nil || s.Dim != 3 {
		t.Errorf("expected dim populated from embedding, got %+v", s)
	}

	if err := m.DeleteSubject(ctx, "S001"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	s, _ = m.GetSubject(ctx, "S001")
	if s != nil {
		t.Error("expected subject deleted")
	}
}

func TestMemory_Events_RecentNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i, id := range []string{"S001", "S002", "S003"} {
		m.AppendEvent(ctx, AttendanceEvent{
			ID:        id + "-event",
			SubjectID: id,
			MarkedAt:  time.Date(2024, 3, 1, 12, 0, i, 0, time.Local),
		})
	}

	events, err := m.RecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].SubjectID != "S003" || events[1].SubjectID != "S002" {
		t.Errorf("expected newest first, got %s then %s", events[0].SubjectID, events[1].SubjectID)
	}
}
