package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory store backend. It implements the full record,
// subject and event surfaces plus ConditionalMarker, and is used by tests
// and by the kiosk demo mode when no database is configured.
type Memory struct {
	mu       sync.RWMutex
	records  map[string]AttendanceRecord
	subjects map[string]Subject
	events   []AttendanceEvent
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records:  make(map[string]AttendanceRecord),
		subjects: make(map[string]Subject),
	}
}

func (m *Memory) GetRecord(ctx context.Context, subjectID string) (*AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[subjectID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) ListRecords(ctx context.Context) ([]AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AttendanceRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

func (m *Memory) PutRecord(ctx context.Context, rec AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.SubjectID] = rec
	return nil
}

func (m *Memory) UpdateRecord(ctx context.Context, subjectID string, fields RecordFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[subjectID]
	if !ok {
		return ErrNotFound
	}
	fields.Apply(&rec)
	m.records[subjectID] = rec
	return nil
}

func (m *Memory) DeleteRecord(ctx context.Context, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, subjectID)
	return nil
}

// MarkAttendance applies the cooldown gate and increment under the store lock,
// so two stations racing on the same subject cannot both increment.
func (m *Memory) MarkAttendance(ctx context.Context, subjectID string, at time.Time, cooldown time.Duration) (*AttendanceRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[subjectID]
	if !ok {
		return nil, false, ErrNotFound
	}
	if !rec.Eligible(at, cooldown) {
		out := rec
		return &out, false, nil
	}
	rec.TotalAttendance++
	rec.LastAttendanceTime = at.Format(TimeLayout)
	m.records[subjectID] = rec
	out := rec
	return &out, true, nil
}

func (m *Memory) GetSubject(ctx context.Context, id string) (*Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subjects[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) ListSubjects(ctx context.Context) ([]Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Subject, 0, len(m.subjects))
	for _, s := range m.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) PutSubject(ctx context.Context, s Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Dim == 0 {
		s.Dim = len(s.Embedding)
	}
	m.subjects[s.ID] = s
	return nil
}

func (m *Memory) DeleteSubject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subjects, id)
	return nil
}

func (m *Memory) AppendEvent(ctx context.Context, ev AttendanceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) RecentEvents(ctx context.Context, limit int) ([]AttendanceEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]AttendanceEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}
