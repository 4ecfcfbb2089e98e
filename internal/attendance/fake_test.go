package attendance

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// memRepo mirrors the Postgres schema, including the partial unique index
// on open sessions.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []Record
	err    error
}

func newMemRepo() *memRepo { return &memRepo{} }

func (m *memRepo) LatestOpen(_ context.Context, userID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var latest *Record
	for i := range m.rows {
		r := m.rows[i]
		if r.UserID != userID || !r.Open() {
			continue
		}
		if latest == nil || r.ClockInTime.After(latest.ClockInTime) {
			latest = &r
		}
	}
	return latest, nil
}

func (m *memRepo) Insert(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Record{}, m.err
	}
	for _, r := range m.rows {
		if r.UserID == rec.UserID && r.Open() {
			return Record{}, ErrOpenSessionExists
		}
	}
	m.nextID++
	rec.ID = m.nextID
	m.rows = append(m.rows, rec)
	return rec, nil
}

// insertRaw bypasses the uniqueness check to build corrupt fixtures.
func (m *memRepo) insertRaw(rec Record) Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	m.rows = append(m.rows, rec)
	return rec
}

func (m *memRepo) Close(_ context.Context, id int64, at time.Time) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Record{}, m.err
	}
	for i := range m.rows {
		if m.rows[i].ID != id {
			continue
		}
		if !m.rows[i].Open() {
			return Record{}, ErrSessionClosed
		}
		m.rows[i].ClockOutTime = &at
		m.rows[i].UpdatedAt = at
		return m.rows[i], nil
	}
	return Record{}, errors.New("no such row")
}

func (m *memRepo) History(_ context.Context, userID *string, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []Record
	for _, r := range m.rows {
		if userID == nil || r.UserID == *userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ClockInTime.After(out[j].ClockInTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// tickingClock returns a clock that advances one minute per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Minute)
		return cur
	}
}
