package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"attendboard/internal/apperr"
	"attendboard/internal/queue"
)

var base = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestService(repo Repository, events queue.Publisher) *Service {
	svc := NewService(repo, events)
	svc.now = tickingClock(base)
	return svc
}

func TestClockInCreatesOpenSession(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)

	rec, err := svc.ClockIn(context.Background(), "  emp-1  ")
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if rec.UserID != "emp-1" {
		t.Fatalf("user id not trimmed: %q", rec.UserID)
	}
	if !rec.Open() {
		t.Fatal("new session should be open")
	}
	if !rec.CreatedAt.Equal(rec.ClockInTime) || !rec.UpdatedAt.Equal(rec.ClockInTime) {
		t.Fatalf("timestamps differ: %+v", rec)
	}
}

func TestClockInRejectsEmptyUser(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	for _, id := range []string{"", "   ", "\t\n"} {
		if _, err := svc.ClockIn(context.Background(), id); !apperr.Is(err, apperr.CodeInvalidInput) {
			t.Fatalf("ClockIn(%q) err = %v, want InvalidInput", id, err)
		}
		if _, err := svc.ClockOut(context.Background(), id); !apperr.Is(err, apperr.CodeInvalidInput) {
			t.Fatalf("ClockOut(%q) err = %v, want InvalidInput", id, err)
		}
	}
}

func TestSecondClockInConflicts(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	if _, err := svc.ClockIn(ctx, "emp-1"); err != nil {
		t.Fatal(err)
	}
	_, err := svc.ClockIn(ctx, "emp-1")
	if !apperr.Is(err, apperr.CodeConflict) {
		t.Fatalf("err = %v, want Conflict", err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("conflict must not write, rows = %d", len(repo.rows))
	}

	// other users are unaffected
	if _, err := svc.ClockIn(ctx, "emp-2"); err != nil {
		t.Fatalf("emp-2: %v", err)
	}
}

func TestClockOutWithoutSessionIsNotFound(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	if _, err := svc.ClockOut(context.Background(), "ghost"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestClockInOutInCycle(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	ctx := context.Background()

	first, err := svc.ClockIn(ctx, "emp-1")
	if err != nil {
		t.Fatal(err)
	}
	closed, err := svc.ClockOut(ctx, "emp-1")
	if err != nil {
		t.Fatal(err)
	}
	if closed.ID != first.ID || closed.Open() {
		t.Fatalf("clock-out closed wrong record: %+v", closed)
	}
	if !closed.UpdatedAt.Equal(*closed.ClockOutTime) {
		t.Fatal("updated_at should equal clock_out_time")
	}
	if !closed.ClockOutTime.After(closed.ClockInTime) {
		t.Fatal("clock out before clock in")
	}

	second, err := svc.ClockIn(ctx, "emp-1")
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("reopen must create a new record")
	}

	if _, err := svc.ClockOut(ctx, "emp-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ClockOut(ctx, "emp-1"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("double clock-out err = %v", err)
	}
}

func TestClockOutPicksLatestOpenSession(t *testing.T) {
	repo := newMemRepo()
	older := repo.insertRaw(Record{UserID: "emp-1", ClockInTime: base, CreatedAt: base, UpdatedAt: base})
	newer := repo.insertRaw(Record{UserID: "emp-1", ClockInTime: base.Add(time.Hour), CreatedAt: base, UpdatedAt: base})
	svc := newTestService(repo, nil)

	rec, err := svc.ClockOut(context.Background(), "emp-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != newer.ID {
		t.Fatalf("closed %d, want latest %d (older %d)", rec.ID, newer.ID, older.ID)
	}
}

func TestConcurrentClockInSingleWinner(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ClockIn(context.Background(), "emp-1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.Is(err, apperr.CodeConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || conflicts != n-1 {
		t.Fatalf("ok = %d, conflicts = %d", ok, conflicts)
	}
}

func TestHistory(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	ctx := context.Background()

	if _, err := svc.History(ctx, strp("emp-1"), 10); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("empty history err = %v, want NotFound", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.ClockIn(ctx, "emp-1"); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.ClockOut(ctx, "emp-1"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.ClockIn(ctx, "emp-2"); err != nil {
		t.Fatal(err)
	}

	rows, err := svc.History(ctx, strp(" emp-1 "), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if !rows[0].ClockInTime.After(rows[1].ClockInTime) {
		t.Fatal("history not ordered newest first")
	}
	for _, r := range rows {
		if r.UserID != "emp-1" {
			t.Fatalf("filter leaked %q", r.UserID)
		}
	}

	all, err := svc.History(ctx, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("unfiltered len = %d, want 4", len(all))
	}
	if _, err := svc.History(ctx, strp("nobody"), 5); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("unknown user err = %v", err)
	}
	if _, err := svc.History(ctx, strp(""), 5); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("blank user filter err = %v, want NotFound", err)
	}
}

func TestStorageFailure(t *testing.T) {
	repo := newMemRepo()
	repo.err = errors.New("connection refused")
	svc := newTestService(repo, nil)

	if _, err := svc.ClockIn(context.Background(), "emp-1"); !apperr.Is(err, apperr.CodeStorage) {
		t.Fatalf("err = %v, want Storage", err)
	}
	if _, err := svc.History(context.Background(), nil, 1); !apperr.Is(err, apperr.CodeStorage) {
		t.Fatalf("err = %v, want Storage", err)
	}
}

func TestClockEventsPublished(t *testing.T) {
	q := queue.NewInMemory(4)
	svc := newTestService(newMemRepo(), q)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := svc.ClockIn(ctx, "emp-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ClockOut(ctx, "emp-1"); err != nil {
		t.Fatal(err)
	}

	msgs, _ := q.Consume(ctx)
	for _, want := range []string{queue.TypeClockIn, queue.TypeClockOut} {
		select {
		case msg := <-msgs:
			if msg.Type != want {
				t.Fatalf("type = %q, want %q", msg.Type, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing %s event", want)
		}
	}
}

func strp(s string) *string { return &s }
