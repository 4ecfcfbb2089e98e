//go:build integration

package banner

import (
	"context"
	"errors"
	"testing"
	"time"

	"attendboard/internal/store/storetest"
)

func insertBanner(t *testing.T, repo *PostgresRepository, content string, start, end time.Time) Banner {
	t.Helper()
	b, err := repo.Insert(context.Background(), Banner{
		Content: content, StartDate: start, EndDate: end, IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestPostgresWindowConstraint(t *testing.T) {
	repo := NewRepository(storetest.Postgres(t))
	ctx := context.Background()

	_, err := repo.Insert(ctx, Banner{Content: "x", StartDate: now, EndDate: now, IsActive: true, CreatedAt: now, UpdatedAt: now})
	if !errors.Is(err, ErrWindowOrder) {
		t.Fatalf("insert empty window: err = %v, want ErrWindowOrder", err)
	}

	b := insertBanner(t, repo, "x", now, now.Add(time.Hour))
	b.EndDate = now.Add(-time.Hour)
	if _, err := repo.Update(ctx, b); !errors.Is(err, ErrWindowOrder) {
		t.Fatalf("update reversed window: err = %v, want ErrWindowOrder", err)
	}
}

func TestPostgresSetImageTouchesOnlyImage(t *testing.T) {
	repo := NewRepository(storetest.Postgres(t))
	ctx := context.Background()
	b := insertBanner(t, repo, "old", now, now.Add(time.Hour))

	b.Content, b.IsActive = "new", false
	if _, err := repo.Update(ctx, b); err != nil {
		t.Fatal(err)
	}
	at := now.Add(time.Minute)
	got, err := repo.SetImage(ctx, b.ID, "/uploads/banners/a.png", at)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "new" || got.IsActive || got.ImageURL == nil || !got.UpdatedAt.Equal(at) {
		t.Fatalf("after SetImage: %+v", got)
	}
	if _, err := repo.SetImage(ctx, b.ID+100, "x", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing banner: err = %v, want ErrNotFound", err)
	}
}

func TestPostgresLiveAndDelete(t *testing.T) {
	repo := NewRepository(storetest.Postgres(t))
	ctx := context.Background()

	ended := insertBanner(t, repo, "ended", now.Add(-2*time.Hour), now.Add(-time.Hour))
	current := insertBanner(t, repo, "current", now.Add(-time.Hour), now.Add(time.Hour))
	upcoming := insertBanner(t, repo, "upcoming", now.Add(time.Hour), now.Add(2*time.Hour))

	live, err := repo.Live(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(live) != 2 || live[0].ID != current.ID || live[1].ID != upcoming.ID {
		t.Fatalf("live = %+v", live)
	}
	if got, ok := Resolve(live, now); !ok || got.ID != current.ID {
		t.Fatalf("resolved %+v", got)
	}

	if ok, err := repo.Delete(ctx, ended.ID); err != nil || !ok {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	if ok, err := repo.Delete(ctx, ended.ID); err != nil || ok {
		t.Fatalf("second delete = %v, %v", ok, err)
	}
	if b, err := repo.Get(ctx, ended.ID); err != nil || b != nil {
		t.Fatalf("get deleted = %+v, %v", b, err)
	}
}
