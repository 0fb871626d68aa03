package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"movie-catalog-bot/internal/catalog"
)

func sample(owner int64) *Session {
	s := New(owner, EditConfirm)
	s.MovieID = 7
	s.EditField = catalog.FieldTitle
	s.Pending = &PendingEdit{Field: catalog.FieldTitle, Value: "Alien", Old: "Alen", New: "Alien"}
	s.Results = []Result{{ID: 1, Title: "Alien"}}
	s.Draft.Genre = catalog.GenreFilm
	return s
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	if _, err := m.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store err = %v", err)
	}
	in := sample(1)
	if err := m.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Mutating the caller's copy must not leak into the store.
	in.Pending.Value = "changed"
	in.Results[0].Title = "changed"

	got, err := m.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != EditConfirm || got.Pending.Value != "Alien" || got.Results[0].Title != "Alien" {
		t.Fatalf("Get = %+v", got)
	}
	if err := m.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Delete err = %v", err)
	}
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	_ = m.Save(ctx, sample(1))
	_ = m.Save(ctx, sample(2))

	now = now.Add(30 * time.Second)
	if _, err := m.Get(ctx, 1); err != nil {
		t.Fatalf("session expired early: %v", err)
	}
	_ = m.Save(ctx, sample(1))

	now = now.Add(45 * time.Second)
	if _, err := m.Get(ctx, 1); err != nil {
		t.Fatalf("refreshed session expired: %v", err)
	}
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if _, err := m.Get(ctx, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session err = %v", err)
	}
}

func TestMemoryNoTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemory(0)
	m.now = func() time.Time { return now }
	_ = m.Save(ctx, sample(1))
	now = now.Add(365 * 24 * time.Hour)
	if _, err := m.Get(ctx, 1); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n := m.Sweep(); n != 0 {
		t.Fatalf("Sweep = %d", n)
	}
}

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb, ttl), mr
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, 0)

	if _, err := r.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store err = %v", err)
	}
	if err := r.Save(ctx, sample(1)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ttl := mr.TTL(key(1)); ttl != 0 {
		t.Fatalf("TTL = %v, want none", ttl)
	}
	got, err := r.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != EditConfirm || got.MovieID != 7 || got.Pending == nil || got.Pending.New != "Alien" {
		t.Fatalf("Get = %+v", got)
	}
	if got.Draft.Genre != catalog.GenreFilm || len(got.Results) != 1 || got.UpdatedAt.IsZero() {
		t.Fatalf("Get = %+v", got)
	}
	if err := r.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Delete err = %v", err)
	}
}

func TestRedisTTL(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, 10*time.Minute)

	if err := r.Save(ctx, sample(1)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ttl := mr.TTL(key(1)); ttl != 10*time.Minute {
		t.Fatalf("TTL = %v", ttl)
	}
	mr.FastForward(11 * time.Minute)
	if _, err := r.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session err = %v", err)
	}
}

func TestRedisCorruptSessionDropped(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t, 0)
	if err := mr.Set(key(5), "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("corrupt session err = %v", err)
	}
	if mr.Exists(key(5)) {
		t.Fatal("corrupt session not deleted")
	}
}
