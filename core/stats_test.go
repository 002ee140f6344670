package core

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStatsEnv(t *testing.T) (*StatsService, *MemDirectory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	dir := NewMemDirectory()
	return NewStatsService(dir, client), dir, mr
}

func seedCounts(t *testing.T, dir *MemDirectory, students, educators, admins int) {
	t.Helper()
	ctx := context.Background()
	insert := func(id string, role Role) {
		if err := dir.Insert(ctx, newTestUser(id, role, true)); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	for i := 0; i < students; i++ {
		insert("s"+string(rune('a'+i)), RoleStudent)
	}
	for i := 0; i < educators; i++ {
		insert("e"+string(rune('a'+i)), RoleEducator)
	}
	for i := 0; i < admins; i++ {
		insert("a"+string(rune('a'+i)), RoleAdmin)
	}
}

func TestUserCounts(t *testing.T) {
	stats, dir, _ := newStatsEnv(t)
	seedCounts(t, dir, 3, 2, 1)

	counts, err := stats.UserCounts(context.Background())
	if err != nil {
		t.Fatalf("UserCounts: %v", err)
	}
	if counts.TotalStudents != 3 || counts.TotalEducators != 2 || counts.TotalAdmins != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestUserCounts_ActiveOnly(t *testing.T) {
	stats, dir, _ := newStatsEnv(t)
	ctx := context.Background()
	seedCounts(t, dir, 2, 0, 0)
	if err := dir.Insert(ctx, newTestUser("inactive", RoleStudent, false)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	counts, err := stats.UserCounts(ctx)
	if err != nil {
		t.Fatalf("UserCounts: %v", err)
	}
	if counts.TotalStudents != 2 {
		t.Fatalf("inactive accounts must not be counted, got %d", counts.TotalStudents)
	}
}

func TestUserCounts_ServedFromCacheUntilInvalidated(t *testing.T) {
	stats, dir, _ := newStatsEnv(t)
	ctx := context.Background()
	seedCounts(t, dir, 1, 0, 0)

	first, err := stats.UserCounts(ctx)
	if err != nil {
		t.Fatalf("UserCounts: %v", err)
	}
	if first.TotalStudents != 1 {
		t.Fatalf("want 1 student, got %d", first.TotalStudents)
	}

	// A directory change is invisible until the cache entry goes away.
	if err := dir.Insert(ctx, newTestUser("late", RoleStudent, true)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	cached, err := stats.UserCounts(ctx)
	if err != nil {
		t.Fatalf("UserCounts: %v", err)
	}
	if cached.TotalStudents != 1 {
		t.Fatalf("expected cached value 1, got %d", cached.TotalStudents)
	}

	stats.Invalidate(ctx)
	fresh, err := stats.UserCounts(ctx)
	if err != nil {
		t.Fatalf("UserCounts: %v", err)
	}
	if fresh.TotalStudents != 2 {
		t.Fatalf("expected fresh value 2 after invalidation, got %d", fresh.TotalStudents)
	}
}

func TestUserCounts_CacheExpiry(t *testing.T) {
	stats, dir, mr := newStatsEnv(t)
	ctx := context.Background()
	seedCounts(t, dir, 1, 0, 0)

	if _, err := stats.UserCounts(ctx); err != nil {
		t.Fatalf("UserCounts: %v", err)
	}
	if err := dir.Insert(ctx, newTestUser("late", RoleStudent, true)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	mr.FastForward(userCountsTTL * 2)

	fresh, err := stats.UserCounts(ctx)
	if err != nil {
		t.Fatalf("UserCounts: %v", err)
	}
	if fresh.TotalStudents != 2 {
		t.Fatalf("expected recomputed value 2 after TTL, got %d", fresh.TotalStudents)
	}
}

func TestUserCounts_NilRedisDisablesCaching(t *testing.T) {
	dir := NewMemDirectory()
	stats := NewStatsService(dir, nil)
	ctx := context.Background()
	seedCounts(t, dir, 1, 0, 0)

	if _, err := stats.UserCounts(ctx); err != nil {
		t.Fatalf("UserCounts: %v", err)
	}
	if err := dir.Insert(ctx, newTestUser("late", RoleStudent, true)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	counts, err := stats.UserCounts(ctx)
	if err != nil {
		t.Fatalf("UserCounts: %v", err)
	}
	if counts.TotalStudents != 2 {
		t.Fatalf("without cache every call should be live, got %d", counts.TotalStudents)
	}
}
