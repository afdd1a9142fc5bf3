package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/ResourceHub/internal/app/model"
	"go.uber.org/zap"
)

type fakeCache struct {
	data map[string]string
	err  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) Get(_ context.Context, key string) *redis.StringCmd {
	if c.err != nil {
		return redis.NewStringResult("", c.err)
	}
	v, ok := c.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if c.err != nil {
		return redis.NewStatusResult("", c.err)
	}
	switch v := value.(type) {
	case []byte:
		c.data[key] = string(v)
	case string:
		c.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (c *fakeCache) Incr(_ context.Context, key string) *redis.IntCmd {
	if c.err != nil {
		return redis.NewIntResult(0, c.err)
	}
	n, _ := strconv.ParseInt(c.data[key], 10, 64)
	n++
	c.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

type countingRepository struct {
	records []model.Resource
	puts    int
	gets    int
	queries int
	scans   int
}

func (r *countingRepository) Put(_ context.Context, resource *model.Resource) error {
	r.puts++
	r.records = append(r.records, *resource)
	return nil
}

func (r *countingRepository) Get(_ context.Context, id, location string) (*model.Resource, error) {
	r.gets++
	for i := range r.records {
		if r.records[i].ID == id && r.records[i].Location == location {
			rec := r.records[i]
			return &rec, nil
		}
	}
	return nil, ErrResourceNotFound
}

func (r *countingRepository) QueryByType(_ context.Context, resourceType, _ string) ([]model.Resource, error) {
	r.queries++
	out := make([]model.Resource, 0)
	for _, rec := range r.records {
		if rec.Type == resourceType {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *countingRepository) ScanByLocationPrefix(_ context.Context, _ string) ([]model.Resource, error) {
	r.scans++
	return append([]model.Resource{}, r.records...), nil
}

func TestCachedResourceRepository_ReadThrough(t *testing.T) {
	next := &countingRepository{records: []model.Resource{{ID: "a", Type: "food", Location: "Austin", Name: "A"}}}
	repo := NewCachedResourceRepository(next, newFakeCache(), time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := repo.QueryByType(ctx, "food", "Aus")
		if err != nil {
			t.Fatalf("QueryByType returned error: %v", err)
		}
		equalIDs(t, got, "a")
	}
	if next.queries != 1 {
		t.Fatalf("expected one store query, got %d", next.queries)
	}

	for i := 0; i < 2; i++ {
		if _, err := repo.Get(ctx, "a", "Austin"); err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
	}
	if next.gets != 1 {
		t.Fatalf("expected one store get, got %d", next.gets)
	}
}

func TestCachedResourceRepository_KeysDoNotCollide(t *testing.T) {
	next := &countingRepository{records: []model.Resource{
		{ID: "1", Type: "a:b", Location: "Austin", Name: "One"},
		{ID: "2", Type: "a", Location: "b:Dallas", Name: "Two"},
	}}
	repo := NewCachedResourceRepository(next, newFakeCache(), time.Minute, zap.NewNop())
	ctx := context.Background()

	first, err := repo.QueryByType(ctx, "a:b", "")
	if err != nil {
		t.Fatalf("QueryByType returned error: %v", err)
	}
	equalIDs(t, first, "1")

	second, err := repo.QueryByType(ctx, "a", "b:")
	if err != nil {
		t.Fatalf("QueryByType returned error: %v", err)
	}
	equalIDs(t, second, "2")
	if next.queries != 2 {
		t.Fatalf("expected both queries to reach the store, got %d", next.queries)
	}

	if _, err := repo.Get(ctx, "x:y", "z"); !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := repo.Get(ctx, "x", "y:z"); !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if next.gets != 2 {
		t.Fatalf("expected both gets to reach the store, got %d", next.gets)
	}
}

func TestCacheKey(t *testing.T) {
	if a, b := cacheKey(3, "query", "a:b", ""), cacheKey(3, "query", "a", "b:"); a == b {
		t.Fatalf("expected distinct keys, both were %q", a)
	}
	if got := cacheKey(3, "scan", "Austin TX"); got != "resourcehub:resources:v3:scan:Austin+TX" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestCachedResourceRepository_PutInvalidates(t *testing.T) {
	next := &countingRepository{records: []model.Resource{{ID: "a", Type: "food", Location: "Austin", Name: "A"}}}
	repo := NewCachedResourceRepository(next, newFakeCache(), time.Minute, zap.NewNop())
	ctx := context.Background()

	if _, err := repo.ScanByLocationPrefix(ctx, "Aus"); err != nil {
		t.Fatalf("ScanByLocationPrefix returned error: %v", err)
	}
	if err := repo.Put(ctx, &model.Resource{ID: "b", Type: "food", Location: "Austin", Name: "B"}); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := repo.ScanByLocationPrefix(ctx, "Aus")
	if err != nil {
		t.Fatalf("ScanByLocationPrefix returned error: %v", err)
	}
	equalIDs(t, got, "a", "b")
	if next.scans != 2 {
		t.Fatalf("expected cache miss after put, got %d scans", next.scans)
	}
}

func TestCachedResourceRepository_DropsExpiredEntries(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	expiry := now.Add(time.Minute).Unix()
	next := &countingRepository{records: []model.Resource{
		{ID: "a", Type: "food", Location: "Austin", Name: "A", ExpiresAt: &expiry},
		{ID: "b", Type: "food", Location: "Austin", Name: "B"},
	}}
	repo := NewCachedResourceRepository(next, newFakeCache(), time.Hour, zap.NewNop()).(*cachedResourceRepository)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := repo.QueryByType(ctx, "food", ""); err != nil {
		t.Fatalf("QueryByType returned error: %v", err)
	}

	repo.now = func() time.Time { return now.Add(2 * time.Minute) }
	got, err := repo.QueryByType(ctx, "food", "")
	if err != nil {
		t.Fatalf("QueryByType returned error: %v", err)
	}
	equalIDs(t, got, "b")
}

func TestCachedResourceRepository_FailsOpen(t *testing.T) {
	next := &countingRepository{records: []model.Resource{{ID: "a", Type: "food", Location: "Austin", Name: "A"}}}
	repo := NewCachedResourceRepository(next, &fakeCache{data: map[string]string{}, err: errors.New("connection refused")}, time.Minute, zap.NewNop())
	ctx := context.Background()

	if err := repo.Put(ctx, &model.Resource{ID: "b", Type: "food", Location: "Austin", Name: "B"}); err != nil {
		t.Fatalf("Put must succeed without redis, got %v", err)
	}
	got, err := repo.QueryByType(ctx, "food", "")
	if err != nil {
		t.Fatalf("QueryByType must succeed without redis, got %v", err)
	}
	equalIDs(t, got, "a", "b")

	if _, err := repo.Get(ctx, "missing", "Austin"); !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}
