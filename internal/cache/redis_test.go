package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	strings map[string]int64
	hashes  map[string]map[string]string
	expires map[string]time.Duration
	failing bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		strings: map[string]int64{},
		hashes:  map[string]map[string]string{},
		expires: map[string]time.Duration{},
	}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failing {
		return redis.NewStringResult("", fmt.Errorf("connection refused"))
	}
	v, ok := f.strings[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(fmt.Sprint(v), nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	f.strings[key]++
	return redis.NewIntResult(f.strings[key], nil)
}

func (f *fakeRedis) HGet(_ context.Context, key, field string) *redis.StringCmd {
	if f.failing {
		return redis.NewStringResult("", fmt.Errorf("connection refused"))
	}
	v, ok := f.hashes[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	h, ok := f.hashes[key]
	if !ok {
		h = map[string]string{}
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		var v string
		switch x := values[i+1].(type) {
		case []byte:
			v = string(x)
		default:
			v = fmt.Sprint(x)
		}
		h[fmt.Sprint(values[i])] = v
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expires[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.hashes[k]; ok {
			delete(f.hashes, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type board struct {
	Teams []string `json:"teams"`
	Total int      `json:"total"`
}

func TestRedisCacheRoundTrip(t *testing.T) {
	rdb := newFakeRedis()
	c := NewRedisCache(rdb, time.Minute)
	ctx := context.Background()
	tid := uuid.New()

	var got board
	gen, found, err := c.Load(ctx, tid, "leaderboard", &got)
	if err != nil || found || gen != 0 {
		t.Fatalf("empty cache: gen=%d found=%v err=%v", gen, found, err)
	}

	want := board{Teams: []string{"Ёжики", "Белки"}, Total: 12}
	if err := c.Save(ctx, tid, gen, "leaderboard", want); err != nil {
		t.Fatal(err)
	}
	if rdb.expires["dashboard:"+tid.String()+":0"] != time.Minute {
		t.Errorf("ttl not set: %v", rdb.expires)
	}

	_, found, err = c.Load(ctx, tid, "leaderboard", &got)
	if err != nil || !found {
		t.Fatalf("after save: found=%v err=%v", found, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cached board mismatch (-want +got):\n%s", diff)
	}
}

func TestRedisCacheInvalidateDropsAllViews(t *testing.T) {
	rdb := newFakeRedis()
	c := NewRedisCache(rdb, 0)
	ctx := context.Background()
	tid, other := uuid.New(), uuid.New()

	for _, view := range []string{"leaderboard", "overall", "block:" + uuid.NewString()} {
		if err := c.Save(ctx, tid, 0, view, board{Total: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Save(ctx, other, 0, "leaderboard", board{Total: 2}); err != nil {
		t.Fatal(err)
	}
	if len(rdb.expires) != 0 {
		t.Errorf("zero ttl should not set expiry")
	}

	if err := c.Invalidate(ctx, tid); err != nil {
		t.Fatal(err)
	}
	var b board
	if _, found, _ := c.Load(ctx, tid, "overall", &b); found {
		t.Errorf("overall still cached after invalidation")
	}
	if _, found, _ := c.Load(ctx, other, "leaderboard", &b); !found || b.Total != 2 {
		t.Errorf("other tournament lost its cache")
	}
	if _, ok := rdb.hashes["dashboard:"+tid.String()+":0"]; ok {
		t.Errorf("old generation not deleted")
	}
}

func TestRedisCacheDropsSaveFromOldGeneration(t *testing.T) {
	rdb := newFakeRedis()
	c := NewRedisCache(rdb, time.Minute)
	ctx := context.Background()
	tid := uuid.New()

	var b board
	gen, _, err := c.Load(ctx, tid, "leaderboard", &b)
	if err != nil {
		t.Fatal(err)
	}
	// новый ответ пришёл, пока таблица строилась
	if err := c.Invalidate(ctx, tid); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(ctx, tid, gen, "leaderboard", board{Total: 1}); err != nil {
		t.Fatal(err)
	}
	next, found, err := c.Load(ctx, tid, "leaderboard", &b)
	if err != nil || found {
		t.Fatalf("stale board visible: found=%v err=%v", found, err)
	}
	if next != gen+1 {
		t.Fatalf("generation = %d, want %d", next, gen+1)
	}

	if err := c.Save(ctx, tid, next, "leaderboard", board{Total: 5}); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := c.Load(ctx, tid, "leaderboard", &b); !found || b.Total != 5 {
		t.Fatalf("fresh board: found=%v %+v", found, b)
	}
}

func TestRedisCacheErrors(t *testing.T) {
	rdb := newFakeRedis()
	c := NewRedisCache(rdb, 0)
	ctx := context.Background()
	tid := uuid.New()

	rdb.hashes["dashboard:"+tid.String()+":0"] = map[string]string{"leaderboard": "{not json"}
	var b board
	if _, _, err := c.Load(ctx, tid, "leaderboard", &b); err == nil {
		t.Errorf("corrupt entry: expected decode error")
	}

	rdb.failing = true
	if _, _, err := c.Load(ctx, tid, "leaderboard", &b); err == nil {
		t.Errorf("failing server: expected error")
	}
}
