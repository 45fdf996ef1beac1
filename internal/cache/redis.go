package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// hashClient is the subset of *redis.Client the cache needs.
type hashClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisCache stores rendered dashboards as JSON, one hash per tournament and
// generation. Invalidation bumps the generation, so a board built from older
// data is written under a key nobody reads and expires with the TTL.
type RedisCache struct {
	client hashClient
	ttl    time.Duration
}

func NewRedisCache(client hashClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Connect opens a client and checks the server answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 100,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	log.Info().Str("addr", addr).Msg("redis connection established")
	return rdb, nil
}

func genKey(tournamentID uuid.UUID) string {
	return "dashboard:" + tournamentID.String() + ":gen"
}

func key(tournamentID uuid.UUID, gen int64) string {
	return "dashboard:" + tournamentID.String() + ":" + strconv.FormatInt(gen, 10)
}

func (c *RedisCache) generation(ctx context.Context, tournamentID uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, genKey(tournamentID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) Load(ctx context.Context, tournamentID uuid.UUID, view string, dst any) (int64, bool, error) {
	gen, err := c.generation(ctx, tournamentID)
	if err != nil {
		return 0, false, err
	}
	raw, err := c.client.HGet(ctx, key(tournamentID, gen), view).Bytes()
	if errors.Is(err, redis.Nil) {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return gen, false, fmt.Errorf("decode cached %s: %w", view, err)
	}
	return gen, true, nil
}

func (c *RedisCache) Save(ctx context.Context, tournamentID uuid.UUID, gen int64, view string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	k := key(tournamentID, gen)
	if err := c.client.HSet(ctx, k, view, raw).Err(); err != nil {
		return err
	}
	if c.ttl > 0 {
		return c.client.Expire(ctx, k, c.ttl).Err()
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, tournamentID uuid.UUID) error {
	gen, err := c.client.Incr(ctx, genKey(tournamentID)).Result()
	if err != nil {
		return err
	}
	return c.client.Del(ctx, key(tournamentID, gen-1)).Err()
}
