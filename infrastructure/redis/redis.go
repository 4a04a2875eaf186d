package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"smart-gallery/domain/models"
	"smart-gallery/pkg/config"
)

type RedisClient struct {
	client *goredis.Client
}

func NewRedisClient(cfg config.RedisConfig) (*RedisClient, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.RedisAddr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisClient{client: client}, nil
}

func (r *RedisClient) Client() *goredis.Client {
	return r.client
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

const albumsKey = "gallery:google-photos:albums"

// AlbumCache holds the last album listing so the admin album page does not hit the
// Photos Library API on every load.
type AlbumCache struct {
	rdb goredis.Cmdable
	ttl time.Duration
}

func NewAlbumCache(rdb goredis.Cmdable, ttl time.Duration) *AlbumCache {
	return &AlbumCache{rdb: rdb, ttl: ttl}
}

// Get reports false on a cache miss.
func (c *AlbumCache) Get(ctx context.Context) ([]models.AlbumMapping, bool, error) {
	raw, err := c.rdb.Get(ctx, albumsKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var albums []models.AlbumMapping
	if err := json.Unmarshal(raw, &albums); err != nil {
		return nil, false, nil
	}
	return albums, true, nil
}

func (c *AlbumCache) Set(ctx context.Context, albums []models.AlbumMapping) error {
	raw, err := json.Marshal(albums)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, albumsKey, raw, c.ttl).Err()
}

func (c *AlbumCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, albumsKey).Err()
}
