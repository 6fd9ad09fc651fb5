package patchstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/models"
)

// DefaultRedisPrefix namespaces patch keys.
const DefaultRedisPrefix = "holocron:patch:"

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis is a Backend storing each patch as a JSON string under prefix+id.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ Backend = (*Redis)(nil)

// OpenRedis connects and pings the server.
func OpenRedis(opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("patchstore: redis ping %s: %w", opts.Addr, err)
	}
	return NewRedis(client, opts.Prefix), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(id string) string {
	return r.prefix + id
}

func (r *Redis) Get(ctx context.Context, id string) (*models.LocalPatch, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}
	var lp models.LocalPatch
	if err := json.Unmarshal(raw, &lp); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	lp.ID = id
	return &lp, nil
}

func (r *Redis) Put(ctx context.Context, lp *models.LocalPatch) error {
	payload, err := json.Marshal(lp)
	if err != nil {
		return fmt.Errorf("encode %s: %w", lp.ID, err)
	}
	if err := r.client.Set(ctx, r.key(lp.ID), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", lp.ID, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", id, err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]models.LocalPatch, error) {
	var out []models.LocalPatch
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), r.prefix)
		lp, err := r.Get(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *lp)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s*: %w", r.prefix, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
