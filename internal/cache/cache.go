// cache — read-through кэш постов в Redis.
// Сессии и refresh-токены здесь не хранятся: источник истины для них — Postgres.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-blog/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix — префикс ключей постов.
const DefaultPrefix = "blog:post:"

// DefaultTombstoneTTL — сколько живёт метка инвалидации после Delete.
// Пока она жива, Set не может вернуть в кэш версию, прочитанную до изменения.
const DefaultTombstoneTTL = 10 * time.Second

// tombstone — значение-метка инвалидации; JSON поста никогда с ним не совпадает.
const tombstone = "~"

// PostCache — минимальный контракт кэша постов.
type PostCache interface {
	// Get возвращает пост и признак его наличия в кэше.
	Get(ctx context.Context, id uuid.UUID) (*models.Post, bool, error)
	// Set заполняет кэш, только если ключ свободен: уже лежащее значение
	// или метка инвалидации не перезаписываются.
	Set(ctx context.Context, post *models.Post) error
	// Delete инвалидирует пост: на короткое время ключ занимает метка,
	// которую Get считает промахом. Отсутствие ключа не ошибка.
	Delete(ctx context.Context, id uuid.UUID) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb          *redis.Client
	prefix       string
	ttl          time.Duration
	tombstoneTTL time.Duration
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется DefaultPrefix.
func NewRedisCache(ctx context.Context, redisURL, prefix string, ttl time.Duration) (PostCache, error) {
	const op = "cache.NewRedisCache"

	if prefix == "" {
		prefix = DefaultPrefix
	}

	if ttl <= 0 {
		return nil, fmt.Errorf("%s: ttl must be positive", op)
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &redisCache{rdb: rdb, prefix: prefix, ttl: ttl, tombstoneTTL: min(ttl, DefaultTombstoneTTL)}, nil
}

func (c *redisCache) key(id uuid.UUID) string { return c.prefix + id.String() }

func (c *redisCache) Get(ctx context.Context, id uuid.UUID) (*models.Post, bool, error) {
	const op = "cache.Get"

	raw, err := c.rdb.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	if string(raw) == tombstone {
		return nil, false, nil
	}

	var post models.Post
	if err := json.Unmarshal(raw, &post); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return &post, true, nil
}

func (c *redisCache) Set(ctx context.Context, post *models.Post) error {
	const op = "cache.Set"

	raw, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.rdb.SetNX(ctx, c.key(post.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *redisCache) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "cache.Delete"

	if err := c.rdb.Set(ctx, c.key(id), tombstone, c.tombstoneTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *redisCache) Close() error { return c.rdb.Close() }
