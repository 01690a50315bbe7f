package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-blog/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты кэша постов на реальном Redis (testcontainers-go, redis:7-alpine).
//
//	GO_TEST_INTEGRATION=1 go test ./internal/cache -v -race -count=1
func startRedis(t *testing.T) string {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestNewRedisCache_BadInput(t *testing.T) {
	t.Parallel()

	_, err := NewRedisCache(context.Background(), "not-a-url", "", time.Minute)
	require.Error(t, err)

	_, err = NewRedisCache(context.Background(), "redis://localhost:6379/0", "", 0)
	require.Error(t, err)
}

func TestIntegration_SetGetDelete(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, url, "", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	post := &models.Post{
		ID:        uuid.New(),
		AuthorID:  uuid.New(),
		Title:     "cached",
		Content:   "body",
		Images:    []string{"posts/1.png"},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	_, ok, err := c.Get(ctx, post.ID)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, post))

	got, ok, err := c.Get(ctx, post.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, post.Title, got.Title)
	require.Equal(t, post.Images, got.Images)
	require.True(t, post.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, c.Delete(ctx, post.ID))
	_, ok, err = c.Get(ctx, post.ID)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Delete(ctx, post.ID))
}

func TestIntegration_KeyPrefixAndTTL(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, url, "", 30*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	post := &models.Post{ID: uuid.New(), Title: "ttl"}
	require.NoError(t, c.Set(ctx, post))

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })

	ttl, err := rdb.TTL(ctx, DefaultPrefix+post.ID.String()).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, 30*time.Second)
}

func TestIntegration_StaleFillAfterInvalidate(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, url, "", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	id := uuid.New()
	old := &models.Post{ID: id, Title: "old"}

	// Читатель промахнулся и успел достать из БД старую версию.
	_, ok, err := c.Get(ctx, id)
	require.NoError(t, err)
	require.False(t, ok)

	// Тем временем обновление закоммичено и инвалидировало ключ.
	require.NoError(t, c.Delete(ctx, id))

	// Запоздалое заполнение старой версией не должно пройти.
	require.NoError(t, c.Set(ctx, old))

	_, ok, err = c.Get(ctx, id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIntegration_SetDoesNotOverwrite(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, url, "", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	id := uuid.New()
	require.NoError(t, c.Set(ctx, &models.Post{ID: id, Title: "first"}))
	require.NoError(t, c.Set(ctx, &models.Post{ID: id, Title: "second"}))

	got, ok, err := c.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "first", got.Title)
}

func TestIntegration_RefillAfterTombstoneExpires(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, url, "", time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	id := uuid.New()
	require.NoError(t, c.Delete(ctx, id))

	require.Eventually(t, func() bool {
		if err := c.Set(ctx, &models.Post{ID: id, Title: "fresh"}); err != nil {
			return false
		}
		got, ok, err := c.Get(ctx, id)
		return err == nil && ok && got.Title == "fresh"
	}, 5*time.Second, 100*time.Millisecond)
}
