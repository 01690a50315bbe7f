package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/go-blog/internal/config"
	"github.com/pribylovaa/go-blog/internal/storage"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты для пакета minio:
// — поднимают реальный MinIO через testcontainers-go;
// — проверяют New (бакет обязан существовать), PutImage с валидацией,
//   ImageURL (публичный и presigned) и DeleteImage.
//
// Запуск:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/minio -v -race -count=1

const (
	rootUser     = "root"
	rootPassword = "rootpass"
	bucket       = "blog-images"
)

// startMinio поднимает MinIO и возвращает конфиг хранилища и admin-клиент.
func startMinio(t *testing.T, createBucket bool) (config.ImagesConfig, *mclient.Client) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image: "docker.io/minio/minio:latest",
		Env: map[string]string{
			"MINIO_ROOT_USER":     rootUser,
			"MINIO_ROOT_PASSWORD": rootPassword,
		},
		Cmd:          []string{"server", "/data"},
		ExposedPorts: []string{"9000/tcp"},
		WaitingFor:   wait.ForListeningPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	admin, err := mclient.New(host+":"+port.Port(), &mclient.Options{
		Creds:  credentials.NewStaticV4(rootUser, rootPassword, ""),
		Secure: false,
	})
	require.NoError(t, err)

	if createBucket {
		require.NoError(t, admin.MakeBucket(ctx, bucket, mclient.MakeBucketOptions{Region: "us-east-1"}))
	}

	cfg := config.ImagesConfig{
		Driver:              config.ImagesDriverMinio,
		Endpoint:            fmt.Sprintf("http://%s:%s", host, port.Port()),
		Region:              "us-east-1",
		AccessKey:           rootUser,
		SecretKey:           rootPassword,
		Bucket:              bucket,
		PresignTTL:          2 * time.Minute,
		MaxSizeBytes:        1 << 20,
		AllowedContentTypes: []string{"image/png", "image/jpeg"},
	}

	return cfg, admin
}

func TestIntegration_New_BucketMustExist(t *testing.T) {
	cfg, _ := startMinio(t, false)

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestIntegration_PutImage_Presigned_Delete(t *testing.T) {
	cfg, admin := startMinio(t, true)
	ctx := context.Background()

	st, err := New(ctx, cfg)
	require.NoError(t, err)

	body := bytes.Repeat([]byte{0x42}, 16)
	prefix := "posts/" + uuid.NewString()

	key, err := st.PutImage(ctx, prefix, storage.ImageObject{
		ContentType: "image/png",
		Size:        int64(len(body)),
		Body:        bytes.NewReader(body),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, prefix+"/"))
	require.True(t, strings.HasSuffix(key, ".png"))

	info, err := admin.StatObject(ctx, bucket, key, mclient.StatObjectOptions{})
	require.NoError(t, err)
	require.Equal(t, "image/png", info.ContentType)

	u, err := st.ImageURL(ctx, key)
	require.NoError(t, err)

	resp, err := http.Get(u)
	require.NoError(t, err)
	got, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, body, got)

	require.NoError(t, st.DeleteImage(ctx, key))
	_, err = admin.StatObject(ctx, bucket, key, mclient.StatObjectOptions{})
	require.Error(t, err)

	// повторное удаление не ошибка.
	require.NoError(t, st.DeleteImage(ctx, key))
}

func TestIntegration_PutImage_Validation(t *testing.T) {
	cfg, _ := startMinio(t, true)
	ctx := context.Background()

	st, err := New(ctx, cfg)
	require.NoError(t, err)

	_, err = st.PutImage(ctx, "posts/x", storage.ImageObject{ContentType: "text/plain", Size: 1, Body: strings.NewReader("x")})
	require.ErrorIs(t, err, storage.ErrInvalidArgument)

	_, err = st.PutImage(ctx, "posts/x", storage.ImageObject{ContentType: "image/png", Size: 2 << 20, Body: strings.NewReader("x")})
	require.ErrorIs(t, err, storage.ErrInvalidArgument)
}

func TestIntegration_ImageURL_PublicBase(t *testing.T) {
	cfg, _ := startMinio(t, true)
	cfg.PublicBaseURL = "http://cdn.local/"

	st, err := New(context.Background(), cfg)
	require.NoError(t, err)

	u, err := st.ImageURL(context.Background(), "posts/a/b.png")
	require.NoError(t, err)
	require.Equal(t, "http://cdn.local/posts/a/b.png", u)
}
