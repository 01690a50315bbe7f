// minio предоставляет реализацию storage.Images на базе MinIO.
// minio.go - конструктор клиента: нормализует endpoint,
// настраивает Secure/creds и проверяет наличие целевого бакета.
// images.go - загрузка, удаление и выдача URL изображений.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/go-blog/internal/config"
	"github.com/pribylovaa/go-blog/internal/storage"
)

// ImagesStorage — адаптер MinIO для изображений постов и аватаров.
type ImagesStorage struct {
	cfg    config.ImagesConfig
	limits storage.ImageLimits
	client *mclient.Client
}

// New создает и инициализирует клиент MinIO.
// Убирает схему из endpoint, подбирает Secure по схеме
// и выполняет fail-fast-проверку доступности бакета.
func New(ctx context.Context, cfg config.ImagesConfig) (*ImagesStorage, error) {
	const op = "storage.minio.New"

	endpoint := cfg.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
	}

	return &ImagesStorage{
		cfg: cfg,
		limits: storage.ImageLimits{
			MaxSizeBytes:        cfg.MaxSizeBytes,
			AllowedContentTypes: cfg.AllowedContentTypes,
		},
		client: client,
	}, nil
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.Images = (*ImagesStorage)(nil)
