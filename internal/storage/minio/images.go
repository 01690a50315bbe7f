package minio

import (
	"context"
	"fmt"
	"net/http"

	mclient "github.com/minio/minio-go/v7"
	"github.com/pribylovaa/go-blog/internal/storage"
)

// PutImage валидирует тип и размер, загружает объект под prefix и возвращает его ключ.
func (s *ImagesStorage) PutImage(ctx context.Context, prefix string, obj storage.ImageObject) (string, error) {
	const op = "storage.minio.PutImage"

	if err := s.limits.Check(obj); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	key := storage.NewImageKey(prefix, obj.ContentType)

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, obj.Body, obj.Size, mclient.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return key, nil
}

// DeleteImage удаляет объект. Отсутствующий ключ не считается ошибкой.
func (s *ImagesStorage) DeleteImage(ctx context.Context, key string) error {
	const op = "storage.minio.DeleteImage"

	if key == "" {
		return nil
	}

	err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, mclient.RemoveObjectOptions{})
	if err != nil {
		errResp := mclient.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.StatusCode == http.StatusNotFound {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ImageURL возвращает публичный URL, если задан PublicBaseURL, иначе presigned GET.
func (s *ImagesStorage) ImageURL(ctx context.Context, key string) (string, error) {
	const op = "storage.minio.ImageURL"

	if key == "" {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	if public := storage.PublicURL(s.cfg.PublicBaseURL, key); public != "" {
		return public, nil
	}

	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, s.cfg.PresignTTL, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return u.String(), nil
}
