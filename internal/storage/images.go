package storage

import (
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// ImageLimits — ограничения на загружаемые изображения, общие для всех драйверов.
type ImageLimits struct {
	MaxSizeBytes        int64
	AllowedContentTypes []string
}

// Check проверяет размер и тип объекта.
func (l ImageLimits) Check(obj ImageObject) error {
	if obj.Body == nil || obj.Size <= 0 || obj.Size > l.MaxSizeBytes {
		return ErrInvalidArgument
	}

	if !slices.Contains(l.AllowedContentTypes, obj.ContentType) {
		return ErrInvalidArgument
	}

	return nil
}

// NewImageKey формирует ключ вида "<prefix>/<uuid><ext>".
func NewImageKey(prefix, contentType string) string {
	var ext string
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	case "image/gif":
		ext = ".gif"
	}

	return path.Join(prefix, uuid.NewString()+ext)
}

// PublicURL склеивает публичный базовый URL и ключ. Пустая база — пустой результат.
func PublicURL(base, key string) string {
	if base == "" {
		return ""
	}

	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
