// s3 предоставляет реализацию storage.Images поверх aws-sdk-go-v2.
// Подходит для AWS S3 и S3-совместимых хранилищ (MinIO, Ceph) через BaseEndpoint.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pribylovaa/go-blog/internal/config"
	"github.com/pribylovaa/go-blog/internal/storage"
)

// objectAPI — используемое подмножество *s3.Client.
type objectAPI interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// presigner — используемое подмножество *s3.PresignClient.
type presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Точки подмены для тестов.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ImagesStorage — адаптер S3 для изображений постов и аватаров.
type ImagesStorage struct {
	cfg     config.ImagesConfig
	limits  storage.ImageLimits
	client  objectAPI
	presign presigner
}

// New собирает клиента из конфига и проверяет доступность бакета (HeadBucket).
func New(ctx context.Context, cfg config.ImagesConfig) (*ImagesStorage, error) {
	const op = "storage.s3.New"

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	st := newWithClients(cfg, client, s3.NewPresignClient(client))

	if _, err := st.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("%s: bucket %q is not accessible: %w", op, cfg.Bucket, err)
	}

	return st, nil
}

func newWithClients(cfg config.ImagesConfig, client objectAPI, presign presigner) *ImagesStorage {
	return &ImagesStorage{
		cfg: cfg,
		limits: storage.ImageLimits{
			MaxSizeBytes:        cfg.MaxSizeBytes,
			AllowedContentTypes: cfg.AllowedContentTypes,
		},
		client:  client,
		presign: presign,
	}
}

// PutImage валидирует тип и размер, загружает объект под prefix и возвращает его ключ.
func (s *ImagesStorage) PutImage(ctx context.Context, prefix string, obj storage.ImageObject) (string, error) {
	const op = "storage.s3.PutImage"

	if err := s.limits.Check(obj); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	body, err := seekable(obj.Body, obj.Size)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	key := storage.NewImageKey(prefix, obj.ContentType)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(obj.ContentType),
		ContentLength: aws.Int64(obj.Size),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return key, nil
}

// DeleteImage удаляет объект. S3 не сообщает об отсутствии ключа при удалении.
func (s *ImagesStorage) DeleteImage(ctx context.Context, key string) error {
	const op = "storage.s3.DeleteImage"

	if key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ImageURL возвращает публичный URL, если задан PublicBaseURL, иначе presigned GET.
func (s *ImagesStorage) ImageURL(ctx context.Context, key string) (string, error) {
	const op = "storage.s3.ImageURL"

	if key == "" {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	if public := storage.PublicURL(s.cfg.PublicBaseURL, key); public != "" {
		return public, nil
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.cfg.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return req.URL, nil
}

// seekable возвращает тело, пригодное для подписи запроса: SDK по http
// требует io.ReadSeeker. Несикабельный поток читается в память (не больше size).
func seekable(r io.Reader, size int64) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}

	buf, err := io.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return nil, err
	}

	if int64(len(buf)) != size {
		return nil, storage.ErrInvalidArgument
	}

	return bytes.NewReader(buf), nil
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.Images = (*ImagesStorage)(nil)
