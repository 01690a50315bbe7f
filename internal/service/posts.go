package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-blog/internal/models"
	"github.com/pribylovaa/go-blog/internal/pkg/log"
	"github.com/pribylovaa/go-blog/internal/storage"
)

const (
	// DefaultListLimit — размер страницы по умолчанию.
	DefaultListLimit = 10
	// MaxListLimit — верхняя граница размера страницы.
	MaxListLimit = 100
)

// ListPostsInput — параметры страницы списка постов.
// Limit == 0 означает DefaultListLimit; значения больше MaxListLimit урезаются.
type ListPostsInput struct {
	Limit  int
	Offset int
	SortBy string
}

// CreatePostInput — данные нового поста.
type CreatePostInput struct {
	AuthorID uuid.UUID
	Title    string
	Content  string
	Images   []models.ImageUpload
}

// UpdatePostInput — частичное обновление поста.
// Непустой Images заменяет весь набор изображений.
type UpdatePostInput struct {
	ID       uuid.UUID
	AuthorID uuid.UUID
	Title    *string
	Content  *string
	Images   []models.ImageUpload
}

// sortAliases — допустимые значения сортировки, включая camelCase-варианты.
var sortAliases = map[string]string{
	"":                    storage.SortCreatedAt,
	storage.SortCreatedAt: storage.SortCreatedAt,
	"createdAt":           storage.SortCreatedAt,
	storage.SortUpdatedAt: storage.SortUpdatedAt,
	"updatedAt":           storage.SortUpdatedAt,
	storage.SortTitle:     storage.SortTitle,
}

// ListPosts возвращает страницу постов, отсортированную по убыванию.
func (s *Service) ListPosts(ctx context.Context, input ListPostsInput) ([]models.Post, error) {
	const op = "service.posts.ListPosts"

	if input.Limit < 0 || input.Offset < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	sortBy, ok := sortAliases[input.SortBy]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	limit := input.Limit
	switch {
	case limit == 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	posts, err := s.storage.ListPosts(ctx, storage.ListParams{Limit: limit, Offset: input.Offset, SortBy: sortBy})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return posts, nil
}

// PostByID возвращает пост, читая сначала из кэша (если он подключён).
// Сбои кэша логируются и не влияют на результат.
func (s *Service) PostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	const op = "service.posts.PostByID"

	lg := log.From(ctx).With("op", op, "post_id", id.String())

	if s.pcache != nil {
		post, ok, err := s.pcache.Get(ctx, id)
		switch {
		case err != nil:
			lg.Warn("post_cache_get_failed", "err", err)
		case ok:
			return post, nil
		}
	}

	post, err := s.storage.PostByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrPostNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.pcache != nil {
		if err := s.pcache.Set(ctx, post); err != nil {
			lg.Warn("post_cache_set_failed", "err", err)
		}
	}

	return post, nil
}

// CreatePost создаёт пост и загружает его изображения под "posts/<id>/".
// Если запись в БД не удалась, загруженные изображения удаляются.
func (s *Service) CreatePost(ctx context.Context, input CreatePostInput) (*models.Post, error) {
	const op = "service.posts.CreatePost"

	lg := log.From(ctx).With("op", op, "author_id", input.AuthorID.String())

	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)

	if input.AuthorID == uuid.Nil || title == "" || content == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if len(input.Images) > s.cfg.MaxPerPost {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	id := uuid.New()

	keys, err := s.uploadImages(ctx, "posts/"+id.String(), input.Images)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	post := &models.Post{
		ID:        id,
		AuthorID:  input.AuthorID,
		Title:     title,
		Content:   content,
		Images:    keys,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.CreatePost(ctx, post); err != nil {
		s.deleteImages(ctx, keys)

		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("post_created", "post_id", id.String(), "images", len(keys))

	return post, nil
}

// UpdatePost обновляет пост. Менять пост может только автор;
// для остальных пост выглядит несуществующим (ErrPostNotFound).
// После успешного обновления старые изображения удаляются, если набор заменён.
func (s *Service) UpdatePost(ctx context.Context, input UpdatePostInput) (*models.Post, error) {
	const op = "service.posts.UpdatePost"

	lg := log.From(ctx).With("op", op, "post_id", input.ID.String(), "author_id", input.AuthorID.String())

	update := storage.PostUpdate{}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}
		update.Title = &title
	}

	if input.Content != nil {
		content := strings.TrimSpace(*input.Content)
		if content == "" {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}
		update.Content = &content
	}

	if len(input.Images) > s.cfg.MaxPerPost {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	// Проверка авторства до загрузки, чтобы не плодить объекты от чужих запросов.
	current, err := s.storage.PostByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrPostNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if current.AuthorID != input.AuthorID {
		lg.Info("post_update_denied")

		return nil, fmt.Errorf("%s: %w", op, ErrPostNotFound)
	}

	if len(input.Images) > 0 {
		keys, err := s.uploadImages(ctx, "posts/"+input.ID.String(), input.Images)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		update.Images = keys
	}

	post, oldImages, err := s.storage.UpdatePost(ctx, input.ID, input.AuthorID, update)
	if err != nil {
		s.deleteImages(ctx, update.Images)

		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrPostNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if update.Images != nil {
		s.deleteImages(ctx, oldImages)
	}

	s.invalidatePost(ctx, input.ID)

	lg.Info("post_updated")

	return post, nil
}

// DeletePost удаляет пост автора, затем (best-effort) его изображения.
func (s *Service) DeletePost(ctx context.Context, id, authorID uuid.UUID) error {
	const op = "service.posts.DeletePost"

	post, err := s.storage.DeletePost(ctx, id, authorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrPostNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	s.deleteImages(ctx, post.Images)
	s.invalidatePost(ctx, id)

	log.From(ctx).Info("post_deleted", "op", op, "post_id", id.String())

	return nil
}

// ImageURLs превращает ключи объектов в URL для клиента.
func (s *Service) ImageURLs(ctx context.Context, keys []string) ([]string, error) {
	const op = "service.posts.ImageURLs"

	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		u, err := s.images.ImageURL(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		urls = append(urls, u)
	}

	return urls, nil
}

// uploadImages загружает изображения под prefix. При ошибке уже загруженные удаляются.
func (s *Service) uploadImages(ctx context.Context, prefix string, uploads []models.ImageUpload) ([]string, error) {
	const op = "service.posts.uploadImages"

	keys := make([]string, 0, len(uploads))
	for _, up := range uploads {
		key, err := s.images.PutImage(ctx, prefix, storage.ImageObject{
			ContentType: up.ContentType,
			Size:        up.Size,
			Body:        up.Body,
		})
		if err != nil {
			s.deleteImages(ctx, keys)

			if errors.Is(err, storage.ErrInvalidArgument) {
				return nil, fmt.Errorf("%s: %q: %w", op, up.Filename, ErrInvalidArgument)
			}

			return nil, fmt.Errorf("%s: %w", op, err)
		}

		keys = append(keys, key)
	}

	return keys, nil
}

// deleteImages удаляет объекты best-effort: ошибки только логируются.
func (s *Service) deleteImages(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.images.DeleteImage(ctx, key); err != nil {
			log.From(ctx).Warn("image_delete_failed", "key", key, "err", err)
		}
	}
}

func (s *Service) invalidatePost(ctx context.Context, id uuid.UUID) {
	if s.pcache == nil {
		return
	}

	if err := s.pcache.Delete(ctx, id); err != nil {
		log.From(ctx).Warn("post_cache_delete_failed", "post_id", id.String(), "err", err)
	}
}
