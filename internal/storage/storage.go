// storage содержит контракты слоя хранилищ blog-service.
//
// Users и Posts реализуются Postgres (internal/storage/postgres),
// Images — объектным хранилищем (internal/storage/minio или internal/storage/s3).
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-blog/internal/models"
)

var (
	// ErrNotFound — запись или объект не найдены.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email, первичный ключ).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidArgument — нарушены ограничения запроса (тип, размер, сортировка).
	ErrInvalidArgument = errors.New("invalid argument")
)

// ProfileUpdate — частичный апдейт профиля.
// Обновляются только поля с непустыми указателями.
type ProfileUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
	About     *string
	Birthday  *time.Time
}

// Empty сообщает, что апдейт не меняет ни одного поля.
func (u ProfileUpdate) Empty() bool {
	return u.Email == nil && u.FirstName == nil && u.LastName == nil &&
		u.Phone == nil && u.About == nil && u.Birthday == nil
}

// Колонки сортировки списка постов.
const (
	SortCreatedAt = "created_at"
	SortUpdatedAt = "updated_at"
	SortTitle     = "title"
)

// ListParams — параметры страницы списка постов. Порядок всегда по убыванию.
type ListParams struct {
	Limit  int
	Offset int
	SortBy string
}

// PostUpdate — изменяемые поля поста. Images == nil оставляет набор изображений прежним.
type PostUpdate struct {
	Title   *string
	Content *string
	Images  []string
}

// Users — репозиторий учётных записей и профилей.
type Users interface {
	// SaveUser создаёт нового пользователя.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email (без учёта регистра).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// SetRefreshToken безусловно записывает refresh-токен; nil очищает сессию.
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	// RotateRefreshToken заменяет old на next, только если сохранён именно old.
	// Если строка не обновлена — ErrNotFound.
	RotateRefreshToken(ctx context.Context, id uuid.UUID, old, next string) error
	// UpdateProfile выполняет частичный апдейт и сдвигает updated_at.
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*models.User, error)
	// SetAvatar записывает новый ключ аватара и возвращает предыдущий.
	SetAvatar(ctx context.Context, id uuid.UUID, key string) (oldKey string, err error)
}

// Posts — репозиторий постов.
type Posts interface {
	CreatePost(ctx context.Context, post *models.Post) error
	PostByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	ListPosts(ctx context.Context, params ListParams) ([]models.Post, error)
	// UpdatePost меняет пост автора authorID и возвращает прежний набор ключей изображений.
	// Чужой или отсутствующий пост — ErrNotFound.
	UpdatePost(ctx context.Context, id, authorID uuid.UUID, update PostUpdate) (post *models.Post, oldImages []string, err error)
	// DeletePost удаляет пост автора authorID и возвращает удалённую запись.
	DeletePost(ctx context.Context, id, authorID uuid.UUID) (*models.Post, error)
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	Users
	Posts
	Close()
}

// ImageObject — загружаемый в хранилище объект.
type ImageObject struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// Images — контракт объектного хранилища изображений.
type Images interface {
	// PutImage валидирует тип и размер, сохраняет объект под prefix
	// и возвращает сгенерированный ключ вида "<prefix>/<uuid><ext>".
	PutImage(ctx context.Context, prefix string, obj ImageObject) (key string, err error)
	// DeleteImage удаляет объект. Отсутствующий объект ошибкой не считается.
	DeleteImage(ctx context.Context, key string) error
	// ImageURL возвращает публичный URL (если задан) или presigned GET.
	ImageURL(ctx context.Context, key string) (string, error)
}
