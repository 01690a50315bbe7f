// handlers — REST-хендлеры blog-service поверх бизнес-логики.
// Хендлеры только разбирают запрос, берут идентичность из контекста гарда
// и переводят ошибки в JSON-конверт через internal/errors.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	apierrors "github.com/pribylovaa/go-blog/internal/errors"
	"github.com/pribylovaa/go-blog/internal/http/middleware"
	"github.com/pribylovaa/go-blog/internal/models"
	"github.com/pribylovaa/go-blog/internal/service"
	"github.com/pribylovaa/go-blog/internal/token"
)

// maxJSONBody ограничивает размер JSON-тела запроса.
const maxJSONBody = 1 << 20

// SessionService — операции сессии.
type SessionService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	RefreshTokens(ctx context.Context, userID uuid.UUID, presented string) (*models.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
}

// PostService — операции над постами.
type PostService interface {
	ListPosts(ctx context.Context, input service.ListPostsInput) ([]models.Post, error)
	PostByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	CreatePost(ctx context.Context, input service.CreatePostInput) (*models.Post, error)
	UpdatePost(ctx context.Context, input service.UpdatePostInput) (*models.Post, error)
	DeletePost(ctx context.Context, id, authorID uuid.UUID) error
	ImageURLs(ctx context.Context, keys []string) ([]string, error)
}

// ProfileService — операции над профилем текущего пользователя.
type ProfileService interface {
	Profile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, input service.UpdateProfileInput) (*models.User, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, upload models.ImageUpload) (*models.User, error)
	AvatarURL(ctx context.Context, user *models.User) (string, error)
}

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	Sessions SessionService
	Posts    PostService
	Profile  ProfileService

	// MaxUploadBytes — предел тела multipart-запроса; 0 — без предела.
	MaxUploadBytes int64
}

// New собирает Handlers. *service.Service реализует все три интерфейса.
func New(sessions SessionService, posts PostService, profile ProfileService, maxUploadBytes int64) *Handlers {
	return &Handlers{
		Sessions:       sessions,
		Posts:          posts,
		Profile:        profile,
		MaxUploadBytes: maxUploadBytes,
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля и хвост после объекта.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON object")
	}

	return nil
}

// errInvalidArgument — локальная ошибка разбора запроса -> 400.
func errInvalidArgument() error {
	return service.ErrInvalidArgument
}

// identity возвращает субъект запроса. Отсутствие идентичности за гардом —
// ошибка сборки роутера; клиенту отвечаем 401.
func identity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, token.ErrTokenMissing)
		return middleware.Identity{}, false
	}

	return id, true
}
