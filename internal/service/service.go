// service содержит бизнес-логику blog-service:
// - сессии: регистрацию, вход, ротацию refresh-токена и выход (auth.go);
// - посты с изображениями и проверкой авторства (posts.go);
// - профиль пользователя и аватар (profile.go).
//
// Service не хранит состояние запроса и безопасен для конкурентного использования,
// если таковы переданные хранилища. Ошибки возвращаются sentinel-значениями ниже
// и маппятся транспортом на HTTP-статусы (internal/errors).
package service

import (
	"errors"
	"time"

	"github.com/pribylovaa/go-blog/internal/cache"
	"github.com/pribylovaa/go-blog/internal/config"
	"github.com/pribylovaa/go-blog/internal/metrics"
	"github.com/pribylovaa/go-blog/internal/storage"
	"github.com/pribylovaa/go-blog/internal/token"
)

var (
	// ErrDuplicateEmail — e-mail уже занят другим пользователем (HTTP 409).
	ErrDuplicateEmail = errors.New("email already taken")

	// ErrInvalidCredentials — пара email/пароль неверна или пользователь не найден.
	// Какой из случаев произошёл, не раскрывается (HTTP 401).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRefreshToken — refresh-токен не совпадает с сохранённым,
	// уже ротирован, сессия завершена или пользователь не существует (HTTP 401).
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrUserNotFound — пользователь не найден (HTTP 404).
	ErrUserNotFound = errors.New("user not found")

	// ErrPostNotFound — пост не найден или принадлежит другому автору (HTTP 404).
	ErrPostNotFound = errors.New("post not found")

	// ErrInvalidArgument — некорректные входные данные (HTTP 400).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidEmail — e-mail имеет некорректный формат (HTTP 400).
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль короче 8 символов или длиннее 72 байт (HTTP 400).
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой (HTTP 400).
	ErrEmptyPassword = errors.New("password is empty")
)

// Service описывает бизнес-логику blog-service.
type Service struct {
	storage storage.Storage
	images  storage.Images
	issuer  *token.Issuer
	cfg     config.ImagesConfig

	pcache  cache.PostCache  // может быть nil, если кэш не сконфигурирован
	metrics *metrics.Metrics // может быть nil

	now func() time.Time
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, images storage.Images, issuer *token.Issuer, cfg config.ImagesConfig) *Service {
	return &Service{
		storage: storage,
		images:  images,
		issuer:  issuer,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetPostCache устанавливает кэш постов (опционально).
func (s *Service) SetPostCache(c cache.PostCache) {
	s.pcache = c
}

// SetMetrics подключает счётчики событий аутентификации (опционально).
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *Service) authEvent(event, result string) {
	if s.metrics != nil {
		s.metrics.AuthEvent(event, result)
	}
}
