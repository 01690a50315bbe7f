package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-blog/internal/models"
	"github.com/pribylovaa/go-blog/internal/password"
	"github.com/pribylovaa/go-blog/internal/pkg/log"
	"github.com/pribylovaa/go-blog/internal/pkg/redact"
	"github.com/pribylovaa/go-blog/internal/storage"
	"github.com/pribylovaa/go-blog/internal/token"
)

const (
	minPasswordRunes = 8
	// bcrypt не принимает пароли длиннее 72 байт.
	maxPasswordBytes = 72
)

// dummyHash сравнивается с паролем, когда пользователь не найден:
// время ответа не зависит от того, существует ли email.
var dummyHash = sync.OnceValue(func() string {
	h, err := password.Hash("blog-service-dummy-password")
	if err != nil {
		panic(err)
	}

	return h
})

// Register регистрирует нового пользователя без активной сессии.
// Возвращает пользователя без хэша пароля.
func (s *Service) Register(ctx context.Context, email, plain string) (*models.User, error) {
	const op = "service.auth.Register"

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx).With("op", op, "email", redact.Email(normEmail))

	if err := validatePassword(plain); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		lg.Info("register_rejected", "reason", "email_taken")
		s.authEvent("register", "rejected")

		return nil, fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.authEvent("register", "error")

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := password.Hash(plain)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New(),
		Email:        normEmail,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			lg.Info("register_rejected", "reason", "email_taken")
			s.authEvent("register", "rejected")

			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
		}

		s.authEvent("register", "error")

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered", "user_id", user.ID.String())
	s.authEvent("register", "ok")

	return user.Public(), nil
}

// ValidateUser проверяет пару email/пароль.
// Возвращает (nil, nil), если пользователь не найден или пароль неверен;
// ошибка возвращается только при сбое хранилища.
func (s *Service) ValidateUser(ctx context.Context, email, plain string) (*models.User, error) {
	const op = "service.auth.ValidateUser"

	normEmail, err := validateEmail(email)
	if err != nil || plain == "" {
		password.Verify(plain, dummyHash())
		return nil, nil
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			password.Verify(plain, dummyHash())
			return nil, nil
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !password.Verify(plain, user.PasswordHash) {
		return nil, nil
	}

	return user.Public(), nil
}

// Login выполняет вход по email+пароль: выпускает пару токенов и сохраняет
// refresh-токен как единственную активную сессию пользователя.
func (s *Service) Login(ctx context.Context, email, plain string) (*models.Session, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx).With("op", op, "email", redact.Email(strings.TrimSpace(email)))

	user, err := s.ValidateUser(ctx, email, plain)
	if err != nil {
		s.authEvent("login", "error")

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user == nil {
		lg.Info("login_rejected")
		s.authEvent("login", "rejected")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SetRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.authEvent("login", "rejected")

			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		s.authEvent("login", "error")

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_ok", "user_id", user.ID.String(), "refresh", redact.Token(pair.RefreshToken))
	s.authEvent("login", "ok")

	return &models.Session{TokenPair: *pair, User: user}, nil
}

// RefreshTokens обменивает предъявленный refresh-токен на новую пару.
// Предъявленный токен должен в точности совпадать с сохранённым; замена
// выполняется условным UPDATE, поэтому из двух конкурентных обменов одного
// токена успешен максимум один. Любой отказ — ErrInvalidRefreshToken.
func (s *Service) RefreshTokens(ctx context.Context, userID uuid.UUID, presented string) (*models.TokenPair, error) {
	const op = "service.auth.RefreshTokens"

	lg := log.From(ctx).With("op", op, "user_id", userID.String(), "refresh", redact.Token(presented))

	reject := func(reason string) error {
		lg.Info("refresh_rejected", "reason", reason)
		s.authEvent("refresh", "rejected")

		return fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	if presented == "" {
		return nil, reject("empty_token")
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, reject("user_not_found")
		}

		s.authEvent("refresh", "error")

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.RefreshToken == nil {
		return nil, reject("no_session")
	}

	if subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(presented)) != 1 {
		return nil, reject("token_mismatch")
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.RotateRefreshToken(ctx, userID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, reject("concurrent_rotation")
		}

		s.authEvent("refresh", "error")

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("refresh_ok", "next", redact.Token(pair.RefreshToken))
	s.authEvent("refresh", "ok")

	return pair, nil
}

// Logout завершает сессию: очищает сохранённый refresh-токен.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	const op = "service.auth.Logout"

	if err := s.storage.SetRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.authEvent("logout", "rejected")

			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		s.authEvent("logout", "error")

		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("logout_ok", "op", op, "user_id", userID.String())
	s.authEvent("logout", "ok")

	return nil
}

// issueTokenPair выпускает новую пару access+refresh токенов для пользователя.
func (s *Service) issueTokenPair(user *models.User) (*models.TokenPair, error) {
	const op = "service.auth.issueTokenPair"

	claims := token.Claims{UserID: user.ID, Email: user.Email}

	access, ac, err := s.issuer.IssueAccess(claims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, rc, err := s.issuer.IssueRefresh(claims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  ac.ExpiresAt,
		RefreshExpiresAt: rc.ExpiresAt,
	}, nil
}

// validateEmail обрезает пробелы, проверяет формат и приводит к нижнему регистру.
// Принимается только «голый» адрес: "Name <a@b>" отвергается.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword: непустой, не короче 8 символов, не длиннее 72 байт.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if pw == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if utf8.RuneCountInString(pw) < minPasswordRunes || len(pw) > maxPasswordBytes {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
