package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-blog/internal/models"
	"github.com/pribylovaa/go-blog/internal/pkg/log"
	"github.com/pribylovaa/go-blog/internal/storage"
)

// UpdateProfileInput — частичное обновление профиля.
// UserID берётся из идентичности запроса, а не из тела.
type UpdateProfileInput struct {
	UserID    uuid.UUID
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
	About     *string
	Birthday  *time.Time
}

// Profile возвращает профиль пользователя без секретов.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "service.profile.Profile"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user.Public(), nil
}

// UpdateProfile выполняет частичный апдейт. Новый email нормализуется
// и проверяется; занятый email — ErrDuplicateEmail.
func (s *Service) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*models.User, error) {
	const op = "service.profile.UpdateProfile"

	update := storage.ProfileUpdate{
		FirstName: trimPtr(input.FirstName),
		LastName:  trimPtr(input.LastName),
		Phone:     trimPtr(input.Phone),
		About:     input.About,
		Birthday:  input.Birthday,
	}

	if input.Email != nil {
		email, err := validateEmail(*input.Email)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		update.Email = &email
	}

	if update.Birthday != nil && update.Birthday.After(s.now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if update.Empty() {
		return s.Profile(ctx, input.UserID)
	}

	user, err := s.storage.UpdateProfile(ctx, input.UserID, update)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
		default:
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	log.From(ctx).Info("profile_updated", "op", op, "user_id", input.UserID.String())

	return user.Public(), nil
}

// UploadAvatar сохраняет новый аватар под "avatars/<userID>/" и
// удаляет предыдущий объект (best-effort).
func (s *Service) UploadAvatar(ctx context.Context, userID uuid.UUID, upload models.ImageUpload) (*models.User, error) {
	const op = "service.profile.UploadAvatar"

	lg := log.From(ctx).With("op", op, "user_id", userID.String())

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key, err := s.images.PutImage(ctx, "avatars/"+userID.String(), storage.ImageObject{
		ContentType: upload.ContentType,
		Size:        upload.Size,
		Body:        upload.Body,
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	oldKey, err := s.storage.SetAvatar(ctx, userID, key)
	if err != nil {
		s.deleteImages(ctx, []string{key})

		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if oldKey != "" && oldKey != key {
		s.deleteImages(ctx, []string{oldKey})
	}

	lg.Info("avatar_updated", "avatar_key", key)

	user.AvatarKey = key
	user.UpdatedAt = s.now()

	return user.Public(), nil
}

// AvatarURL возвращает URL аватара или пустую строку, если аватара нет.
func (s *Service) AvatarURL(ctx context.Context, user *models.User) (string, error) {
	if user == nil || user.AvatarKey == "" {
		return "", nil
	}

	return s.images.ImageURL(ctx, user.AvatarKey)
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}

	v := strings.TrimSpace(*p)

	return &v
}
