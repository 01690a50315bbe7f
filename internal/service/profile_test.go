package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-blog/internal/models"
	"github.com/pribylovaa/go-blog/internal/service"
	"github.com/pribylovaa/go-blog/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestProfile_HidesSecrets(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	id := uuid.New()

	f.st.EXPECT().UserByID(gomock.Any(), id).
		Return(&models.User{ID: id, Email: "a@b.io", PasswordHash: "hash", RefreshToken: ptr("r")}, nil)

	u, err := f.svc.Profile(context.Background(), id)
	require.NoError(t, err)
	require.Empty(t, u.PasswordHash)
	require.Nil(t, u.RefreshToken)

	f.st.EXPECT().UserByID(gomock.Any(), id).Return(nil, storage.ErrNotFound)
	_, err = f.svc.Profile(context.Background(), id)
	require.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUpdateProfile_Partial(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	id := uuid.New()

	f.st.EXPECT().UpdateProfile(gomock.Any(), id, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, u storage.ProfileUpdate) (*models.User, error) {
			require.Equal(t, "new@example.com", *u.Email)
			require.Equal(t, "Ann", *u.FirstName)
			require.Nil(t, u.LastName)
			require.Nil(t, u.Birthday)
			return &models.User{ID: id, Email: *u.Email, FirstName: *u.FirstName, PasswordHash: "hash"}, nil
		})

	u, err := f.svc.UpdateProfile(context.Background(), service.UpdateProfileInput{
		UserID:    id,
		Email:     ptr(" New@Example.com "),
		FirstName: ptr(" Ann "),
	})
	require.NoError(t, err)
	require.Equal(t, "Ann", u.FirstName)
	require.Empty(t, u.PasswordHash)
}

func TestUpdateProfile_EmptyUpdate_ReturnsProfile(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	id := uuid.New()

	f.st.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{ID: id}, nil)

	u, err := f.svc.UpdateProfile(context.Background(), service.UpdateProfileInput{UserID: id})
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
}

func TestUpdateProfile_Errors(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("invalid_email", func(t *testing.T) {
		f := newSvc(t)
		_, err := f.svc.UpdateProfile(context.Background(), service.UpdateProfileInput{UserID: id, Email: ptr("not-an-email")})
		require.ErrorIs(t, err, service.ErrInvalidEmail)
	})

	t.Run("future_birthday", func(t *testing.T) {
		f := newSvc(t)
		_, err := f.svc.UpdateProfile(context.Background(), service.UpdateProfileInput{
			UserID: id, Birthday: ptr(time.Now().Add(48 * time.Hour)),
		})
		require.ErrorIs(t, err, service.ErrInvalidArgument)
	})

	t.Run("email_taken", func(t *testing.T) {
		f := newSvc(t)
		f.st.EXPECT().UpdateProfile(gomock.Any(), id, gomock.Any()).Return(nil, storage.ErrAlreadyExists)
		_, err := f.svc.UpdateProfile(context.Background(), service.UpdateProfileInput{UserID: id, Email: ptr("x@y.io")})
		require.ErrorIs(t, err, service.ErrDuplicateEmail)
	})

	t.Run("user_gone", func(t *testing.T) {
		f := newSvc(t)
		f.st.EXPECT().UpdateProfile(gomock.Any(), id, gomock.Any()).Return(nil, storage.ErrNotFound)
		_, err := f.svc.UpdateProfile(context.Background(), service.UpdateProfileInput{UserID: id, About: ptr("hi")})
		require.ErrorIs(t, err, service.ErrUserNotFound)
	})
}

func TestUploadAvatar_ReplacesPrevious(t *testing.T) {
	t.Parallel()

	f := newSvc(t)
	id := uuid.New()

	f.st.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{ID: id, AvatarKey: "avatars/old.png"}, nil)
	f.img.EXPECT().PutImage(gomock.Any(), "avatars/"+id.String(), gomock.Any()).Return("avatars/new.png", nil)
	f.st.EXPECT().SetAvatar(gomock.Any(), id, "avatars/new.png").Return("avatars/old.png", nil)
	f.img.EXPECT().DeleteImage(gomock.Any(), "avatars/old.png").Return(nil)

	u, err := f.svc.UploadAvatar(context.Background(), id, png("me"))
	require.NoError(t, err)
	require.Equal(t, "avatars/new.png", u.AvatarKey)
}

func TestUploadAvatar_Failures(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("unknown_user", func(t *testing.T) {
		f := newSvc(t)
		f.st.EXPECT().UserByID(gomock.Any(), id).Return(nil, storage.ErrNotFound)
		_, err := f.svc.UploadAvatar(context.Background(), id, png("me"))
		require.ErrorIs(t, err, service.ErrUserNotFound)
	})

	t.Run("bad_image", func(t *testing.T) {
		f := newSvc(t)
		f.st.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{ID: id}, nil)
		f.img.EXPECT().PutImage(gomock.Any(), gomock.Any(), gomock.Any()).Return("", storage.ErrInvalidArgument)
		_, err := f.svc.UploadAvatar(context.Background(), id, png("me"))
		require.ErrorIs(t, err, service.ErrInvalidArgument)
	})

	t.Run("db_failure_drops_new_object", func(t *testing.T) {
		f := newSvc(t)
		boom := errors.New("db down")
		f.st.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{ID: id}, nil)
		f.img.EXPECT().PutImage(gomock.Any(), gomock.Any(), gomock.Any()).Return("avatars/new.png", nil)
		f.st.EXPECT().SetAvatar(gomock.Any(), id, "avatars/new.png").Return("", boom)
		f.img.EXPECT().DeleteImage(gomock.Any(), "avatars/new.png").Return(nil)
		_, err := f.svc.UploadAvatar(context.Background(), id, png("me"))
		require.ErrorIs(t, err, boom)
	})
}

func TestAvatarURL(t *testing.T) {
	t.Parallel()

	f := newSvc(t)

	u, err := f.svc.AvatarURL(context.Background(), &models.User{})
	require.NoError(t, err)
	require.Empty(t, u)

	f.img.EXPECT().ImageURL(gomock.Any(), "avatars/a.png").Return("https://cdn/avatars/a.png", nil)
	u, err = f.svc.AvatarURL(context.Background(), &models.User{AvatarKey: "avatars/a.png"})
	require.NoError(t, err)
	require.Equal(t, "https://cdn/avatars/a.png", u)
}
