package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-blog/internal/models"
	"github.com/pribylovaa/go-blog/internal/storage"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// TestIntegration_SaveUser_And_Lookup_OK — сохранение и поиск по email (CITEXT) и ID;
// новый пользователь создаётся без сессии.
func TestIntegration_SaveUser_And_Lookup_OK(t *testing.T) {
	st, _ := startPostgres(t)
	ctx := context.Background()

	u := seedUser(t, st, "User@Example.com")

	byEmail, err := st.UserByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)
	require.Equal(t, "hash", byEmail.PasswordHash)
	require.Nil(t, byEmail.RefreshToken)
	require.Nil(t, byEmail.Birthday)
	require.WithinDuration(t, u.CreatedAt, byEmail.CreatedAt, time.Second)

	byID, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, byEmail.Email, byID.Email)
}

func TestIntegration_SaveUser_DuplicateEmail_CaseInsensitive(t *testing.T) {
	st, _ := startPostgres(t)

	seedUser(t, st, "dup@example.com")

	now := time.Now().UTC()
	err := st.SaveUser(context.Background(), &models.User{
		ID:           uuid.New(),
		Email:        "DUP@EXAMPLE.COM",
		PasswordHash: "h2",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_UserLookup_NotFound(t *testing.T) {
	st, _ := startPostgres(t)
	ctx := context.Background()

	_, err := st.UserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByID(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_RefreshToken_Lifecycle — login (Set), refresh (Rotate), logout (Set nil).
func TestIntegration_RefreshToken_Lifecycle(t *testing.T) {
	st, _ := startPostgres(t)
	ctx := context.Background()
	u := seedUser(t, st, "session@example.com")

	require.NoError(t, st.SetRefreshToken(ctx, u.ID, ptr("A")))

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	require.Equal(t, "A", *got.RefreshToken)

	require.NoError(t, st.RotateRefreshToken(ctx, u.ID, "A", "B"))

	// повтор старого токена после ротации отклоняется, состояние не меняется.
	require.ErrorIs(t, st.RotateRefreshToken(ctx, u.ID, "A", "C"), storage.ErrNotFound)

	got, err = st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "B", *got.RefreshToken)

	require.NoError(t, st.SetRefreshToken(ctx, u.ID, nil))

	got, err = st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.RefreshToken)

	require.ErrorIs(t, st.RotateRefreshToken(ctx, u.ID, "B", "D"), storage.ErrNotFound)
	require.ErrorIs(t, st.SetRefreshToken(ctx, uuid.New(), nil), storage.ErrNotFound)
}

// TestIntegration_RotateRefreshToken_ConcurrentSingleWinner — из N конкурентных
// ротаций одного и того же токена успешна ровно одна.
func TestIntegration_RotateRefreshToken_ConcurrentSingleWinner(t *testing.T) {
	st, _ := startPostgres(t)
	ctx := context.Background()
	u := seedUser(t, st, "race@example.com")

	require.NoError(t, st.SetRefreshToken(ctx, u.ID, ptr("shared")))

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []string
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(next string) {
			defer wg.Done()
			if err := st.RotateRefreshToken(ctx, u.ID, "shared", next); err == nil {
				mu.Lock()
				wins = append(wins, next)
				mu.Unlock()
			}
		}(uuid.NewString())
	}
	wg.Wait()

	require.Len(t, wins, 1)

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, wins[0], *got.RefreshToken)
}

func TestIntegration_UpdateProfile_Partial(t *testing.T) {
	st, _ := startPostgres(t)
	ctx := context.Background()
	u := seedUser(t, st, "profile@example.com")

	birthday := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	got, err := st.UpdateProfile(ctx, u.ID, storage.ProfileUpdate{
		FirstName: ptr("Ada"),
		Birthday:  &birthday,
	})
	require.NoError(t, err)
	require.Equal(t, "Ada", got.FirstName)
	require.Empty(t, got.LastName)
	require.NotNil(t, got.Birthday)
	require.Equal(t, "1990-05-17", got.Birthday.Format(time.DateOnly))
	require.Equal(t, "profile@example.com", got.Email)

	got, err = st.UpdateProfile(ctx, u.ID, storage.ProfileUpdate{About: ptr("hello")})
	require.NoError(t, err)
	require.Equal(t, "Ada", got.FirstName)
	require.Equal(t, "hello", got.About)
}

func TestIntegration_UpdateProfile_EmailConflict_And_NotFound(t *testing.T) {
	st, _ := startPostgres(t)
	ctx := context.Background()

	seedUser(t, st, "taken@example.com")
	u := seedUser(t, st, "mine@example.com")

	_, err := st.UpdateProfile(ctx, u.ID, storage.ProfileUpdate{Email: ptr("TAKEN@example.com")})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = st.UpdateProfile(ctx, uuid.New(), storage.ProfileUpdate{Phone: ptr("1")})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_SetAvatar_ReturnsPrevious(t *testing.T) {
	st, _ := startPostgres(t)
	ctx := context.Background()
	u := seedUser(t, st, "avatar@example.com")

	old, err := st.SetAvatar(ctx, u.ID, "avatars/1.png")
	require.NoError(t, err)
	require.Empty(t, old)

	old, err = st.SetAvatar(ctx, u.ID, "avatars/2.png")
	require.NoError(t, err)
	require.Equal(t, "avatars/1.png", old)

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "avatars/2.png", got.AvatarKey)

	_, err = st.SetAvatar(ctx, uuid.New(), "x")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_SaveUser_ContextCanceled(t *testing.T) {
	st, _ := startPostgres(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	now := time.Now().UTC()
	err := st.SaveUser(ctx, &models.User{ID: uuid.New(), Email: "c@example.com", PasswordHash: "h", CreatedAt: now, UpdatedAt: now})
	require.ErrorIs(t, err, context.Canceled)
}
