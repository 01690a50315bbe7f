package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/pribylovaa/go-blog/internal/errors"
	"github.com/pribylovaa/go-blog/internal/models"
	"github.com/pribylovaa/go-blog/internal/pkg/log"
	"github.com/pribylovaa/go-blog/internal/service"
)

// GetProfile — GET /profile.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r)
	if !ok {
		return
	}

	user, err := h.Profile.Profile(r.Context(), who.UserID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.writeUser(w, r, user)
}

// UpdateProfile — PATCH /profile (JSON). Пользователь берётся из токена,
// поле id в теле не принимается.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r)
	if !ok {
		return
	}

	var in updateProfileRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}

	input := service.UpdateProfileInput{
		UserID:    who.UserID,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		About:     in.About,
	}

	if in.Birthday != nil {
		bd, err := time.Parse(birthdayLayout, *in.Birthday)
		if err != nil {
			apierrors.WriteError(w, r, errInvalidArgument())
			return
		}
		input.Birthday = &bd
	}

	user, err := h.Profile.UpdateProfile(r.Context(), input)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.writeUser(w, r, user)
}

// UploadAvatar — PATCH /profile/avatar, multipart: avatar.
func (h *Handlers) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.parseMultipart(w, r); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads, closeUploads, err := openUploads(r, "avatar")
	if err != nil || len(uploads) != 1 {
		closeUploads()
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}
	defer closeUploads()

	user, err := h.Profile.UploadAvatar(r.Context(), who.UserID, uploads[0])
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.writeUser(w, r, user)
}

func (h *Handlers) writeUser(w http.ResponseWriter, r *http.Request, user *models.User) {
	writeJSON(w, http.StatusOK, userFromModel(user, h.avatarURL(r, user)))
}

// avatarURL строит ссылку на аватар. Ошибка не роняет ответ:
// изменения к этому моменту уже сохранены, поле avatar_url просто опускается.
func (h *Handlers) avatarURL(r *http.Request, user *models.User) string {
	u, err := h.Profile.AvatarURL(r.Context(), user)
	if err != nil {
		log.From(r.Context()).Warn("avatar_url_failed", "user_id", user.ID.String(), "err", err)
		return ""
	}

	return u
}
