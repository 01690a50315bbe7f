package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-blog/internal/errors"
	"github.com/pribylovaa/go-blog/internal/http/middleware"
	"github.com/pribylovaa/go-blog/internal/token"
)

// Register — POST /auth/register. Сессию не создаёт.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}

	user, err := h.Sessions.Register(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userFromModel(user, ""))
}

// Login — POST /auth/login. Учётные данные проверяются здесь же,
// отдельного гарда для email/пароля нет.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}

	sess, err := h.Sessions.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	// Сессия уже записана: без URL аватара ответ всё равно должен дойти до клиента.
	writeJSON(w, http.StatusOK, loginResponse{
		tokenPairResponse: tokenPairFromModel(sess.TokenPair),
		User:              userFromModel(sess.User, h.avatarURL(r, sess.User)),
	})
}

// Refresh — POST /auth/refresh за RefreshGuard.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	presented := middleware.RefreshTokenFrom(r.Context())
	if presented == "" {
		apierrors.WriteError(w, r, token.ErrTokenMissing)
		return
	}

	pair, err := h.Sessions.RefreshTokens(r.Context(), id.UserID, presented)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairFromModel(*pair))
}

// Logout — POST /auth/logout за AccessGuard. Ответ 200 с пустым телом.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.Sessions.Logout(r.Context(), id.UserID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
