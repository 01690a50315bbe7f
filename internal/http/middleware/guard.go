package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	apierrors "github.com/pribylovaa/go-blog/internal/errors"
	logctx "github.com/pribylovaa/go-blog/internal/pkg/log"
	"github.com/pribylovaa/go-blog/internal/pkg/redact"
	"github.com/pribylovaa/go-blog/internal/token"
)

// Verifier проверяет токены обоих видов. Реализуется *token.Issuer.
type Verifier interface {
	VerifyAccess(tokenStr string) (*token.Claims, error)
	VerifyRefresh(tokenStr string) (*token.Claims, error)
}

// Identity — аутентифицированный субъект запроса.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

type (
	identityKey     struct{}
	refreshTokenKey struct{}
)

// IdentityFrom возвращает идентичность, положенную гардом.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// WithIdentity кладёт идентичность в контекст.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// RefreshTokenFrom возвращает «сырой» refresh-токен, проверенный RefreshGuard.
func RefreshTokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(refreshTokenKey{}).(string)
	return t
}

// WithRefreshToken кладёт в контекст проверенный refresh-токен.
func WithRefreshToken(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, refreshTokenKey{}, raw)
}

// AccessGuard пропускает запрос только с валидным access-токеном
// в Authorization: Bearer. Любой отказ — 401 с JSON-конвертом.
func AccessGuard(v Verifier) Middleware {
	return guard(token.Access, v.VerifyAccess)
}

// RefreshGuard — то же для refresh-токена; дополнительно кладёт
// сам токен в контекст для сравнения с сохранённым значением.
func RefreshGuard(v Verifier) Middleware {
	return guard(token.Refresh, v.VerifyRefresh)
}

func guard(kind token.Kind, verify func(string) (*token.Claims, error)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lg := logctx.From(r.Context()).With("guard", kind.String())

			raw, err := bearerToken(r)
			if err != nil {
				lg.Info("auth_rejected", "reason", err.Error())
				apierrors.WriteError(w, r, err)
				return
			}

			claims, err := verify(raw)
			if err != nil {
				lg.Info("auth_rejected", "reason", err.Error(), "token", redact.Token(raw))
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: claims.UserID, Email: claims.Email})
			if kind == token.Refresh {
				ctx = WithRefreshToken(ctx, raw)
			}
			ctx = logctx.With(ctx, "user_id", claims.UserID.String())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken достаёт токен из Authorization.
// Нет заголовка или схема не Bearer — ErrTokenMissing; пустой токен — ErrTokenInvalid.
func bearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", token.ErrTokenMissing
	}

	scheme, rest, ok := strings.Cut(auth, " ")
	if !ok {
		if strings.EqualFold(auth, "Bearer") {
			return "", token.ErrTokenInvalid
		}
		return "", token.ErrTokenMissing
	}

	if !strings.EqualFold(scheme, "Bearer") {
		return "", token.ErrTokenMissing
	}

	raw := strings.TrimSpace(rest)
	if raw == "" {
		return "", token.ErrTokenInvalid
	}

	return raw, nil
}
