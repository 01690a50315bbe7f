package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-blog/internal/token"
	"github.com/pribylovaa/go-blog/mocks"
	"github.com/stretchr/testify/require"
)

// echoIdentity отвечает 200 и запоминает, что положил гард.
type echoIdentity struct {
	called  bool
	id      Identity
	ok      bool
	refresh string
}

func (e *echoIdentity) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.called = true
	e.id, e.ok = IdentityFrom(r.Context())
	e.refresh = RefreshTokenFrom(r.Context())
	w.WriteHeader(http.StatusOK)
}

func withAuth(target, header string) *http.Request {
	req := makeReq(target)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return req
}

func TestAccessGuard_OK(t *testing.T) {
	ctrl := gomock.NewController(t)
	v := mocks.NewMockVerifier(ctrl)

	uid := uuid.New()
	v.EXPECT().VerifyAccess("tok-1").Return(&token.Claims{UserID: uid, Email: "a@b.io"}, nil)

	next := &echoIdentity{}
	rr := httptest.NewRecorder()
	Chain(next, AccessGuard(v)).ServeHTTP(rr, withAuth("/profile", "Bearer tok-1"))

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, next.ok)
	require.Equal(t, Identity{UserID: uid, Email: "a@b.io"}, next.id)
	require.Empty(t, next.refresh)
}

func TestAccessGuard_Rejections(t *testing.T) {
	tcs := []struct {
		name     string
		header   string
		verify   error
		wantCode string
	}{
		{"no_header", "", nil, "unauthenticated"},
		{"basic_scheme", "Basic abc", nil, "unauthenticated"},
		{"bearer_without_token", "Bearer", nil, "unauthenticated"},
		{"bearer_blank_token", "Bearer   ", nil, "unauthenticated"},
		{"expired", "Bearer tok", fmt.Errorf("token.Verify: %w", token.ErrTokenExpired), "token_expired"},
		{"invalid", "Bearer tok", fmt.Errorf("token.Verify: %w", token.ErrTokenInvalid), "unauthenticated"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			v := mocks.NewMockVerifier(ctrl)
			if tc.verify != nil {
				v.EXPECT().VerifyAccess("tok").Return(nil, tc.verify)
			}

			next := &echoIdentity{}
			rr := httptest.NewRecorder()
			Chain(next, AccessGuard(v)).ServeHTTP(rr, withAuth("/profile", tc.header))

			require.False(t, next.called)
			require.Equal(t, http.StatusUnauthorized, rr.Code)
			require.Equal(t, tc.wantCode, decodeEnvelope(t, rr).Error.Code)
		})
	}
}

func TestBearerToken_SchemeCaseInsensitive(t *testing.T) {
	raw, err := bearerToken(withAuth("/", "bearer abc"))
	require.NoError(t, err)
	require.Equal(t, "abc", raw)
}

// С настоящим Issuer: refresh-токен не проходит AccessGuard и наоборот.
func TestGuards_WithIssuer_KindsNotInterchangeable(t *testing.T) {
	iss, err := token.NewIssuer(token.Config{AccessSecret: "a-secret", RefreshSecret: "r-secret"})
	require.NoError(t, err)

	uid := uuid.New()
	access, _, err := iss.IssueAccess(token.Claims{UserID: uid, Email: "a@b.io"})
	require.NoError(t, err)
	refresh, _, err := iss.IssueRefresh(token.Claims{UserID: uid, Email: "a@b.io"})
	require.NoError(t, err)

	// access -> RefreshGuard: 401.
	rr := httptest.NewRecorder()
	Chain(&echoIdentity{}, RefreshGuard(iss)).ServeHTTP(rr, withAuth("/auth/refresh", "Bearer "+access))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// refresh -> AccessGuard: 401.
	rr = httptest.NewRecorder()
	Chain(&echoIdentity{}, AccessGuard(iss)).ServeHTTP(rr, withAuth("/profile", "Bearer "+refresh))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// refresh -> RefreshGuard: 200, токен доступен хендлеру.
	next := &echoIdentity{}
	rr = httptest.NewRecorder()
	Chain(next, RefreshGuard(iss)).ServeHTTP(rr, withAuth("/auth/refresh", "Bearer "+refresh))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, uid, next.id.UserID)
	require.Equal(t, refresh, next.refresh)
}

func TestAccessGuard_ExpiredWithIssuerClock(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	iss, err := token.NewIssuer(token.Config{AccessSecret: "a-secret", RefreshSecret: "r-secret"}, token.WithClock(func() time.Time { return clock() }))
	require.NoError(t, err)

	access, _, err := iss.IssueAccess(token.Claims{UserID: uuid.New()})
	require.NoError(t, err)

	clock = func() time.Time { return now.Add(token.AccessTTL + time.Minute) }

	rr := httptest.NewRecorder()
	Chain(&echoIdentity{}, AccessGuard(iss)).ServeHTTP(rr, withAuth("/profile", "Bearer "+access))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "token_expired", decodeEnvelope(t, rr).Error.Code)
}
