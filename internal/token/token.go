// token выпускает и проверяет подписанные JWT (HS256) двух видов:
// короткоживущие access-токены и долгоживущие refresh-токены.
//
// Виды токенов подписываются независимыми секретами: компрометация одного
// секрета не делает валидными токены другого вида. Время жизни фиксировано
// константами AccessTTL и RefreshTTL и не задаётся при выпуске.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AccessTTL — время жизни access-токена.
	AccessTTL = 15 * time.Minute
	// RefreshTTL — время жизни refresh-токена.
	RefreshTTL = 7 * 24 * time.Hour

	leeway = 5 * time.Second
)

var (
	// ErrTokenMissing — токен не предъявлен (нет заголовка или схема не Bearer).
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenInvalid — подпись, алгоритм, формат или claims некорректны.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired — подпись верна, но срок действия истёк.
	ErrTokenExpired = errors.New("token expired")
)

// Kind — вид токена.
type Kind int

const (
	Access Kind = iota + 1
	Refresh
)

func (k Kind) String() string {
	switch k {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// TTL возвращает фиксированное время жизни токена данного вида.
func (k Kind) TTL() time.Duration {
	if k == Refresh {
		return RefreshTTL
	}

	return AccessTTL
}

// Claims — типизированные данные токена, общие для выпуска и проверки.
type Claims struct {
	UserID    uuid.UUID
	Email     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// wireClaims — представление Claims внутри JWT.
type wireClaims struct {
	Email string `json:"email"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// Config — секреты и атрибуты выпуска. Передаётся явно при создании Issuer.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	Audience      []string
}

// Issuer выпускает и проверяет токены. Безопасен для конкурентного использования.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// Option настраивает Issuer.
type Option func(*Issuer)

// WithClock подменяет источник времени (для тестов истечения срока).
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer создаёт Issuer. Секреты обязательны и должны различаться.
func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	const op = "token.NewIssuer"

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("%s: empty signing secret", op)
	}

	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("%s: access and refresh secrets must differ", op)
	}

	i := &Issuer{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(i)
	}

	return i, nil
}

// IssueAccess подписывает access-токен для c.UserID/c.Email.
// Возвращает строку токена и фактические claims (jti, iat, exp).
func (i *Issuer) IssueAccess(c Claims) (string, *Claims, error) {
	return i.issue(Access, c)
}

// IssueRefresh подписывает refresh-токен для c.UserID/c.Email.
func (i *Issuer) IssueRefresh(c Claims) (string, *Claims, error) {
	return i.issue(Refresh, c)
}

// VerifyAccess проверяет access-токен.
func (i *Issuer) VerifyAccess(tokenStr string) (*Claims, error) {
	return i.Verify(tokenStr, Access)
}

// VerifyRefresh проверяет refresh-токен.
func (i *Issuer) VerifyRefresh(tokenStr string) (*Claims, error) {
	return i.Verify(tokenStr, Refresh)
}

// Verify проверяет подпись секретом вида kind, алгоритм, issuer/audience и срок.
// Истёкший токен даёт ErrTokenExpired, любой другой дефект — ErrTokenInvalid.
func (i *Issuer) Verify(tokenStr string, kind Kind) (*Claims, error) {
	const op = "token.Verify"

	secret, err := i.secret(kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if tokenStr == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}
	if len(i.cfg.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(i.cfg.Audience...))
	}

	var wc wireClaims
	tok, err := jwt.ParseWithClaims(tokenStr, &wc, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	if !tok.Valid || wc.Type != kind.String() {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	uid, err := uuid.Parse(wc.Subject)
	if err != nil || uid == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	out := &Claims{
		UserID:    uid,
		Email:     wc.Email,
		ID:        wc.ID,
		ExpiresAt: wc.ExpiresAt.Time,
	}
	if wc.IssuedAt != nil {
		out.IssuedAt = wc.IssuedAt.Time
	}

	return out, nil
}

func (i *Issuer) issue(kind Kind, c Claims) (string, *Claims, error) {
	const op = "token.issue"

	if c.UserID == uuid.Nil {
		return "", nil, fmt.Errorf("%s: empty subject", op)
	}

	secret, err := i.secret(kind)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	now := i.now()
	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(now.Add(kind.TTL()))

	wc := wireClaims{
		Email: c.Email,
		Type:  kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   c.UserID.String(),
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings(i.cfg.Audience),
			IssuedAt:  iat,
			ExpiresAt: exp,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wc).SignedString(secret)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	return signed, &Claims{
		UserID:    c.UserID,
		Email:     c.Email,
		ID:        wc.ID,
		IssuedAt:  iat.Time,
		ExpiresAt: exp.Time,
	}, nil
}

func (i *Issuer) secret(kind Kind) ([]byte, error) {
	switch kind {
	case Access:
		return []byte(i.cfg.AccessSecret), nil
	case Refresh:
		return []byte(i.cfg.RefreshSecret), nil
	default:
		return nil, fmt.Errorf("unknown token kind %d", kind)
	}
}
