// redact маскирует чувствительные данные перед записью в лог:
// e-mail, токены и пароли никогда не попадают в логи в открытом виде.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Email оставляет первую руну локальной части и домен целиком.
//
//	"alice@example.com" -> "a***@example.com"
//	"a@example.com"     -> "***@example.com"
//	"broken"            -> "***"
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	lr := []rune(local)
	if len(lr) < 2 {
		return "***@" + domain
	}

	return string(lr[:1]) + "***@" + domain
}

// Token возвращает короткий отпечаток токена (первые 8 hex-символов sha256).
// По отпечатку можно сопоставить записи одного токена, не раскрывая его.
func Token(s string) string {
	if s == "" {
		return "[EMPTY_TOKEN]"
	}

	sum := sha256.Sum256([]byte(s))

	return "tok:" + hex.EncodeToString(sum[:4])
}

// Password возвращает литерал-заглушку для пароля.
func Password() string { return "[REDACTED_PASSWORD]" }
