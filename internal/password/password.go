// password — одностороннее хэширование паролей bcrypt.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost — рабочий фактор bcrypt.
const Cost = 10

// Hash возвращает bcrypt-хэш пароля с солью.
// Пароли длиннее 72 байт bcrypt отвергает (bcrypt.ErrPasswordTooLong).
func Hash(plain string) (string, error) {
	const op = "password.Hash"

	b, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// Verify сравнивает пароль с хэшем.
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
