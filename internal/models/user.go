// models содержит доменные сущности blog-service.
// Типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User — учётная запись и профиль пользователя.
//
// RefreshToken хранит единственный действующий refresh-токен (одна сессия
// на пользователя); nil означает отсутствие сессии.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	RefreshToken *string

	FirstName string
	LastName  string
	Phone     string
	Birthday  *time.Time
	About     string
	AvatarKey string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Public возвращает копию без секретов: хэша пароля и refresh-токена.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}

	cp := *u
	cp.PasswordHash = ""
	cp.RefreshToken = nil

	return &cp
}
