package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе и обновлении сессии.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Session — результат успешного входа: пара токенов и пользователь без секретов.
type Session struct {
	TokenPair
	User *User
}
