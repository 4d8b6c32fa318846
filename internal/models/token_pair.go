package models

import "time"

// TokenPair - пара токенов, выдаваемая удалённым сервисом при входе/обновлении.
//
// Описание:
//   - AccessToken - короткоживущий JWT (exp + идентификатор пользователя),
//     отправляется как Bearer;
//   - RefreshToken - непрозрачный секрет для выпуска новой пары.
//
// Пара считается единым целым: либо есть оба токена, либо нет ни одного.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Complete сообщает, что оба токена присутствуют.
func (p *TokenPair) Complete() bool {
	return p != nil && p.AccessToken != "" && p.RefreshToken != ""
}

// AccessClaims - данные, извлечённые из access-токена без проверки подписи.
type AccessClaims struct {
	UserID    string
	ExpiresAt time.Time
}
