package session

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pribylovaa/roster-share/internal/models"
)

// DecodeClaims читает exp и идентификатор пользователя из access-токена
// без проверки подписи: ключа у клиента нет, подпись проверяет сервер.
func DecodeClaims(accessToken string) (models.AccessClaims, error) {
	const op = "session.DecodeClaims"

	if accessToken == "" {
		return models.AccessClaims{}, fmt.Errorf("%s: %w", op, ErrMalformedToken)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return models.AccessClaims{}, fmt.Errorf("%s: %w: %w", op, ErrMalformedToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return models.AccessClaims{}, fmt.Errorf("%s: %w: missing exp", op, ErrMalformedToken)
	}

	return models.AccessClaims{
		UserID:    userID(claims),
		ExpiresAt: exp.Time,
	}, nil
}

// userID берёт user_id, иначе sub. Числовой user_id приводится к строке.
func userID(claims jwt.MapClaims) string {
	switch v := claims["user_id"].(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	sub, _ := claims.GetSubject()

	return sub
}
