// tokenstore задаёт контракт долговременного хранения пары токенов.
//
// Хранилище - простое key/value: два строковых значения под фиксированными
// ключами. Содержимое токенов здесь не проверяется.
package tokenstore

import (
	"context"
	"errors"

	"github.com/pribylovaa/roster-share/internal/models"
)

const (
	// KeyAccessToken - ключ access-токена.
	KeyAccessToken = "accessToken"
	// KeyRefreshToken - ключ refresh-токена.
	KeyRefreshToken = "refreshToken"
)

var (
	// ErrNotFound - пары нет (или сохранён только один из токенов).
	ErrNotFound = errors.New("token pair not found")
	// ErrIncompletePair - попытка сохранить пару без одного из токенов.
	ErrIncompletePair = errors.New("incomplete token pair")
)

// Store хранит пару токенов между перезапусками процесса.
type Store interface {
	// Save атомарно заменяет оба значения.
	Save(ctx context.Context, pair models.TokenPair) error
	// Load возвращает пару или ErrNotFound.
	Load(ctx context.Context) (*models.TokenPair, error)
	// Clear удаляет оба значения; повторный вызов не ошибка.
	Clear(ctx context.Context) error
	// Close освобождает ресурсы бэкенда.
	Close() error
}

// FromValues собирает пару из сырых значений ключей.
// Частичное состояние трактуется как отсутствие пары.
func FromValues(access, refresh string) (*models.TokenPair, error) {
	if access == "" || refresh == "" {
		return nil, ErrNotFound
	}

	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Validate проверяет, что пару можно сохранить.
func Validate(pair models.TokenPair) error {
	if !pair.Complete() {
		return ErrIncompletePair
	}

	return nil
}
