// memory - хранилище токенов в памяти процесса (тесты, эфемерные запуски).
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/pribylovaa/roster-share/internal/models"
	"github.com/pribylovaa/roster-share/internal/tokenstore"
)

type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

func New() *Store {
	return &Store{data: make(map[string]string, 2)}
}

func (s *Store) Save(_ context.Context, pair models.TokenPair) error {
	const op = "tokenstore.memory.Save"

	if err := tokenstore.Validate(pair); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[tokenstore.KeyAccessToken] = pair.AccessToken
	s.data[tokenstore.KeyRefreshToken] = pair.RefreshToken

	return nil
}

func (s *Store) Load(_ context.Context) (*models.TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return tokenstore.FromValues(s.data[tokenstore.KeyAccessToken], s.data[tokenstore.KeyRefreshToken])
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, tokenstore.KeyAccessToken)
	delete(s.data, tokenstore.KeyRefreshToken)

	return nil
}

func (s *Store) Close() error { return nil }

// Set пишет одно сырое значение; нужен тестам для частичных состояний.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
}

var _ tokenstore.Store = (*Store)(nil)
