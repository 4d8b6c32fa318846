// postgres - хранилище токенов в PostgreSQL (pgx).
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pribylovaa/roster-share/internal/models"
	"github.com/pribylovaa/roster-share/internal/tokenstore"
)

const schema = `CREATE TABLE IF NOT EXISTS token_kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

type Store struct {
	db *pgxpool.Pool
}

// New создает подключение к PostgreSQL и применяет схему.
func New(ctx context.Context, dbURL string) (*Store, error) {
	const op = "tokenstore.postgres.New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := db.Exec(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, pair models.TokenPair) error {
	const op = "tokenstore.postgres.Save"

	if err := tokenstore.Validate(pair); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	const upsert = `INSERT INTO token_kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(upsert, tokenstore.KeyAccessToken, pair.AccessToken)
		batch.Queue(upsert, tokenstore.KeyRefreshToken, pair.RefreshToken)

		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Load(ctx context.Context) (*models.TokenPair, error) {
	const op = "tokenstore.postgres.Load"

	rows, err := s.db.Query(ctx,
		`SELECT key, value FROM token_kv WHERE key = ANY($1)`,
		[]string{tokenstore.KeyAccessToken, tokenstore.KeyRefreshToken},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	values := make(map[string]string, 2)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		values[k] = v
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tokenstore.FromValues(values[tokenstore.KeyAccessToken], values[tokenstore.KeyRefreshToken])
}

func (s *Store) Clear(ctx context.Context) error {
	const op = "tokenstore.postgres.Clear"

	_, err := s.db.Exec(ctx,
		`DELETE FROM token_kv WHERE key = ANY($1)`,
		[]string{tokenstore.KeyAccessToken, tokenstore.KeyRefreshToken},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

// Проверка на соответствие интерфейсу Store.
var _ tokenstore.Store = (*Store)(nil)
