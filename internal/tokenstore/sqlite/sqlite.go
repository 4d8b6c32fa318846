// sqlite - файловое хранилище токенов на modernc.org/sqlite (без CGO).
// Играет роль localStorage: пара переживает перезапуск процесса.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pribylovaa/roster-share/internal/models"
	"github.com/pribylovaa/roster-share/internal/tokenstore"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS token_kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

type Store struct {
	db *sql.DB
}

// New открывает (или создаёт) файл БД и применяет схему.
func New(ctx context.Context, path string) (*Store, error) {
	const op = "tokenstore.sqlite.New"

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, pair models.TokenPair) error {
	const op = "tokenstore.sqlite.Save"

	if err := tokenstore.Validate(pair); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `INSERT INTO token_kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	for _, kv := range [][2]string{
		{tokenstore.KeyAccessToken, pair.AccessToken},
		{tokenstore.KeyRefreshToken, pair.RefreshToken},
	} {
		if _, err := tx.ExecContext(ctx, upsert, kv[0], kv[1]); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Load(ctx context.Context) (*models.TokenPair, error) {
	const op = "tokenstore.sqlite.Load"

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM token_kv WHERE key IN (?, ?)`,
		tokenstore.KeyAccessToken, tokenstore.KeyRefreshToken,
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
	const op = "tokenstore.sqlite.Clear"

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM token_kv WHERE key IN (?, ?)`,
		tokenstore.KeyAccessToken, tokenstore.KeyRefreshToken,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ tokenstore.Store = (*Store)(nil)
