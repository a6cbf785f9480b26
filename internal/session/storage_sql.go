// AngelaMos | 2026
// storage_sql.go

package session

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
)

const createSessionTable = `
	CREATE TABLE IF NOT EXISTS session_kv (
		profile TEXT NOT NULL,
		key     TEXT NOT NULL,
		value   TEXT NOT NULL,
		PRIMARY KEY (profile, key)
	)`

type sessionRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// SQLStorage persists the session in a sqlite file or a shared Postgres
// database, one row per key.
type SQLStorage struct {
	db      *sqlx.DB
	profile string
}

func NewSQLStorage(
	ctx context.Context,
	db *sqlx.DB,
	profile string,
) (*SQLStorage, error) {
	if _, err := db.ExecContext(ctx, createSessionTable); err != nil {
		return nil, fmt.Errorf("create session table: %w", err)
	}

	return &SQLStorage{db: db, profile: profile}, nil
}

func (s *SQLStorage) Load(
	ctx context.Context,
	keys ...string,
) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(
		`SELECT key, value FROM session_kv WHERE profile = ? AND key IN (?)`,
		s.profile,
		keys,
	)
	if err != nil {
		return nil, fmt.Errorf("build session query: %w", err)
	}

	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load session rows: %w", err)
	}

	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (s *SQLStorage) Save(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	deleteQuery := s.db.Rebind(`DELETE FROM session_kv WHERE profile = ? AND key = ?`)
	insertQuery := s.db.Rebind(`INSERT INTO session_kv (profile, key, value) VALUES (?, ?, ?)`)

	err := core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for k, v := range values {
			if _, err := tx.ExecContext(ctx, deleteQuery, s.profile, k); err != nil {
				return fmt.Errorf("clear %s: %w", k, err)
			}
			if _, err := tx.ExecContext(ctx, insertQuery, s.profile, k, v); err != nil {
				return fmt.Errorf("insert %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session rows: %w", err)
	}
	return nil
}

func (s *SQLStorage) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := sqlx.In(
		`DELETE FROM session_kv WHERE profile = ? AND key IN (?)`,
		s.profile,
		keys,
	)
	if err != nil {
		return fmt.Errorf("build session delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("remove session rows: %w", err)
	}
	return nil
}

func (s *SQLStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
