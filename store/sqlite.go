package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matheusschuckar/look-pro/core"
)

// SQLiteStore 是 SQLite 实现的 Store，用于 CLI/单机的本地持久化。
// 不支持 Watch。
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite 打开（或创建）数据库文件；":memory:" 使用共享缓存的内存库。
func OpenSQLite(path string) (*SQLiteStore, error) {
	connStr := path
	if path == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM kv WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrStoreNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	if expiresAt > 0 && time.Now().UnixMilli() > expiresAt {
		return nil, core.ErrStoreNotFound
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	var expiresAt int64
	now := time.Now()
	if len(ttl) > 0 && ttl[0] > 0 {
		expiresAt = now.Add(time.Duration(ttl[0]) * time.Second).UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		key, value, expiresAt, now.UnixMilli())
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *SQLiteStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, err := s.Get(ctx, k)
		if core.IsStoreNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result[k] = v
	}
	return result, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ core.Store = (*SQLiteStore)(nil)
