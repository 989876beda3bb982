package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/wfunc/royalur/models"

	// SQLite 驱动 (pure Go)
	_ "modernc.org/sqlite"
)

// SQLite stores snapshots in a local database file.
type SQLite struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS game_snapshots (
            game_id TEXT PRIMARY KEY,
            phase TEXT NOT NULL,
            data TEXT NOT NULL,
            created_at INTEGER NOT NULL,
            updated_at INTEGER NOT NULL
        )
    `); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite tables: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, record models.GameRecord) error {
	data, err := json.Marshal(record.Snapshot)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO game_snapshots (game_id, phase, data, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (game_id)
        DO UPDATE SET phase = excluded.phase, data = excluded.data, updated_at = excluded.updated_at
    `, record.GameID, record.Phase, string(data), toMillis(record.CreatedAt), toMillis(record.UpdatedAt))
	return err
}

func (s *SQLite) Load(ctx context.Context, gameID string) (models.GameRecord, error) {
	var (
		record             models.GameRecord
		data               string
		createdAt, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT game_id, phase, data, created_at, updated_at FROM game_snapshots WHERE game_id = ?`,
		gameID,
	).Scan(&record.GameID, &record.Phase, &data, &createdAt, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.GameRecord{}, ErrRecordNotFound
		}
		return models.GameRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updated)
	if err := json.Unmarshal([]byte(data), &record.Snapshot); err != nil {
		return models.GameRecord{}, fmt.Errorf("decode snapshot %s: %w", gameID, err)
	}
	return record, nil
}

func (s *SQLite) Delete(ctx context.Context, gameID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM game_snapshots WHERE game_id = ?`, gameID)
	return err
}

func (s *SQLite) List(ctx context.Context) ([]string, error) {
	return listIDs(ctx, s.db, `SELECT game_id FROM game_snapshots ORDER BY game_id`)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func listIDs(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
