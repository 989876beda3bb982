// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wfunc/royalur/models"

	_ "github.com/lib/pq" // PostgreSQL 驱动
)

const queryTimeout = 5 * time.Second

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

func postgresDSN(host string, port int, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	return openPostgreSQL(postgresDSN(host, port, user, password, dbname))
}

func openPostgreSQL(dsn string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS game_snapshots (
            id SERIAL PRIMARY KEY,
            game_id VARCHAR(64) UNIQUE NOT NULL,
            phase VARCHAR(32) NOT NULL,
            data JSONB NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_game_snapshots_updated_at ON game_snapshots(updated_at)`)
	return err
}

// Save 保存快照 (UPSERT)
func (p *PostgreSQL) Save(ctx context.Context, record models.GameRecord) error {
	data, err := json.Marshal(record.Snapshot)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        INSERT INTO game_snapshots (game_id, phase, data)
        VALUES ($1, $2, $3)
        ON CONFLICT (game_id)
        DO UPDATE SET phase = $2, data = $3, updated_at = CURRENT_TIMESTAMP
    `
	_, err = p.db.ExecContext(ctx, query, record.GameID, record.Phase, data)
	return err
}

// Load 加载快照
func (p *PostgreSQL) Load(ctx context.Context, gameID string) (models.GameRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	record := models.GameRecord{GameID: gameID}
	var data []byte
	query := `SELECT phase, data, created_at, updated_at FROM game_snapshots WHERE game_id = $1`
	err := p.db.QueryRowContext(ctx, query, gameID).Scan(&record.Phase, &data, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.GameRecord{}, ErrRecordNotFound
		}
		return models.GameRecord{}, err
	}

	if err := json.Unmarshal(data, &record.Snapshot); err != nil {
		return models.GameRecord{}, err
	}
	return record, nil
}

func (p *PostgreSQL) Delete(ctx context.Context, gameID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `DELETE FROM game_snapshots WHERE game_id = $1`, gameID)
	return err
}

func (p *PostgreSQL) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return listIDs(ctx, p.db, `SELECT game_id FROM game_snapshots ORDER BY game_id`)
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
