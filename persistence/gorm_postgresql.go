// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/wfunc/royalur/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	return openGormPostgreSQL(postgresDSN(host, port, user, password, dbname))
}

func openGormPostgreSQL(dsn string) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormGameSnapshot{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// Save 保存快照
func (p *GormPostgreSQL) Save(ctx context.Context, record models.GameRecord) error {
	row, err := record.ToGorm()
	if err != nil {
		return err
	}

	tx := p.db.WithContext(ctx)
	var existing models.GormGameSnapshot
	result := tx.Where("game_id = ?", record.GameID).First(&existing)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		// 创建新记录
		return tx.Create(&row).Error
	} else if result.Error != nil {
		return result.Error
	}

	// 更新现有记录
	existing.Phase = row.Phase
	existing.Data = row.Data
	return tx.Save(&existing).Error
}

// Load 加载快照
func (p *GormPostgreSQL) Load(ctx context.Context, gameID string) (models.GameRecord, error) {
	var row models.GormGameSnapshot
	if err := p.db.WithContext(ctx).Where("game_id = ?", gameID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GameRecord{}, ErrRecordNotFound
		}
		return models.GameRecord{}, err
	}
	return row.ToRecord()
}

// Delete removes the row outright so the unique game id can be reused.
func (p *GormPostgreSQL) Delete(ctx context.Context, gameID string) error {
	return p.db.WithContext(ctx).Unscoped().Where("game_id = ?", gameID).Delete(&models.GormGameSnapshot{}).Error
}

func (p *GormPostgreSQL) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := p.db.WithContext(ctx).Model(&models.GormGameSnapshot{}).Order("game_id").Pluck("game_id", &ids).Error
	return ids, err
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
