// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/royalur/models"
)

// SnapshotStore keeps the latest snapshot of each live game.
type SnapshotStore interface {
	Save(ctx context.Context, record models.GameRecord) error
	Load(ctx context.Context, gameID string) (models.GameRecord, error)
	Delete(ctx context.Context, gameID string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
