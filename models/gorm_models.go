// models/gorm_models.go
package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// GormGameSnapshot 游戏快照模型
type GormGameSnapshot struct {
	gorm.Model
	GameID string `gorm:"uniqueIndex;not null"`
	Phase  string `gorm:"not null"`
	Data   []byte `gorm:"type:jsonb;not null"`
}

// ToGorm encodes the snapshot as JSON for the jsonb column.
func (r GameRecord) ToGorm() (GormGameSnapshot, error) {
	data, err := json.Marshal(r.Snapshot)
	if err != nil {
		return GormGameSnapshot{}, err
	}
	return GormGameSnapshot{GameID: r.GameID, Phase: r.Phase, Data: data}, nil
}

func (m GormGameSnapshot) ToRecord() (GameRecord, error) {
	r := GameRecord{
		GameID:    m.GameID,
		Phase:     m.Phase,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	err := json.Unmarshal(m.Data, &r.Snapshot)
	return r, err
}
