package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/wfunc/royalur/models"
)

// Memory keeps snapshots in process memory.
type Memory struct {
	records map[string]models.GameRecord
	mutex   sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]models.GameRecord)}
}

func (m *Memory) Save(ctx context.Context, record models.GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if old, ok := m.records[record.GameID]; ok {
		record.CreatedAt = old.CreatedAt
	}
	m.records[record.GameID] = record
	return nil
}

func (m *Memory) Load(ctx context.Context, gameID string) (models.GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.GameRecord{}, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	record, ok := m.records[gameID]
	if !ok {
		return models.GameRecord{}, ErrRecordNotFound
	}
	return record, nil
}

func (m *Memory) Delete(ctx context.Context, gameID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.records, gameID)
	return nil
}

func (m *Memory) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) Close() error {
	return nil
}
