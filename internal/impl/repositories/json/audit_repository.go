package repositories_json

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rprigarin/test-driven-planner/internal/domain/entities"
	"github.com/rprigarin/test-driven-planner/internal/domain/errs"
	"github.com/rprigarin/test-driven-planner/internal/domain/interfaces"
)

const defaultRecentLimit = 50

// JsonAuditRepository keeps the change history in a JSON file next to the
// offline task store.
type JsonAuditRepository struct {
	filePath string

	mu   sync.RWMutex
	data []*entities.ChangeRecord
}

func NewJSONAuditRepository(dataDir string) (*JsonAuditRepository, error) {
	filePath := filepath.Join(dataDir, ".planner", "changes.json")
	repo := &JsonAuditRepository{
		filePath: filePath,
		data:     []*entities.ChangeRecord{},
	}

	if err := repo.load(); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *JsonAuditRepository) load() error {
	data, err := os.ReadFile(r.filePath)
	if os.IsNotExist(err) {
		return nil // File doesn't exist yet, start with empty data
	}
	if err != nil {
		return errors.InternalErrorf("failed to read changes.json: %v", err)
	}

	var changes []*entities.ChangeRecord
	if err := json.Unmarshal(data, &changes); err != nil {
		return errors.InternalErrorf("failed to unmarshal changes.json: %v", err)
	}

	r.data = changes
	return nil
}

func (r *JsonAuditRepository) save() error {
	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return errors.InternalErrorf("failed to marshal changes: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.filePath), 0755); err != nil {
		return errors.InternalErrorf("failed to create directory: %v", err)
	}

	if err := os.WriteFile(r.filePath, data, 0644); err != nil {
		return errors.InternalErrorf("failed to write changes.json: %v", err)
	}

	return nil
}

func (r *JsonAuditRepository) RecordChange(ctx context.Context, change *entities.ChangeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now()
	}

	r.data = append(r.data, change)
	return r.save()
}

func (r *JsonAuditRepository) RecentChanges(ctx context.Context, limit int64) ([]*entities.ChangeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = defaultRecentLimit
	}

	var changes []*entities.ChangeRecord
	for i := len(r.data) - 1; i >= 0 && int64(len(changes)) < limit; i-- {
		change := *r.data[i]
		changes = append(changes, &change)
	}
	return changes, nil
}

var _ interfaces.AuditRepository = (*JsonAuditRepository)(nil)
