package repositories_json

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/rprigarin/test-driven-planner/internal/domain/entities"
	"github.com/rprigarin/test-driven-planner/internal/domain/errs"
	"github.com/rprigarin/test-driven-planner/internal/domain/interfaces"

	"github.com/google/uuid"
)

// listLimit caps how many tasks a single day query returns.
const listLimit = 1000

// JsonTaskRepository is the offline task store: a plain JSON file under
// the data directory. It serves the planner when the database cannot.
type JsonTaskRepository struct {
	filePath string

	mu   sync.RWMutex
	data []*entities.Task
}

func NewJSONTaskRepository(dataDir string) (*JsonTaskRepository, error) {
	filePath := filepath.Join(dataDir, ".planner", "tasks.json")
	repo := &JsonTaskRepository{
		filePath: filePath,
		data:     []*entities.Task{},
	}

	if err := repo.load(); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *JsonTaskRepository) load() error {
	data, err := os.ReadFile(r.filePath)
	if os.IsNotExist(err) {
		return nil // File doesn't exist yet, start with empty data
	}
	if err != nil {
		return errors.InternalErrorf("failed to read tasks.json: %v", err)
	}

	var tasks []*entities.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return errors.InternalErrorf("failed to unmarshal tasks.json: %v", err)
	}

	// Validate UUIDs
	for _, task := range tasks {
		if task.ID == "" {
			return errors.InternalErrorf("task is missing an ID")
		}
		if _, err := uuid.Parse(task.ID); err != nil {
			return errors.InternalErrorf("task has an invalid UUID: %v", err)
		}
	}

	r.data = tasks
	return nil
}

func (r *JsonTaskRepository) save() error {
	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return errors.InternalErrorf("failed to marshal tasks: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.filePath), 0755); err != nil {
		return errors.InternalErrorf("failed to create directory: %v", err)
	}

	if err := os.WriteFile(r.filePath, data, 0644); err != nil {
		return errors.InternalErrorf("failed to write tasks.json: %v", err)
	}

	return nil
}

func (r *JsonTaskRepository) InsertTask(ctx context.Context, task *entities.Task) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.data {
		if t.Date == task.Date && t.Desc == task.Desc {
			return false, nil
		}
	}

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
		task.UpdatedAt = task.CreatedAt
	}

	r.data = append(r.data, task)
	if err := r.save(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *JsonTaskRepository) DeleteTask(ctx context.Context, query entities.TaskQuery) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, t := range r.data {
		if t.Date == query.Date && t.Desc == query.Desc {
			r.data = slices.Delete(r.data, i, i+1)
			if err := r.save(); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (r *JsonTaskRepository) UpdateTask(ctx context.Context, old, updated entities.TaskQuery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, t := range r.data {
		if t.Date != old.Date || t.Desc != old.Desc {
			continue
		}
		for j, other := range r.data {
			if j != i && other.Date == updated.Date && other.Desc == updated.Desc {
				return errors.DuplicateErrorf("task already planned for %s: %s", updated.Date, updated.Desc)
			}
		}
		t.Date = updated.Date
		t.Desc = updated.Desc
		t.UpdatedAt = time.Now()
		return r.save()
	}
	return errors.NotFoundErrorf("task not found: %s on %s", old.Desc, old.Date)
}

func (r *JsonTaskRepository) TasksForDate(ctx context.Context, date entities.Date) ([]*entities.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tasks []*entities.Task
	for _, t := range r.data {
		if t.Date == date {
			task := *t
			tasks = append(tasks, &task)
		}
	}
	slices.SortStableFunc(tasks, func(a, b *entities.Task) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if len(tasks) > listLimit {
		tasks = tasks[:listLimit]
	}
	return tasks, nil
}

func (r *JsonTaskRepository) DeleteDateTasks(ctx context.Context, date entities.Date) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	r.data = slices.DeleteFunc(r.data, func(t *entities.Task) bool {
		if t.Date == date {
			removed++
			return true
		}
		return false
	})
	if removed > 0 {
		if err := r.save(); err != nil {
			return 0, err
		}
	}
	return removed, nil
}

func (r *JsonTaskRepository) Purge(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = []*entities.Task{}
	return r.save()
}

func (r *JsonTaskRepository) Stats(ctx context.Context) (*entities.PlannerStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[entities.Date]int64)
	for _, t := range r.data {
		counts[t.Date]++
	}

	days := make([]entities.DayCount, 0, len(counts))
	for date, count := range counts {
		days = append(days, entities.DayCount{Date: date, Count: count})
	}
	slices.SortFunc(days, func(a, b entities.DayCount) int {
		if a.Date.Before(b.Date) {
			return -1
		}
		if b.Date.Before(a.Date) {
			return 1
		}
		return 0
	})

	return entities.NewPlannerStats(int64(len(r.data)), days), nil
}

var _ interfaces.TaskRepository = (*JsonTaskRepository)(nil)
