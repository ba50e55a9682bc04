package interfaces

import (
	"context"

	"github.com/rprigarin/test-driven-planner/internal/domain/entities"
)

// TaskRepository stores planner tasks keyed by their (date, task_desc)
// pair. Implementations return *errors.UnavailableError when the store
// cannot be reached, so callers can tell an unreachable store from a
// query that matched nothing.
type TaskRepository interface {
	// InsertTask stores the task unless an equal (date, task_desc) pair
	// already exists. It reports whether anything was written.
	InsertTask(ctx context.Context, task *entities.Task) (bool, error)

	// DeleteTask removes the task matching the query. It reports whether
	// anything was removed.
	DeleteTask(ctx context.Context, query entities.TaskQuery) (bool, error)

	// UpdateTask rewrites the task matching old to the updated query.
	// A missing old task is *errors.NotFoundError.
	UpdateTask(ctx context.Context, old, updated entities.TaskQuery) error

	// TasksForDate lists the tasks planned for one day, oldest first.
	TasksForDate(ctx context.Context, date entities.Date) ([]*entities.Task, error)

	// DeleteDateTasks removes every task planned for one day and returns
	// the removed count.
	DeleteDateTasks(ctx context.Context, date entities.Date) (int64, error)

	// Purge removes all stored tasks.
	Purge(ctx context.Context) error

	// Stats summarizes the stored tasks.
	Stats(ctx context.Context) (*entities.PlannerStats, error)
}
