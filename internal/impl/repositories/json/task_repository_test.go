package repositories_json

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rprigarin/test-driven-planner/internal/domain/entities"
	"github.com/rprigarin/test-driven-planner/internal/domain/errs"
)

func newTestRepo(t *testing.T) (*JsonTaskRepository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := NewJSONTaskRepository(dir)
	require.NoError(t, err)
	return repo, dir
}

func TestInsertTask(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	day := entities.NewDate(2025, time.July, 25)

	created, err := repo.InsertTask(ctx, entities.NewTask(day, "my cool task"))
	require.NoError(t, err)
	assert.True(t, created)

	// Inserting the same (date, task_desc) pair again changes nothing.
	created, err = repo.InsertTask(ctx, entities.NewTask(day, "my cool task"))
	require.NoError(t, err)
	assert.False(t, created)

	tasks, err := repo.TasksForDate(ctx, day)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	created, err = repo.InsertTask(ctx, entities.NewTask(entities.NewDate(2025, time.July, 26), "my cool task"))
	require.NoError(t, err)
	assert.True(t, created)
}

func TestInsertTask_Persists(t *testing.T) {
	repo, dir := newTestRepo(t)
	ctx := context.Background()
	day := entities.NewDate(2025, time.July, 25)

	_, err := repo.InsertTask(ctx, entities.NewTask(day, "my cool task"))
	require.NoError(t, err)

	reopened, err := NewJSONTaskRepository(dir)
	require.NoError(t, err)

	tasks, err := reopened.TasksForDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "my cool task", tasks[0].Desc)
	assert.Equal(t, day, tasks[0].Date)
}

func TestDeleteTask(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	day := entities.NewDate(2025, time.July, 25)
	query := entities.TaskQuery{Date: day, Desc: "my cool task"}

	_, err := repo.InsertTask(ctx, entities.NewTask(day, "my cool task"))
	require.NoError(t, err)

	removed, err := repo.DeleteTask(ctx, query)
	require.NoError(t, err)
	assert.True(t, removed)

	// Deleting a task that is already gone changes nothing.
	removed, err = repo.DeleteTask(ctx, query)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUpdateTask(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	day := entities.NewDate(2025, time.July, 25)
	old := entities.TaskQuery{Date: day, Desc: "my cool task"}
	updated := entities.TaskQuery{Date: day, Desc: "my cooler task"}

	_, err := repo.InsertTask(ctx, entities.NewTask(day, "my cool task"))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateTask(ctx, old, updated))

	tasks, err := repo.TasksForDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "my cooler task", tasks[0].Desc)
}

func TestUpdateTask_MissingTask(t *testing.T) {
	repo, _ := newTestRepo(t)
	day := entities.NewDate(2025, time.July, 25)

	err := repo.UpdateTask(context.Background(),
		entities.TaskQuery{Date: day, Desc: "never stored"},
		entities.TaskQuery{Date: day, Desc: "still nothing"})

	var notFound *errors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestUpdateTask_Collision(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	day := entities.NewDate(2025, time.July, 25)

	_, err := repo.InsertTask(ctx, entities.NewTask(day, "first"))
	require.NoError(t, err)
	_, err = repo.InsertTask(ctx, entities.NewTask(day, "second"))
	require.NoError(t, err)

	err = repo.UpdateTask(ctx,
		entities.TaskQuery{Date: day, Desc: "first"},
		entities.TaskQuery{Date: day, Desc: "second"})

	var duplicate *errors.DuplicateError
	assert.ErrorAs(t, err, &duplicate)
}

func TestTasksForDate(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	day := entities.NewDate(2025, time.July, 25)
	other := entities.NewDate(2025, time.July, 26)

	for _, desc := range []string{"first", "second", "third"} {
		_, err := repo.InsertTask(ctx, entities.NewTask(day, desc))
		require.NoError(t, err)
	}
	_, err := repo.InsertTask(ctx, entities.NewTask(other, "elsewhere"))
	require.NoError(t, err)

	tasks, err := repo.TasksForDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "first", tasks[0].Desc)
	assert.Equal(t, "second", tasks[1].Desc)
	assert.Equal(t, "third", tasks[2].Desc)

	tasks, err = repo.TasksForDate(ctx, entities.NewDate(2030, time.January, 1))
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestDeleteDateTasks(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	day := entities.NewDate(2025, time.July, 25)
	other := entities.NewDate(2025, time.July, 26)

	_, err := repo.InsertTask(ctx, entities.NewTask(day, "first"))
	require.NoError(t, err)
	_, err = repo.InsertTask(ctx, entities.NewTask(day, "second"))
	require.NoError(t, err)
	_, err = repo.InsertTask(ctx, entities.NewTask(other, "elsewhere"))
	require.NoError(t, err)

	removed, err := repo.DeleteDateTasks(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	tasks, err := repo.TasksForDate(ctx, other)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	removed, err = repo.DeleteDateTasks(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}

func TestPurge(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.InsertTask(ctx, entities.NewTask(entities.NewDate(2025, time.July, 25), "my cool task"))
	require.NoError(t, err)

	require.NoError(t, repo.Purge(ctx))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalTasks)
}

func TestStats(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	busy := entities.NewDate(2025, time.July, 25)
	quiet := entities.NewDate(2025, time.July, 24)
	for _, desc := range []string{"first", "second", "third"} {
		_, err := repo.InsertTask(ctx, entities.NewTask(busy, desc))
		require.NoError(t, err)
	}
	_, err := repo.InsertTask(ctx, entities.NewTask(quiet, "only one"))
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalTasks)
	require.Len(t, stats.Days, 2)
	assert.Equal(t, quiet, stats.Days[0].Date)
	assert.Equal(t, int64(1), stats.Days[0].Count)
	assert.Equal(t, busy, stats.Days[1].Date)
	assert.Equal(t, int64(3), stats.Days[1].Count)
	require.NotNil(t, stats.BusiestDay)
	assert.Equal(t, busy, stats.BusiestDay.Date)
}

func TestNewJSONTaskRepository_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".planner"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".planner", "tasks.json"), []byte("not json"), 0644))

	_, err := NewJSONTaskRepository(dir)

	var internal *errors.InternalError
	assert.ErrorAs(t, err, &internal)
}

func TestNewJSONTaskRepository_MissingID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".planner"), 0755))
	contents := `[{"id": "", "date": "2025-07-25", "task_desc": "my cool task"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".planner", "tasks.json"), []byte(contents), 0644))

	_, err := NewJSONTaskRepository(dir)

	var internal *errors.InternalError
	assert.ErrorAs(t, err, &internal)
}
