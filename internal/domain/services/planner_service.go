package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/rprigarin/test-driven-planner/internal/domain/entities"
	"github.com/rprigarin/test-driven-planner/internal/domain/errs"
	"github.com/rprigarin/test-driven-planner/internal/domain/events"
	"github.com/rprigarin/test-driven-planner/internal/domain/interfaces"
)

type PlannerService interface {
	InsertTask(ctx context.Context, query entities.TaskQuery) (entities.QueryCode, error)
	DeleteTask(ctx context.Context, query entities.TaskQuery) (entities.QueryCode, error)
	UpdateTask(ctx context.Context, old, updated entities.TaskQuery) (entities.QueryCode, error)
	TasksForDate(ctx context.Context, date entities.Date) ([]*entities.Task, error)
	DeleteDateTasks(ctx context.Context, date entities.Date) (int64, error)
	DeleteAllTasks(ctx context.Context) error
	Stats(ctx context.Context) (*entities.PlannerStats, error)
	RecentChanges(ctx context.Context, limit int64) ([]*entities.ChangeRecord, error)
	ValidateTaskQuery(fields map[string]any) bool
	LastQueryCode() entities.QueryCode
	Mode() entities.StorageMode
}

// plannerService runs every query against the active task store. When the
// database proves unreachable mid-query, it swaps in the offline store,
// replays the query there once, and stays offline from then on.
type plannerService struct {
	logger *zap.Logger

	mu           sync.RWMutex
	mode         entities.StorageMode
	tasks        interfaces.TaskRepository
	audit        interfaces.AuditRepository
	offlineTasks interfaces.TaskRepository
	offlineAudit interfaces.AuditRepository
	lastCode     entities.QueryCode
}

// NewPlannerService builds the service around a primary store and an
// offline fallback. A nil primary starts the service directly in offline
// mode; a nil fallback disables failover.
func NewPlannerService(tasks interfaces.TaskRepository, audit interfaces.AuditRepository, offlineTasks interfaces.TaskRepository, offlineAudit interfaces.AuditRepository, logger *zap.Logger) *plannerService {
	mode := entities.ModeOnline
	if tasks == nil {
		tasks = offlineTasks
		audit = offlineAudit
		mode = entities.ModeOffline
	}
	return &plannerService{
		logger:       logger,
		mode:         mode,
		tasks:        tasks,
		audit:        audit,
		offlineTasks: offlineTasks,
		offlineAudit: offlineAudit,
	}
}

func (s *plannerService) InsertTask(ctx context.Context, query entities.TaskQuery) (entities.QueryCode, error) {
	if !query.Valid() {
		return s.setCode(entities.QueryFormatCheckFailed),
			errors.ValidationErrorf("task query failed the format check: date=%s task_desc=%q", query.Date, query.Desc)
	}

	task := query.Task()
	var created bool
	err := s.run(func(repo interfaces.TaskRepository) error {
		var repoErr error
		created, repoErr = repo.InsertTask(ctx, task)
		return repoErr
	})
	if err != nil {
		s.logger.Error("Failed to insert task", zap.Error(err), zap.String("date", query.Date.String()))
		return s.setCode(entities.QueryFailed), err
	}
	if !created {
		s.logger.Info("Task already planned, nothing to insert",
			zap.String("date", query.Date.String()),
			zap.String("task_desc", query.Desc))
		return s.setCode(entities.QueryUnchanged), nil
	}

	s.recordChange(ctx, entities.NewChangeRecord(entities.ChangeInsert, query.Date, query.Desc))
	return s.setCode(entities.QueryOK), nil
}

func (s *plannerService) DeleteTask(ctx context.Context, query entities.TaskQuery) (entities.QueryCode, error) {
	if !query.Valid() {
		return s.setCode(entities.QueryFormatCheckFailed),
			errors.ValidationErrorf("task query failed the format check: date=%s task_desc=%q", query.Date, query.Desc)
	}

	var removed bool
	err := s.run(func(repo interfaces.TaskRepository) error {
		var repoErr error
		removed, repoErr = repo.DeleteTask(ctx, query)
		return repoErr
	})
	if err != nil {
		s.logger.Error("Failed to delete task", zap.Error(err), zap.String("date", query.Date.String()))
		return s.setCode(entities.QueryFailed), err
	}
	if !removed {
		s.logger.Info("No such task, nothing to delete",
			zap.String("date", query.Date.String()),
			zap.String("task_desc", query.Desc))
		return s.setCode(entities.QueryUnchanged), nil
	}

	s.recordChange(ctx, entities.NewChangeRecord(entities.ChangeDelete, query.Date, query.Desc))
	return s.setCode(entities.QueryOK), nil
}

func (s *plannerService) UpdateTask(ctx context.Context, old, updated entities.TaskQuery) (entities.QueryCode, error) {
	if !old.Valid() || !updated.Valid() {
		return s.setCode(entities.QueryFormatCheckFailed),
			errors.ValidationErrorf("task query failed the format check")
	}

	err := s.run(func(repo interfaces.TaskRepository) error {
		return repo.UpdateTask(ctx, old, updated)
	})
	if err != nil {
		switch err.(type) {
		case *errors.NotFoundError, *errors.DuplicateError:
			s.logger.Info("Update rejected", zap.Error(err))
			return s.setCode(entities.QueryUpdateFailed), err
		default:
			s.logger.Error("Failed to update task", zap.Error(err))
			return s.setCode(entities.QueryFailed), err
		}
	}

	change := entities.NewChangeRecord(entities.ChangeUpdate, old.Date, old.Desc)
	newDate := updated.Date
	change.NewDate = &newDate
	change.NewDesc = updated.Desc
	change.Diff = queryDiff(old, updated)
	s.recordChange(ctx, change)
	return s.setCode(entities.QueryOK), nil
}

func (s *plannerService) TasksForDate(ctx context.Context, date entities.Date) ([]*entities.Task, error) {
	if !date.Valid() {
		return nil, errors.ValidationErrorf("invalid date: %s", date)
	}

	var tasks []*entities.Task
	err := s.run(func(repo interfaces.TaskRepository) error {
		var repoErr error
		tasks, repoErr = repo.TasksForDate(ctx, date)
		return repoErr
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *plannerService) DeleteDateTasks(ctx context.Context, date entities.Date) (int64, error) {
	if !date.Valid() {
		s.setCode(entities.QueryFormatCheckFailed)
		return 0, errors.ValidationErrorf("invalid date: %s", date)
	}

	var removed int64
	err := s.run(func(repo interfaces.TaskRepository) error {
		var repoErr error
		removed, repoErr = repo.DeleteDateTasks(ctx, date)
		return repoErr
	})
	if err != nil {
		s.logger.Error("Failed to clear day", zap.Error(err), zap.String("date", date.String()))
		s.setCode(entities.QueryFailed)
		return 0, err
	}
	if removed == 0 {
		s.setCode(entities.QueryUnchanged)
		return 0, nil
	}

	change := entities.NewChangeRecord(entities.ChangeClearDay, date, "")
	change.Removed = removed
	s.recordChange(ctx, change)
	s.setCode(entities.QueryOK)
	return removed, nil
}

func (s *plannerService) DeleteAllTasks(ctx context.Context) error {
	err := s.run(func(repo interfaces.TaskRepository) error {
		return repo.Purge(ctx)
	})
	if err != nil {
		s.logger.Error("Failed to purge tasks", zap.Error(err))
		s.setCode(entities.QueryFailed)
		return err
	}

	s.logger.Info("Purged all tasks")
	s.setCode(entities.QueryOK)
	return nil
}

func (s *plannerService) Stats(ctx context.Context) (*entities.PlannerStats, error) {
	var stats *entities.PlannerStats
	err := s.run(func(repo interfaces.TaskRepository) error {
		var repoErr error
		stats, repoErr = repo.Stats(ctx)
		return repoErr
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *plannerService) RecentChanges(ctx context.Context, limit int64) ([]*entities.ChangeRecord, error) {
	_, audit, _ := s.stores()
	if audit == nil {
		return nil, nil
	}
	return audit.RecentChanges(ctx, limit)
}

// ValidateTaskQuery checks the wire shape of a task query without
// touching storage.
func (s *plannerService) ValidateTaskQuery(fields map[string]any) bool {
	return entities.ValidateTaskQueryFields(fields)
}

// LastQueryCode returns the outcome of the most recent mutating query.
func (s *plannerService) LastQueryCode() entities.QueryCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCode
}

func (s *plannerService) Mode() entities.StorageMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// run executes op against the active task store. When the store reports
// itself unreachable and an offline fallback exists, it switches over and
// replays op there once.
func (s *plannerService) run(op func(repo interfaces.TaskRepository) error) error {
	repo, _, _ := s.stores()
	if repo == nil {
		return errors.UnavailableErrorf("no task store available")
	}
	err := op(repo)
	if isUnavailable(err) && s.failover(err) {
		repo, _, _ = s.stores()
		err = op(repo)
	}
	return err
}

func (s *plannerService) stores() (interfaces.TaskRepository, interfaces.AuditRepository, entities.StorageMode) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks, s.audit, s.mode
}

// failover switches to the offline store. The switch is one way: once
// offline, the service stays offline until restarted.
func (s *plannerService) failover(reason error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == entities.ModeOffline || s.offlineTasks == nil {
		return false
	}

	s.logger.Warn("Database unreachable, switching to offline storage", zap.Error(reason))
	s.tasks = s.offlineTasks
	s.audit = s.offlineAudit
	s.mode = entities.ModeOffline
	events.PublishModeChange(entities.ModeOffline, reason.Error())
	return true
}

// recordChange appends to the change history and notifies subscribers.
// History failures are logged, not returned: the task mutation already
// happened and stands on its own.
func (s *plannerService) recordChange(ctx context.Context, change *entities.ChangeRecord) {
	_, audit, _ := s.stores()
	if audit != nil {
		if err := audit.RecordChange(ctx, change); err != nil {
			s.logger.Warn("Failed to record change", zap.Error(err), zap.String("op", string(change.Op)))
		}
	}
	events.PublishTaskChange(change)
}

func (s *plannerService) setCode(code entities.QueryCode) entities.QueryCode {
	s.mu.Lock()
	s.lastCode = code
	s.mu.Unlock()
	return code
}

func isUnavailable(err error) bool {
	_, ok := err.(*errors.UnavailableError)
	return ok
}

func queryDiff(old, updated entities.TaskQuery) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(fmt.Sprintf("%s %s", old.Date, old.Desc)),
		B:        difflib.SplitLines(fmt.Sprintf("%s %s", updated.Date, updated.Desc)),
		FromFile: "old",
		ToFile:   "updated",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return diff
}

// verify interface implementation
var _ PlannerService = &plannerService{}
