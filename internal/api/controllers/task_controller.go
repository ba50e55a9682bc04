package apicontrollers

import (
	"net/http"
	"strconv"

	"github.com/rprigarin/test-driven-planner/internal/domain/entities"
	"github.com/rprigarin/test-driven-planner/internal/domain/errs"
	"github.com/rprigarin/test-driven-planner/internal/planner"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type TaskController struct {
	logger  *zap.Logger
	planner *planner.Access
}

func NewTaskController(logger *zap.Logger, planner *planner.Access) *TaskController {
	return &TaskController{
		logger:  logger,
		planner: planner,
	}
}

// RegisterRoutes registers all task-related routes with Echo
func (c *TaskController) RegisterRoutes(e *echo.Group) {
	e.GET("/status", c.Status)
	e.GET("/tasks/:date", c.ListDayTasks)
	e.POST("/tasks", c.CreateTask)
	e.PUT("/tasks", c.UpdateTask)
	e.DELETE("/tasks", c.DeleteTask)
	e.DELETE("/days/:date", c.ClearDay)
	e.POST("/cleanup", c.Cleanup)
	e.GET("/stats", c.Stats)
	e.GET("/changes", c.ListChanges)
}

// UpdateTaskRequest carries the stored task query and its replacement.
type UpdateTaskRequest struct {
	Old map[string]any `json:"old"`
	New map[string]any `json:"new"`
}

func queryResult(code entities.QueryCode) map[string]interface{} {
	return map[string]interface{}{
		"code":   code,
		"status": code.String(),
	}
}

// Status handles the GET request for planner health and codes
func (c *TaskController) Status(ctx echo.Context) error {
	initCode := c.planner.InitializationCode()
	lastCode := c.planner.LastQueryCode()
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"init_code":         initCode,
		"init_status":       initCode.String(),
		"mode":              c.planner.Mode(),
		"online":            c.planner.Online(),
		"last_query_code":   lastCode,
		"last_query_status": lastCode.String(),
	})
}

// ListDayTasks handles the GET request to list all tasks planned for a day
func (c *TaskController) ListDayTasks(ctx echo.Context) error {
	date, err := entities.ParseDate(ctx.Param("date"))
	if err != nil {
		return c.handleError(ctx, err.Error(), http.StatusBadRequest)
	}

	tasks, err := c.planner.TasksForDate(ctx.Request().Context(), date)
	if err != nil {
		switch err.(type) {
		case *errors.ValidationError:
			return c.handleError(ctx, err.Error(), http.StatusBadRequest)
		case *errors.UnavailableError:
			return c.handleError(ctx, err.Error(), http.StatusServiceUnavailable)
		default:
			return c.handleError(ctx, err.Error(), http.StatusInternalServerError)
		}
	}

	if tasks == nil {
		tasks = []*entities.Task{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

// CreateTask handles the POST request to plan a new task
func (c *TaskController) CreateTask(ctx echo.Context) error {
	var fields map[string]any
	if err := ctx.Bind(&fields); err != nil {
		return c.handleError(ctx, "Invalid request body", http.StatusBadRequest)
	}

	if !c.planner.ValidateTaskQuery(fields) {
		return c.handleError(ctx, "Request body must carry exactly date and task_desc as strings", http.StatusBadRequest)
	}

	query, err := entities.TaskQueryFromFields(fields)
	if err != nil {
		return c.handleError(ctx, err.Error(), http.StatusBadRequest)
	}

	code, err := c.planner.InsertTask(ctx.Request().Context(), query)
	if err != nil {
		return c.queryError(ctx, code, err)
	}

	status := http.StatusCreated
	if code == entities.QueryUnchanged {
		status = http.StatusOK
	}
	return ctx.JSON(status, queryResult(code))
}

// UpdateTask handles the PUT request to reschedule or reword a task
func (c *TaskController) UpdateTask(ctx echo.Context) error {
	var req UpdateTaskRequest
	if err := ctx.Bind(&req); err != nil {
		return c.handleError(ctx, "Invalid request body", http.StatusBadRequest)
	}

	if !c.planner.ValidateTaskQuery(req.Old) || !c.planner.ValidateTaskQuery(req.New) {
		return c.handleError(ctx, "Task queries must carry exactly date and task_desc as strings", http.StatusBadRequest)
	}

	old, err := entities.TaskQueryFromFields(req.Old)
	if err != nil {
		return c.handleError(ctx, err.Error(), http.StatusBadRequest)
	}
	updated, err := entities.TaskQueryFromFields(req.New)
	if err != nil {
		return c.handleError(ctx, err.Error(), http.StatusBadRequest)
	}

	code, err := c.planner.UpdateTask(ctx.Request().Context(), old, updated)
	if err != nil {
		return c.queryError(ctx, code, err)
	}

	return ctx.JSON(http.StatusOK, queryResult(code))
}

// DeleteTask handles the DELETE request to unplan a task
func (c *TaskController) DeleteTask(ctx echo.Context) error {
	var fields map[string]any
	if err := ctx.Bind(&fields); err != nil {
		return c.handleError(ctx, "Invalid request body", http.StatusBadRequest)
	}

	if !c.planner.ValidateTaskQuery(fields) {
		return c.handleError(ctx, "Request body must carry exactly date and task_desc as strings", http.StatusBadRequest)
	}

	query, err := entities.TaskQueryFromFields(fields)
	if err != nil {
		return c.handleError(ctx, err.Error(), http.StatusBadRequest)
	}

	code, err := c.planner.DeleteTask(ctx.Request().Context(), query)
	if err != nil {
		return c.queryError(ctx, code, err)
	}

	return ctx.JSON(http.StatusOK, queryResult(code))
}

// ClearDay handles the DELETE request to remove every task planned for a day
func (c *TaskController) ClearDay(ctx echo.Context) error {
	date, err := entities.ParseDate(ctx.Param("date"))
	if err != nil {
		return c.handleError(ctx, err.Error(), http.StatusBadRequest)
	}

	removed, err := c.planner.DeleteDateTasks(ctx.Request().Context(), date)
	if err != nil {
		code := entities.QueryFailed
		if _, ok := err.(*errors.ValidationError); ok {
			code = entities.QueryFormatCheckFailed
		}
		return c.queryError(ctx, code, err)
	}

	code := entities.QueryOK
	if removed == 0 {
		code = entities.QueryUnchanged
	}
	result := queryResult(code)
	result["removed"] = removed
	return ctx.JSON(http.StatusOK, result)
}

// Cleanup handles the POST request to wipe the task store
func (c *TaskController) Cleanup(ctx echo.Context) error {
	if err := c.planner.DeleteAllTasks(ctx.Request().Context()); err != nil {
		return c.queryError(ctx, entities.QueryFailed, err)
	}
	return ctx.JSON(http.StatusOK, queryResult(entities.QueryOK))
}

// Stats handles the GET request for planner statistics
func (c *TaskController) Stats(ctx echo.Context) error {
	stats, err := c.planner.Stats(ctx.Request().Context())
	if err != nil {
		switch err.(type) {
		case *errors.UnavailableError:
			return c.handleError(ctx, err.Error(), http.StatusServiceUnavailable)
		default:
			return c.handleError(ctx, err.Error(), http.StatusInternalServerError)
		}
	}
	return ctx.JSON(http.StatusOK, stats)
}

// ListChanges handles the GET request for recent audit records
func (c *TaskController) ListChanges(ctx echo.Context) error {
	var limit int64
	if raw := ctx.QueryParam("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.handleError(ctx, "Invalid limit", http.StatusBadRequest)
		}
		limit = parsed
	}

	changes, err := c.planner.RecentChanges(ctx.Request().Context(), limit)
	if err != nil {
		switch err.(type) {
		case *errors.UnavailableError:
			return c.handleError(ctx, err.Error(), http.StatusServiceUnavailable)
		default:
			return c.handleError(ctx, err.Error(), http.StatusInternalServerError)
		}
	}

	if changes == nil {
		changes = []*entities.ChangeRecord{}
	}
	return ctx.JSON(http.StatusOK, changes)
}

// queryError maps planner errors onto HTTP statuses alongside the query code
func (c *TaskController) queryError(ctx echo.Context, code entities.QueryCode, err error) error {
	status := http.StatusInternalServerError
	switch err.(type) {
	case *errors.ValidationError:
		status = http.StatusBadRequest
	case *errors.NotFoundError:
		status = http.StatusNotFound
	case *errors.DuplicateError:
		status = http.StatusConflict
	case *errors.UnavailableError:
		status = http.StatusServiceUnavailable
	}

	c.logger.Error("Task query failed", zap.Error(err), zap.String("status", code.String()))
	return ctx.JSON(status, map[string]interface{}{
		"error":  err.Error(),
		"code":   code,
		"status": code.String(),
	})
}

// handleError handles errors and returns them in a consistent format
func (c *TaskController) handleError(ctx echo.Context, err interface{}, statusCode int) error {
	c.logger.Error("Error occurred", zap.Any("error", err))
	return ctx.JSON(statusCode, map[string]interface{}{
		"error": err,
	})
}
