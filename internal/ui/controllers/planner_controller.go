package uicontrollers

import (
	"html/template"
	"net/http"
	"time"

	"github.com/rprigarin/test-driven-planner/internal/domain/entities"
	"github.com/rprigarin/test-driven-planner/internal/domain/errs"
	"github.com/rprigarin/test-driven-planner/internal/domain/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type PlannerController struct {
	logger  *zap.Logger
	tmpl    *template.Template
	planner services.PlannerService
}

func NewPlannerController(logger *zap.Logger, tmpl *template.Template, planner services.PlannerService) *PlannerController {
	return &PlannerController{
		logger:  logger,
		tmpl:    tmpl,
		planner: planner,
	}
}

func (c *PlannerController) RegisterRoutes(e *echo.Echo) {
	e.GET("/", c.HomeHandler)
	e.GET("/days/:date", c.DayHandler)
}

func (c *PlannerController) HomeHandler(eCtx echo.Context) error {
	today := entities.DateOf(time.Now())
	return eCtx.Redirect(http.StatusFound, "/days/"+today.String())
}

func (c *PlannerController) DayHandler(eCtx echo.Context) error {
	date, err := entities.ParseDate(eCtx.Param("date"))
	if err != nil {
		return eCtx.String(http.StatusBadRequest, "Invalid date, expected "+entities.DateLayout)
	}

	tasks, err := c.planner.TasksForDate(eCtx.Request().Context(), date)
	if err != nil {
		switch err.(type) {
		case *errors.ValidationError:
			return eCtx.String(http.StatusBadRequest, "Invalid date")
		default:
			c.logger.Error("Failed to load day tasks", zap.Error(err))
			return eCtx.String(http.StatusInternalServerError, "Failed to load tasks")
		}
	}

	data := map[string]interface{}{
		"Title": "Planner - " + date.String(),
		"Date":  date.String(),
		"Tasks": tasks,
		"Count": int64(len(tasks)),
		"Mode":  c.planner.Mode(),
	}

	return c.tmpl.ExecuteTemplate(eCtx.Response().Writer, "layout", data)
}
