package planner

import (
	"context"

	"go.uber.org/zap"

	"github.com/rprigarin/test-driven-planner/internal/domain/entities"
	"github.com/rprigarin/test-driven-planner/internal/domain/errs"
	"github.com/rprigarin/test-driven-planner/internal/domain/interfaces"
	"github.com/rprigarin/test-driven-planner/internal/domain/services"
	"github.com/rprigarin/test-driven-planner/internal/impl/config"
	"github.com/rprigarin/test-driven-planner/internal/impl/database"
	repositoriesJson "github.com/rprigarin/test-driven-planner/internal/impl/repositories/json"
	repositoriesMongo "github.com/rprigarin/test-driven-planner/internal/impl/repositories/mongo"
)

const (
	DefaultDatabase   = "planner_db"
	DefaultCollection = "planner_col"
)

// Access is the planner's storage front door. Construction never fails:
// whatever goes wrong while loading configuration or reaching the
// database is recorded in the init code, and queries are served from the
// offline store instead.
type Access struct {
	services.PlannerService

	logger    *zap.Logger
	db        *database.MongoDB
	dbName    string
	auditName string
	initCode  entities.InitCode
}

// NewAccess loads the configuration at configPath, connects to the
// database and wires the planner service on top. Empty dbName, colName
// and dataDir fall back to the defaults; an empty configPath resolves
// through PLANNER_CONFIG. The change history lives in a side collection
// named after the task collection.
func NewAccess(ctx context.Context, configPath, dbName, colName, dataDir string, logger *zap.Logger) *Access {
	if dbName == "" {
		dbName = DefaultDatabase
	}
	if colName == "" {
		colName = DefaultCollection
	}
	if dataDir == "" {
		dataDir = "."
	}

	access := &Access{
		logger:    logger,
		dbName:    dbName,
		auditName: colName + "_changes",
		initCode:  entities.InitOK,
	}
	offlineTasks, offlineAudit := offlineStores(dataDir, logger)

	cfg, err := config.Load(configPath, logger)
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		access.initCode = initCodeForError(err)
		access.PlannerService = services.NewPlannerService(nil, nil, offlineTasks, offlineAudit, logger)
		return access
	}

	db, err := database.NewMongoDB(cfg.URI, dbName, cfg.Timeout(), logger)
	if err != nil {
		logger.Error("Failed to reach the database", zap.Error(err))
		access.initCode = initCodeForError(err)
		access.PlannerService = services.NewPlannerService(nil, nil, offlineTasks, offlineAudit, logger)
		return access
	}

	taskRepo := repositoriesMongo.NewMongoTaskRepository(db.Collection(colName))
	if err := taskRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("Failed to create task indexes", zap.Error(err))
	}
	auditRepo := repositoriesMongo.NewMongoAuditRepository(db.Collection(access.auditName))

	access.db = db
	access.PlannerService = services.NewPlannerService(taskRepo, auditRepo, offlineTasks, offlineAudit, logger)
	return access
}

// NewOfflineAccess skips the database entirely and serves queries from
// the offline store alone.
func NewOfflineAccess(dataDir string, logger *zap.Logger) *Access {
	if dataDir == "" {
		dataDir = "."
	}

	offlineTasks, offlineAudit := offlineStores(dataDir, logger)
	code := entities.InitOK
	if offlineTasks == nil {
		code = entities.InitFail
	}
	return &Access{
		PlannerService: services.NewPlannerService(nil, nil, offlineTasks, offlineAudit, logger),
		logger:         logger,
		initCode:       code,
	}
}

// InitializationCode reports how the planner came up: OK when the
// database answered, otherwise the reason it did not.
func (a *Access) InitializationCode() entities.InitCode {
	return a.initCode
}

// Online reports whether queries are currently served by the database.
func (a *Access) Online() bool {
	return a.Mode() == entities.ModeOnline
}

// DeleteAllTasks purges the task store. When the purge leaves the
// database holding nothing but the planner's own change history, the
// database is dropped with it.
func (a *Access) DeleteAllTasks(ctx context.Context) error {
	if err := a.PlannerService.DeleteAllTasks(ctx); err != nil {
		return err
	}

	if a.db != nil && a.Mode() == entities.ModeOnline {
		dropped, err := a.db.DropDatabaseIfEmpty(ctx, a.auditName)
		if err != nil {
			a.logger.Warn("Failed to check the database for leftover collections", zap.Error(err))
			return nil
		}
		if dropped {
			a.logger.Info("Dropped empty planner database", zap.String("database", a.dbName))
		}
	}
	return nil
}

// Close releases the database connection, if one was established.
func (a *Access) Close(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Disconnect(ctx)
}

func offlineStores(dataDir string, logger *zap.Logger) (interfaces.TaskRepository, interfaces.AuditRepository) {
	var tasks interfaces.TaskRepository
	var audit interfaces.AuditRepository

	taskRepo, err := repositoriesJson.NewJSONTaskRepository(dataDir)
	if err != nil {
		logger.Error("Failed to open the offline task store", zap.Error(err))
	} else {
		tasks = taskRepo
	}

	auditRepo, err := repositoriesJson.NewJSONAuditRepository(dataDir)
	if err != nil {
		logger.Error("Failed to open the offline change history", zap.Error(err))
	} else {
		audit = auditRepo
	}

	return tasks, audit
}

func initCodeForError(err error) entities.InitCode {
	switch err.(type) {
	case *errors.NotFoundError:
		return entities.InitMissingConfig
	case *errors.ValidationError:
		return entities.InitBadConfig
	case *errors.UnavailableError:
		return entities.InitDatabaseUnreachable
	default:
		return entities.InitFail
	}
}
