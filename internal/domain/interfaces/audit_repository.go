package interfaces

import (
	"context"

	"github.com/rprigarin/test-driven-planner/internal/domain/entities"
)

// AuditRepository keeps the planner's change history.
type AuditRepository interface {
	RecordChange(ctx context.Context, change *entities.ChangeRecord) error

	// RecentChanges lists the newest changes first, at most limit of them.
	RecentChanges(ctx context.Context, limit int64) ([]*entities.ChangeRecord, error)
}
