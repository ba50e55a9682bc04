package repositories_mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rprigarin/test-driven-planner/internal/domain/entities"
	"github.com/rprigarin/test-driven-planner/internal/domain/errs"
	"github.com/rprigarin/test-driven-planner/internal/domain/interfaces"
	"github.com/rprigarin/test-driven-planner/internal/impl/database"
)

const defaultRecentLimit = 50

// MongoAuditRepository keeps change records in a side collection next to
// the tasks. Records are immutable, so it only inserts and lists.
type MongoAuditRepository struct {
	collection *mongo.Collection
}

func NewMongoAuditRepository(collection *mongo.Collection) *MongoAuditRepository {
	return &MongoAuditRepository{
		collection: collection,
	}
}

func (r *MongoAuditRepository) RecordChange(ctx context.Context, change *entities.ChangeRecord) error {
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, change); err != nil {
		return database.Classify(ctx, err)
	}

	return nil
}

func (r *MongoAuditRepository) RecentChanges(ctx context.Context, limit int64) ([]*entities.ChangeRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, database.Classify(ctx, err)
	}
	defer cursor.Close(ctx)

	var changes []*entities.ChangeRecord
	for cursor.Next(ctx) {
		var change entities.ChangeRecord
		if err := cursor.Decode(&change); err != nil {
			return nil, errors.InternalErrorf("failed to decode change record: %v", err)
		}
		changes = append(changes, &change)
	}

	if err := cursor.Err(); err != nil {
		return nil, database.Classify(ctx, err)
	}

	return changes, nil
}

var _ interfaces.AuditRepository = (*MongoAuditRepository)(nil)
