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

// listLimit caps how many tasks a single day query returns.
const listLimit = 1000

type MongoTaskRepository struct {
	collection *mongo.Collection
}

func NewMongoTaskRepository(collection *mongo.Collection) *MongoTaskRepository {
	return &MongoTaskRepository{
		collection: collection,
	}
}

// EnsureIndexes creates the unique (date, task_desc) index that backs
// insert idempotency, plus the per-date listing index.
func (r *MongoTaskRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "date", Value: 1}, {Key: "task_desc", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "date", Value: 1}},
		},
	})
	if err != nil {
		return database.Classify(ctx, err)
	}
	return nil
}

func (r *MongoTaskRepository) InsertTask(ctx context.Context, task *entities.Task) (bool, error) {
	filter := bson.M{"date": task.Date, "task_desc": task.Desc}
	update := bson.M{"$setOnInsert": task}

	result, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// A concurrent upsert of the same pair trips the unique index.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, database.Classify(ctx, err)
	}

	return result.UpsertedCount > 0, nil
}

func (r *MongoTaskRepository) DeleteTask(ctx context.Context, query entities.TaskQuery) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"date": query.Date, "task_desc": query.Desc})
	if err != nil {
		return false, database.Classify(ctx, err)
	}

	return result.DeletedCount > 0, nil
}

func (r *MongoTaskRepository) UpdateTask(ctx context.Context, old, updated entities.TaskQuery) error {
	filter := bson.M{"date": old.Date, "task_desc": old.Desc}
	update := bson.M{"$set": bson.M{
		"date":       updated.Date,
		"task_desc":  updated.Desc,
		"updated_at": time.Now(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.DuplicateErrorf("task already planned for %s: %s", updated.Date, updated.Desc)
		}
		return database.Classify(ctx, err)
	}
	if result.MatchedCount == 0 {
		return errors.NotFoundErrorf("task not found: %s on %s", old.Desc, old.Date)
	}

	return nil
}

func (r *MongoTaskRepository) TasksForDate(ctx context.Context, date entities.Date) ([]*entities.Task, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(listLimit)

	cursor, err := r.collection.Find(ctx, bson.M{"date": date}, findOptions)
	if err != nil {
		return nil, database.Classify(ctx, err)
	}
	defer cursor.Close(ctx)

	var tasks []*entities.Task
	for cursor.Next(ctx) {
		var task entities.Task
		if err := cursor.Decode(&task); err != nil {
			return nil, errors.InternalErrorf("failed to decode task: %v", err)
		}
		tasks = append(tasks, &task)
	}

	if err := cursor.Err(); err != nil {
		return nil, database.Classify(ctx, err)
	}

	return tasks, nil
}

func (r *MongoTaskRepository) DeleteDateTasks(ctx context.Context, date entities.Date) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"date": date})
	if err != nil {
		return 0, database.Classify(ctx, err)
	}

	return result.DeletedCount, nil
}

// Purge drops the whole task collection. It refuses when the collection
// holds documents without the planner's two fields, which means someone
// else's data lives there.
func (r *MongoTaskRepository) Purge(ctx context.Context) error {
	foreign, err := r.collection.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"date": bson.M{"$exists": false}},
		bson.M{"task_desc": bson.M{"$exists": false}},
	}})
	if err != nil {
		return database.Classify(ctx, err)
	}
	if foreign > 0 {
		return errors.ValidationErrorf("refusing to drop collection %s: %d documents are not planner tasks", r.collection.Name(), foreign)
	}

	if err := r.collection.Drop(ctx); err != nil {
		return database.Classify(ctx, err)
	}

	return nil
}

func (r *MongoTaskRepository) Stats(ctx context.Context) (*entities.PlannerStats, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, database.Classify(ctx, err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$date", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, database.Classify(ctx, err)
	}
	defer cursor.Close(ctx)

	var days []entities.DayCount
	for cursor.Next(ctx) {
		var day entities.DayCount
		if err := cursor.Decode(&day); err != nil {
			return nil, errors.InternalErrorf("failed to decode day count: %v", err)
		}
		days = append(days, day)
	}

	if err := cursor.Err(); err != nil {
		return nil, database.Classify(ctx, err)
	}

	return entities.NewPlannerStats(total, days), nil
}

var _ interfaces.TaskRepository = (*MongoTaskRepository)(nil)
