package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/rprigarin/test-driven-planner/internal/domain/errs"
)

// MongoDB holds the client and database handle shared by the mongo
// repositories.
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoDB connects to the server behind uri and verifies that it
// actually answers. Server selection is capped by timeout, so an
// unreachable server fails fast instead of hanging on the driver's
// 30 second default.
//
// A URI the driver cannot parse is *errors.ValidationError. A server
// that cannot be reached within the timeout, or answers the ping with
// anything but ok=1, is *errors.UnavailableError.
func NewMongoDB(uri, dbName string, timeout time.Duration, logger *zap.Logger) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		logger.Error("Failed to create MongoDB client", zap.Error(err))
		return nil, errors.ValidationErrorf("invalid MongoDB URI: %v", err)
	}

	// Verify the connection with a ping. The deadline here is our own, so
	// a ping that runs out of time means the server is unreachable, not
	// that the caller gave up.
	result := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}})
	var pong struct {
		OK float64 `bson:"ok"`
	}
	if err := result.Decode(&pong); err != nil {
		logger.Error("Failed to ping MongoDB", zap.Error(err))
		_ = client.Disconnect(context.Background())
		return nil, errors.UnavailableErrorf("database unreachable: %v", err)
	}
	if pong.OK != 1 {
		logger.Error("MongoDB ping returned an unexpected status", zap.Float64("ok", pong.OK))
		_ = client.Disconnect(context.Background())
		return nil, errors.UnavailableErrorf("server answered ping with ok=%v", pong.OK)
	}

	logger.Info("Successfully connected to MongoDB", zap.String("database", dbName))

	return &MongoDB{
		client:   client,
		database: client.Database(dbName),
	}, nil
}

// Collection returns a handle to the named collection in the database.
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// Database returns the underlying database handle.
func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

// Disconnect closes the client connection. It should be called during
// shutdown to release resources.
func (m *MongoDB) Disconnect(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// DropDatabaseIfEmpty drops the database when no collections remain
// beyond the named ones, taking those with it. It reports whether the
// drop happened. A database shared with other collections is left alone.
func (m *MongoDB) DropDatabaseIfEmpty(ctx context.Context, own ...string) (bool, error) {
	names, err := m.database.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, Classify(ctx, err)
	}

	owned := make(map[string]bool, len(own))
	for _, name := range own {
		owned[name] = true
	}
	for _, name := range names {
		if !owned[name] {
			return false, nil
		}
	}

	if err := m.database.Drop(ctx); err != nil {
		return false, Classify(ctx, err)
	}
	return true, nil
}

// Classify converts a driver error into one of the domain error types.
// Caller cancellation is checked first: a query aborted by its own
// context says nothing about whether the store is down.
func Classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return errors.CanceledErrorf("query canceled: %v", err)
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) || err == mongo.ErrClientDisconnected {
		return errors.UnavailableErrorf("database unreachable: %v", err)
	}
	return errors.InternalErrorf("database error: %v", err)
}
