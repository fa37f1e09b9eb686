package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// Collection names used by the repositories.
const (
	collStores       = "stores"
	collUsers        = "users"
	collProducts     = "products"
	collProductLots  = "product_lots"
	collServiceTypes = "service_types"
	collUsages       = "usages"
	collMonthlyStats = "monthly_service_stats"
	collActivities   = "activities"
)

// TxRunner executes a callback inside one atomic transaction. The context
// passed to fn must be used for every operation that should join the
// transaction.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Client wraps the MongoDB connection shared by all repositories.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Connect establishes and verifies the MongoDB connection.
func Connect(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Client{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}, nil
}

// Database exposes the underlying handle for repositories.
func (c *Client) Database() *mongo.Database {
	return c.db
}

// WithTransaction runs fn inside one session transaction with snapshot reads
// and majority writes. Multi-document transactions require a replica set.
func (c *Client) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := c.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txOpts)
	return err
}

// EnsureIndexes creates the indexes the repositories rely on, including the
// unique constraints backing the Conflict error cases.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{collStores, []mongo.IndexModel{
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{collUsers, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "store_id", Value: 1}}},
		}},
		{collProducts, []mongo.IndexModel{
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "name", Value: 1}}},
		}},
		{collProductLots, []mongo.IndexModel{
			{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "is_in_use", Value: 1}, {Key: "started_at", Value: 1}}},
		}},
		{collServiceTypes, []mongo.IndexModel{
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{collUsages, []mongo.IndexModel{
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "used_at", Value: -1}}},
			{Keys: bson.D{{Key: "service_type_id", Value: 1}}},
		}},
		{collMonthlyStats, []mongo.IndexModel{
			{Keys: bson.D{{Key: "service_type_id", Value: 1}, {Key: "year", Value: 1}, {Key: "month", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{collActivities, []mongo.IndexModel{
			{Keys: bson.D{{Key: "store_id", Value: 1}, {Key: "at", Value: -1}}},
		}},
	}

	for _, spec := range specs {
		if _, err := c.db.Collection(spec.coll).Indexes().CreateMany(ctx, spec.models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", spec.coll, err)
		}
	}

	c.logger.Debug("indexes ensured")
	return nil
}

// Close closes the MongoDB connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
