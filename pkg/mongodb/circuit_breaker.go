package mongodb

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ims-platform/inventory-service/pkg/resilience"
)

// CircuitBreakerClient wraps Client with circuit breaker protection so a
// struggling MongoDB deployment fails fast instead of piling up requests.
type CircuitBreakerClient struct {
	client         *Client
	circuitBreaker *resilience.CircuitBreaker
	logger         *slog.Logger
}

// NewCircuitBreakerClient creates a new circuit breaker protected MongoDB client
func NewCircuitBreakerClient(client *Client, logger *slog.Logger) *CircuitBreakerClient {
	config := &resilience.CircuitBreakerConfig{
		Name:                  "mongodb",
		MaxRequests:           5,
		Interval:              resilience.DefaultInterval,
		Timeout:               resilience.DefaultTimeout,
		FailureThreshold:      resilience.DefaultFailureThreshold,
		FailureRatioThreshold: resilience.DefaultFailureRatioThreshold,
		MinRequestsToTrip:     resilience.DefaultMinRequestsToTrip,
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &CircuitBreakerClient{
		client:         client,
		circuitBreaker: resilience.NewCircuitBreaker(config, logger),
		logger:         logger,
	}
}

// Collection returns a circuit breaker protected collection
func (c *CircuitBreakerClient) Collection(name string) *ProtectedCollection {
	return &ProtectedCollection{
		collection:     c.client.Collection(name),
		circuitBreaker: c.circuitBreaker,
	}
}

// Database returns the underlying database handle
func (c *CircuitBreakerClient) Database() *mongo.Database {
	return c.client.Database()
}

// Close disconnects the client
func (c *CircuitBreakerClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HealthCheck performs a health check with circuit breaker protection
func (c *CircuitBreakerClient) HealthCheck(ctx context.Context) error {
	_, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return nil, c.client.HealthCheck(ctx)
	})
	return err
}

// ProtectedCollection wraps a mongo.Collection with circuit breaker
// protection. Unlike the raw driver, single-document reads return an explicit
// error so an open breaker is distinguishable from a decode failure;
// mongo.ErrNoDocuments is not counted as a breaker failure.
type ProtectedCollection struct {
	collection     *mongo.Collection
	circuitBreaker *resilience.CircuitBreaker
}

// FindOne finds a single document
func (c *ProtectedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*mongo.SingleResult, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		res := c.collection.FindOne(ctx, filter, opts...)
		if err := res.Err(); err != nil && err != mongo.ErrNoDocuments {
			return res, err
		}
		return res, nil
	})
	if err != nil {
		if res, ok := result.(*mongo.SingleResult); ok {
			return res, err
		}
		return nil, err
	}
	return result.(*mongo.SingleResult), nil
}

// FindOneAndUpdate finds and updates a single document atomically
func (c *ProtectedCollection) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) (*mongo.SingleResult, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		res := c.collection.FindOneAndUpdate(ctx, filter, update, opts...)
		if err := res.Err(); err != nil && err != mongo.ErrNoDocuments {
			return res, err
		}
		return res, nil
	})
	if err != nil {
		if res, ok := result.(*mongo.SingleResult); ok {
			return res, err
		}
		return nil, err
	}
	return result.(*mongo.SingleResult), nil
}

// Find finds multiple documents
func (c *ProtectedCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.Find(ctx, filter, opts...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*mongo.Cursor), nil
}

// InsertOne inserts a single document
func (c *ProtectedCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.InsertOne(ctx, document, opts...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*mongo.InsertOneResult), nil
}

// UpdateOne updates a single document
func (c *ProtectedCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.UpdateOne(ctx, filter, update, opts...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*mongo.UpdateResult), nil
}

// ReplaceOne replaces a single document
func (c *ProtectedCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.ReplaceOne(ctx, filter, replacement, opts...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*mongo.UpdateResult), nil
}

// DeleteOne deletes a single document
func (c *ProtectedCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.DeleteOne(ctx, filter, opts...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*mongo.DeleteResult), nil
}

// CountDocuments counts documents matching the filter
func (c *ProtectedCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.CountDocuments(ctx, filter, opts...)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// Indexes returns the raw index view; index creation at startup is not
// routed through the breaker.
func (c *ProtectedCollection) Indexes() mongo.IndexView {
	return c.collection.Indexes()
}
