package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ims-platform/inventory-service/internal/domain"
	mongoclient "github.com/ims-platform/inventory-service/pkg/mongodb"
)

const salesRecordCollection = "sales_records"

// SalesRecordRepository is the MongoDB adapter for the append-only sales
// ledger. Entries are only ever inserted, except for RemovePending which
// reverses a row whose stock commit lost the conditional-update race.
type SalesRecordRepository struct {
	collection *mongoclient.ProtectedCollection
}

// NewSalesRecordRepository creates the repository and ensures its indexes
func NewSalesRecordRepository(client *mongoclient.CircuitBreakerClient) (*SalesRecordRepository, error) {
	repo := &SalesRecordRepository{collection: client.Collection(salesRecordCollection)}
	if err := repo.ensureIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create sales record indexes: %w", err)
	}
	return repo, nil
}

func (r *SalesRecordRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Append inserts a new ledger entry
func (r *SalesRecordRepository) Append(ctx context.Context, record *domain.SalesRecord) error {
	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to append sales record: %w", err)
	}
	return nil
}

// RemovePending deletes a just-appended entry whose stock commit never
// happened. Missing rows are not an error; the compensation is idempotent.
func (r *SalesRecordRepository) RemovePending(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to remove pending sales record: %w", err)
	}
	return nil
}

// FindByItemID retrieves all entries for an item, oldest first
func (r *SalesRecordRepository) FindByItemID(ctx context.Context, itemID string) ([]*domain.SalesRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	return r.findRecords(ctx, bson.M{"itemId": itemID}, opts)
}

// FindByItemIDOrderedByTimestampDesc retrieves an item's entries newest first
func (r *SalesRecordRepository) FindByItemIDOrderedByTimestampDesc(ctx context.Context, itemID string) ([]*domain.SalesRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	return r.findRecords(ctx, bson.M{"itemId": itemID}, opts)
}

// FindByCategory retrieves all entries for a category, oldest first. The
// category matched is the one snapshotted at sale time.
func (r *SalesRecordRepository) FindByCategory(ctx context.Context, category string) ([]*domain.SalesRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	return r.findRecords(ctx, bson.M{"category": caseInsensitiveExact(category)}, opts)
}

// FindByTimeRange retrieves entries with start <= timestamp < end
func (r *SalesRecordRepository) FindByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.SalesRecord, error) {
	filter := bson.M{"timestamp": bson.M{"$gte": start, "$lt": end}}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	return r.findRecords(ctx, filter, opts)
}

// FindByItemIDAndTimeRange retrieves an item's entries within [start, end)
func (r *SalesRecordRepository) FindByItemIDAndTimeRange(ctx context.Context, itemID string, start, end time.Time) ([]*domain.SalesRecord, error) {
	filter := bson.M{
		"itemId":    itemID,
		"timestamp": bson.M{"$gte": start, "$lt": end},
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	return r.findRecords(ctx, filter, opts)
}

func (r *SalesRecordRepository) findRecords(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.SalesRecord, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find sales records: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]*domain.SalesRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode sales records: %w", err)
	}
	return records, nil
}
