package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ims-platform/inventory-service/internal/domain"
	mongoclient "github.com/ims-platform/inventory-service/pkg/mongodb"
)

const itemCollection = "items"

// ItemRepository is the MongoDB adapter for domain.ItemRepository. Stock
// mutation goes through conditional FindOneAndUpdate calls so two concurrent
// sells can never jointly drive quantity negative.
type ItemRepository struct {
	collection *mongoclient.ProtectedCollection
}

// NewItemRepository creates the repository and ensures its indexes
func NewItemRepository(client *mongoclient.CircuitBreakerClient) (*ItemRepository, error) {
	repo := &ItemRepository{collection: client.Collection(itemCollection)}
	if err := repo.ensureIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create item indexes: %w", err)
	}
	return repo, nil
}

func (r *ItemRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "sales", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "quantity", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Save inserts the item when it has no id yet, otherwise replaces the whole
// document. The unique name index surfaces as ErrDuplicateItemName.
func (r *ItemRepository) Save(ctx context.Context, item *domain.Item) error {
	if item.ID.IsZero() {
		result, err := r.collection.InsertOne(ctx, item)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrDuplicateItemName
			}
			return fmt.Errorf("failed to insert item: %w", err)
		}
		if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
			item.ID = oid
		}
		return nil
	}

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": item.ID}, item)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateItemName
		}
		return fmt.Errorf("failed to replace item: %w", err)
	}
	return nil
}

// FindByID retrieves an item by hex id, (nil, nil) when absent or the id is
// not a valid ObjectID.
func (r *ItemRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	result, err := r.collection.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, fmt.Errorf("failed to find item: %w", err)
	}

	var item domain.Item
	if err := result.Decode(&item); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return &item, nil
}

// FindAll retrieves every item ordered by name
func (r *ItemRepository) FindAll(ctx context.Context) ([]*domain.Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return r.findItems(ctx, bson.M{}, opts)
}

// FindByCategory retrieves all items in a category, matched case-insensitively
func (r *ItemRepository) FindByCategory(ctx context.Context, category string) ([]*domain.Item, error) {
	filter := bson.M{"category": caseInsensitiveExact(category)}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return r.findItems(ctx, filter, opts)
}

// ExistsByName reports whether an item with the given name exists, matched
// case-insensitively so the unique index cannot be dodged by casing.
func (r *ItemRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"name": caseInsensitiveExact(name)})
	if err != nil {
		return false, fmt.Errorf("failed to count items by name: %w", err)
	}
	return count > 0, nil
}

// FindTopSelling retrieves items by cumulative sales descending, id ascending
// as the stable tiebreak.
func (r *ItemRepository) FindTopSelling(ctx context.Context, limit int64) ([]*domain.Item, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "sales", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)
	return r.findItems(ctx, bson.M{}, opts)
}

// FindLowStock retrieves items whose quantity is at or below their effective
// threshold: minStock when set, defaultThreshold otherwise. Evaluated
// server-side with $expr so the fallback never gets persisted.
func (r *ItemRepository) FindLowStock(ctx context.Context, defaultThreshold int, limit int64) ([]*domain.Item, error) {
	filter := bson.M{
		"$expr": bson.M{
			"$lte": bson.A{
				"$quantity",
				bson.M{"$cond": bson.A{
					bson.M{"$gt": bson.A{"$minStock", 0}},
					"$minStock",
					defaultThreshold,
				}},
			},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "quantity", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)
	return r.findItems(ctx, filter, opts)
}

// ApplyStockDelta atomically adds delta to quantity. Negative deltas are
// guarded by a server-side floor so the result can never go below zero.
func (r *ItemRepository) ApplyStockDelta(ctx context.Context, id string, delta int) (*domain.Item, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrItemNotFound
	}

	filter := bson.M{"_id": oid}
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"lastUpdated": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	result, err := r.collection.FindOneAndUpdate(ctx, filter, update, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	var item domain.Item
	if err := result.Decode(&item); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, r.classifyMiss(ctx, oid, domain.ErrNegativeStock)
		}
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return &item, nil
}

// CommitSale atomically moves qty units from quantity to sales in a single
// conditional update that matches only while quantity >= qty.
func (r *ItemRepository) CommitSale(ctx context.Context, id string, qty int) (*domain.Item, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrItemNotFound
	}

	filter := bson.M{"_id": oid, "quantity": bson.M{"$gte": qty}}
	update := bson.M{
		"$inc": bson.M{"quantity": -qty, "sales": qty},
		"$set": bson.M{"lastUpdated": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	result, err := r.collection.FindOneAndUpdate(ctx, filter, update, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}

	var item domain.Item
	if err := result.Decode(&item); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, r.classifyMiss(ctx, oid, domain.ErrInsufficientStock)
		}
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return &item, nil
}

// Delete removes the item; the sales ledger is left untouched
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrItemNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *ItemRepository) findItems(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Item, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find items: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]*domain.Item, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return items, nil
}

// classifyMiss disambiguates a conditional-update miss: the document is either
// gone or present but failing the stock condition.
func (r *ItemRepository) classifyMiss(ctx context.Context, oid primitive.ObjectID, conditionErr error) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to check item existence: %w", err)
	}
	if count == 0 {
		return domain.ErrItemNotFound
	}
	return conditionErr
}

func caseInsensitiveExact(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}
