package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ims-platform/inventory-service/internal/domain"
	mongoclient "github.com/ims-platform/inventory-service/pkg/mongodb"
)

const categoryCollection = "categories"

// CategoryRepository is the MongoDB adapter for domain.CategoryRepository
type CategoryRepository struct {
	collection *mongoclient.ProtectedCollection
}

// NewCategoryRepository creates the repository and ensures its indexes
func NewCategoryRepository(client *mongoclient.CircuitBreakerClient) (*CategoryRepository, error) {
	repo := &CategoryRepository{collection: client.Collection(categoryCollection)}
	if err := repo.ensureIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create category indexes: %w", err)
	}
	return repo, nil
}

func (r *CategoryRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Save inserts the category when it has no id yet, otherwise replaces it
func (r *CategoryRepository) Save(ctx context.Context, category *domain.Category) error {
	if category.ID.IsZero() {
		result, err := r.collection.InsertOne(ctx, category)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrDuplicateCategoryName
			}
			return fmt.Errorf("failed to insert category: %w", err)
		}
		if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
			category.ID = oid
		}
		return nil
	}

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": category.ID}, category)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateCategoryName
		}
		return fmt.Errorf("failed to replace category: %w", err)
	}
	return nil
}

// FindByID retrieves a category by hex id, (nil, nil) when absent
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	result, err := r.collection.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}

	var category domain.Category
	if err := result.Decode(&category); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode category: %w", err)
	}
	return &category, nil
}

// FindAll retrieves every category ordered by name
func (r *CategoryRepository) FindAll(ctx context.Context) ([]*domain.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find categories: %w", err)
	}
	defer cursor.Close(ctx)

	categories := make([]*domain.Category, 0)
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

// ExistsByName reports whether a category with the given name exists, matched
// case-insensitively.
func (r *CategoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"name": caseInsensitiveExact(name)})
	if err != nil {
		return false, fmt.Errorf("failed to count categories by name: %w", err)
	}
	return count > 0, nil
}

// Count returns the number of categories
func (r *CategoryRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return count, nil
}

// Delete removes the category; items referencing it are left in place
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrCategoryNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}
