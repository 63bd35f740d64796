package main

import (
	"context"
	"os"
	"time"

	"github.com/ims-platform/inventory-service/internal/domain"
	mongoRepo "github.com/ims-platform/inventory-service/internal/infrastructure/mongodb"
	"github.com/ims-platform/inventory-service/pkg/logging"
	"github.com/ims-platform/inventory-service/pkg/mongodb"
)

// Seeds the default category set and item fixtures into an empty database.
// Safe to run repeatedly: anything already present is left alone.
func main() {
	logConfig := logging.DefaultConfig("inventory-seed")
	logger := logging.New(logConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	mongoConfig := &mongodb.Config{
		URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		Database:       getEnv("MONGODB_DATABASE", "ims_db"),
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    10,
		MinPoolSize:    1,
	}

	client, err := mongodb.NewClient(ctx, mongoConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	protected := mongodb.NewCircuitBreakerClient(client, logger.Logger)
	defer protected.Close(ctx)
	logger.Info("Connected to MongoDB", "database", mongoConfig.Database)

	categoryRepo, err := mongoRepo.NewCategoryRepository(protected)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize category repository")
		os.Exit(1)
	}
	itemRepo, err := mongoRepo.NewItemRepository(protected)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize item repository")
		os.Exit(1)
	}

	if err := seedCategories(ctx, categoryRepo, logger); err != nil {
		logger.WithError(err).Error("Failed to seed categories")
		os.Exit(1)
	}
	if err := seedItems(ctx, itemRepo, logger); err != nil {
		logger.WithError(err).Error("Failed to seed items")
		os.Exit(1)
	}

	logger.Info("Seeding complete")
}

func seedCategories(ctx context.Context, repo domain.CategoryRepository, logger *logging.Logger) error {
	count, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Categories already present, skipping", "count", count)
		return nil
	}

	fixtures := []struct {
		name     string
		imageURL string
	}{
		{"Electronics", "/assets/images/categories/electronics.jpg"},
		{"Furniture", "/assets/images/categories/furniture.jpg"},
		{"Stationery", "/assets/images/categories/default.jpg"},
		{"Office Supplies", "/assets/images/categories/office-supplies.jpg"},
	}

	for _, f := range fixtures {
		category, err := domain.NewCategory(f.name, f.imageURL)
		if err != nil {
			return err
		}
		if err := repo.Save(ctx, category); err != nil {
			return err
		}
	}

	logger.Info("Categories seeded", "count", len(fixtures))
	return nil
}

func seedItems(ctx context.Context, repo domain.ItemRepository, logger *logging.Logger) error {
	existing, err := repo.FindAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info("Items already present, skipping", "count", len(existing))
		return nil
	}

	fixtures := []struct {
		name     string
		category string
		quantity int
		minStock int
		sales    int
		price    float64
		imageURL string
	}{
		{"Laptop", "Electronics", 15, 5, 45, 45000, "/assets/images/categories/electronics.jpg"},
		{"Smartphone", "Electronics", 7, 3, 23, 25000, "/assets/images/categories/electronics.jpg"},
		{"Wireless Mouse", "Electronics", 21, 8, 67, 1200, "/assets/images/categories/electronics.jpg"},
		{"Ergonomic Keyboard", "Electronics", 4, 2, 12, 2500, "/assets/images/categories/electronics.jpg"},
		{"Office Chair", "Furniture", 8, 3, 15, 7500, "/assets/images/categories/furniture.jpg"},
		{"Desk", "Furniture", 5, 2, 8, 12000, "/assets/images/categories/furniture.jpg"},
		{"Filing Cabinet", "Furniture", 12, 4, 5, 5500, "/assets/images/categories/furniture.jpg"},
		{"Bookshelf", "Furniture", 6, 2, 3, 8000, "/assets/images/categories/furniture.jpg"},
		{"Notebook", "Stationery", 50, 20, 120, 150, "/assets/images/categories/default.jpg"},
		{"Pens (Box)", "Stationery", 30, 10, 89, 120, "/assets/images/categories/default.jpg"},
		{"Sticky Notes", "Stationery", 25, 10, 56, 80, "/assets/images/categories/default.jpg"},
		{"Desk Lamp", "Office Supplies", 10, 4, 22, 850, "/assets/images/categories/office-supplies.jpg"},
		{"Scissors", "Office Supplies", 15, 5, 33, 95, "/assets/images/categories/office-supplies.jpg"},
		{"Staplers", "Office Supplies", 8, 3, 19, 175, "/assets/images/categories/office-supplies.jpg"},
	}

	for _, f := range fixtures {
		item, err := domain.NewItem(f.name, f.category, f.quantity, f.minStock, f.price)
		if err != nil {
			return err
		}
		item.ImageURL = f.imageURL
		// Fixtures carry historical sales totals from before the ledger existed
		item.Sales = f.sales
		if err := repo.Save(ctx, item); err != nil {
			return err
		}
	}

	logger.Info("Items seeded", "count", len(fixtures))
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
