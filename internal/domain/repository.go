package domain

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemRepository defines the port for item persistence. FindByID follows the
// (nil, nil) convention for absent documents; mutating methods return the
// domain sentinels for business conditions and wrapped storage errors
// otherwise.
type ItemRepository interface {
	// Save persists the item, inserting when it has no id yet. Returns
	// ErrDuplicateItemName when the unique name index rejects the write.
	Save(ctx context.Context, item *Item) error

	// FindByID retrieves an item by its hex id, (nil, nil) when absent.
	FindByID(ctx context.Context, id string) (*Item, error)

	// FindAll retrieves every item.
	FindAll(ctx context.Context) ([]*Item, error)

	// FindByCategory retrieves all items in a category.
	FindByCategory(ctx context.Context, category string) ([]*Item, error)

	// ExistsByName reports whether an item with the given name exists.
	ExistsByName(ctx context.Context, name string) (bool, error)

	// FindTopSelling retrieves items ordered by cumulative sales descending,
	// id ascending as the tiebreak.
	FindTopSelling(ctx context.Context, limit int64) ([]*Item, error)

	// FindLowStock retrieves items whose quantity is at or below their
	// threshold, using defaultThreshold for items whose minStock is unset (0).
	FindLowStock(ctx context.Context, defaultThreshold int, limit int64) ([]*Item, error)

	// ApplyStockDelta atomically adds delta to the item's quantity, guarded
	// server-side so the result can never be negative. Returns the updated
	// item, ErrItemNotFound, or ErrNegativeStock.
	ApplyStockDelta(ctx context.Context, id string, delta int) (*Item, error)

	// CommitSale atomically decrements quantity and increments sales by qty
	// in a single conditional update that only matches while quantity >= qty.
	// Returns the updated item, ErrItemNotFound, or ErrInsufficientStock.
	CommitSale(ctx context.Context, id string, qty int) (*Item, error)

	// Delete removes the item. Returns ErrItemNotFound when absent. Ledger
	// entries referencing the item are never touched.
	Delete(ctx context.Context, id string) error
}

// SalesRecordRepository defines the port for the append-only sales ledger.
// Queries return empty slices for no matches, never a not-found error.
type SalesRecordRepository interface {
	// Append inserts a new ledger entry. Entries are never updated afterwards.
	Append(ctx context.Context, record *SalesRecord) error

	// RemovePending reverses a record whose stock commit never happened: the
	// sale lost the conditional-update race and the row must not enter
	// history. It is the only delete path on the ledger.
	RemovePending(ctx context.Context, id primitive.ObjectID) error

	// FindByItemID retrieves all entries for an item, oldest first.
	FindByItemID(ctx context.Context, itemID string) ([]*SalesRecord, error)

	// FindByItemIDOrderedByTimestampDesc retrieves an item's entries newest first.
	FindByItemIDOrderedByTimestampDesc(ctx context.Context, itemID string) ([]*SalesRecord, error)

	// FindByCategory retrieves all entries for a category, oldest first.
	FindByCategory(ctx context.Context, category string) ([]*SalesRecord, error)

	// FindByTimeRange retrieves entries with start <= timestamp < end.
	FindByTimeRange(ctx context.Context, start, end time.Time) ([]*SalesRecord, error)

	// FindByItemIDAndTimeRange retrieves an item's entries within [start, end).
	FindByItemIDAndTimeRange(ctx context.Context, itemID string, start, end time.Time) ([]*SalesRecord, error)
}

// CategoryRepository defines the port for category persistence.
type CategoryRepository interface {
	// Save persists the category. Returns ErrDuplicateCategoryName when the
	// unique name index rejects the write.
	Save(ctx context.Context, category *Category) error

	// FindByID retrieves a category by its hex id, (nil, nil) when absent.
	FindByID(ctx context.Context, id string) (*Category, error)

	// FindAll retrieves every category.
	FindAll(ctx context.Context) ([]*Category, error)

	// ExistsByName reports whether a category with the given name exists.
	ExistsByName(ctx context.Context, name string) (bool, error)

	// Count returns the number of categories.
	Count(ctx context.Context) (int64, error)

	// Delete removes the category. Returns ErrCategoryNotFound when absent.
	Delete(ctx context.Context, id string) error
}
