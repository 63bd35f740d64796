package application

import "time"

// CreateItemCommand creates a new inventory item. Sales always starts at 0;
// Price 0 leaves the "unset" sentinel for the price seeding pass.
type CreateItemCommand struct {
	Name        string
	Category    string
	Description string
	Quantity    int
	MinStock    int
	Price       float64
	ImageURL    string
}

// UpdateItemCommand replaces an item's editable fields. Price 0 means
// "no change"; a nil Description keeps the stored one.
type UpdateItemCommand struct {
	ID          string
	Name        string
	Category    string
	Quantity    int
	MinStock    int
	Price       float64
	ImageURL    string
	Description *string
}

// SellItemCommand records a sale of Quantity units
type SellItemCommand struct {
	ID       string
	Quantity int
}

// AdjustQuantityCommand applies a signed stock delta (restock or manual
// correction); no ledger entry is written for this path
type AdjustQuantityCommand struct {
	ID    string
	Delta int
}

// GetItemQuery fetches a single item
type GetItemQuery struct {
	ID string
}

// SalesByPeriodQuery bounds ledger entries to [Start, End)
type SalesByPeriodQuery struct {
	Start time.Time
	End   time.Time
}

// ItemSalesByPeriodQuery bounds one item's ledger entries to [Start, End)
type ItemSalesByPeriodQuery struct {
	ItemID string
	Start  time.Time
	End    time.Time
}

// CreateCategoryCommand creates a new category
type CreateCategoryCommand struct {
	Name     string
	ImageURL string
}

// UpdateCategoryCommand renames a category or changes its image
type UpdateCategoryCommand struct {
	ID       string
	Name     string
	ImageURL string
}
