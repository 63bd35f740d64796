package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item is the aggregate root for a stocked SKU. Quantity is never negative at
// rest and Sales only ever grows; both are mutated through the repository's
// conditional updates so concurrent sells cannot jointly oversell.
type Item struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Category    string             `bson:"category" json:"category"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	MinStock    int                `bson:"minStock" json:"minStock"`
	Sales       int                `bson:"sales" json:"sales"`
	Price       float64            `bson:"price" json:"price"`
	ImageURL    string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	LastUpdated time.Time          `bson:"lastUpdated" json:"lastUpdated"`
}

// NewItem creates an item with cumulative sales initialized to zero. A price
// of 0 is the "unset" sentinel and is resolved later by the price seeding pass.
func NewItem(name, category string, quantity, minStock int, price float64) (*Item, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyItemName
	}
	if quantity < 0 || minStock < 0 {
		return nil, ErrNegativeStock
	}
	if price < 0 {
		return nil, ErrInvalidPrice
	}

	return &Item{
		Name:        name,
		Category:    category,
		Quantity:    quantity,
		MinStock:    minStock,
		Sales:       0,
		Price:       price,
		LastUpdated: time.Now().UTC(),
	}, nil
}

// InStock reports whether any units remain.
func (i *Item) InStock() bool {
	return i.Quantity > 0
}

// LowStock compares against the stored threshold literally. The reporting
// query applies its own fallback when MinStock is unset; see
// SalesService.LowStockItems.
func (i *Item) LowStock() bool {
	return i.Quantity <= i.MinStock
}

// CanFulfill reports whether a sale of qty units would leave stock
// non-negative.
func (i *Item) CanFulfill(qty int) bool {
	return qty > 0 && i.Quantity >= qty
}

// ApplyUpdate replaces the editable fields. Price 0 means "no change" and a
// nil description leaves the stored one untouched, matching the partial-update
// semantics of the public API.
func (i *Item) ApplyUpdate(name, category string, quantity, minStock int, imageURL string, price float64, description *string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyItemName
	}
	if quantity < 0 || minStock < 0 {
		return ErrNegativeStock
	}

	i.Name = name
	i.Category = category
	i.Quantity = quantity
	i.MinStock = minStock
	i.ImageURL = imageURL
	if price > 0 {
		i.Price = price
	}
	if description != nil {
		i.Description = *description
	}
	i.Touch()
	return nil
}

// Touch refreshes the modification timestamp.
func (i *Item) Touch() {
	i.LastUpdated = time.Now().UTC()
}
