package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SalesRecord is a single immutable entry in the sales ledger. ItemName,
// Category and UnitPrice snapshot the item at the moment of sale and are never
// rewritten, even if the item is later renamed, repriced or deleted.
type SalesRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ItemID     string             `bson:"itemId" json:"itemId"`
	ItemName   string             `bson:"itemName" json:"itemName"`
	Category   string             `bson:"category" json:"category"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	UnitPrice  float64            `bson:"unitPrice" json:"unitPrice"`
	TotalPrice float64            `bson:"totalPrice" json:"totalPrice"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}

// NewSalesRecord snapshots the pre-decrement item state for a sale of qty
// units. TotalPrice is computed once here and stored. The record id is
// assigned eagerly so a sale that loses the stock race can name the pending
// row it needs to reverse.
func NewSalesRecord(item *Item, qty int) (*SalesRecord, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	return &SalesRecord{
		ID:         primitive.NewObjectID(),
		ItemID:     item.ID.Hex(),
		ItemName:   item.Name,
		Category:   item.Category,
		Quantity:   qty,
		UnitPrice:  item.Price,
		TotalPrice: item.Price * float64(qty),
		Timestamp:  time.Now().UTC(),
	}, nil
}
