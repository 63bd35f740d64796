package domain

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category groups items by a free-form name. Items reference categories by
// name only; no referential integrity is enforced between the two collections.
type Category struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	ImageURL string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
}

// NewCategory creates a category with a non-empty name.
func NewCategory(name, imageURL string) (*Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyCategoryName
	}
	return &Category{Name: name, ImageURL: imageURL}, nil
}
