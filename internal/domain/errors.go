package domain

import "errors"

// Inventory domain errors. The application layer maps these to the public
// error taxonomy; repositories return them verbatim so callers can branch on
// the business condition without inspecting storage errors.
var (
	// ErrItemNotFound is returned when the referenced item does not exist
	ErrItemNotFound = errors.New("item not found")

	// ErrCategoryNotFound is returned when the referenced category does not exist
	ErrCategoryNotFound = errors.New("category not found")

	// ErrEmptyItemName is returned when an item name is blank
	ErrEmptyItemName = errors.New("item name is required")

	// ErrEmptyCategoryName is returned when a category name is blank
	ErrEmptyCategoryName = errors.New("category name is required")

	// ErrInvalidQuantity is returned when a sale quantity is not a positive integer
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrInvalidPrice is returned when a price is negative
	ErrInvalidPrice = errors.New("price cannot be negative")

	// ErrNegativeStock is returned when an adjustment would drive quantity below zero
	ErrNegativeStock = errors.New("stock cannot go below zero")

	// ErrInsufficientStock is returned when a sale exceeds the available quantity
	ErrInsufficientStock = errors.New("not enough stock available")

	// ErrDuplicateItemName is returned when an item with the same name already exists
	ErrDuplicateItemName = errors.New("item with this name already exists")

	// ErrDuplicateCategoryName is returned when a category with the same name already exists
	ErrDuplicateCategoryName = errors.New("category with this name already exists")
)
