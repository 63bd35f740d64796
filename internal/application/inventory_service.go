package application

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/ims-platform/inventory-service/internal/domain"
	apperrors "github.com/ims-platform/inventory-service/pkg/errors"
	"github.com/ims-platform/inventory-service/pkg/logging"
	"github.com/ims-platform/inventory-service/pkg/metrics"
)

// SaleEventPublisher publishes inventory events to the message broker. Both
// methods are best-effort from the caller's point of view: a failed publish
// never fails the sale.
type SaleEventPublisher interface {
	PublishSaleRecorded(ctx context.Context, record *domain.SalesRecord, remainingStock int) error
	PublishStockLow(ctx context.Context, item *domain.Item) error
}

// lowStockAlertThreshold is the fallback applied when an item has no explicit
// minStock configured.
const lowStockAlertThreshold = 5

// defaultItemPrices drives the price seeding pass for items created before
// prices were tracked (price still 0). Keyed by exact item name.
var defaultItemPrices = map[string]float64{
	"Laptop":             45000,
	"Smartphone":         25000,
	"Wireless Mouse":     1200,
	"Ergonomic Keyboard": 2500,
	"Office Chair":       7500,
	"Desk":               12000,
	"Filing Cabinet":     5500,
	"Bookshelf":          8000,
	"Notebook":           150,
	"Pens (Box)":         120,
	"Sticky Notes":       80,
	"Desk Lamp":          850,
	"Scissors":           95,
	"Staplers":           175,
}

// defaultCategoryPrices is the per-category fallback when an item name has no
// entry in defaultItemPrices.
var defaultCategoryPrices = map[string]float64{
	"electronics":     15000,
	"furniture":       7500,
	"stationery":      150,
	"office supplies": 350,
}

// fallbackPrice is used when neither the item name nor its category matches.
const fallbackPrice = 500

// InventoryService handles item lifecycle and the sell transaction. The sell
// path appends the ledger entry first and then commits stock through a single
// conditional update, so the ledger can briefly lead the stock but stock can
// never oversell.
type InventoryService struct {
	items     domain.ItemRepository
	sales     domain.SalesRecordRepository
	publisher SaleEventPublisher
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// NewInventoryService creates a new InventoryService. publisher and m may be
// nil; event publication and metrics are then skipped.
func NewInventoryService(
	items domain.ItemRepository,
	sales domain.SalesRecordRepository,
	publisher SaleEventPublisher,
	m *metrics.Metrics,
	logger *logging.Logger,
) *InventoryService {
	return &InventoryService{
		items:     items,
		sales:     sales,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// CreateItem creates a new inventory item with zero cumulative sales
func (s *InventoryService) CreateItem(ctx context.Context, cmd CreateItemCommand) (*ItemDTO, error) {
	exists, err := s.items.ExistsByName(ctx, cmd.Name)
	if err != nil {
		s.logger.Error("Failed to check item name", "name", cmd.Name, "error", err)
		return nil, apperrors.ErrStorageUnavailable("item lookup").Wrap(err)
	}
	if exists {
		return nil, apperrors.ErrConflict("item with this name already exists").WithDetail("name", cmd.Name)
	}

	item, err := domain.NewItem(cmd.Name, cmd.Category, cmd.Quantity, cmd.MinStock, cmd.Price)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error()).Wrap(err)
	}
	item.Description = cmd.Description
	item.ImageURL = cmd.ImageURL

	if err := s.items.Save(ctx, item); err != nil {
		if errors.Is(err, domain.ErrDuplicateItemName) {
			return nil, apperrors.ErrConflict(err.Error()).WithDetail("name", cmd.Name)
		}
		s.logger.Error("Failed to create item", "name", cmd.Name, "error", err)
		return nil, apperrors.ErrStorageUnavailable("item create").Wrap(err)
	}

	s.logger.Info("Created inventory item", "itemId", item.ID.Hex(), "name", item.Name)
	return toItemDTO(item), nil
}

// GetItem retrieves a single item
func (s *InventoryService) GetItem(ctx context.Context, query GetItemQuery) (*ItemDTO, error) {
	item, err := s.findItem(ctx, query.ID)
	if err != nil {
		return nil, err
	}
	return toItemDTO(item), nil
}

// ListItems retrieves every item
func (s *InventoryService) ListItems(ctx context.Context) ([]*ItemDTO, error) {
	items, err := s.items.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list items", "error", err)
		return nil, apperrors.ErrStorageUnavailable("item list").Wrap(err)
	}
	return toItemDTOs(items), nil
}

// ListByCategory retrieves all items in a category
func (s *InventoryService) ListByCategory(ctx context.Context, category string) ([]*ItemDTO, error) {
	items, err := s.items.FindByCategory(ctx, category)
	if err != nil {
		s.logger.Error("Failed to list items by category", "category", category, "error", err)
		return nil, apperrors.ErrStorageUnavailable("item list").Wrap(err)
	}
	return toItemDTOs(items), nil
}

// SellItem records a sale: it appends the ledger entry from a pre-decrement
// snapshot, then commits stock through the repository's conditional update.
// When the commit loses the race to concurrent sells, the just-written entry
// is removed again and the sale fails with insufficient stock. When the commit
// fails for storage reasons the entry may survive without a matching stock
// movement; that case surfaces as a partially-applied sale carrying the ledger
// record id.
func (s *InventoryService) SellItem(ctx context.Context, cmd SellItemCommand) (*ItemDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, apperrors.ErrValidation("quantity must be a positive integer").
			WithDetail("quantity", strconv.Itoa(cmd.Quantity))
	}

	item, err := s.findItem(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	// Fast fail on the snapshot; the conditional update below is the real guard.
	if !item.CanFulfill(cmd.Quantity) {
		return nil, apperrors.ErrInsufficientStock(item.Quantity, cmd.Quantity)
	}

	record, err := domain.NewSalesRecord(item, cmd.Quantity)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error()).Wrap(err)
	}

	if err := s.sales.Append(ctx, record); err != nil {
		s.logger.Error("Failed to append sales record", "itemId", cmd.ID, "error", err)
		return nil, apperrors.ErrStorageUnavailable("sales ledger append").Wrap(err)
	}

	updated, err := s.items.CommitSale(ctx, cmd.ID, cmd.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientStock):
			s.compensateLedger(ctx, record)
			return nil, apperrors.ErrInsufficientStock(item.Quantity, cmd.Quantity).Wrap(err)
		case errors.Is(err, domain.ErrItemNotFound):
			s.compensateLedger(ctx, record)
			return nil, apperrors.ErrNotFoundWithID("item", cmd.ID).Wrap(err)
		default:
			s.logger.Error("Stock commit failed after ledger append",
				"itemId", cmd.ID, "salesRecordId", record.ID.Hex(), "error", err)
			return nil, apperrors.ErrSalePartiallyApplied(record.ID.Hex()).Wrap(err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordItemsSold(updated.Category, cmd.Quantity)
		s.metrics.RecordSaleRecorded()
	}

	if s.publisher != nil {
		if perr := s.publisher.PublishSaleRecorded(ctx, record, updated.Quantity); perr != nil {
			s.logger.Warn("Failed to publish sale event",
				"itemId", cmd.ID, "salesRecordId", record.ID.Hex(), "error", perr)
		}
	}

	s.notifyIfLow(ctx, updated)

	s.logger.Info("Recorded sale",
		"itemId", updated.ID.Hex(),
		"quantity", cmd.Quantity,
		"remaining", updated.Quantity,
		"salesRecordId", record.ID.Hex())
	return toItemDTO(updated), nil
}

// AdjustQuantity applies a signed stock delta without touching the ledger.
// A delta that would drive quantity below zero is rejected server-side and the
// item is left unchanged.
func (s *InventoryService) AdjustQuantity(ctx context.Context, cmd AdjustQuantityCommand) (*ItemDTO, error) {
	updated, err := s.items.ApplyStockDelta(ctx, cmd.ID, cmd.Delta)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrItemNotFound):
			return nil, apperrors.ErrNotFoundWithID("item", cmd.ID).Wrap(err)
		case errors.Is(err, domain.ErrNegativeStock):
			return nil, apperrors.ErrInvalidOperation("adjustment would drive stock below zero").
				WithDetail("delta", strconv.Itoa(cmd.Delta)).Wrap(err)
		default:
			s.logger.Error("Failed to adjust quantity", "itemId", cmd.ID, "delta", cmd.Delta, "error", err)
			return nil, apperrors.ErrStorageUnavailable("stock adjustment").Wrap(err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordStockAdjustment(cmd.Delta)
	}
	s.notifyIfLow(ctx, updated)

	s.logger.Info("Adjusted stock", "itemId", updated.ID.Hex(), "delta", cmd.Delta, "quantity", updated.Quantity)
	return toItemDTO(updated), nil
}

// UpdateItem replaces an item's editable fields. Sales and the ledger are
// untouched; price only changes when the command carries a positive one.
func (s *InventoryService) UpdateItem(ctx context.Context, cmd UpdateItemCommand) (*ItemDTO, error) {
	item, err := s.findItem(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(item.Name, cmd.Name) {
		exists, err := s.items.ExistsByName(ctx, cmd.Name)
		if err != nil {
			s.logger.Error("Failed to check item name", "name", cmd.Name, "error", err)
			return nil, apperrors.ErrStorageUnavailable("item lookup").Wrap(err)
		}
		if exists {
			return nil, apperrors.ErrConflict("item with this name already exists").WithDetail("name", cmd.Name)
		}
	}

	if err := item.ApplyUpdate(cmd.Name, cmd.Category, cmd.Quantity, cmd.MinStock, cmd.ImageURL, cmd.Price, cmd.Description); err != nil {
		return nil, apperrors.ErrValidation(err.Error()).Wrap(err)
	}

	if err := s.items.Save(ctx, item); err != nil {
		if errors.Is(err, domain.ErrDuplicateItemName) {
			return nil, apperrors.ErrConflict(err.Error()).WithDetail("name", cmd.Name)
		}
		s.logger.Error("Failed to update item", "itemId", cmd.ID, "error", err)
		return nil, apperrors.ErrStorageUnavailable("item update").Wrap(err)
	}

	s.logger.Info("Updated inventory item", "itemId", item.ID.Hex(), "name", item.Name)
	return toItemDTO(item), nil
}

// DeleteItem removes an item. Ledger entries referencing it are preserved as
// history.
func (s *InventoryService) DeleteItem(ctx context.Context, id string) error {
	if err := s.items.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return apperrors.ErrNotFoundWithID("item", id).Wrap(err)
		}
		s.logger.Error("Failed to delete item", "itemId", id, "error", err)
		return apperrors.ErrStorageUnavailable("item delete").Wrap(err)
	}

	s.logger.Info("Deleted inventory item", "itemId", id)
	return nil
}

// UpdateAllPrices back-fills prices on items that still carry the 0 sentinel,
// first by exact item name, then by category default, then a flat fallback.
// Items with a price already set are never touched.
func (s *InventoryService) UpdateAllPrices(ctx context.Context) (*PriceSeedResultDTO, error) {
	items, err := s.items.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list items for price seeding", "error", err)
		return nil, apperrors.ErrStorageUnavailable("item list").Wrap(err)
	}

	updated := 0
	for _, item := range items {
		if item.Price != 0 {
			continue
		}

		item.Price = resolveDefaultPrice(item.Name, item.Category)
		item.Touch()

		if err := s.items.Save(ctx, item); err != nil {
			s.logger.Error("Failed to seed item price", "itemId", item.ID.Hex(), "error", err)
			return nil, apperrors.ErrStorageUnavailable("price seeding").Wrap(err)
		}
		updated++
	}

	s.logger.Info("Seeded item prices", "updated", updated)
	return &PriceSeedResultDTO{
		Success: true,
		Message: "prices updated successfully",
		Updated: updated,
	}, nil
}

func resolveDefaultPrice(name, category string) float64 {
	if price, ok := defaultItemPrices[name]; ok {
		return price
	}
	if price, ok := defaultCategoryPrices[strings.ToLower(category)]; ok {
		return price
	}
	return fallbackPrice
}

// findItem loads an item and normalizes absence to a not-found error
func (s *InventoryService) findItem(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get item", "itemId", id, "error", err)
		return nil, apperrors.ErrStorageUnavailable("item lookup").Wrap(err)
	}
	if item == nil {
		return nil, apperrors.ErrNotFoundWithID("item", id)
	}
	return item, nil
}

// compensateLedger removes a ledger entry whose stock commit never happened.
// Best effort: a failure here leaves an orphan row for reconciliation and is
// only logged.
func (s *InventoryService) compensateLedger(ctx context.Context, record *domain.SalesRecord) {
	if err := s.sales.RemovePending(ctx, record.ID); err != nil {
		s.logger.Warn("Failed to remove pending sales record",
			"salesRecordId", record.ID.Hex(), "error", err)
	}
}

func (s *InventoryService) notifyIfLow(ctx context.Context, item *domain.Item) {
	threshold := item.MinStock
	if threshold <= 0 {
		threshold = lowStockAlertThreshold
	}
	if item.Quantity > threshold {
		return
	}

	if s.metrics != nil {
		s.metrics.RecordLowStockAlert()
	}
	if s.publisher != nil {
		if err := s.publisher.PublishStockLow(ctx, item); err != nil {
			s.logger.Warn("Failed to publish low stock event", "itemId", item.ID.Hex(), "error", err)
		}
	}
}
