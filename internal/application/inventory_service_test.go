package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ims-platform/inventory-service/internal/domain"
	apperrors "github.com/ims-platform/inventory-service/pkg/errors"
	"github.com/ims-platform/inventory-service/pkg/logging"
)

type fakeItemRepo struct {
	mu        sync.Mutex
	items     map[string]*domain.Item
	saveErr   error
	findErr   error
	commitErr error
	deltaErr  error
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[string]*domain.Item)}
}

func (f *fakeItemRepo) put(item *domain.Item) *domain.Item {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	f.items[item.ID.Hex()] = item
	return item
}

func (f *fakeItemRepo) Save(ctx context.Context, item *domain.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	for id, existing := range f.items {
		if existing.Name == item.Name && id != item.ID.Hex() {
			return domain.ErrDuplicateItemName
		}
	}
	f.put(item)
	return nil
}

func (f *fakeItemRepo) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	clone := *item
	return &clone, nil
}

func (f *fakeItemRepo) FindAll(ctx context.Context) ([]*domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	results := make([]*domain.Item, 0, len(f.items))
	for _, item := range f.items {
		clone := *item
		results = append(results, &clone)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

func (f *fakeItemRepo) FindByCategory(ctx context.Context, category string) ([]*domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]*domain.Item, 0)
	for _, item := range f.items {
		if item.Category == category {
			clone := *item
			results = append(results, &clone)
		}
	}
	return results, nil
}

func (f *fakeItemRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return false, f.findErr
	}
	for _, item := range f.items {
		if item.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeItemRepo) FindTopSelling(ctx context.Context, limit int64) ([]*domain.Item, error) {
	all, err := f.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Sales != all[j].Sales {
			return all[i].Sales > all[j].Sales
		}
		return all[i].ID.Hex() < all[j].ID.Hex()
	})
	if int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeItemRepo) FindLowStock(ctx context.Context, defaultThreshold int, limit int64) ([]*domain.Item, error) {
	all, err := f.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]*domain.Item, 0)
	for _, item := range all {
		threshold := item.MinStock
		if threshold <= 0 {
			threshold = defaultThreshold
		}
		if item.Quantity <= threshold {
			results = append(results, item)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Quantity < results[j].Quantity })
	if int64(len(results)) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (f *fakeItemRepo) ApplyStockDelta(ctx context.Context, id string, delta int) (*domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deltaErr != nil {
		return nil, f.deltaErr
	}
	item, ok := f.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	if item.Quantity+delta < 0 {
		return nil, domain.ErrNegativeStock
	}
	item.Quantity += delta
	item.LastUpdated = time.Now().UTC()
	clone := *item
	return &clone, nil
}

func (f *fakeItemRepo) CommitSale(ctx context.Context, id string, qty int) (*domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	item, ok := f.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	if item.Quantity < qty {
		return nil, domain.ErrInsufficientStock
	}
	item.Quantity -= qty
	item.Sales += qty
	item.LastUpdated = time.Now().UTC()
	clone := *item
	return &clone, nil
}

func (f *fakeItemRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeSalesRepo struct {
	mu        sync.Mutex
	records   []*domain.SalesRecord
	appendErr error
	removeErr error
	removed   []primitive.ObjectID
}

func (f *fakeSalesRepo) Append(ctx context.Context, record *domain.SalesRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeSalesRepo) RemovePending(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, id)
	kept := f.records[:0]
	for _, record := range f.records {
		if record.ID != id {
			kept = append(kept, record)
		}
	}
	f.records = kept
	return nil
}

func (f *fakeSalesRepo) FindByItemID(ctx context.Context, itemID string) ([]*domain.SalesRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]*domain.SalesRecord, 0)
	for _, record := range f.records {
		if record.ItemID == itemID {
			results = append(results, record)
		}
	}
	return results, nil
}

func (f *fakeSalesRepo) FindByItemIDOrderedByTimestampDesc(ctx context.Context, itemID string) ([]*domain.SalesRecord, error) {
	results, _ := f.FindByItemID(ctx, itemID)
	sort.SliceStable(results, func(i, j int) bool { return results[i].Timestamp.After(results[j].Timestamp) })
	return results, nil
}

func (f *fakeSalesRepo) FindByCategory(ctx context.Context, category string) ([]*domain.SalesRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]*domain.SalesRecord, 0)
	for _, record := range f.records {
		if record.Category == category {
			results = append(results, record)
		}
	}
	return results, nil
}

func (f *fakeSalesRepo) FindByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.SalesRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]*domain.SalesRecord, 0)
	for _, record := range f.records {
		if !record.Timestamp.Before(start) && record.Timestamp.Before(end) {
			results = append(results, record)
		}
	}
	return results, nil
}

func (f *fakeSalesRepo) FindByItemIDAndTimeRange(ctx context.Context, itemID string, start, end time.Time) ([]*domain.SalesRecord, error) {
	all, _ := f.FindByTimeRange(ctx, start, end)
	results := make([]*domain.SalesRecord, 0)
	for _, record := range all {
		if record.ItemID == itemID {
			results = append(results, record)
		}
	}
	return results, nil
}

func (f *fakeSalesRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakePublisher struct {
	mu       sync.Mutex
	sales    int
	lowStock int
	err      error
}

func (f *fakePublisher) PublishSaleRecorded(ctx context.Context, record *domain.SalesRecord, remainingStock int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sales++
	return nil
}

func (f *fakePublisher) PublishStockLow(ctx context.Context, item *domain.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.lowStock++
	return nil
}

func newTestInventoryService(items *fakeItemRepo, sales *fakeSalesRepo) *InventoryService {
	logger := logging.New(logging.DefaultConfig("test"))
	return NewInventoryService(items, sales, nil, nil, logger)
}

func seedItem(t *testing.T, repo *fakeItemRepo, name, category string, qty, minStock int, price float64) *domain.Item {
	t.Helper()
	item, err := domain.NewItem(name, category, qty, minStock, price)
	require.NoError(t, err)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.put(item)
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Code
}

func TestInventoryService_CreateItem(t *testing.T) {
	items := newFakeItemRepo()
	svc := newTestInventoryService(items, &fakeSalesRepo{})

	dto, err := svc.CreateItem(context.Background(), CreateItemCommand{
		Name:     "Laptop",
		Category: "Electronics",
		Quantity: 15,
		MinStock: 5,
		Price:    45000,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, dto.Sales, "new items start with zero sales")
	assert.True(t, dto.InStock)
	assert.False(t, dto.LowStock)

	_, err = svc.CreateItem(context.Background(), CreateItemCommand{Name: "Laptop", Quantity: 1})
	assert.Equal(t, apperrors.CodeConflict, appCode(t, err))

	_, err = svc.CreateItem(context.Background(), CreateItemCommand{Name: "   ", Quantity: 1})
	assert.Equal(t, apperrors.CodeValidationError, appCode(t, err))
}

func TestInventoryService_SellItem_InvalidQuantity(t *testing.T) {
	items := newFakeItemRepo()
	sales := &fakeSalesRepo{}
	svc := newTestInventoryService(items, sales)
	item := seedItem(t, items, "Notebook", "Stationery", 10, 3, 150)

	for _, qty := range []int{0, -1} {
		_, err := svc.SellItem(context.Background(), SellItemCommand{ID: item.ID.Hex(), Quantity: qty})
		assert.Equal(t, apperrors.CodeValidationError, appCode(t, err))
	}
	assert.Equal(t, 0, sales.count(), "rejected sales must not write ledger entries")
	assert.Equal(t, 10, items.items[item.ID.Hex()].Quantity)
}

func TestInventoryService_SellItem_NotFound(t *testing.T) {
	svc := newTestInventoryService(newFakeItemRepo(), &fakeSalesRepo{})

	_, err := svc.SellItem(context.Background(), SellItemCommand{ID: primitive.NewObjectID().Hex(), Quantity: 1})
	assert.Equal(t, apperrors.CodeNotFound, appCode(t, err))
}

func TestInventoryService_SellItem_ExactStock(t *testing.T) {
	items := newFakeItemRepo()
	sales := &fakeSalesRepo{}
	svc := newTestInventoryService(items, sales)
	item := seedItem(t, items, "Desk", "Furniture", 5, 2, 12000)

	dto, err := svc.SellItem(context.Background(), SellItemCommand{ID: item.ID.Hex(), Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, dto.Quantity, "selling the exact stock is allowed")
	assert.Equal(t, 5, dto.Sales)
	assert.False(t, dto.InStock)

	records, err := sales.FindByItemID(context.Background(), item.ID.Hex())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 5, records[0].Quantity)
	assert.Equal(t, 60000.0, records[0].TotalPrice)
}

func TestInventoryService_SellItem_Oversell(t *testing.T) {
	items := newFakeItemRepo()
	sales := &fakeSalesRepo{}
	svc := newTestInventoryService(items, sales)
	item := seedItem(t, items, "Bookshelf", "Furniture", 3, 1, 8000)

	_, err := svc.SellItem(context.Background(), SellItemCommand{ID: item.ID.Hex(), Quantity: 4})
	assert.Equal(t, apperrors.CodeInsufficientStock, appCode(t, err))
	assert.Equal(t, 3, items.items[item.ID.Hex()].Quantity, "failed sale leaves the item unchanged")
	assert.Equal(t, 0, items.items[item.ID.Hex()].Sales)
	assert.Equal(t, 0, sales.count())
}

func TestInventoryService_SellItem_SequentialSales(t *testing.T) {
	items := newFakeItemRepo()
	sales := &fakeSalesRepo{}
	svc := newTestInventoryService(items, sales)
	item := seedItem(t, items, "Smartphone", "Electronics", 10, 3, 25000)

	_, err := svc.SellItem(context.Background(), SellItemCommand{ID: item.ID.Hex(), Quantity: 2})
	require.NoError(t, err)
	dto, err := svc.SellItem(context.Background(), SellItemCommand{ID: item.ID.Hex(), Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, 5, dto.Quantity)
	assert.Equal(t, 5, dto.Sales)
	assert.Equal(t, 2, sales.count(), "each sale writes exactly one ledger entry")
}

func TestInventoryService_SellItem_ConcurrentSellsNeverOversell(t *testing.T) {
	items := newFakeItemRepo()
	sales := &fakeSalesRepo{}
	svc := newTestInventoryService(items, sales)
	item := seedItem(t, items, "Wireless Mouse", "Electronics", 100, 8, 1200)

	const sellers = 25
	const qtyEach = 4

	var wg sync.WaitGroup
	errs := make([]error, sellers)
	for i := 0; i < sellers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SellItem(context.Background(), SellItemCommand{ID: item.ID.Hex(), Quantity: qtyEach})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "seller %d", i)
	}
	assert.Equal(t, 0, items.items[item.ID.Hex()].Quantity)
	assert.Equal(t, 100, items.items[item.ID.Hex()].Sales)
	assert.Equal(t, sellers, sales.count())
}

func TestInventoryService_SellItem_RaceLossCompensatesLedger(t *testing.T) {
	items := newFakeItemRepo()
	sales := &fakeSalesRepo{}
	svc := newTestInventoryService(items, sales)
	item := seedItem(t, items, "Desk Lamp", "Office Supplies", 10, 4, 850)

	// Snapshot passes the fast check, then the conditional update loses
	items.commitErr = domain.ErrInsufficientStock

	_, err := svc.SellItem(context.Background(), SellItemCommand{ID: item.ID.Hex(), Quantity: 2})
	assert.Equal(t, apperrors.CodeInsufficientStock, appCode(t, err))
	assert.Equal(t, 0, sales.count(), "pending entry is removed when the commit loses the race")
	assert.Len(t, sales.removed, 1)
}

func TestInventoryService_SellItem_StorageFailureIsPartiallyApplied(t *testing.T) {
	items := newFakeItemRepo()
	sales := &fakeSalesRepo{}
	svc := newTestInventoryService(items, sales)
	item := seedItem(t, items, "Staplers", "Office Supplies", 8, 3, 175)

	items.commitErr = errors.New("connection reset")

	_, err := svc.SellItem(context.Background(), SellItemCommand{ID: item.ID.Hex(), Quantity: 2})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeSalePartiallyApplied, appErr.Code)
	require.Equal(t, 1, sales.count(), "orphan ledger entry is preserved for reconciliation")

	records, _ := sales.FindByItemID(context.Background(), item.ID.Hex())
	assert.Equal(t, records[0].ID.Hex(), appErr.Details["salesRecordId"])
}

func TestInventoryService_SellItem_AppendFailureLeavesStock(t *testing.T) {
	items := newFakeItemRepo()
	sales := &fakeSalesRepo{appendErr: errors.New("ledger down")}
	svc := newTestInventoryService(items, sales)
	item := seedItem(t, items, "Scissors", "Office Supplies", 15, 5, 95)

	_, err := svc.SellItem(context.Background(), SellItemCommand{ID: item.ID.Hex(), Quantity: 1})
	assert.Equal(t, apperrors.CodeStorageUnavailable, appCode(t, err))
	assert.Equal(t, 15, items.items[item.ID.Hex()].Quantity, "stock untouched when the append fails")
}

func TestInventoryService_SellItem_PublishesEvents(t *testing.T) {
	items := newFakeItemRepo()
	sales := &fakeSalesRepo{}
	publisher := &fakePublisher{}
	logger := logging.New(logging.DefaultConfig("test"))
	svc := NewInventoryService(items, sales, publisher, nil, logger)
	item := seedItem(t, items, "Laptop", "Electronics", 6, 5, 45000)

	_, err := svc.SellItem(context.Background(), SellItemCommand{ID: item.ID.Hex(), Quantity: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, publisher.sales)
	assert.Equal(t, 1, publisher.lowStock, "remaining 4 <= minStock 5 triggers the low stock event")
}

func TestInventoryService_SellItem_PublisherFailureDoesNotFailSale(t *testing.T) {
	items := newFakeItemRepo()
	sales := &fakeSalesRepo{}
	publisher := &fakePublisher{err: errors.New("broker down")}
	logger := logging.New(logging.DefaultConfig("test"))
	svc := NewInventoryService(items, sales, publisher, nil, logger)
	item := seedItem(t, items, "Notebook", "Stationery", 50, 20, 150)

	dto, err := svc.SellItem(context.Background(), SellItemCommand{ID: item.ID.Hex(), Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 49, dto.Quantity)
	assert.Equal(t, 1, sales.count())
}

func TestInventoryService_AdjustQuantity(t *testing.T) {
	items := newFakeItemRepo()
	sales := &fakeSalesRepo{}
	svc := newTestInventoryService(items, sales)
	item := seedItem(t, items, "Filing Cabinet", "Furniture", 10, 4, 5500)

	dto, err := svc.AdjustQuantity(context.Background(), AdjustQuantityCommand{ID: item.ID.Hex(), Delta: 5})
	require.NoError(t, err)
	assert.Equal(t, 15, dto.Quantity)

	dto, err = svc.AdjustQuantity(context.Background(), AdjustQuantityCommand{ID: item.ID.Hex(), Delta: -15})
	require.NoError(t, err)
	assert.Equal(t, 0, dto.Quantity)

	_, err = svc.AdjustQuantity(context.Background(), AdjustQuantityCommand{ID: item.ID.Hex(), Delta: -1})
	assert.Equal(t, apperrors.CodeInvalidOperation, appCode(t, err))
	assert.Equal(t, 0, items.items[item.ID.Hex()].Quantity, "failed adjustment leaves the item unchanged")

	assert.Equal(t, 0, sales.count(), "adjustments never write ledger entries")
}

func TestInventoryService_AdjustQuantity_ExceedsStock(t *testing.T) {
	items := newFakeItemRepo()
	svc := newTestInventoryService(items, &fakeSalesRepo{})
	item := seedItem(t, items, "Desk", "Furniture", 10, 2, 12000)

	_, err := svc.AdjustQuantity(context.Background(), AdjustQuantityCommand{ID: item.ID.Hex(), Delta: -100})
	assert.Equal(t, apperrors.CodeInvalidOperation, appCode(t, err))
	assert.Equal(t, 10, items.items[item.ID.Hex()].Quantity)
}

func TestInventoryService_UpdateItem(t *testing.T) {
	items := newFakeItemRepo()
	svc := newTestInventoryService(items, &fakeSalesRepo{})
	item := seedItem(t, items, "Desk Lamp", "Office Supplies", 10, 4, 850)
	item.Description = "halogen"
	item.Sales = 22

	dto, err := svc.UpdateItem(context.Background(), UpdateItemCommand{
		ID:       item.ID.Hex(),
		Name:     "LED Desk Lamp",
		Category: "Office Supplies",
		Quantity: 12,
		MinStock: 5,
		Price:    0,
	})
	require.NoError(t, err)
	assert.Equal(t, "LED Desk Lamp", dto.Name)
	assert.Equal(t, 850.0, dto.Price, "zero price means no change")
	assert.Equal(t, "halogen", dto.Description, "absent description means no change")
	assert.Equal(t, 22, dto.Sales, "updates never touch cumulative sales")

	seedItem(t, items, "Bankers Lamp", "Office Supplies", 3, 1, 950)
	_, err = svc.UpdateItem(context.Background(), UpdateItemCommand{
		ID:       item.ID.Hex(),
		Name:     "Bankers Lamp",
		Category: "Office Supplies",
		Quantity: 12,
		MinStock: 5,
	})
	assert.Equal(t, apperrors.CodeConflict, appCode(t, err))
}

func TestInventoryService_DeleteItem_KeepsLedger(t *testing.T) {
	items := newFakeItemRepo()
	sales := &fakeSalesRepo{}
	svc := newTestInventoryService(items, sales)
	item := seedItem(t, items, "Smartphone", "Electronics", 7, 3, 25000)

	_, err := svc.SellItem(context.Background(), SellItemCommand{ID: item.ID.Hex(), Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItem(context.Background(), item.ID.Hex()))

	_, err = svc.GetItem(context.Background(), GetItemQuery{ID: item.ID.Hex()})
	assert.Equal(t, apperrors.CodeNotFound, appCode(t, err))

	records, err := sales.FindByItemID(context.Background(), item.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, records, 1, "ledger history survives item deletion")

	err = svc.DeleteItem(context.Background(), item.ID.Hex())
	assert.Equal(t, apperrors.CodeNotFound, appCode(t, err))
}

func TestInventoryService_UpdateAllPrices(t *testing.T) {
	items := newFakeItemRepo()
	svc := newTestInventoryService(items, &fakeSalesRepo{})

	laptop := seedItem(t, items, "Laptop", "Electronics", 5, 2, 0)
	chair := seedItem(t, items, "Gaming Chair", "Furniture", 5, 2, 0)
	misc := seedItem(t, items, "Whiteboard", "Miscellaneous", 5, 2, 0)
	priced := seedItem(t, items, "Smartphone", "Electronics", 5, 2, 19999)

	result, err := svc.UpdateAllPrices(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Updated)

	assert.Equal(t, 45000.0, items.items[laptop.ID.Hex()].Price, "known item name wins")
	assert.Equal(t, 7500.0, items.items[chair.ID.Hex()].Price, "category default applies")
	assert.Equal(t, 500.0, items.items[misc.ID.Hex()].Price, "flat fallback applies")
	assert.Equal(t, 19999.0, items.items[priced.ID.Hex()].Price, "set prices are never touched")
}

func TestInventoryService_ListByCategory(t *testing.T) {
	items := newFakeItemRepo()
	svc := newTestInventoryService(items, &fakeSalesRepo{})
	seedItem(t, items, "Laptop", "Electronics", 5, 2, 45000)
	seedItem(t, items, "Desk", "Furniture", 5, 2, 12000)

	dtos, err := svc.ListByCategory(context.Background(), "Electronics")
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	assert.Equal(t, "Laptop", dtos[0].Name)

	dtos, err = svc.ListByCategory(context.Background(), "Toys")
	require.NoError(t, err)
	assert.Empty(t, dtos)
}
