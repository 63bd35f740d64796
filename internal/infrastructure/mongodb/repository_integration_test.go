package mongodb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	tcmongodb "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ims-platform/inventory-service/internal/domain"
	"github.com/ims-platform/inventory-service/pkg/logging"
	mongoclient "github.com/ims-platform/inventory-service/pkg/mongodb"
)

type RepositoryIntegrationTestSuite struct {
	suite.Suite
	mongoContainer *tcmongodb.MongoDBContainer
	client         *mongoclient.CircuitBreakerClient
	itemRepo       *ItemRepository
	salesRepo      *SalesRecordRepository
	categoryRepo   *CategoryRepository
	ctx            context.Context
}

func (s *RepositoryIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcmongodb.Run(s.ctx, "mongo:6")
	s.Require().NoError(err)
	s.mongoContainer = container

	connStr, err := container.ConnectionString(s.ctx)
	s.Require().NoError(err)

	client, err := mongoclient.NewClient(s.ctx, &mongoclient.Config{
		URI:            connStr,
		Database:       "ims_test",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    20,
		MinPoolSize:    1,
	})
	s.Require().NoError(err)

	logger := logging.New(logging.DefaultConfig("test"))
	s.client = mongoclient.NewCircuitBreakerClient(client, logger.Logger)

	s.itemRepo, err = NewItemRepository(s.client)
	s.Require().NoError(err)
	s.salesRepo, err = NewSalesRecordRepository(s.client)
	s.Require().NoError(err)
	s.categoryRepo, err = NewCategoryRepository(s.client)
	s.Require().NoError(err)
}

func (s *RepositoryIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close(s.ctx)
	}
	if s.mongoContainer != nil {
		s.Require().NoError(s.mongoContainer.Terminate(s.ctx))
	}
}

func (s *RepositoryIntegrationTestSuite) TearDownTest() {
	db := s.client.Database()
	db.Collection(itemCollection).Drop(s.ctx)
	db.Collection(salesRecordCollection).Drop(s.ctx)
	db.Collection(categoryCollection).Drop(s.ctx)
}

func TestRepositoryIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	suite.Run(t, new(RepositoryIntegrationTestSuite))
}

func (s *RepositoryIntegrationTestSuite) mustSeedItem(name, category string, qty, minStock int, price float64) *domain.Item {
	item, err := domain.NewItem(name, category, qty, minStock, price)
	s.Require().NoError(err)
	s.Require().NoError(s.itemRepo.Save(s.ctx, item))
	s.Require().False(item.ID.IsZero())
	return item
}

func (s *RepositoryIntegrationTestSuite) TestItemRepository_SaveAndFind() {
	item := s.mustSeedItem("Laptop", "Electronics", 15, 5, 45000)

	found, err := s.itemRepo.FindByID(s.ctx, item.ID.Hex())
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal("Laptop", found.Name)
	s.Equal(15, found.Quantity)

	missing, err := s.itemRepo.FindByID(s.ctx, primitive.NewObjectID().Hex())
	s.Require().NoError(err)
	s.Nil(missing)

	malformed, err := s.itemRepo.FindByID(s.ctx, "not-an-object-id")
	s.Require().NoError(err)
	s.Nil(malformed)
}

func (s *RepositoryIntegrationTestSuite) TestItemRepository_UniqueName() {
	s.mustSeedItem("Desk", "Furniture", 5, 2, 12000)

	dup, err := domain.NewItem("Desk", "Furniture", 1, 1, 9000)
	s.Require().NoError(err)
	err = s.itemRepo.Save(s.ctx, dup)
	s.ErrorIs(err, domain.ErrDuplicateItemName)

	exists, err := s.itemRepo.ExistsByName(s.ctx, "desk")
	s.Require().NoError(err)
	s.True(exists, "name lookup is case-insensitive")
}

func (s *RepositoryIntegrationTestSuite) TestItemRepository_CommitSale() {
	item := s.mustSeedItem("Smartphone", "Electronics", 7, 3, 25000)

	updated, err := s.itemRepo.CommitSale(s.ctx, item.ID.Hex(), 7)
	s.Require().NoError(err)
	s.Equal(0, updated.Quantity, "selling the exact stock succeeds")
	s.Equal(7, updated.Sales)

	_, err = s.itemRepo.CommitSale(s.ctx, item.ID.Hex(), 1)
	s.ErrorIs(err, domain.ErrInsufficientStock)

	_, err = s.itemRepo.CommitSale(s.ctx, primitive.NewObjectID().Hex(), 1)
	s.ErrorIs(err, domain.ErrItemNotFound)
}

func (s *RepositoryIntegrationTestSuite) TestItemRepository_ConcurrentCommitsNeverOversell() {
	item := s.mustSeedItem("Wireless Mouse", "Electronics", 100, 8, 1200)

	const sellers = 25
	const qtyEach = 4

	var wg sync.WaitGroup
	errs := make([]error, sellers)
	for i := 0; i < sellers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.itemRepo.CommitSale(s.ctx, item.ID.Hex(), qtyEach)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}

	final, err := s.itemRepo.FindByID(s.ctx, item.ID.Hex())
	s.Require().NoError(err)
	s.Equal(0, final.Quantity)
	s.Equal(100, final.Sales)

	_, err = s.itemRepo.CommitSale(s.ctx, item.ID.Hex(), 1)
	s.ErrorIs(err, domain.ErrInsufficientStock)
}

func (s *RepositoryIntegrationTestSuite) TestItemRepository_ApplyStockDelta() {
	item := s.mustSeedItem("Filing Cabinet", "Furniture", 10, 4, 5500)

	updated, err := s.itemRepo.ApplyStockDelta(s.ctx, item.ID.Hex(), -10)
	s.Require().NoError(err)
	s.Equal(0, updated.Quantity)

	_, err = s.itemRepo.ApplyStockDelta(s.ctx, item.ID.Hex(), -1)
	s.ErrorIs(err, domain.ErrNegativeStock)

	updated, err = s.itemRepo.ApplyStockDelta(s.ctx, item.ID.Hex(), 3)
	s.Require().NoError(err)
	s.Equal(3, updated.Quantity)

	_, err = s.itemRepo.ApplyStockDelta(s.ctx, primitive.NewObjectID().Hex(), 1)
	s.ErrorIs(err, domain.ErrItemNotFound)
}

func (s *RepositoryIntegrationTestSuite) TestItemRepository_FindTopSelling() {
	low := s.mustSeedItem("Bookshelf", "Furniture", 6, 2, 8000)
	high := s.mustSeedItem("Notebook", "Stationery", 50, 20, 150)
	mid := s.mustSeedItem("Pens (Box)", "Stationery", 30, 10, 120)

	_, err := s.itemRepo.CommitSale(s.ctx, high.ID.Hex(), 20)
	s.Require().NoError(err)
	_, err = s.itemRepo.CommitSale(s.ctx, mid.ID.Hex(), 10)
	s.Require().NoError(err)
	_, err = s.itemRepo.CommitSale(s.ctx, low.ID.Hex(), 2)
	s.Require().NoError(err)

	top, err := s.itemRepo.FindTopSelling(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("Notebook", top[0].Name)
	s.Equal("Pens (Box)", top[1].Name)
}

func (s *RepositoryIntegrationTestSuite) TestItemRepository_FindLowStock() {
	s.mustSeedItem("Implicit Low", "Misc", 5, 0, 100)   // default threshold 5
	s.mustSeedItem("Implicit OK", "Misc", 6, 0, 100)
	s.mustSeedItem("Explicit Low", "Misc", 9, 10, 100)
	s.mustSeedItem("Explicit OK", "Misc", 11, 10, 100)

	low, err := s.itemRepo.FindLowStock(s.ctx, 5, 10)
	s.Require().NoError(err)

	names := make([]string, 0, len(low))
	for _, item := range low {
		names = append(names, item.Name)
	}
	s.ElementsMatch([]string{"Implicit Low", "Explicit Low"}, names)
}

func (s *RepositoryIntegrationTestSuite) TestSalesRecordRepository_AppendAndQuery() {
	item := s.mustSeedItem("Desk Lamp", "Office Supplies", 10, 4, 850)

	base := time.Date(2026, time.August, 10, 9, 0, 0, 0, time.UTC)
	for i, qty := range []int{1, 2, 3} {
		record, err := domain.NewSalesRecord(item, qty)
		s.Require().NoError(err)
		record.Timestamp = base.Add(time.Duration(i) * time.Hour)
		s.Require().NoError(s.salesRepo.Append(s.ctx, record))
	}

	records, err := s.salesRepo.FindByItemID(s.ctx, item.ID.Hex())
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	s.Equal(1, records[0].Quantity, "oldest first")

	desc, err := s.salesRepo.FindByItemIDOrderedByTimestampDesc(s.ctx, item.ID.Hex())
	s.Require().NoError(err)
	s.Equal(3, desc[0].Quantity, "newest first")

	ranged, err := s.salesRepo.FindByTimeRange(s.ctx, base, base.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Len(ranged, 2, "upper bound is exclusive")

	byCategory, err := s.salesRepo.FindByCategory(s.ctx, "office supplies")
	s.Require().NoError(err)
	s.Len(byCategory, 3)

	none, err := s.salesRepo.FindByItemID(s.ctx, primitive.NewObjectID().Hex())
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *RepositoryIntegrationTestSuite) TestSalesRecordRepository_RemovePending() {
	item := s.mustSeedItem("Scissors", "Office Supplies", 15, 5, 95)

	record, err := domain.NewSalesRecord(item, 2)
	s.Require().NoError(err)
	s.Require().NoError(s.salesRepo.Append(s.ctx, record))

	s.Require().NoError(s.salesRepo.RemovePending(s.ctx, record.ID))
	s.Require().NoError(s.salesRepo.RemovePending(s.ctx, record.ID), "removal is idempotent")

	records, err := s.salesRepo.FindByItemID(s.ctx, item.ID.Hex())
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *RepositoryIntegrationTestSuite) TestSalesRecordRepository_SurvivesItemDeletion() {
	item := s.mustSeedItem("Staplers", "Office Supplies", 8, 3, 175)

	record, err := domain.NewSalesRecord(item, 1)
	s.Require().NoError(err)
	s.Require().NoError(s.salesRepo.Append(s.ctx, record))

	s.Require().NoError(s.itemRepo.Delete(s.ctx, item.ID.Hex()))

	records, err := s.salesRepo.FindByItemID(s.ctx, item.ID.Hex())
	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *RepositoryIntegrationTestSuite) TestCategoryRepository_Lifecycle() {
	category, err := domain.NewCategory("Electronics", "/img/electronics.jpg")
	s.Require().NoError(err)
	s.Require().NoError(s.categoryRepo.Save(s.ctx, category))

	count, err := s.categoryRepo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	dup, err := domain.NewCategory("Electronics", "")
	s.Require().NoError(err)
	s.ErrorIs(s.categoryRepo.Save(s.ctx, dup), domain.ErrDuplicateCategoryName)

	found, err := s.categoryRepo.FindByID(s.ctx, category.ID.Hex())
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal("Electronics", found.Name)

	s.Require().NoError(s.categoryRepo.Delete(s.ctx, category.ID.Hex()))
	s.ErrorIs(s.categoryRepo.Delete(s.ctx, category.ID.Hex()), domain.ErrCategoryNotFound)
}
