package application

import (
	"context"
	"time"

	"github.com/ims-platform/inventory-service/internal/domain"
	apperrors "github.com/ims-platform/inventory-service/pkg/errors"
	"github.com/ims-platform/inventory-service/pkg/logging"
)

// defaultTopSellerLimit bounds the top-seller listing when the caller does not
// ask for a specific size.
const defaultTopSellerLimit = 5

// defaultLowStockLimit bounds the dashboard's low-stock listing.
const defaultLowStockLimit = 5

// SalesService answers read-only questions over the ledger and the item store.
// Dashboard buckets are summed from real ledger entries within the window.
type SalesService struct {
	items  domain.ItemRepository
	sales  domain.SalesRecordRepository
	logger *logging.Logger
	now    func() time.Time
}

// NewSalesService creates a new SalesService
func NewSalesService(items domain.ItemRepository, sales domain.SalesRecordRepository, logger *logging.Logger) *SalesService {
	return &SalesService{
		items:  items,
		sales:  sales,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source; used by tests to pin the dashboard
// window.
func (s *SalesService) WithClock(now func() time.Time) *SalesService {
	s.now = now
	return s
}

// SalesByItem retrieves all ledger entries for an item, oldest first. An
// unknown item yields an empty history, not an error; deleted items keep
// their history this way.
func (s *SalesService) SalesByItem(ctx context.Context, itemID string) ([]*SalesRecordDTO, error) {
	records, err := s.sales.FindByItemID(ctx, itemID)
	if err != nil {
		s.logger.Error("Failed to query sales by item", "itemId", itemID, "error", err)
		return nil, apperrors.ErrStorageUnavailable("sales query").Wrap(err)
	}
	return toSalesRecordDTOs(records), nil
}

// SalesHistory retrieves an item's ledger entries newest first
func (s *SalesService) SalesHistory(ctx context.Context, itemID string) ([]*SalesRecordDTO, error) {
	records, err := s.sales.FindByItemIDOrderedByTimestampDesc(ctx, itemID)
	if err != nil {
		s.logger.Error("Failed to query sales history", "itemId", itemID, "error", err)
		return nil, apperrors.ErrStorageUnavailable("sales query").Wrap(err)
	}
	return toSalesRecordDTOs(records), nil
}

// SalesByCategory retrieves all ledger entries for a category, oldest first.
// Entries carry the category the item had at sale time.
func (s *SalesService) SalesByCategory(ctx context.Context, category string) ([]*SalesRecordDTO, error) {
	records, err := s.sales.FindByCategory(ctx, category)
	if err != nil {
		s.logger.Error("Failed to query sales by category", "category", category, "error", err)
		return nil, apperrors.ErrStorageUnavailable("sales query").Wrap(err)
	}
	return toSalesRecordDTOs(records), nil
}

// SalesByPeriod retrieves all ledger entries with start <= timestamp < end
func (s *SalesService) SalesByPeriod(ctx context.Context, query SalesByPeriodQuery) ([]*SalesRecordDTO, error) {
	if !query.Start.Before(query.End) {
		return nil, apperrors.ErrValidation("start must be before end")
	}

	records, err := s.sales.FindByTimeRange(ctx, query.Start, query.End)
	if err != nil {
		s.logger.Error("Failed to query sales by period", "error", err)
		return nil, apperrors.ErrStorageUnavailable("sales query").Wrap(err)
	}
	return toSalesRecordDTOs(records), nil
}

// ItemSalesByPeriod retrieves one item's ledger entries within [start, end)
func (s *SalesService) ItemSalesByPeriod(ctx context.Context, query ItemSalesByPeriodQuery) ([]*SalesRecordDTO, error) {
	if !query.Start.Before(query.End) {
		return nil, apperrors.ErrValidation("start must be before end")
	}

	records, err := s.sales.FindByItemIDAndTimeRange(ctx, query.ItemID, query.Start, query.End)
	if err != nil {
		s.logger.Error("Failed to query item sales by period", "itemId", query.ItemID, "error", err)
		return nil, apperrors.ErrStorageUnavailable("sales query").Wrap(err)
	}
	return toSalesRecordDTOs(records), nil
}

// TopSellingItems lists items by cumulative sales descending. limit <= 0
// falls back to the default of 5.
func (s *SalesService) TopSellingItems(ctx context.Context, limit int64) ([]*ItemDTO, error) {
	if limit <= 0 {
		limit = defaultTopSellerLimit
	}

	items, err := s.items.FindTopSelling(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to query top selling items", "error", err)
		return nil, apperrors.ErrStorageUnavailable("top sellers query").Wrap(err)
	}
	return toItemDTOs(items), nil
}

// LowStockItems lists items at or below their stock threshold. Items without
// an explicit minStock fall back to the default threshold of 5.
func (s *SalesService) LowStockItems(ctx context.Context, limit int64) ([]*ItemDTO, error) {
	if limit <= 0 {
		limit = defaultLowStockLimit
	}

	items, err := s.items.FindLowStock(ctx, lowStockAlertThreshold, limit)
	if err != nil {
		s.logger.Error("Failed to query low stock items", "error", err)
		return nil, apperrors.ErrStorageUnavailable("low stock query").Wrap(err)
	}
	return toItemDTOs(items), nil
}

// Dashboard assembles the sales dashboard: units sold per weekday over the
// trailing seven days, units sold per month over the trailing twelve months,
// the top sellers, and the low-stock listing. Buckets run chronologically and
// end with the current day and month.
func (s *SalesService) Dashboard(ctx context.Context) (*DashboardDTO, error) {
	now := s.now()

	weekly, err := s.weeklySales(ctx, now)
	if err != nil {
		return nil, err
	}

	monthly, err := s.monthlySales(ctx, now)
	if err != nil {
		return nil, err
	}

	top, err := s.TopSellingItems(ctx, defaultTopSellerLimit)
	if err != nil {
		return nil, err
	}

	low, err := s.LowStockItems(ctx, defaultLowStockLimit)
	if err != nil {
		return nil, err
	}

	return &DashboardDTO{
		WeeklySales:     weekly,
		MonthlySales:    monthly,
		TopSellingItems: top,
		LowStockItems:   low,
	}, nil
}

func (s *SalesService) weeklySales(ctx context.Context, now time.Time) ([]DaySalesDTO, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -6)
	end := today.AddDate(0, 0, 1)

	records, err := s.sales.FindByTimeRange(ctx, start, end)
	if err != nil {
		s.logger.Error("Failed to query weekly sales", "error", err)
		return nil, apperrors.ErrStorageUnavailable("sales query").Wrap(err)
	}

	byDay := make(map[string]int, 7)
	for _, record := range records {
		byDay[record.Timestamp.UTC().Weekday().String()] += record.Quantity
	}

	buckets := make([]DaySalesDTO, 0, 7)
	for d := 0; d < 7; d++ {
		day := start.AddDate(0, 0, d)
		name := day.Weekday().String()
		buckets = append(buckets, DaySalesDTO{Day: name, Sales: byDay[name]})
	}
	return buckets, nil
}

func (s *SalesService) monthlySales(ctx context.Context, now time.Time) ([]MonthSalesDTO, error) {
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := currentMonth.AddDate(0, -11, 0)
	end := currentMonth.AddDate(0, 1, 0)

	records, err := s.sales.FindByTimeRange(ctx, start, end)
	if err != nil {
		s.logger.Error("Failed to query monthly sales", "error", err)
		return nil, apperrors.ErrStorageUnavailable("sales query").Wrap(err)
	}

	byMonth := make(map[string]int, 12)
	for _, record := range records {
		byMonth[record.Timestamp.UTC().Month().String()] += record.Quantity
	}

	buckets := make([]MonthSalesDTO, 0, 12)
	for m := 0; m < 12; m++ {
		month := start.AddDate(0, m, 0)
		name := month.Month().String()
		buckets = append(buckets, MonthSalesDTO{Month: name, Sales: byMonth[name]})
	}
	return buckets, nil
}
