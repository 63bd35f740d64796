package application

import "time"

// ItemDTO is the read model for an item. InStock and LowStock are derived at
// mapping time, never stored.
type ItemDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Quantity    int       `json:"quantity"`
	MinStock    int       `json:"minStock"`
	Sales       int       `json:"sales"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
	InStock     bool      `json:"inStock"`
	LowStock    bool      `json:"lowStock"`
}

// SalesRecordDTO is the read model for a ledger entry
type SalesRecordDTO struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"itemId"`
	ItemName   string    `json:"itemName"`
	Category   string    `json:"category"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unitPrice"`
	TotalPrice float64   `json:"totalPrice"`
	Timestamp  time.Time `json:"timestamp"`
}

// CategoryDTO is the read model for a category
type CategoryDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// DaySalesDTO is one weekday bucket of the dashboard
type DaySalesDTO struct {
	Day   string `json:"day"`
	Sales int    `json:"sales"`
}

// MonthSalesDTO is one month bucket of the dashboard
type MonthSalesDTO struct {
	Month string `json:"month"`
	Sales int    `json:"sales"`
}

// DashboardDTO aggregates the sales dashboard. Buckets are summed from real
// ledger entries, not sampled.
type DashboardDTO struct {
	WeeklySales     []DaySalesDTO   `json:"weeklySales"`
	MonthlySales    []MonthSalesDTO `json:"monthlySales"`
	TopSellingItems []*ItemDTO      `json:"topSellingItems"`
	LowStockItems   []*ItemDTO      `json:"lowStockItems"`
}

// PriceSeedResultDTO reports the outcome of the bulk price seeding pass
type PriceSeedResultDTO struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Updated int    `json:"updated"`
}

// AuthResponseDTO is returned on successful login
type AuthResponseDTO struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expiresAt"`
}
