package model

import "github.com/shopspring/decimal"

// MovementData is one day of shelf-movement chart data.
type MovementData struct {
	Date  string `json:"date"`
	Moves int    `json:"moves"`
}

// DashboardStats is the warehouse overview.
type DashboardStats struct {
	TotalProducts  int64                   `json:"total_products"`
	ByStatus       map[ProductStatus]int64 `json:"by_status"`
	FullLocations  int                     `json:"full_locations"`
	Locations      []LocationOccupancy     `json:"locations"`
	TotalValuation decimal.Decimal         `json:"total_valuation"`
}
