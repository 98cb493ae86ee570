// Package dashboard aggregates warehouse statistics for the landing page.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"
)

// Filter scopes the statistics. A zero WarehouseID covers the organisation.
type Filter struct {
	OrganizationID int64 `json:"-"`
	WarehouseID    int64 `json:"warehouse_id" validate:"omitempty,gt=0"`
}

// StockTotals sums the ledger of the scope.
type StockTotals struct {
	Onhand    decimal.Decimal `json:"quantity_onhand"`
	Reserved  decimal.Decimal `json:"quantity_reserved"`
	Available decimal.Decimal `json:"quantity_available"`
	Entries   int             `json:"entries"`
}

// MasterDataCounts counts active master data.
type MasterDataCounts struct {
	Warehouses  int `json:"warehouses"`
	Locations   int `json:"locations"`
	GoodsModels int `json:"goods_models"`
}

// DocumentCount is the number of open documents of one type and status.
type DocumentCount struct {
	DocumentType string `json:"document_type"`
	Status       string `json:"status"`
	Count        int    `json:"count"`
}

// MovementCount is the number of movements of one type within the window.
type MovementCount struct {
	MovementType string `json:"movement_type"`
	Count        int    `json:"count"`
}

// Stats is the get_dashboard_stats payload.
type Stats struct {
	WarehouseID   int64            `json:"warehouse_id,omitempty"`
	Stock         StockTotals      `json:"stock"`
	MasterData    MasterDataCounts `json:"master_data"`
	OpenDocuments []DocumentCount  `json:"open_documents"`
	Movements24h  []MovementCount  `json:"movements_24h"`
	GeneratedAt   time.Time        `json:"generated_at"`
}
