package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Key identifies one ledger entry. Lot and serial are empty when the goods
// model does not track them.
type Key struct {
	WarehouseID  int64  `json:"warehouse_id"`
	LocationID   int64  `json:"location_id"`
	GoodsModelID int64  `json:"goods_model_id"`
	LotNumber    string `json:"lot_number"`
	SerialNumber string `json:"serial_number"`
}

// Validate ensures the identifying columns are present.
func (k Key) Validate() error {
	if k.WarehouseID <= 0 || k.LocationID <= 0 || k.GoodsModelID <= 0 {
		return fmt.Errorf("%w: warehouse, location and goods model required", ErrInvalidKey)
	}
	return nil
}

// Less orders keys deterministically so row locks are always taken in the
// same sequence.
func (k Key) Less(o Key) bool {
	switch {
	case k.WarehouseID != o.WarehouseID:
		return k.WarehouseID < o.WarehouseID
	case k.LocationID != o.LocationID:
		return k.LocationID < o.LocationID
	case k.GoodsModelID != o.GoodsModelID:
		return k.GoodsModelID < o.GoodsModelID
	case k.LotNumber != o.LotNumber:
		return k.LotNumber < o.LotNumber
	default:
		return k.SerialNumber < o.SerialNumber
	}
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d/%s/%s", k.WarehouseID, k.LocationID, k.GoodsModelID, k.LotNumber, k.SerialNumber)
}

// Balance is the quantity state of one ledger entry.
type Balance struct {
	ID int64 `json:"id,omitempty"`
	Key
	Onhand       decimal.Decimal `json:"quantity_onhand"`
	Reserved     decimal.Decimal `json:"quantity_reserved"`
	ReceivedDate *time.Time      `json:"received_date,omitempty"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Available is the quantity that can still be reserved or issued.
func (b Balance) Available() decimal.Decimal {
	return b.Onhand.Sub(b.Reserved)
}

// IsZero reports whether the entry holds no stock at all.
func (b Balance) IsZero() bool {
	return b.Onhand.IsZero() && b.Reserved.IsZero()
}

// MovementType enumerates the movement log record kinds.
type MovementType string

const (
	MovementReceipt         MovementType = "RECEIPT"
	MovementIssue           MovementType = "ISSUE"
	MovementTransferOut     MovementType = "TRANSFER_OUT"
	MovementTransferIn      MovementType = "TRANSFER_IN"
	MovementPutaway         MovementType = "PUTAWAY"
	MovementCountAdjustment MovementType = "COUNT_ADJUSTMENT"
)

// IsValid reports whether the movement type is known.
func (t MovementType) IsValid() bool {
	switch t {
	case MovementReceipt, MovementIssue, MovementTransferOut, MovementTransferIn, MovementPutaway, MovementCountAdjustment:
		return true
	}
	return false
}

// Movement is an append-only record of one signed change to one key.
type Movement struct {
	ID             int64           `json:"id"`
	Type           MovementType    `json:"movement_type"`
	Key
	QuantityChange decimal.Decimal `json:"quantity_change"`
	ReservedChange decimal.Decimal `json:"reserved_change"`
	DocumentType   string          `json:"document_type"`
	DocumentID     int64           `json:"document_id"`
	DocumentCode   string          `json:"document_code"`
	LineID         int64           `json:"line_id"`
	LineNumber     int             `json:"line_number"`
	OperationID    uuid.UUID       `json:"operation_id"`
	Note           string          `json:"note,omitempty"`
	ActorID        string          `json:"actor_id"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BalanceFilter narrows onhand listings.
type BalanceFilter struct {
	OrganizationID int64
	WarehouseID    int64
	LocationID     int64
	GoodsModelID   int64
	LotNumber      string
	SerialNumber   string
	NonZero        bool
	Limit          int
	Offset         int
}

// ScanFilter selects ledger entries or movements for batch processing.
type ScanFilter struct {
	OrganizationID int64
	WarehouseID    int64
	LocationID     int64
	AfterID        int64
	Limit          int
}

// MovementFilter narrows movement history queries.
type MovementFilter struct {
	OrganizationID int64
	WarehouseID    int64
	LocationID     int64
	GoodsModelID   int64
	LotNumber      string
	SerialNumber   string
	DocumentType   string
	DocumentID     int64
	Type           MovementType
	From           time.Time
	To             time.Time
	Limit          int
}

// SummaryRow aggregates stock per warehouse and goods model.
type SummaryRow struct {
	WarehouseID   int64           `json:"warehouse_id"`
	GoodsModelID  int64           `json:"goods_model_id"`
	Onhand        decimal.Decimal `json:"quantity_onhand"`
	Reserved      decimal.Decimal `json:"quantity_reserved"`
	Available     decimal.Decimal `json:"quantity_available"`
	LastUpdatedAt time.Time       `json:"last_updated_at"`
}

// SummaryFilter narrows the summary view.
type SummaryFilter struct {
	OrganizationID int64
	WarehouseID    int64
	GoodsModelID   int64
}

// Drift reports a ledger entry whose stored quantities disagree with the
// replayed movement log.
type Drift struct {
	Key              Key             `json:"key"`
	StoredOnhand     decimal.Decimal `json:"stored_onhand"`
	StoredReserved   decimal.Decimal `json:"stored_reserved"`
	ReplayedOnhand   decimal.Decimal `json:"replayed_onhand"`
	ReplayedReserved decimal.Decimal `json:"replayed_reserved"`
}

// VerifyReport summarises a replay verification run.
type VerifyReport struct {
	OrganizationID int64     `json:"organization_id,omitempty"`
	WarehouseID    int64     `json:"warehouse_id,omitempty"`
	Movements      int       `json:"movements"`
	Entries        int       `json:"entries"`
	Drifts         []Drift   `json:"drifts"`
	VerifiedAt     time.Time `json:"verified_at"`
}

// Consistent reports whether the replay matched every stored entry.
func (r VerifyReport) Consistent() bool {
	return len(r.Drifts) == 0
}

var (
	// ErrInsufficientStock indicates a delta would drive onhand, reserved or available below zero.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrTrackingMismatch indicates lot/serial data does not match the goods model tracking type.
	ErrTrackingMismatch = errors.New("inventory: tracking mismatch")
	// ErrLocationRestriction indicates the location does not accept the goods model.
	ErrLocationRestriction = errors.New("inventory: location restriction")
	// ErrInvalidKey indicates an incomplete ledger key.
	ErrInvalidKey = errors.New("inventory: invalid ledger key")
	// ErrBalanceNotFound indicates missing balance row.
	ErrBalanceNotFound = errors.New("inventory: balance not found")
)
