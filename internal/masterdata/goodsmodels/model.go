package goodsmodels

import (
	"fmt"
	"strings"
	"time"
)

// TrackingType tells which identifiers a goods model carries in the ledger.
type TrackingType string

const (
	TrackingNone   TrackingType = "NONE"
	TrackingLot    TrackingType = "LOT"
	TrackingSerial TrackingType = "SERIAL"
)

// IsValid reports whether the tracking type is known.
func (t TrackingType) IsValid() bool {
	switch t {
	case TrackingNone, TrackingLot, TrackingSerial:
		return true
	}
	return false
}

// ParseTrackingType parses a tracking type, defaulting to NONE when empty.
func ParseTrackingType(raw string) (TrackingType, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return TrackingNone, nil
	}
	t := TrackingType(raw)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown tracking type %q", raw)
	}
	return t, nil
}

// GoodsModel is a stockable item definition.
type GoodsModel struct {
	ID             int64        `json:"id"`
	OrganizationID int64        `json:"organization_id"`
	Code           string       `json:"code"`
	Name           string       `json:"name"`
	GoodsTypeID    *int64       `json:"goods_type_id,omitempty"`
	BaseUOM        string       `json:"base_uom"`
	TrackingType   TrackingType `json:"tracking_type"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// GoodsModelRequest is the create/update payload.
type GoodsModelRequest struct {
	Code         string `json:"code" validate:"required,max=64"`
	Name         string `json:"name" validate:"required,max=200"`
	GoodsTypeID  *int64 `json:"goods_type_id" validate:"omitempty,gt=0"`
	BaseUOM      string `json:"base_uom" validate:"max=16"`
	TrackingType string `json:"tracking_type" validate:"omitempty,oneof=NONE LOT SERIAL none lot serial"`
}
