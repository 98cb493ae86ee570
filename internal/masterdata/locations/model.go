package locations

import (
	"slices"
	"time"
)

// Restriction controls which goods models a location accepts.
type Restriction string

const (
	RestrictionNone       Restriction = "NONE"
	RestrictionAllowed    Restriction = "ALLOWED_LIST"
	RestrictionDisallowed Restriction = "DISALLOWED_LIST"
)

func (r Restriction) IsValid() bool {
	switch r {
	case RestrictionNone, RestrictionAllowed, RestrictionDisallowed:
		return true
	}
	return false
}

// Location is a storage position inside a warehouse.
type Location struct {
	ID                 int64       `json:"id"`
	OrganizationID     int64       `json:"organization_id"`
	WarehouseID        int64       `json:"warehouse_id"`
	Code               string      `json:"code"`
	Name               string      `json:"name"`
	IsReceivable       bool        `json:"is_receivable"`
	IsActive           bool        `json:"is_active"`
	Restriction        Restriction `json:"restriction"`
	RestrictedModelIDs []int64     `json:"restricted_model_ids"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// Accepts reports whether stock of the goods model may be placed here.
// It does not look at IsActive.
func (l Location) Accepts(goodsModelID int64) bool {
	switch l.Restriction {
	case RestrictionAllowed:
		return slices.Contains(l.RestrictedModelIDs, goodsModelID)
	case RestrictionDisallowed:
		return !slices.Contains(l.RestrictedModelIDs, goodsModelID)
	default:
		return true
	}
}

type LocationRequest struct {
	WarehouseID        int64   `json:"warehouse_id" validate:"required,gt=0"`
	Code               string  `json:"code" validate:"required,max=64"`
	Name               string  `json:"name" validate:"max=200"`
	IsReceivable       bool    `json:"is_receivable"`
	IsActive           *bool   `json:"is_active"`
	Restriction        string  `json:"restriction" validate:"omitempty,oneof=NONE ALLOWED_LIST DISALLOWED_LIST"`
	RestrictedModelIDs []int64 `json:"restricted_model_ids" validate:"dive,gt=0"`
}

func (req LocationRequest) toLocation() Location {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	restriction := Restriction(req.Restriction)
	if restriction == "" {
		restriction = RestrictionNone
	}
	return Location{
		WarehouseID:        req.WarehouseID,
		Code:               req.Code,
		Name:               req.Name,
		IsReceivable:       req.IsReceivable,
		IsActive:           active,
		Restriction:        restriction,
		RestrictedModelIDs: req.RestrictedModelIDs,
	}
}
