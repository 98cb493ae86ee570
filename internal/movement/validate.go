package movement

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/goodsmodels"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/locations"
)

// ValidateTracking checks lot and serial data against the tracking type of
// the goods model.
func ValidateTracking(model goodsmodels.GoodsModel, lot, serial string, quantity decimal.Decimal) []Violation {
	var out []Violation
	switch model.TrackingType {
	case goodsmodels.TrackingLot:
		if lot == "" {
			out = append(out, violation(KindTrackingMismatch, "goods model %s is lot tracked: lot number required", model.Code))
		}
		if serial != "" {
			out = append(out, violation(KindTrackingMismatch, "goods model %s is lot tracked: serial number not allowed", model.Code))
		}
	case goodsmodels.TrackingSerial:
		if serial == "" {
			out = append(out, violation(KindTrackingMismatch, "goods model %s is serial tracked: serial number required", model.Code))
		}
		if lot != "" {
			out = append(out, violation(KindTrackingMismatch, "goods model %s is serial tracked: lot number not allowed", model.Code))
		}
		if !quantity.Equal(decimal.NewFromInt(1)) {
			out = append(out, violation(KindTrackingMismatch, "goods model %s is serial tracked: quantity must be exactly 1, got %s", model.Code, quantity))
		}
	default:
		if lot != "" || serial != "" {
			out = append(out, violation(KindTrackingMismatch, "goods model %s is not tracked: lot and serial must be empty", model.Code))
		}
	}
	return out
}

// ValidateLocationRestriction checks that the location may hold the goods
// model. Inactive locations accept nothing.
func ValidateLocationRestriction(location locations.Location, model goodsmodels.GoodsModel) []Violation {
	if !location.IsActive {
		return []Violation{violation(KindLocationRestriction, "location %s is inactive", location.Code)}
	}
	if location.Accepts(model.ID) {
		return nil
	}
	if location.Restriction == locations.RestrictionAllowed {
		return []Violation{violation(KindLocationRestriction, "location %s only accepts listed goods models, %s is not listed", location.Code, model.Code)}
	}
	return []Violation{violation(KindLocationRestriction, "location %s does not accept goods model %s", location.Code, model.Code)}
}

// ValidateNoOversell rejects requests above the available quantity.
func ValidateNoOversell(available, requested decimal.Decimal) []Violation {
	if requested.GreaterThan(available) {
		return []Violation{violation(KindInsufficientStock, "requested %s exceeds available %s", requested, available)}
	}
	return nil
}

// ValidateQuantity requires a strictly positive quantity.
func ValidateQuantity(quantity decimal.Decimal) []Violation {
	if !quantity.IsPositive() {
		return []Violation{violation(KindValidation, "quantity must be greater than zero, got %s", quantity)}
	}
	return nil
}
