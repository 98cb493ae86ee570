package movement

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/goodsmodels"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/locations"
)

func TestValidateTracking(t *testing.T) {
	one := decimal.NewFromInt(1)
	five := decimal.NewFromInt(5)
	lot := goodsmodels.GoodsModel{Code: "LOT", TrackingType: goodsmodels.TrackingLot}
	serial := goodsmodels.GoodsModel{Code: "SER", TrackingType: goodsmodels.TrackingSerial}
	plain := goodsmodels.GoodsModel{Code: "PLAIN", TrackingType: goodsmodels.TrackingNone}

	tests := []struct {
		name   string
		model  goodsmodels.GoodsModel
		lot    string
		serial string
		qty    decimal.Decimal
		want   int
	}{
		{"lot ok", lot, "L1", "", five, 0},
		{"lot missing", lot, "", "", five, 1},
		{"lot with serial", lot, "L1", "S1", five, 1},
		{"serial ok", serial, "", "S1", one, 0},
		{"serial quantity", serial, "", "S1", five, 1},
		{"serial missing everything", serial, "L1", "", five, 3},
		{"none ok", plain, "", "", five, 0},
		{"none with lot", plain, "L1", "", five, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateTracking(tt.model, tt.lot, tt.serial, tt.qty)
			require.Len(t, got, tt.want)
			for _, v := range got {
				require.Equal(t, KindTrackingMismatch, v.Kind)
			}
		})
	}
}

func TestValidateLocationRestriction(t *testing.T) {
	model := goodsmodels.GoodsModel{ID: 7, Code: "M7"}

	require.Empty(t, ValidateLocationRestriction(locations.Location{IsActive: true, Restriction: locations.RestrictionNone}, model))
	require.Len(t, ValidateLocationRestriction(locations.Location{IsActive: false, Restriction: locations.RestrictionNone}, model), 1)
	require.Len(t, ValidateLocationRestriction(locations.Location{IsActive: true, Restriction: locations.RestrictionDisallowed, RestrictedModelIDs: []int64{7}}, model), 1)
	require.Empty(t, ValidateLocationRestriction(locations.Location{IsActive: true, Restriction: locations.RestrictionAllowed, RestrictedModelIDs: []int64{7}}, model))
	require.Len(t, ValidateLocationRestriction(locations.Location{IsActive: true, Restriction: locations.RestrictionAllowed}, model), 1)
}

func TestValidateNoOversellAndQuantity(t *testing.T) {
	require.Empty(t, ValidateNoOversell(decimal.NewFromInt(100), decimal.NewFromInt(100)))
	got := ValidateNoOversell(decimal.NewFromInt(100), decimal.NewFromInt(150))
	require.Len(t, got, 1)
	require.Equal(t, KindInsufficientStock, got[0].Kind)

	require.Empty(t, ValidateQuantity(decimal.RequireFromString("0.5")))
	require.Len(t, ValidateQuantity(decimal.Zero), 1)
	require.Len(t, ValidateQuantity(decimal.NewFromInt(-3)), 1)
}

func TestLineErrorUnwrapsEveryKind(t *testing.T) {
	err := error(&LineError{LineNumber: 2, Violations: []Violation{
		{Kind: KindTrackingMismatch, Message: "lot required"},
		{Kind: KindLocationRestriction, Message: "not accepted"},
	}})
	require.ErrorIs(t, err, inventory.ErrTrackingMismatch)
	require.ErrorIs(t, err, inventory.ErrLocationRestriction)
	require.False(t, errors.Is(err, inventory.ErrInsufficientStock))

	var le *LineError
	require.ErrorAs(t, err, &le)
	require.Equal(t, KindLocationRestriction, le.Kind())
	require.Contains(t, err.Error(), "line 2")
}
