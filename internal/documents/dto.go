package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// DocumentInput is the create/update payload shared by every document type.
type DocumentInput struct {
	Type            Type        `json:"-"`
	WarehouseID     int64       `json:"warehouse_id" validate:"required,gt=0"`
	ToWarehouseID   *int64      `json:"to_warehouse_id" validate:"omitempty,gt=0"`
	ScopeLocationID *int64      `json:"scope_location_id" validate:"omitempty,gt=0"`
	Reference       string      `json:"reference" validate:"max=100"`
	Note            string      `json:"note" validate:"max=500"`
	Lines           []LineInput `json:"lines" validate:"dive"`
}

// LineInput is one requested line.
type LineInput struct {
	GoodsModelID          int64           `json:"goods_model_id" validate:"required,gt=0"`
	Quantity              decimal.Decimal `json:"quantity"`
	LotNumber             string          `json:"lot_number" validate:"max=64"`
	SerialNumber          string          `json:"serial_number" validate:"max=64"`
	ExpiryDate            string          `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	SourceLocationID      *int64          `json:"source_location_id" validate:"omitempty,gt=0"`
	DestinationLocationID *int64          `json:"destination_location_id" validate:"omitempty,gt=0"`
}

// TransitionInput requests a status change.
type TransitionInput struct {
	Status string `json:"status" validate:"required"`
}

func (in DocumentInput) lines() []Line {
	out := make([]Line, 0, len(in.Lines))
	for i, l := range in.Lines {
		out = append(out, Line{
			LineNumber:            i + 1,
			GoodsModelID:          l.GoodsModelID,
			Quantity:              l.Quantity,
			LotNumber:             strings.TrimSpace(l.LotNumber),
			SerialNumber:          strings.TrimSpace(l.SerialNumber),
			ExpiryDate:            parseDate(l.ExpiryDate),
			SourceLocationID:      l.SourceLocationID,
			DestinationLocationID: l.DestinationLocationID,
			ProcessedQuantity:     decimal.Zero,
		})
	}
	return out
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil
	}
	return &t
}

func (s *Service) validateInput(ctx context.Context, p shared.Principal, in DocumentInput) error {
	if !in.Type.IsValid() {
		return fmt.Errorf("%w: unknown document type %q", ErrValidation, in.Type)
	}
	if err := httpx.Validate(in); err != nil {
		return err
	}
	if err := s.checkWarehouse(ctx, p, "warehouse_id", in.WarehouseID); err != nil {
		return err
	}
	switch {
	case in.Type == TypeGoodsTransfer && in.ToWarehouseID == nil:
		return httpx.Invalid("to_warehouse_id", "This field is required for transfers")
	case in.Type != TypeGoodsTransfer && in.ToWarehouseID != nil:
		return httpx.Invalid("to_warehouse_id", "Only transfers have a destination warehouse")
	case in.Type != TypeCount && in.ScopeLocationID != nil:
		return httpx.Invalid("scope_location_id", "Only inventory counts have a scope location")
	case in.Type == TypeCount && in.ScopeLocationID != nil && len(in.Lines) > 0:
		return httpx.Invalid("scope_location_id", "A scoped count is snapshotted from the ledger and takes no lines")
	}
	if in.ToWarehouseID != nil {
		if err := s.checkWarehouse(ctx, p, "to_warehouse_id", *in.ToWarehouseID); err != nil {
			return err
		}
	}

	for i, l := range in.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if in.Type == TypeCount {
			if l.Quantity.IsNegative() {
				return httpx.Invalid(field+".quantity", "Must not be negative")
			}
		} else if !l.Quantity.IsPositive() {
			return httpx.Invalid(field+".quantity", "Must be greater than zero")
		}
		needSource := in.Type == TypeGoodsIssue || in.Type == TypeGoodsTransfer || in.Type == TypePutaway || in.Type == TypeCount
		needDestination := in.Type == TypeGoodsReceipt || in.Type == TypeGoodsTransfer || in.Type == TypePutaway
		if needSource && l.SourceLocationID == nil {
			return httpx.Invalid(field+".source_location_id", "This field is required")
		}
		if needDestination && l.DestinationLocationID == nil {
			return httpx.Invalid(field+".destination_location_id", "This field is required")
		}
	}
	return nil
}

func (s *Service) checkWarehouse(ctx context.Context, p shared.Principal, field string, id int64) error {
	if s.warehouses == nil {
		return nil
	}
	wh, err := s.warehouses.Get(ctx, p.OrganizationID, id)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return httpx.Invalid(field, "Warehouse not found")
		}
		return err
	}
	if !wh.IsActive {
		return httpx.Invalid(field, "Warehouse is inactive")
	}
	return nil
}
