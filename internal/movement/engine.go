package movement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/goodsmodels"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/locations"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// Action is what a document line does to the ledger.
type Action string

const (
	ActionReceive Action = "RECEIVE"
	ActionReserve Action = "RESERVE"
	ActionRelease Action = "RELEASE"
	ActionPick    Action = "PICK"
	// ActionRestock puts picked stock back at its source location.
	ActionRestock Action = "RESTOCK"
	ActionShip    Action = "SHIP"
	ActionArrive  Action = "ARRIVE"
	ActionMove    Action = "MOVE"
	ActionAdjust  Action = "ADJUST"
)

// Instruction describes one line to apply.
//
// Quantity is the line quantity for every action except Pick, where it is the
// picked quantity and Reserved the reservation being consumed, and Adjust,
// where it is the counted quantity.
type Instruction struct {
	Action       Action
	DocumentType string
	DocumentID   int64
	DocumentCode string
	LineID       int64
	LineNumber   int

	WarehouseID int64
	// ToWarehouseID is the arrival warehouse for Arrive; zero means WarehouseID.
	ToWarehouseID         int64
	SourceLocationID      int64
	DestinationLocationID int64

	GoodsModelID int64
	LotNumber    string
	SerialNumber string
	Quantity     decimal.Decimal
	Reserved     decimal.Decimal
	ExpiryDate   *time.Time
	Note         string
}

// Context is the transition the line runs under.
type Context struct {
	Principal   shared.Principal
	At          time.Time
	OperationID uuid.UUID
}

// Observer receives engine outcomes, typically for metrics.
type Observer interface {
	MovementRecorded(movementType inventory.MovementType)
	LineRejected(kind Kind)
}

// Engine applies document lines to the ledger.
type Engine struct {
	catalog  Catalog
	observer Observer
}

// NewEngine builds Engine. observer may be nil.
func NewEngine(catalog Catalog, observer Observer) *Engine {
	return &Engine{catalog: catalog, observer: observer}
}

type change struct {
	key      inventory.Key
	onhand   decimal.Decimal
	reserved decimal.Decimal
	mtype    inventory.MovementType
	// delta from the locked onhand, used by Adjust
	target *decimal.Decimal
	expiry *time.Time
	// carries the source expiry onto the destination entry
	inheritFrom *inventory.Key
	received    bool
	// quantity drawn from the available balance, checked against oversell
	draw decimal.Decimal
}

// ApplyLine validates the instruction, locks the affected ledger keys in key
// order and writes the new balances and their movement records through tx.
// Nothing is written when any check fails.
func (e *Engine) ApplyLine(ctx context.Context, tx inventory.TxRepository, ins Instruction, mc Context) ([]inventory.Movement, error) {
	changes, model, err := e.plan(ctx, ins, mc)
	if err != nil {
		return nil, e.reject(err)
	}

	keys := make([]inventory.Key, 0, len(changes))
	for _, c := range changes {
		keys = append(keys, c.key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	locked := make(map[inventory.Key]inventory.Balance, len(keys))
	for _, k := range keys {
		if _, ok := locked[k]; ok {
			continue
		}
		b, err := tx.GetBalanceForUpdate(ctx, k)
		if err != nil {
			return nil, err
		}
		locked[k] = b
	}

	var violations []Violation
	next := make([]inventory.Balance, len(changes))
	for i := range changes {
		c := &changes[i]
		current := locked[c.key]
		if c.target != nil {
			c.onhand = c.target.Sub(current.Onhand)
		}
		if c.draw.IsPositive() && len(ValidateNoOversell(current.Available(), c.draw)) > 0 {
			violations = append(violations, oversellViolation(current, c))
			continue
		}
		updated, err := inventory.ApplyDelta(current, c.onhand, c.reserved)
		if err != nil {
			var shortfall *inventory.ShortfallError
			if !errors.As(err, &shortfall) {
				return nil, err
			}
			violations = append(violations, shortfallViolation(shortfall, current, c))
			continue
		}
		if model.TrackingType == goodsmodels.TrackingSerial && c.onhand.IsPositive() {
			v, err := serialViolations(ctx, tx, updated, locked)
			if err != nil {
				return nil, err
			}
			if len(v) > 0 {
				violations = append(violations, v...)
				continue
			}
		}
		if c.expiry != nil {
			updated.ExpiryDate = c.expiry
		}
		if c.inheritFrom != nil && updated.ExpiryDate == nil {
			updated.ExpiryDate = locked[*c.inheritFrom].ExpiryDate
		}
		if c.received && updated.ReceivedDate == nil {
			at := mc.At
			updated.ReceivedDate = &at
		}
		locked[c.key] = updated
		next[i] = updated
	}
	if err := lineError(ins.LineNumber, violations); err != nil {
		return nil, e.reject(err)
	}

	movements := make([]inventory.Movement, 0, len(changes))
	for i, c := range changes {
		if c.onhand.IsZero() && c.reserved.IsZero() && c.target != nil {
			continue
		}
		if err := tx.UpsertBalance(ctx, next[i]); err != nil {
			return nil, fmt.Errorf("movement: update balance %s: %w", c.key, err)
		}
		m, err := tx.InsertMovement(ctx, inventory.Movement{
			Type:           c.mtype,
			Key:            c.key,
			QuantityChange: c.onhand,
			ReservedChange: c.reserved,
			DocumentType:   ins.DocumentType,
			DocumentID:     ins.DocumentID,
			DocumentCode:   ins.DocumentCode,
			LineID:         ins.LineID,
			LineNumber:     ins.LineNumber,
			OperationID:    mc.OperationID,
			Note:           ins.Note,
			ActorID:        mc.Principal.UserID,
		})
		if err != nil {
			return nil, fmt.Errorf("movement: record %s: %w", c.mtype, err)
		}
		if e.observer != nil {
			e.observer.MovementRecorded(m.Type)
		}
		movements = append(movements, m)
	}
	return movements, nil
}

func (e *Engine) reject(err error) error {
	var le *LineError
	if e.observer != nil && errors.As(err, &le) {
		e.observer.LineRejected(le.Kind())
	}
	return err
}

func oversellViolation(current inventory.Balance, c *change) Violation {
	if c.reserved.IsPositive() {
		return violation(KindInsufficientStock, "cannot reserve %s at location %d: available %s", c.draw, c.key.LocationID, current.Available())
	}
	return violation(KindInsufficientStock, "cannot take %s from location %d: available %s", c.draw, c.key.LocationID, current.Available())
}

// serialViolations rejects a serial that would be on hand more than once in
// the warehouse. Entries already locked by the line are read from locked so a
// move sees its own source decrement.
func serialViolations(ctx context.Context, tx inventory.TxRepository, updated inventory.Balance, locked map[inventory.Key]inventory.Balance) ([]Violation, error) {
	if updated.Onhand.GreaterThan(decimal.NewFromInt(1)) {
		return []Violation{violation(KindTrackingMismatch, "serial %s is already on hand at location %d", updated.SerialNumber, updated.LocationID)}, nil
	}
	holdings, err := tx.ListSerialHoldings(ctx, updated.WarehouseID, updated.GoodsModelID, updated.SerialNumber)
	if err != nil {
		return nil, fmt.Errorf("movement: serial holdings: %w", err)
	}
	for _, h := range holdings {
		if h.Key == updated.Key {
			continue
		}
		if b, ok := locked[h.Key]; ok {
			h = b
		}
		if h.Onhand.IsPositive() {
			return []Violation{violation(KindTrackingMismatch, "serial %s is already on hand at location %d", updated.SerialNumber, h.LocationID)}, nil
		}
	}
	return nil, nil
}

func shortfallViolation(s *inventory.ShortfallError, current inventory.Balance, c *change) Violation {
	switch {
	case c.reserved.IsPositive():
		return violation(KindInsufficientStock, "cannot reserve %s at location %d: available %s", c.reserved, c.key.LocationID, current.Available())
	case c.target != nil:
		return violation(KindInsufficientStock, "count at location %d would leave %s below reserved %s", c.key.LocationID, c.target, current.Reserved)
	default:
		return violation(KindInsufficientStock, "insufficient %s at location %d: have %s, change %s", s.Quantity, c.key.LocationID, quantityOf(s.Quantity, current), s.Requested)
	}
}

func quantityOf(which string, b inventory.Balance) decimal.Decimal {
	switch which {
	case "reserved":
		return b.Reserved
	case "available":
		return b.Available()
	default:
		return b.Onhand
	}
}

// plan resolves master data and returns the signed deltas of the line. All
// static violations are collected before returning.
func (e *Engine) plan(ctx context.Context, ins Instruction, mc Context) ([]change, goodsmodels.GoodsModel, error) {
	org := mc.Principal.OrganizationID
	var violations []Violation

	model, err := e.catalog.GoodsModel(ctx, org, ins.GoodsModelID)
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			return nil, model, err
		}
		return nil, model, lineError(ins.LineNumber, []Violation{violation(KindValidation, "goods model %d not found", ins.GoodsModelID)})
	}

	resolve := func(id, warehouseID int64, role string) (locations.Location, bool, error) {
		if id <= 0 {
			violations = append(violations, violation(KindValidation, "%s location is required", role))
			return locations.Location{}, false, nil
		}
		loc, err := e.catalog.Location(ctx, org, id)
		if err != nil {
			if !errors.Is(err, httpx.ErrNotFound) {
				return locations.Location{}, false, err
			}
			violations = append(violations, violation(KindValidation, "%s location %d not found", role, id))
			return locations.Location{}, false, nil
		}
		if loc.WarehouseID != warehouseID {
			violations = append(violations, violation(KindValidation, "%s location %s is not in warehouse %d", role, loc.Code, warehouseID))
			return loc, false, nil
		}
		return loc, true, nil
	}

	key := func(warehouseID, locationID int64) inventory.Key {
		return inventory.Key{
			WarehouseID:  warehouseID,
			LocationID:   locationID,
			GoodsModelID: model.ID,
			LotNumber:    ins.LotNumber,
			SerialNumber: ins.SerialNumber,
		}
	}

	q := ins.Quantity
	tracked := q
	var changes []change

	switch ins.Action {
	case ActionReceive:
		violations = append(violations, ValidateQuantity(q)...)
		dest, ok, err := resolve(ins.DestinationLocationID, ins.WarehouseID, "destination")
		if err != nil {
			return nil, model, err
		}
		if ok {
			violations = append(violations, ValidateLocationRestriction(dest, model)...)
			if !dest.IsReceivable {
				violations = append(violations, violation(KindLocationRestriction, "location %s is not receivable", dest.Code))
			}
		}
		changes = append(changes, change{key: key(ins.WarehouseID, ins.DestinationLocationID), onhand: q, mtype: inventory.MovementReceipt, expiry: ins.ExpiryDate, received: true})

	case ActionReserve, ActionRelease:
		violations = append(violations, ValidateQuantity(q)...)
		if _, _, err := resolve(ins.SourceLocationID, ins.WarehouseID, "source"); err != nil {
			return nil, model, err
		}
		c := change{key: key(ins.WarehouseID, ins.SourceLocationID), onhand: decimal.Zero, reserved: q, mtype: inventory.MovementIssue, draw: q}
		if ins.Action == ActionRelease {
			c.reserved, c.draw = q.Neg(), decimal.Zero
		}
		changes = append(changes, c)

	case ActionPick:
		tracked = ins.Reserved
		violations = append(violations, ValidateQuantity(ins.Reserved)...)
		if q.IsNegative() {
			violations = append(violations, violation(KindValidation, "picked quantity cannot be negative, got %s", q))
		}
		if q.GreaterThan(ins.Reserved) {
			violations = append(violations, violation(KindValidation, "picked %s exceeds reserved %s", q, ins.Reserved))
		}
		if _, _, err := resolve(ins.SourceLocationID, ins.WarehouseID, "source"); err != nil {
			return nil, model, err
		}
		changes = append(changes, change{key: key(ins.WarehouseID, ins.SourceLocationID), onhand: q.Neg(), reserved: ins.Reserved.Neg(), mtype: inventory.MovementIssue})

	case ActionRestock:
		violations = append(violations, ValidateQuantity(q)...)
		if _, _, err := resolve(ins.SourceLocationID, ins.WarehouseID, "source"); err != nil {
			return nil, model, err
		}
		changes = append(changes, change{key: key(ins.WarehouseID, ins.SourceLocationID), onhand: q, reserved: decimal.Zero, mtype: inventory.MovementIssue})

	case ActionShip:
		violations = append(violations, ValidateQuantity(q)...)
		if _, _, err := resolve(ins.SourceLocationID, ins.WarehouseID, "source"); err != nil {
			return nil, model, err
		}
		changes = append(changes, change{key: key(ins.WarehouseID, ins.SourceLocationID), onhand: q.Neg(), reserved: decimal.Zero, mtype: inventory.MovementTransferOut, draw: q})

	case ActionArrive:
		violations = append(violations, ValidateQuantity(q)...)
		to := ins.ToWarehouseID
		if to == 0 {
			to = ins.WarehouseID
		}
		dest, ok, err := resolve(ins.DestinationLocationID, to, "destination")
		if err != nil {
			return nil, model, err
		}
		if ok {
			violations = append(violations, ValidateLocationRestriction(dest, model)...)
		}
		changes = append(changes, change{key: key(to, ins.DestinationLocationID), onhand: q, reserved: decimal.Zero, mtype: inventory.MovementTransferIn, expiry: ins.ExpiryDate, received: true})

	case ActionMove:
		violations = append(violations, ValidateQuantity(q)...)
		source, ok, err := resolve(ins.SourceLocationID, ins.WarehouseID, "source")
		if err != nil {
			return nil, model, err
		}
		if ok && !source.IsReceivable {
			violations = append(violations, violation(KindLocationRestriction, "putaway source %s is not a receiving location", source.Code))
		}
		dest, ok, err := resolve(ins.DestinationLocationID, ins.WarehouseID, "destination")
		if err != nil {
			return nil, model, err
		}
		if ok {
			violations = append(violations, ValidateLocationRestriction(dest, model)...)
		}
		if ins.SourceLocationID == ins.DestinationLocationID {
			violations = append(violations, violation(KindValidation, "source and destination location are the same"))
		}
		src := key(ins.WarehouseID, ins.SourceLocationID)
		changes = append(changes,
			change{key: src, onhand: q.Neg(), reserved: decimal.Zero, mtype: inventory.MovementPutaway, draw: q},
			change{key: key(ins.WarehouseID, ins.DestinationLocationID), onhand: q, reserved: decimal.Zero, mtype: inventory.MovementPutaway, inheritFrom: &src},
		)

	case ActionAdjust:
		if q.IsNegative() {
			violations = append(violations, violation(KindValidation, "counted quantity cannot be negative, got %s", q))
		}
		// A serial entry holds at most one unit.
		if q.LessThanOrEqual(decimal.NewFromInt(1)) {
			tracked = decimal.NewFromInt(1)
		}
		if _, _, err := resolve(ins.SourceLocationID, ins.WarehouseID, "count"); err != nil {
			return nil, model, err
		}
		target := q
		changes = append(changes, change{key: key(ins.WarehouseID, ins.SourceLocationID), reserved: decimal.Zero, mtype: inventory.MovementCountAdjustment, target: &target})

	default:
		return nil, model, lineError(ins.LineNumber, []Violation{violation(KindValidation, "unknown action %q", ins.Action)})
	}

	violations = append(violations, ValidateTracking(model, ins.LotNumber, ins.SerialNumber, tracked)...)
	if err := lineError(ins.LineNumber, violations); err != nil {
		return nil, model, err
	}
	return changes, model, nil
}
