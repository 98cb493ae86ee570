package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/movement"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// Transition moves a document along its state machine, applying the ledger
// effects of the edge.
func (s *Service) Transition(ctx context.Context, p shared.Principal, t Type, id int64, status, idempotencyKey string) (Result, error) {
	result, err := s.execute(ctx, p, t, id, "TRANSITION", idempotencyKey, func(ctx context.Context, tx TxRepository, doc *Document, mc movement.Context) ([]inventory.Movement, error) {
		to, err := ParseStatus(doc.Type, status)
		if err != nil {
			return nil, err
		}
		return s.transition(ctx, tx, doc, to, mc)
	})
	if err != nil {
		return Result{}, err
	}
	return s.afterTransition(ctx, p, result)
}

func (s *Service) transition(ctx context.Context, tx TxRepository, doc *Document, to Status, mc movement.Context) ([]inventory.Movement, error) {
	if !CanTransition(doc.Type, doc.Status, to) {
		return nil, invalidTransition(doc, to)
	}
	if doc.Status == StatusDraft && to != StatusCancelled && len(doc.Lines) == 0 && doc.Type != TypeCount {
		return nil, fmt.Errorf("%w: %s has no lines", ErrValidation, doc.Code)
	}

	var (
		movements []inventory.Movement
		err       error
	)
	switch doc.Type {
	case TypeGoodsReceipt:
		err = checkReceiptTarget(doc, to)
	case TypeGoodsIssue:
		movements, err = s.issueEffects(ctx, tx, doc, to, mc)
	case TypeGoodsTransfer:
		movements, err = s.transferEffects(ctx, tx, doc, to, mc)
	case TypePutaway:
		if to == StatusCompleted {
			movements, err = s.executeRemainingPutaway(ctx, tx, doc, mc)
		}
	case TypeCount:
		movements, err = s.countEffects(ctx, tx, doc, to, mc)
	}
	if err != nil {
		return nil, err
	}
	if err := tx.UpdateStatus(ctx, doc.ID, to, mc.At); err != nil {
		return nil, err
	}
	doc.Status = to
	return movements, nil
}

// afterTransition schedules the ledger snapshot of a whole-scope count once
// the CREATED status is committed.
func (s *Service) afterTransition(ctx context.Context, p shared.Principal, result Result) (Result, error) {
	doc := result.Document
	if doc.Type != TypeCount || doc.Status != StatusCreated || len(doc.Lines) > 0 {
		return result, nil
	}
	if s.snapshots != nil {
		err := s.snapshots.EnqueueCountSnapshot(ctx, doc.OrganizationID, doc.ID)
		if err == nil {
			return result, nil
		}
		s.logger.Warn("enqueue count snapshot, running inline", slog.Int64("document_id", doc.ID), slog.Any("error", err))
	}
	if _, err := s.SnapshotCount(ctx, doc.OrganizationID, doc.ID); err != nil {
		return Result{}, err
	}
	reloaded, err := s.repo.Get(ctx, p.OrganizationID, doc.ID)
	if err != nil {
		return Result{}, err
	}
	result.Document = reloaded
	return result, nil
}

func checkReceiptTarget(doc *Document, to Status) error {
	complete := true
	for _, l := range doc.Lines {
		if l.Remaining().IsPositive() {
			complete = false
			break
		}
	}
	switch {
	case to == StatusApproved && !complete:
		return fmt.Errorf("%w: %s is not fully received", ErrValidation, doc.Code)
	case to == StatusPartialReceived && complete:
		return fmt.Errorf("%w: %s is fully received, approve it instead", ErrValidation, doc.Code)
	}
	return nil
}

func (s *Service) issueEffects(ctx context.Context, tx TxRepository, doc *Document, to Status, mc movement.Context) ([]inventory.Movement, error) {
	var out []inventory.Movement
	switch {
	case to == StatusPicking:
		for i := range doc.Lines {
			moves, err := s.apply(ctx, tx, instruction(doc, &doc.Lines[i], movement.ActionReserve), mc)
			if err != nil {
				return nil, err
			}
			out = append(out, moves...)
		}
	case to == StatusPicked:
		for i := range doc.Lines {
			line := &doc.Lines[i]
			if line.Executed() {
				continue
			}
			moves, err := s.pick(ctx, tx, doc, line, line.Quantity, mc)
			if err != nil {
				return nil, err
			}
			out = append(out, moves...)
		}
	case to == StatusCancelled && (doc.Status == StatusPicking || doc.Status == StatusPicked):
		for i := range doc.Lines {
			line := &doc.Lines[i]
			ins := instruction(doc, line, movement.ActionRelease)
			if line.Executed() {
				if !line.ProcessedQuantity.IsPositive() {
					continue
				}
				ins.Action = movement.ActionRestock
				ins.Quantity = line.ProcessedQuantity
				ins.Note = "issue cancelled, picked stock returned"
			}
			moves, err := s.apply(ctx, tx, ins, mc)
			if err != nil {
				return nil, err
			}
			out = append(out, moves...)
		}
	}
	return out, nil
}

func (s *Service) pick(ctx context.Context, tx TxRepository, doc *Document, line *Line, picked decimal.Decimal, mc movement.Context) ([]inventory.Movement, error) {
	ins := instruction(doc, line, movement.ActionPick)
	ins.Quantity = picked
	ins.Reserved = line.Quantity
	if picked.LessThan(line.Quantity) {
		ins.Note = fmt.Sprintf("short pick, released %s", line.Quantity.Sub(picked))
	}
	moves, err := s.apply(ctx, tx, ins, mc)
	if err != nil {
		return nil, err
	}
	markExecuted(line, picked, mc.At)
	return moves, tx.UpdateLine(ctx, *line)
}

func (s *Service) transferEffects(ctx context.Context, tx TxRepository, doc *Document, to Status, mc movement.Context) ([]inventory.Movement, error) {
	var out []inventory.Movement
	switch {
	case to == StatusInTransit:
		for i := range doc.Lines {
			moves, err := s.apply(ctx, tx, instruction(doc, &doc.Lines[i], movement.ActionShip), mc)
			if err != nil {
				return nil, err
			}
			out = append(out, moves...)
		}
	case to == StatusCompleted:
		for i := range doc.Lines {
			line := &doc.Lines[i]
			received := line.Quantity
			if line.Executed() {
				received = line.ProcessedQuantity
			}
			if received.IsPositive() {
				ins := instruction(doc, line, movement.ActionArrive)
				ins.ToWarehouseID = *doc.ToWarehouseID
				ins.Quantity = received
				if received.LessThan(line.Quantity) {
					ins.Note = fmt.Sprintf("received %s of %s shipped", received, line.Quantity)
				}
				moves, err := s.apply(ctx, tx, ins, mc)
				if err != nil {
					return nil, err
				}
				out = append(out, moves...)
			}
			if !line.Executed() {
				markExecuted(line, received, mc.At)
				if err := tx.UpdateLine(ctx, *line); err != nil {
					return nil, err
				}
			}
		}
	case to == StatusCancelled && (doc.Status == StatusInTransit || doc.Status == StatusReceiving):
		for i := range doc.Lines {
			line := &doc.Lines[i]
			ins := instruction(doc, line, movement.ActionArrive)
			ins.ToWarehouseID = doc.WarehouseID
			ins.DestinationLocationID = line.source()
			ins.Note = "transfer cancelled, returned to source"
			moves, err := s.apply(ctx, tx, ins, mc)
			if err != nil {
				return nil, err
			}
			out = append(out, moves...)
		}
	}
	return out, nil
}

func (s *Service) executeRemainingPutaway(ctx context.Context, tx TxRepository, doc *Document, mc movement.Context) ([]inventory.Movement, error) {
	var out []inventory.Movement
	for i := range doc.Lines {
		line := &doc.Lines[i]
		if line.Executed() {
			continue
		}
		moves, err := s.move(ctx, tx, doc, line, mc)
		if err != nil {
			return nil, err
		}
		out = append(out, moves...)
	}
	return out, nil
}

func (s *Service) move(ctx context.Context, tx TxRepository, doc *Document, line *Line, mc movement.Context) ([]inventory.Movement, error) {
	moves, err := s.apply(ctx, tx, instruction(doc, line, movement.ActionMove), mc)
	if err != nil {
		return nil, err
	}
	markExecuted(line, line.Quantity, mc.At)
	return moves, tx.UpdateLine(ctx, *line)
}

func (s *Service) countEffects(ctx context.Context, tx TxRepository, doc *Document, to Status, mc movement.Context) ([]inventory.Movement, error) {
	switch to {
	case StatusCounting:
		if len(doc.Lines) == 0 {
			return nil, fmt.Errorf("%w: %s has no lines yet, its ledger snapshot is still pending", ErrValidation, doc.Code)
		}
	case StatusCreated:
		for i := range doc.Lines {
			line := &doc.Lines[i]
			b, err := tx.Ledger().GetBalance(ctx, countKey(doc, line))
			if err != nil && !errors.Is(err, inventory.ErrBalanceNotFound) {
				return nil, err
			}
			system := b.Onhand
			line.SystemQuantity = &system
			if err := tx.UpdateLine(ctx, *line); err != nil {
				return nil, err
			}
		}
	case StatusCompleted:
		var uncounted []string
		for _, l := range doc.Lines {
			if l.CountedQuantity == nil {
				uncounted = append(uncounted, fmt.Sprint(l.LineNumber))
			}
		}
		if len(uncounted) > 0 {
			return nil, fmt.Errorf("%w: %s lines not counted: %s", ErrValidation, doc.Code, strings.Join(uncounted, ", "))
		}
		var out []inventory.Movement
		for i := range doc.Lines {
			line := &doc.Lines[i]
			system := decimal.Zero
			if line.SystemQuantity != nil {
				system = *line.SystemQuantity
			}
			if line.CountedQuantity.Equal(system) {
				continue
			}
			ins := instruction(doc, line, movement.ActionAdjust)
			ins.Quantity = *line.CountedQuantity
			ins.Note = fmt.Sprintf("counted %s, system %s", line.CountedQuantity, system)
			moves, err := s.apply(ctx, tx, ins, mc)
			if err != nil {
				return nil, err
			}
			out = append(out, moves...)
		}
		return out, nil
	}
	return nil, nil
}

func countKey(doc *Document, line *Line) inventory.Key {
	return inventory.Key{
		WarehouseID:  doc.WarehouseID,
		LocationID:   line.source(),
		GoodsModelID: line.GoodsModelID,
		LotNumber:    line.LotNumber,
		SerialNumber: line.SerialNumber,
	}
}

// invalidLine rejects a line level input so the caller can point at the row.
func invalidLine(line *Line, format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrValidation, movement.NewLineError(line.LineNumber, movement.KindValidation, format, args...))
}

func markExecuted(line *Line, processed decimal.Decimal, at time.Time) {
	line.ProcessedQuantity = processed
	executed := at
	line.ExecutedAt = &executed
}

// GRConfirmLineInput confirms a received quantity on a goods receipt line.
type GRConfirmLineInput struct {
	DocumentID   int64           `json:"document_id" validate:"required,gt=0"`
	LineNumber   int             `json:"line_number" validate:"required,gt=0"`
	Quantity     decimal.Decimal `json:"quantity"`
	LotNumber    string          `json:"lot_number" validate:"max=64"`
	SerialNumber string          `json:"serial_number" validate:"max=64"`
	ExpiryDate   string          `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
}

// GRConfirmLine receives quantity into the line's destination location.
func (s *Service) GRConfirmLine(ctx context.Context, p shared.Principal, in GRConfirmLineInput, idempotencyKey string) (Result, error) {
	return s.execute(ctx, p, TypeGoodsReceipt, in.DocumentID, "GR_CONFIRM_LINE", idempotencyKey, func(ctx context.Context, tx TxRepository, doc *Document, mc movement.Context) ([]inventory.Movement, error) {
		if err := requireStatus(doc, StatusReceiving, "gr_confirm_line"); err != nil {
			return nil, err
		}
		line, err := doc.Line(in.LineNumber)
		if err != nil {
			return nil, err
		}
		if !in.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: quantity must be greater than zero", ErrValidation)
		}
		if in.Quantity.GreaterThan(line.Remaining()) {
			return nil, invalidLine(line, "expects %s more, got %s", line.Remaining(), in.Quantity)
		}
		lot, err := mergeIdentifier("lot number", line.LotNumber, in.LotNumber)
		if err != nil {
			return nil, err
		}
		serial, err := mergeIdentifier("serial number", line.SerialNumber, in.SerialNumber)
		if err != nil {
			return nil, err
		}
		line.LotNumber, line.SerialNumber = lot, serial
		if expiry := parseDate(in.ExpiryDate); expiry != nil {
			line.ExpiryDate = expiry
		}
		ins := instruction(doc, line, movement.ActionReceive)
		ins.Quantity = in.Quantity
		moves, err := s.apply(ctx, tx, ins, mc)
		if err != nil {
			return nil, err
		}
		markExecuted(line, line.ProcessedQuantity.Add(in.Quantity), mc.At)
		return moves, tx.UpdateLine(ctx, *line)
	})
}

// GRConfirmReceipt closes the receiving step: APPROVED when every line is
// fully received, PARTIAL_RECEIVED otherwise.
func (s *Service) GRConfirmReceipt(ctx context.Context, p shared.Principal, documentID int64, idempotencyKey string) (Result, error) {
	return s.execute(ctx, p, TypeGoodsReceipt, documentID, "GR_CONFIRM_RECEIPT", idempotencyKey, func(ctx context.Context, tx TxRepository, doc *Document, mc movement.Context) ([]inventory.Movement, error) {
		if err := requireStatus(doc, StatusReceiving, "gr_confirm_receipt"); err != nil {
			return nil, err
		}
		to := StatusApproved
		for _, l := range doc.Lines {
			if l.Remaining().IsPositive() {
				to = StatusPartialReceived
				break
			}
		}
		return s.transition(ctx, tx, doc, to, mc)
	})
}

// GIPickLineInput records a picked quantity.
type GIPickLineInput struct {
	DocumentID     int64           `json:"document_id" validate:"required,gt=0"`
	LineNumber     int             `json:"line_number" validate:"required,gt=0"`
	PickedQuantity decimal.Decimal `json:"picked_quantity"`
}

// GIPickLine converts the line reservation into an issue. A short pick
// releases the rest of the reservation. The document becomes PICKED once
// every line is picked.
func (s *Service) GIPickLine(ctx context.Context, p shared.Principal, in GIPickLineInput, idempotencyKey string) (Result, error) {
	return s.execute(ctx, p, TypeGoodsIssue, in.DocumentID, "GI_PICK_LINE", idempotencyKey, func(ctx context.Context, tx TxRepository, doc *Document, mc movement.Context) ([]inventory.Movement, error) {
		if err := requireStatus(doc, StatusPicking, "gi_pick_line"); err != nil {
			return nil, err
		}
		line, err := doc.Line(in.LineNumber)
		if err != nil {
			return nil, err
		}
		if line.Executed() {
			return nil, fmt.Errorf("%w: line %d already picked", ErrInvalidTransition, line.LineNumber)
		}
		if in.PickedQuantity.IsNegative() || in.PickedQuantity.GreaterThan(line.Quantity) {
			return nil, invalidLine(line, "picked quantity must be between 0 and %s", line.Quantity)
		}
		moves, err := s.pick(ctx, tx, doc, line, in.PickedQuantity, mc)
		if err != nil {
			return nil, err
		}
		if allExecuted(doc) {
			if err := tx.UpdateStatus(ctx, doc.ID, StatusPicked, mc.At); err != nil {
				return nil, err
			}
		}
		return moves, nil
	})
}

// GTConfirm ships a transfer.
func (s *Service) GTConfirm(ctx context.Context, p shared.Principal, documentID int64, idempotencyKey string) (Result, error) {
	return s.Transition(ctx, p, TypeGoodsTransfer, documentID, string(StatusInTransit), idempotencyKey)
}

// GTReceiveLineInput records what actually arrived for a transfer line.
type GTReceiveLineInput struct {
	DocumentID       int64           `json:"document_id" validate:"required,gt=0"`
	LineNumber       int             `json:"line_number" validate:"required,gt=0"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
}

// GTReceiveLine stores the received quantity; the ledger is written on
// completion. Less than shipped is allowed for loss or damage.
func (s *Service) GTReceiveLine(ctx context.Context, p shared.Principal, in GTReceiveLineInput, idempotencyKey string) (Result, error) {
	return s.execute(ctx, p, TypeGoodsTransfer, in.DocumentID, "GT_RECEIVE_LINE", idempotencyKey, func(ctx context.Context, tx TxRepository, doc *Document, mc movement.Context) ([]inventory.Movement, error) {
		if err := requireStatus(doc, StatusReceiving, "gt_receive_line"); err != nil {
			return nil, err
		}
		line, err := doc.Line(in.LineNumber)
		if err != nil {
			return nil, err
		}
		if in.ReceivedQuantity.IsNegative() || in.ReceivedQuantity.GreaterThan(line.Quantity) {
			return nil, invalidLine(line, "received quantity must be between 0 and %s", line.Quantity)
		}
		markExecuted(line, in.ReceivedQuantity, mc.At)
		return nil, tx.UpdateLine(ctx, *line)
	})
}

// PutawayExecuteLineInput names the line to move.
type PutawayExecuteLineInput struct {
	DocumentID int64 `json:"document_id" validate:"required,gt=0"`
	LineNumber int   `json:"line_number" validate:"required,gt=0"`
}

// PutawayExecuteLine moves one line from its source to its destination. The
// document completes after its last line.
func (s *Service) PutawayExecuteLine(ctx context.Context, p shared.Principal, in PutawayExecuteLineInput, idempotencyKey string) (Result, error) {
	return s.execute(ctx, p, TypePutaway, in.DocumentID, "PUTAWAY_EXECUTE_LINE", idempotencyKey, func(ctx context.Context, tx TxRepository, doc *Document, mc movement.Context) ([]inventory.Movement, error) {
		if err := requireStatus(doc, StatusMoving, "putaway_execute_line"); err != nil {
			return nil, err
		}
		line, err := doc.Line(in.LineNumber)
		if err != nil {
			return nil, err
		}
		if line.Executed() {
			return nil, fmt.Errorf("%w: line %d already executed", ErrInvalidTransition, line.LineNumber)
		}
		moves, err := s.move(ctx, tx, doc, line, mc)
		if err != nil {
			return nil, err
		}
		if allExecuted(doc) {
			if err := tx.UpdateStatus(ctx, doc.ID, StatusCompleted, mc.At); err != nil {
				return nil, err
			}
		}
		return moves, nil
	})
}

// ICRecordCountInput records a counted quantity.
type ICRecordCountInput struct {
	DocumentID      int64           `json:"document_id" validate:"required,gt=0"`
	LineNumber      int             `json:"line_number" validate:"required,gt=0"`
	CountedQuantity decimal.Decimal `json:"counted_quantity"`
}

// ICRecordCount stores the counted quantity of one line.
func (s *Service) ICRecordCount(ctx context.Context, p shared.Principal, in ICRecordCountInput, idempotencyKey string) (Result, error) {
	return s.execute(ctx, p, TypeCount, in.DocumentID, "IC_RECORD_COUNT", idempotencyKey, func(ctx context.Context, tx TxRepository, doc *Document, mc movement.Context) ([]inventory.Movement, error) {
		if err := requireStatus(doc, StatusCounting, "ic_record_count"); err != nil {
			return nil, err
		}
		line, err := doc.Line(in.LineNumber)
		if err != nil {
			return nil, err
		}
		if in.CountedQuantity.IsNegative() {
			return nil, fmt.Errorf("%w: counted quantity must not be negative", ErrValidation)
		}
		counted := in.CountedQuantity
		line.CountedQuantity = &counted
		executed := mc.At
		line.ExecutedAt = &executed
		return nil, tx.UpdateLine(ctx, *line)
	})
}

// SnapshotCount fills a line-less count with one line per ledger entry in
// its warehouse (or scope location). Each chunk commits on its own; entries
// already present as lines are skipped, so a rerun resumes safely.
func (s *Service) SnapshotCount(ctx context.Context, organizationID, documentID int64) (int, error) {
	added := 0
	var after int64
	for {
		var (
			n    int
			last int64
			done bool
		)
		err := db.Retry(ctx, s.retries, func(ctx context.Context) error {
			return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
				doc, err := tx.GetForUpdate(ctx, organizationID, documentID)
				if err != nil {
					return err
				}
				if doc.Type != TypeCount {
					return fmt.Errorf("%w: %s is not an inventory count", ErrValidation, doc.Code)
				}
				if doc.Status != StatusCreated && doc.Status != StatusCounting {
					return fmt.Errorf("%w: cannot snapshot %s in status %s", ErrInvalidTransition, doc.Code, doc.Status)
				}
				filter := inventory.ScanFilter{WarehouseID: doc.WarehouseID, AfterID: after, Limit: s.chunk}
				if doc.ScopeLocationID != nil {
					filter.LocationID = *doc.ScopeLocationID
				}
				balances, err := tx.Ledger().ListBalancesAfter(ctx, filter)
				if err != nil {
					return err
				}
				existing := make(map[inventory.Key]bool, len(doc.Lines))
				next := 1
				for i := range doc.Lines {
					existing[countKey(&doc, &doc.Lines[i])] = true
					if doc.Lines[i].LineNumber >= next {
						next = doc.Lines[i].LineNumber + 1
					}
				}
				var lines []Line
				for _, b := range balances {
					if b.IsZero() || existing[b.Key] {
						continue
					}
					location := b.LocationID
					system := b.Onhand
					lines = append(lines, Line{
						LineNumber:        next,
						GoodsModelID:      b.GoodsModelID,
						Quantity:          b.Onhand,
						LotNumber:         b.LotNumber,
						SerialNumber:      b.SerialNumber,
						ExpiryDate:        b.ExpiryDate,
						SourceLocationID:  &location,
						ProcessedQuantity: decimal.Zero,
						SystemQuantity:    &system,
					})
					next++
				}
				if err := tx.AppendLines(ctx, doc.ID, lines); err != nil {
					return err
				}
				n = len(lines)
				done = len(balances) < s.chunk
				if len(balances) > 0 {
					last = balances[len(balances)-1].ID
				}
				return nil
			})
		})
		if err != nil {
			return added, err
		}
		added += n
		after = last
		if done {
			break
		}
	}
	s.logger.Info("count snapshot complete",
		slog.Int64("document_id", documentID),
		slog.Int("lines", added))
	return added, nil
}

// mergeIdentifier fills a blank line identifier from the confirmation and
// rejects a confirmation that contradicts the line.
func mergeIdentifier(name, onLine, confirmed string) (string, error) {
	confirmed = strings.TrimSpace(confirmed)
	switch {
	case confirmed == "":
		return onLine, nil
	case onLine == "" || onLine == confirmed:
		return confirmed, nil
	default:
		return "", fmt.Errorf("%w: %s %q does not match line value %q", ErrValidation, name, confirmed, onLine)
	}
}

func allExecuted(doc *Document) bool {
	for _, l := range doc.Lines {
		if !l.Executed() {
			return false
		}
	}
	return true
}
