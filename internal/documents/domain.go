package documents

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
)

// Type identifies a warehouse document kind.
type Type string

const (
	TypeGoodsReceipt  Type = "GR"
	TypeGoodsIssue    Type = "GI"
	TypeGoodsTransfer Type = "GT"
	TypePutaway       Type = "PUTAWAY"
	TypeCount         Type = "IC"
)

// Types lists every document type.
func Types() []Type {
	return []Type{TypeGoodsReceipt, TypeGoodsIssue, TypeGoodsTransfer, TypePutaway, TypeCount}
}

func (t Type) IsValid() bool {
	return slices.Contains(Types(), t)
}

// Prefix is the leading segment of generated document codes.
func (t Type) Prefix() string {
	if t == TypePutaway {
		return "PA"
	}
	return string(t)
}

// Status is a document lifecycle state. The set of valid values depends on
// the document type.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusCreated         Status = "CREATED"
	StatusReceiving       Status = "RECEIVING"
	StatusPartialReceived Status = "PARTIAL_RECEIVED"
	StatusApproved        Status = "APPROVED"
	StatusPicking         Status = "PICKING"
	StatusPicked          Status = "PICKED"
	StatusInTransit       Status = "IN_TRANSIT"
	StatusMoving          Status = "MOVING"
	StatusCounting        Status = "COUNTING"
	StatusCompleted       Status = "COMPLETED"
	StatusCancelled       Status = "CANCELLED"
)

// legacyInProgress is the old putaway literal for MOVING.
const legacyInProgress = "IN_PROGRESS"

var transitions = map[Type]map[Status][]Status{
	TypeGoodsReceipt: {
		StatusDraft:           {StatusCreated, StatusCancelled},
		StatusCreated:         {StatusReceiving, StatusCancelled},
		StatusReceiving:       {StatusPartialReceived, StatusApproved},
		StatusPartialReceived: {StatusReceiving, StatusCompleted},
		StatusApproved:        {StatusCompleted},
	},
	TypeGoodsIssue: {
		StatusDraft:   {StatusCreated, StatusCancelled},
		StatusCreated: {StatusPicking, StatusCancelled},
		StatusPicking: {StatusPicked, StatusCancelled},
		StatusPicked:  {StatusCompleted, StatusCancelled},
	},
	TypeGoodsTransfer: {
		StatusDraft:     {StatusCreated, StatusCancelled},
		StatusCreated:   {StatusInTransit, StatusCancelled},
		StatusInTransit: {StatusReceiving, StatusCancelled},
		StatusReceiving: {StatusCompleted, StatusCancelled},
	},
	TypePutaway: {
		StatusDraft:  {StatusMoving, StatusCancelled},
		StatusMoving: {StatusCompleted, StatusCancelled},
	},
	TypeCount: {
		StatusDraft:    {StatusCreated, StatusCancelled},
		StatusCreated:  {StatusCounting, StatusCancelled},
		StatusCounting: {StatusCompleted, StatusCancelled},
	},
}

// Statuses returns every status a document of type t can hold.
func (t Type) Statuses() []Status {
	seen := map[Status]bool{}
	var out []Status
	for from, targets := range transitions[t] {
		for _, s := range append([]Status{from}, targets...) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	slices.Sort(out)
	return out
}

// ParseStatus parses a status literal for the document type. Unknown values
// fail; the putaway literal IN_PROGRESS is read as MOVING.
func ParseStatus(t Type, raw string) (Status, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if t == TypePutaway && value == legacyInProgress {
		return StatusMoving, nil
	}
	s := Status(value)
	if !slices.Contains(t.Statuses(), s) {
		return "", fmt.Errorf("%w: unknown %s status %q", ErrValidation, t, raw)
	}
	return s, nil
}

// CanTransition reports whether from -> to is an edge of the type's machine.
func CanTransition(t Type, from, to Status) bool {
	return slices.Contains(transitions[t][from], to)
}

// IsTerminal reports whether no transition leaves the status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Document is a warehouse document with its lines.
type Document struct {
	ID              int64      `json:"id"`
	Type            Type       `json:"document_type"`
	Code            string     `json:"code"`
	OrganizationID  int64      `json:"organization_id"`
	WarehouseID     int64      `json:"warehouse_id"`
	ToWarehouseID   *int64     `json:"to_warehouse_id,omitempty"`
	ScopeLocationID *int64     `json:"scope_location_id,omitempty"`
	Status          Status     `json:"status"`
	Reference       string     `json:"reference"`
	Note            string     `json:"note"`
	CreatedBy       string     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	Lines           []Line     `json:"lines"`
}

// Line returns the line with the given 1-based number.
func (d *Document) Line(number int) (*Line, error) {
	for i := range d.Lines {
		if d.Lines[i].LineNumber == number {
			return &d.Lines[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no line %d", ErrNotFound, d.Code, number)
}

// Line is one document line.
type Line struct {
	ID                    int64            `json:"id"`
	DocumentID            int64            `json:"document_id"`
	LineNumber            int              `json:"line_number"`
	GoodsModelID          int64            `json:"goods_model_id"`
	Quantity              decimal.Decimal  `json:"quantity"`
	LotNumber             string           `json:"lot_number"`
	SerialNumber          string           `json:"serial_number"`
	ExpiryDate            *time.Time       `json:"expiry_date,omitempty"`
	SourceLocationID      *int64           `json:"source_location_id,omitempty"`
	DestinationLocationID *int64           `json:"destination_location_id,omitempty"`
	ProcessedQuantity     decimal.Decimal  `json:"processed_quantity"`
	SystemQuantity        *decimal.Decimal `json:"system_quantity,omitempty"`
	CountedQuantity       *decimal.Decimal `json:"counted_quantity,omitempty"`
	ExecutedAt            *time.Time       `json:"executed_at,omitempty"`
}

// Remaining is the quantity still to process.
func (l Line) Remaining() decimal.Decimal {
	return l.Quantity.Sub(l.ProcessedQuantity)
}

// Executed reports whether the line was processed by an RPC.
func (l Line) Executed() bool {
	return l.ExecutedAt != nil
}

func (l Line) source() int64 {
	if l.SourceLocationID == nil {
		return 0
	}
	return *l.SourceLocationID
}

func (l Line) destination() int64 {
	if l.DestinationLocationID == nil {
		return 0
	}
	return *l.DestinationLocationID
}

// Result is the authoritative state after a mutation together with the
// movement records it wrote.
type Result struct {
	Document  Document             `json:"document"`
	Movements []inventory.Movement `json:"movements"`
}

// ListFilter narrows document listings.
type ListFilter struct {
	OrganizationID int64
	Type           Type
	WarehouseID    int64
	Status         Status
	Search         string
	Page           int
	Limit          int
}

func (f ListFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

var (
	// ErrInvalidTransition indicates an edge outside the document state machine.
	ErrInvalidTransition = errors.New("documents: invalid status transition")
	// ErrValidation indicates invalid document input.
	ErrValidation = errors.New("documents: invalid input")
	// ErrNotFound indicates the document or line does not exist.
	ErrNotFound = errors.New("documents: not found")
)

// FormatCode renders PREFIX-YYYYMMDD-NNNNN.
func FormatCode(t Type, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%05d", t.Prefix(), at.UTC().Format("20060102"), seq%100000)
}
