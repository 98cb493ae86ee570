// Package documentstest provides in-memory document persistence sharing
// transactions with an inventorytest ledger.
package documentstest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-wms/internal/documents"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory/inventorytest"
	mdshared "github.com/odyssey-erp/odyssey-wms/internal/masterdata/shared"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/warehouses"
)

// Store keeps documents in memory. Document and ledger writes of one WithTx
// commit or roll back together.
type Store struct {
	Ledger *inventorytest.Ledger

	mu    sync.RWMutex
	state state
}

type state struct {
	docs     map[int64]documents.Document
	nextDoc  int64
	nextLine int64
	seq      map[string]int64
}

func (s state) clone() state {
	out := state{
		docs:     make(map[int64]documents.Document, len(s.docs)),
		nextDoc:  s.nextDoc,
		nextLine: s.nextLine,
		seq:      make(map[string]int64, len(s.seq)),
	}
	for id, d := range s.docs {
		out.docs[id] = cloneDoc(d)
	}
	for k, v := range s.seq {
		out.seq[k] = v
	}
	return out
}

func cloneDoc(d documents.Document) documents.Document {
	lines := make([]documents.Line, len(d.Lines))
	copy(lines, d.Lines)
	d.Lines = lines
	return d
}

// NewStore constructs a store over ledger.
func NewStore(ledger *inventorytest.Ledger) *Store {
	return &Store{Ledger: ledger, state: state{docs: map[int64]documents.Document{}, seq: map[string]int64{}}}
}

var _ documents.RepositoryPort = (*Store)(nil)

// WithTx stages document and ledger state; fn's error discards both.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, documents.TxRepository) error) error {
	ltx := s.Ledger.Begin()
	s.mu.RLock()
	tx := &Tx{ledger: ltx, state: s.state.clone(), now: s.Ledger.Now}
	s.mu.RUnlock()
	if err := fn(ctx, tx); err != nil {
		s.Ledger.Rollback(ltx)
		return err
	}
	s.mu.Lock()
	s.state = tx.state
	s.mu.Unlock()
	s.Ledger.Commit(ltx)
	return nil
}

// Get returns a committed document.
func (s *Store) Get(_ context.Context, organizationID, id int64) (documents.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.get(organizationID, id)
}

// List returns committed headers newest first.
func (s *Store) List(_ context.Context, f documents.ListFilter) ([]documents.Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []documents.Document
	for _, d := range s.state.docs {
		if d.OrganizationID != f.OrganizationID || (f.Type != "" && d.Type != f.Type) {
			continue
		}
		if f.WarehouseID != 0 && d.WarehouseID != f.WarehouseID {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(d.Code+" "+d.Reference), strings.ToLower(f.Search)) {
			continue
		}
		d.Lines = nil
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	start := min(f.Offset(), total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return out[start:end], total, nil
}

// Document returns a committed document regardless of organisation.
func (s *Store) Document(id int64) documents.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDoc(s.state.docs[id])
}

func (st state) get(organizationID, id int64) (documents.Document, error) {
	d, ok := st.docs[id]
	if !ok || d.OrganizationID != organizationID {
		return documents.Document{}, fmt.Errorf("%w: document %d", documents.ErrNotFound, id)
	}
	return cloneDoc(d), nil
}

// Tx is one staged transaction.
type Tx struct {
	ledger *inventorytest.Tx
	state  state
	now    func() time.Time
}

var _ documents.TxRepository = (*Tx)(nil)

func (tx *Tx) Ledger() inventory.TxRepository { return tx.ledger }

func (tx *Tx) NextCode(_ context.Context, t documents.Type, at time.Time) (string, error) {
	key := string(t) + at.UTC().Format("20060102")
	tx.state.seq[key]++
	return documents.FormatCode(t, at, tx.state.seq[key]), nil
}

func (tx *Tx) Insert(_ context.Context, d documents.Document) (documents.Document, error) {
	tx.state.nextDoc++
	d.ID = tx.state.nextDoc
	now := tx.now()
	d.CreatedAt, d.UpdatedAt = now, now
	d.Lines = tx.stampLines(d.ID, d.Lines)
	tx.state.docs[d.ID] = d
	return cloneDoc(d), nil
}

func (tx *Tx) stampLines(docID int64, lines []documents.Line) []documents.Line {
	out := make([]documents.Line, len(lines))
	for i, l := range lines {
		tx.state.nextLine++
		l.ID = tx.state.nextLine
		l.DocumentID = docID
		out[i] = l
	}
	return out
}

func (tx *Tx) GetForUpdate(_ context.Context, organizationID, id int64) (documents.Document, error) {
	return tx.state.get(organizationID, id)
}

func (tx *Tx) UpdateHeader(_ context.Context, d documents.Document) error {
	cur, ok := tx.state.docs[d.ID]
	if !ok {
		return fmt.Errorf("%w: document %d", documents.ErrNotFound, d.ID)
	}
	cur.WarehouseID = d.WarehouseID
	cur.ToWarehouseID = d.ToWarehouseID
	cur.ScopeLocationID = d.ScopeLocationID
	cur.Reference = d.Reference
	cur.Note = d.Note
	cur.UpdatedAt = tx.now()
	tx.state.docs[d.ID] = cur
	return nil
}

func (tx *Tx) UpdateStatus(_ context.Context, id int64, status documents.Status, at time.Time) error {
	cur, ok := tx.state.docs[id]
	if !ok {
		return fmt.Errorf("%w: document %d", documents.ErrNotFound, id)
	}
	cur.Status = status
	cur.UpdatedAt = at
	switch status {
	case documents.StatusCompleted:
		cur.CompletedAt = &at
	case documents.StatusCancelled:
		cur.CancelledAt = &at
	}
	tx.state.docs[id] = cur
	return nil
}

func (tx *Tx) ReplaceLines(_ context.Context, documentID int64, lines []documents.Line) error {
	cur := tx.state.docs[documentID]
	cur.Lines = tx.stampLines(documentID, lines)
	tx.state.docs[documentID] = cur
	return nil
}

func (tx *Tx) AppendLines(_ context.Context, documentID int64, lines []documents.Line) error {
	cur := tx.state.docs[documentID]
	cur.Lines = append(cur.Lines, tx.stampLines(documentID, lines)...)
	sort.Slice(cur.Lines, func(i, j int) bool { return cur.Lines[i].LineNumber < cur.Lines[j].LineNumber })
	tx.state.docs[documentID] = cur
	return nil
}

func (tx *Tx) UpdateLine(_ context.Context, l documents.Line) error {
	cur, ok := tx.state.docs[l.DocumentID]
	if !ok {
		return fmt.Errorf("%w: document %d", documents.ErrNotFound, l.DocumentID)
	}
	for i := range cur.Lines {
		if cur.Lines[i].ID == l.ID {
			cur.Lines[i] = l
			tx.state.docs[l.DocumentID] = cur
			return nil
		}
	}
	return fmt.Errorf("%w: line %d", documents.ErrNotFound, l.ID)
}

func (tx *Tx) Delete(_ context.Context, id int64) error {
	delete(tx.state.docs, id)
	return nil
}

// Warehouses is an in-memory WarehousePort.
type Warehouses map[int64]warehouses.Warehouse

// Add registers a warehouse.
func (w Warehouses) Add(wh warehouses.Warehouse) { w[wh.ID] = wh }

func (w Warehouses) Get(_ context.Context, organizationID, id int64) (warehouses.Warehouse, error) {
	wh, ok := w[id]
	if !ok || wh.OrganizationID != organizationID {
		return warehouses.Warehouse{}, fmt.Errorf("%w: warehouse %d", mdshared.ErrNotFound, id)
	}
	return wh, nil
}
