// Package schema describes the columns every list resource exposes and
// projects rows onto a caller-selected subset of them.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ColumnType tells clients how to render a column.
type ColumnType string

const (
	TypeText     ColumnType = "text"
	TypeInteger  ColumnType = "integer"
	TypeDecimal  ColumnType = "decimal"
	TypeDate     ColumnType = "date"
	TypeDateTime ColumnType = "datetime"
	TypeBoolean  ColumnType = "boolean"
	TypeEnum     ColumnType = "enum"
)

var (
	// ErrUnknownResource indicates no schema is registered for the resource.
	ErrUnknownResource = errors.New("schema: unknown resource")
	// ErrUnknownColumn indicates a requested column is not part of the schema.
	ErrUnknownColumn = errors.New("schema: unknown column")
)

// ColumnSpec is the client visible description of a column.
type ColumnSpec struct {
	Key            string     `json:"key"`
	Label          string     `json:"label"`
	Type           ColumnType `json:"type"`
	DefaultVisible bool       `json:"default_visible"`
	Sortable       bool       `json:"sortable"`
	Enum           []string   `json:"enum,omitempty"`
}

// Column binds a spec to the accessor that reads it from a row.
type Column[T any] struct {
	ColumnSpec
	Value func(T) any
}

// Details describes a resource and its columns.
type Details struct {
	Resource string       `json:"resource"`
	Title    string       `json:"title"`
	Columns  []ColumnSpec `json:"columns"`
}

// Projection is the projected form of a list.
type Projection struct {
	Columns []ColumnSpec     `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Table is the fixed column schema of one resource.
type Table[T any] struct {
	Resource string
	Title    string
	Columns  []Column[T]
}

// Details returns the client visible description.
func (t Table[T]) Details() Details {
	specs := make([]ColumnSpec, len(t.Columns))
	for i, c := range t.Columns {
		specs[i] = c.ColumnSpec
	}
	return Details{Resource: t.Resource, Title: t.Title, Columns: specs}
}

// Select resolves requested keys against the schema, preserving the order the
// caller asked for. No keys selects the default visible columns.
func (t Table[T]) Select(keys []string) ([]Column[T], error) {
	if len(keys) == 0 {
		selected := make([]Column[T], 0, len(t.Columns))
		for _, c := range t.Columns {
			if c.DefaultVisible {
				selected = append(selected, c)
			}
		}
		return selected, nil
	}
	index := make(map[string]Column[T], len(t.Columns))
	for _, c := range t.Columns {
		index[c.Key] = c
	}
	seen := make(map[string]struct{}, len(keys))
	selected := make([]Column[T], 0, len(keys))
	for _, key := range keys {
		c, ok := index[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Resource, key)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		selected = append(selected, c)
	}
	return selected, nil
}

// Project maps rows onto the selected columns.
func (t Table[T]) Project(rows []T, keys []string) (Projection, error) {
	cols, err := t.Select(keys)
	if err != nil {
		return Projection{}, err
	}
	specs := make([]ColumnSpec, len(cols))
	for i, c := range cols {
		specs[i] = c.ColumnSpec
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]any, len(cols))
		for _, c := range cols {
			m[c.Key] = c.Value(row)
		}
		out = append(out, m)
	}
	return Projection{Columns: specs, Rows: out}, nil
}

// ParseColumns splits a comma separated column list.
func ParseColumns(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}

// Describer is implemented by every Table.
type Describer interface {
	Details() Details
}

// Registry holds the schemas of all resources served by the API.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]Details
}

// NewRegistry builds a registry seeded with the given tables.
func NewRegistry(tables ...Describer) *Registry {
	r := &Registry{tables: make(map[string]Details)}
	for _, t := range tables {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a resource schema.
func (r *Registry) Register(t Describer) {
	d := t.Details()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[d.Resource] = d
}

// Details returns the schema of one resource.
func (r *Registry) Details(resource string) (Details, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tables[resource]
	if !ok {
		return Details{}, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
	return d, nil
}

// All returns every registered schema ordered by resource name.
func (r *Registry) All() []Details {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Details, 0, len(r.tables))
	for _, d := range r.tables {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Resource < out[j].Resource })
	return out
}
