package warehouses

import "github.com/odyssey-erp/odyssey-wms/internal/schema"

// Table is the column schema of the warehouse listing.
var Table = schema.Table[Warehouse]{
	Resource: "warehouses",
	Title:    "Warehouses",
	Columns: []schema.Column[Warehouse]{
		{ColumnSpec: schema.ColumnSpec{Key: "id", Label: "ID", Type: schema.TypeInteger}, Value: func(w Warehouse) any { return w.ID }},
		{ColumnSpec: schema.ColumnSpec{Key: "code", Label: "Code", Type: schema.TypeText, DefaultVisible: true, Sortable: true}, Value: func(w Warehouse) any { return w.Code }},
		{ColumnSpec: schema.ColumnSpec{Key: "name", Label: "Name", Type: schema.TypeText, DefaultVisible: true, Sortable: true}, Value: func(w Warehouse) any { return w.Name }},
		{ColumnSpec: schema.ColumnSpec{Key: "address", Label: "Address", Type: schema.TypeText}, Value: func(w Warehouse) any { return w.Address }},
		{ColumnSpec: schema.ColumnSpec{Key: "is_active", Label: "Active", Type: schema.TypeBoolean, DefaultVisible: true}, Value: func(w Warehouse) any { return w.IsActive }},
		{ColumnSpec: schema.ColumnSpec{Key: "created_at", Label: "Created", Type: schema.TypeDateTime, Sortable: true}, Value: func(w Warehouse) any { return w.CreatedAt }},
	},
}
