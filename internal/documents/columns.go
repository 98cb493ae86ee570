package documents

import (
	"github.com/odyssey-erp/odyssey-wms/internal/schema"
)

type resource struct {
	Type  Type
	Path  string
	Title string
}

var resources = []resource{
	{TypeGoodsReceipt, "goods-receipts", "Goods receipts"},
	{TypeGoodsIssue, "goods-issues", "Goods issues"},
	{TypeGoodsTransfer, "goods-transfers", "Goods transfers"},
	{TypePutaway, "putaways", "Putaways"},
	{TypeCount, "inventory-counts", "Inventory counts"},
}

func statusEnum(t Type) []string {
	statuses := t.Statuses()
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func documentTable(res resource) schema.Table[Document] {
	columns := []schema.Column[Document]{
		{ColumnSpec: schema.ColumnSpec{Key: "id", Label: "ID", Type: schema.TypeInteger}, Value: func(d Document) any { return d.ID }},
		{ColumnSpec: schema.ColumnSpec{Key: "code", Label: "Code", Type: schema.TypeText, DefaultVisible: true, Sortable: true}, Value: func(d Document) any { return d.Code }},
		{ColumnSpec: schema.ColumnSpec{Key: "status", Label: "Status", Type: schema.TypeEnum, DefaultVisible: true, Enum: statusEnum(res.Type)}, Value: func(d Document) any { return d.Status }},
		{ColumnSpec: schema.ColumnSpec{Key: "warehouse_id", Label: "Warehouse", Type: schema.TypeInteger, DefaultVisible: true}, Value: func(d Document) any { return d.WarehouseID }},
	}
	switch res.Type {
	case TypeGoodsTransfer:
		columns = append(columns, schema.Column[Document]{ColumnSpec: schema.ColumnSpec{Key: "to_warehouse_id", Label: "To warehouse", Type: schema.TypeInteger, DefaultVisible: true},
			Value: func(d Document) any { return d.ToWarehouseID }})
	case TypeCount:
		columns = append(columns, schema.Column[Document]{ColumnSpec: schema.ColumnSpec{Key: "scope_location_id", Label: "Scope location", Type: schema.TypeInteger},
			Value: func(d Document) any { return d.ScopeLocationID }})
	}
	columns = append(columns,
		schema.Column[Document]{ColumnSpec: schema.ColumnSpec{Key: "reference", Label: "Reference", Type: schema.TypeText, DefaultVisible: true}, Value: func(d Document) any { return d.Reference }},
		schema.Column[Document]{ColumnSpec: schema.ColumnSpec{Key: "note", Label: "Note", Type: schema.TypeText}, Value: func(d Document) any { return d.Note }},
		schema.Column[Document]{ColumnSpec: schema.ColumnSpec{Key: "created_by", Label: "Created by", Type: schema.TypeText}, Value: func(d Document) any { return d.CreatedBy }},
		schema.Column[Document]{ColumnSpec: schema.ColumnSpec{Key: "created_at", Label: "Created", Type: schema.TypeDateTime, DefaultVisible: true, Sortable: true}, Value: func(d Document) any { return d.CreatedAt }},
		schema.Column[Document]{ColumnSpec: schema.ColumnSpec{Key: "completed_at", Label: "Completed", Type: schema.TypeDateTime}, Value: func(d Document) any { return d.CompletedAt }},
		schema.Column[Document]{ColumnSpec: schema.ColumnSpec{Key: "cancelled_at", Label: "Cancelled", Type: schema.TypeDateTime}, Value: func(d Document) any { return d.CancelledAt }},
	)
	return schema.Table[Document]{Resource: res.Path, Title: res.Title, Columns: columns}
}

// Tables returns the column schema of every document listing.
func Tables() []schema.Describer {
	out := make([]schema.Describer, 0, len(resources))
	for _, res := range resources {
		out = append(out, documentTable(res))
	}
	return out
}
