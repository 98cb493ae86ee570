package inventory

import "github.com/odyssey-erp/odyssey-wms/internal/schema"

// OnhandTable is the column schema of the onhand listing.
var OnhandTable = schema.Table[Balance]{
	Resource: "inventory.onhand",
	Title:    "Stock on hand",
	Columns: []schema.Column[Balance]{
		{ColumnSpec: schema.ColumnSpec{Key: "warehouse_id", Label: "Warehouse", Type: schema.TypeInteger, DefaultVisible: true, Sortable: true}, Value: func(b Balance) any { return b.WarehouseID }},
		{ColumnSpec: schema.ColumnSpec{Key: "location_id", Label: "Location", Type: schema.TypeInteger, DefaultVisible: true, Sortable: true}, Value: func(b Balance) any { return b.LocationID }},
		{ColumnSpec: schema.ColumnSpec{Key: "goods_model_id", Label: "Goods model", Type: schema.TypeInteger, DefaultVisible: true, Sortable: true}, Value: func(b Balance) any { return b.GoodsModelID }},
		{ColumnSpec: schema.ColumnSpec{Key: "lot_number", Label: "Lot", Type: schema.TypeText, DefaultVisible: true}, Value: func(b Balance) any { return b.LotNumber }},
		{ColumnSpec: schema.ColumnSpec{Key: "serial_number", Label: "Serial", Type: schema.TypeText}, Value: func(b Balance) any { return b.SerialNumber }},
		{ColumnSpec: schema.ColumnSpec{Key: "quantity_onhand", Label: "On hand", Type: schema.TypeDecimal, DefaultVisible: true}, Value: func(b Balance) any { return b.Onhand }},
		{ColumnSpec: schema.ColumnSpec{Key: "quantity_reserved", Label: "Reserved", Type: schema.TypeDecimal, DefaultVisible: true}, Value: func(b Balance) any { return b.Reserved }},
		{ColumnSpec: schema.ColumnSpec{Key: "quantity_available", Label: "Available", Type: schema.TypeDecimal, DefaultVisible: true}, Value: func(b Balance) any { return b.Available() }},
		{ColumnSpec: schema.ColumnSpec{Key: "received_date", Label: "Received", Type: schema.TypeDate}, Value: func(b Balance) any { return b.ReceivedDate }},
		{ColumnSpec: schema.ColumnSpec{Key: "expiry_date", Label: "Expiry", Type: schema.TypeDate}, Value: func(b Balance) any { return b.ExpiryDate }},
		{ColumnSpec: schema.ColumnSpec{Key: "updated_at", Label: "Updated", Type: schema.TypeDateTime}, Value: func(b Balance) any { return b.UpdatedAt }},
	},
}

// MovementTable is the column schema of the movement history.
var MovementTable = schema.Table[Movement]{
	Resource: "inventory.movements",
	Title:    "Stock movements",
	Columns: []schema.Column[Movement]{
		{ColumnSpec: schema.ColumnSpec{Key: "id", Label: "ID", Type: schema.TypeInteger, DefaultVisible: true}, Value: func(m Movement) any { return m.ID }},
		{ColumnSpec: schema.ColumnSpec{Key: "movement_type", Label: "Type", Type: schema.TypeEnum, DefaultVisible: true,
			Enum: []string{string(MovementReceipt), string(MovementIssue), string(MovementTransferOut), string(MovementTransferIn), string(MovementPutaway), string(MovementCountAdjustment)}},
			Value: func(m Movement) any { return m.Type }},
		{ColumnSpec: schema.ColumnSpec{Key: "warehouse_id", Label: "Warehouse", Type: schema.TypeInteger, DefaultVisible: true}, Value: func(m Movement) any { return m.WarehouseID }},
		{ColumnSpec: schema.ColumnSpec{Key: "location_id", Label: "Location", Type: schema.TypeInteger, DefaultVisible: true}, Value: func(m Movement) any { return m.LocationID }},
		{ColumnSpec: schema.ColumnSpec{Key: "goods_model_id", Label: "Goods model", Type: schema.TypeInteger, DefaultVisible: true}, Value: func(m Movement) any { return m.GoodsModelID }},
		{ColumnSpec: schema.ColumnSpec{Key: "lot_number", Label: "Lot", Type: schema.TypeText}, Value: func(m Movement) any { return m.LotNumber }},
		{ColumnSpec: schema.ColumnSpec{Key: "serial_number", Label: "Serial", Type: schema.TypeText}, Value: func(m Movement) any { return m.SerialNumber }},
		{ColumnSpec: schema.ColumnSpec{Key: "quantity_change", Label: "Qty change", Type: schema.TypeDecimal, DefaultVisible: true}, Value: func(m Movement) any { return m.QuantityChange }},
		{ColumnSpec: schema.ColumnSpec{Key: "reserved_change", Label: "Reserved change", Type: schema.TypeDecimal}, Value: func(m Movement) any { return m.ReservedChange }},
		{ColumnSpec: schema.ColumnSpec{Key: "document_code", Label: "Document", Type: schema.TypeText, DefaultVisible: true}, Value: func(m Movement) any { return m.DocumentCode }},
		{ColumnSpec: schema.ColumnSpec{Key: "line_number", Label: "Line", Type: schema.TypeInteger}, Value: func(m Movement) any { return m.LineNumber }},
		{ColumnSpec: schema.ColumnSpec{Key: "operation_id", Label: "Operation", Type: schema.TypeText}, Value: func(m Movement) any { return m.OperationID }},
		{ColumnSpec: schema.ColumnSpec{Key: "actor_id", Label: "Actor", Type: schema.TypeText}, Value: func(m Movement) any { return m.ActorID }},
		{ColumnSpec: schema.ColumnSpec{Key: "created_at", Label: "At", Type: schema.TypeDateTime, DefaultVisible: true}, Value: func(m Movement) any { return m.CreatedAt }},
	},
}

// SummaryTable is the column schema of the stock summary.
var SummaryTable = schema.Table[SummaryRow]{
	Resource: "inventory.summary",
	Title:    "Stock summary",
	Columns: []schema.Column[SummaryRow]{
		{ColumnSpec: schema.ColumnSpec{Key: "warehouse_id", Label: "Warehouse", Type: schema.TypeInteger, DefaultVisible: true}, Value: func(s SummaryRow) any { return s.WarehouseID }},
		{ColumnSpec: schema.ColumnSpec{Key: "goods_model_id", Label: "Goods model", Type: schema.TypeInteger, DefaultVisible: true}, Value: func(s SummaryRow) any { return s.GoodsModelID }},
		{ColumnSpec: schema.ColumnSpec{Key: "quantity_onhand", Label: "On hand", Type: schema.TypeDecimal, DefaultVisible: true}, Value: func(s SummaryRow) any { return s.Onhand }},
		{ColumnSpec: schema.ColumnSpec{Key: "quantity_reserved", Label: "Reserved", Type: schema.TypeDecimal, DefaultVisible: true}, Value: func(s SummaryRow) any { return s.Reserved }},
		{ColumnSpec: schema.ColumnSpec{Key: "quantity_available", Label: "Available", Type: schema.TypeDecimal, DefaultVisible: true}, Value: func(s SummaryRow) any { return s.Available }},
		{ColumnSpec: schema.ColumnSpec{Key: "last_updated_at", Label: "Last updated", Type: schema.TypeDateTime, DefaultVisible: true}, Value: func(s SummaryRow) any { return s.LastUpdatedAt }},
	},
}
