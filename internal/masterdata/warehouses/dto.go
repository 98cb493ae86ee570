package warehouses

// WarehouseRequest is the create/update payload.
type WarehouseRequest struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=120"`
	Address  string `json:"address" validate:"max=500"`
	IsActive *bool  `json:"is_active"`
}

func (r WarehouseRequest) toWarehouse() Warehouse {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return Warehouse{Code: r.Code, Name: r.Name, Address: r.Address, IsActive: active}
}
