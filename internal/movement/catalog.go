package movement

import (
	"context"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/goodsmodels"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/locations"
)

// Catalog resolves the master data a line refers to.
type Catalog interface {
	GoodsModel(ctx context.Context, organizationID, id int64) (goodsmodels.GoodsModel, error)
	Location(ctx context.Context, organizationID, id int64) (locations.Location, error)
}

var _ Catalog = ServiceCatalog{}

// ServiceCatalog reads master data through the master data services.
type ServiceCatalog struct {
	Models    *goodsmodels.Service
	Locations *locations.Service
}

func (c ServiceCatalog) GoodsModel(ctx context.Context, organizationID, id int64) (goodsmodels.GoodsModel, error) {
	return c.Models.Get(ctx, organizationID, id)
}

func (c ServiceCatalog) Location(ctx context.Context, organizationID, id int64) (locations.Location, error) {
	return c.Locations.Get(ctx, organizationID, id)
}
