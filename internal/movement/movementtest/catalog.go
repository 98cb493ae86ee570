// Package movementtest provides an in-memory master data catalog.
package movementtest

import (
	"context"
	"sync"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/goodsmodels"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/locations"
	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/shared"
)

type Catalog struct {
	mu        sync.RWMutex
	models    map[int64]goodsmodels.GoodsModel
	locations map[int64]locations.Location
}

func NewCatalog() *Catalog {
	return &Catalog{
		models:    make(map[int64]goodsmodels.GoodsModel),
		locations: make(map[int64]locations.Location),
	}
}

// AddModel registers a goods model. An empty tracking type means NONE.
func (c *Catalog) AddModel(m goodsmodels.GoodsModel) goodsmodels.GoodsModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.TrackingType == "" {
		m.TrackingType = goodsmodels.TrackingNone
	}
	c.models[m.ID] = m
	return m
}

// AddLocation registers a location. An empty restriction means NONE.
func (c *Catalog) AddLocation(l locations.Location) locations.Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l.Restriction == "" {
		l.Restriction = locations.RestrictionNone
	}
	c.locations[l.ID] = l
	return l
}

func (c *Catalog) GoodsModel(_ context.Context, organizationID, id int64) (goodsmodels.GoodsModel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[id]
	if !ok || (organizationID != 0 && m.OrganizationID != organizationID) {
		return goodsmodels.GoodsModel{}, shared.ErrNotFound
	}
	return m, nil
}

func (c *Catalog) Location(_ context.Context, organizationID, id int64) (locations.Location, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.locations[id]
	if !ok || (organizationID != 0 && l.OrganizationID != organizationID) {
		return locations.Location{}, shared.ErrNotFound
	}
	return l, nil
}
