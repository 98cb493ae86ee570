package warehouses

import (
	"context"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Warehouse, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, organizationID, id int64) (Warehouse, error) {
	if id <= 0 {
		return Warehouse{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, organizationID, id)
}

func (s *Service) Create(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	warehouse, err := s.normalize(warehouse)
	if err != nil {
		return Warehouse{}, err
	}
	return s.repo.Create(ctx, warehouse)
}

func (s *Service) Update(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	if warehouse.ID <= 0 {
		return Warehouse{}, shared.ErrInvalidID
	}
	warehouse, err := s.normalize(warehouse)
	if err != nil {
		return Warehouse{}, err
	}
	return s.repo.Update(ctx, warehouse)
}

func (s *Service) Delete(ctx context.Context, organizationID, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, organizationID, id)
}
