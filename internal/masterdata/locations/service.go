package locations

import (
	"context"
	"slices"
	"strings"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/shared"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	internalShared "github.com/odyssey-erp/odyssey-wms/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, organizationID, id int64) (Location, error) {
	if id <= 0 {
		return Location{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, organizationID, id)
}

func (s *Service) Create(ctx context.Context, l Location) (Location, error) {
	l, err := normalize(l)
	if err != nil {
		return Location{}, err
	}
	return s.repo.Create(ctx, l)
}

func (s *Service) Update(ctx context.Context, l Location) (Location, error) {
	if l.ID <= 0 {
		return Location{}, shared.ErrInvalidID
	}
	existing, err := s.repo.Get(ctx, l.OrganizationID, l.ID)
	if err != nil {
		return Location{}, err
	}
	l, err = normalize(l)
	if err != nil {
		return Location{}, err
	}
	if l.WarehouseID != existing.WarehouseID {
		return Location{}, httpx.Invalid("warehouse_id", "a location cannot move to another warehouse")
	}
	return s.repo.Update(ctx, l)
}

func (s *Service) Delete(ctx context.Context, organizationID, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, organizationID, id)
}

func normalize(l Location) (Location, error) {
	l.Code = internalShared.NormalizeCode(l.Code)
	l.Name = strings.TrimSpace(l.Name)
	if l.Restriction == "" {
		l.Restriction = RestrictionNone
	}
	switch {
	case l.WarehouseID <= 0:
		return l, httpx.Invalid("warehouse_id", "This field is required")
	case l.Code == "":
		return l, httpx.Invalid("code", "location code is required")
	case !l.Restriction.IsValid():
		return l, httpx.Invalid("restriction", "Must be one of: NONE ALLOWED_LIST DISALLOWED_LIST")
	}
	if l.Restriction == RestrictionNone {
		l.RestrictedModelIDs = nil
	} else {
		ids := slices.Clone(l.RestrictedModelIDs)
		slices.Sort(ids)
		l.RestrictedModelIDs = slices.Compact(ids)
	}
	if l.RestrictedModelIDs == nil {
		l.RestrictedModelIDs = []int64{}
	}
	return l, nil
}
