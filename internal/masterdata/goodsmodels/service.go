package goodsmodels

import (
	"context"
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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]GoodsModel, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, organizationID, id int64) (GoodsModel, error) {
	if id <= 0 {
		return GoodsModel{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, organizationID, id)
}

func (s *Service) Create(ctx context.Context, m GoodsModel) (GoodsModel, error) {
	m, err := normalize(m)
	if err != nil {
		return GoodsModel{}, err
	}
	return s.repo.Create(ctx, m)
}

// Update rewrites every attribute except the code, which is fixed at creation.
func (s *Service) Update(ctx context.Context, m GoodsModel) (GoodsModel, error) {
	if m.ID <= 0 {
		return GoodsModel{}, shared.ErrInvalidID
	}
	existing, err := s.repo.Get(ctx, m.OrganizationID, m.ID)
	if err != nil {
		return GoodsModel{}, err
	}
	m, err = normalize(m)
	if err != nil {
		return GoodsModel{}, err
	}
	if m.Code != existing.Code {
		return GoodsModel{}, httpx.Invalid("code", shared.ErrImmutableCode.Error())
	}
	return s.repo.Update(ctx, m)
}

func (s *Service) Delete(ctx context.Context, organizationID, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, organizationID, id)
}

func normalize(m GoodsModel) (GoodsModel, error) {
	m.Code = internalShared.NormalizeCode(m.Code)
	m.Name = strings.TrimSpace(m.Name)
	m.BaseUOM = strings.ToUpper(strings.TrimSpace(m.BaseUOM))
	if m.BaseUOM == "" {
		m.BaseUOM = "PCS"
	}
	if m.TrackingType == "" {
		m.TrackingType = TrackingNone
	}
	switch {
	case m.OrganizationID <= 0:
		return m, httpx.Invalid("organization_id", "This field is required")
	case m.Code == "":
		return m, httpx.Invalid("code", "goods model code is required")
	case m.Name == "":
		return m, httpx.Invalid("name", "goods model name is required")
	case !m.TrackingType.IsValid():
		return m, httpx.Invalid("tracking_type", "Must be one of: NONE LOT SERIAL")
	}
	return m, nil
}
