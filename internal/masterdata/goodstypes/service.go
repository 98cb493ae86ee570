package goodstypes

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]GoodsType, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (GoodsType, error) {
	if id <= 0 {
		return GoodsType{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, gt GoodsType) (GoodsType, error) {
	gt, err := normalize(gt)
	if err != nil {
		return GoodsType{}, err
	}
	return s.repo.Create(ctx, gt)
}

func (s *Service) Update(ctx context.Context, gt GoodsType) (GoodsType, error) {
	if gt.ID <= 0 {
		return GoodsType{}, shared.ErrInvalidID
	}
	gt, err := normalize(gt)
	if err != nil {
		return GoodsType{}, err
	}
	return s.repo.Update(ctx, gt)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func normalize(gt GoodsType) (GoodsType, error) {
	gt.Code = internalShared.NormalizeCode(gt.Code)
	gt.Name = strings.TrimSpace(gt.Name)
	if gt.Code == "" {
		return gt, httpx.Invalid("code", "goods type code is required")
	}
	if gt.Name == "" {
		return gt, httpx.Invalid("name", "goods type name is required")
	}
	return gt, nil
}
