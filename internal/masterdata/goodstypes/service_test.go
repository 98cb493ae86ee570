package goodstypes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/shared"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
)

type memoryRepo struct {
	created []GoodsType
}

func (m *memoryRepo) List(context.Context, shared.ListFilters) ([]GoodsType, int, error) {
	return m.created, len(m.created), nil
}
func (m *memoryRepo) Get(context.Context, int64) (GoodsType, error) { return GoodsType{}, shared.ErrNotFound }
func (m *memoryRepo) Create(_ context.Context, gt GoodsType) (GoodsType, error) {
	gt.ID = int64(len(m.created) + 1)
	m.created = append(m.created, gt)
	return gt, nil
}
func (m *memoryRepo) Update(_ context.Context, gt GoodsType) (GoodsType, error) { return gt, nil }
func (m *memoryRepo) Delete(context.Context, int64) error                       { return nil }

func TestCreateNormalisesCode(t *testing.T) {
	svc := NewService(&memoryRepo{})
	gt, err := svc.Create(context.Background(), GoodsType{Code: " spare parts", Name: " Spare parts "})
	require.NoError(t, err)
	require.Equal(t, "SPARE-PARTS", gt.Code)
	require.Equal(t, "Spare parts", gt.Name)

	_, err = svc.Create(context.Background(), GoodsType{Code: "  ", Name: "x"})
	require.ErrorIs(t, err, httpx.ErrUnprocessable)

	_, err = svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, httpx.ErrValidation)
	_, err = svc.Get(context.Background(), 4)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
