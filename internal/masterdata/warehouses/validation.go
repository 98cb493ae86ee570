package warehouses

import (
	"strings"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	internalShared "github.com/odyssey-erp/odyssey-wms/internal/shared"
)

func (s *Service) normalize(w Warehouse) (Warehouse, error) {
	w.Code = internalShared.NormalizeCode(w.Code)
	w.Name = strings.TrimSpace(w.Name)
	w.Address = strings.TrimSpace(w.Address)
	if w.OrganizationID <= 0 {
		return w, httpx.Invalid("organization_id", "This field is required")
	}
	if w.Code == "" {
		return w, httpx.Invalid("code", "warehouse code is required")
	}
	if w.Name == "" {
		return w, httpx.Invalid("name", "warehouse name is required")
	}
	return w, nil
}
