package warehouses

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata/shared"
	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	internalShared "github.com/odyssey-erp/odyssey-wms/internal/shared"
)

type memoryRepo struct {
	rows   map[int64]Warehouse
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[int64]Warehouse{}}
}

func (m *memoryRepo) List(_ context.Context, f shared.ListFilters) ([]Warehouse, int, error) {
	var out []Warehouse
	for id := int64(1); id <= m.nextID; id++ {
		w, ok := m.rows[id]
		if ok && w.OrganizationID == f.OrganizationID {
			out = append(out, w)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, org, id int64) (Warehouse, error) {
	w, ok := m.rows[id]
	if !ok || w.OrganizationID != org {
		return Warehouse{}, fmt.Errorf("%w: warehouse", shared.ErrNotFound)
	}
	return w, nil
}

func (m *memoryRepo) Create(_ context.Context, w Warehouse) (Warehouse, error) {
	for _, existing := range m.rows {
		if existing.OrganizationID == w.OrganizationID && existing.Code == w.Code {
			return Warehouse{}, fmt.Errorf("%w: warehouse code already exists", shared.ErrDuplicate)
		}
	}
	m.nextID++
	w.ID = m.nextID
	m.rows[w.ID] = w
	return w, nil
}

func (m *memoryRepo) Update(ctx context.Context, w Warehouse) (Warehouse, error) {
	if _, err := m.Get(ctx, w.OrganizationID, w.ID); err != nil {
		return Warehouse{}, err
	}
	m.rows[w.ID] = w
	return w, nil
}

func (m *memoryRepo) Delete(ctx context.Context, org, id int64) error {
	if _, err := m.Get(ctx, org, id); err != nil {
		return err
	}
	delete(m.rows, id)
	return nil
}

func newTestRouter() chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := rbac.NewService(nil)
	h := NewHandler(logger, NewService(newMemoryRepo()), rbac.Middleware{Service: svc, Logger: logger})
	r := chi.NewRouter()
	r.Route("/warehouses", h.MountRoutes)
	return r
}

func call(r http.Handler, method, target, body string, p internalShared.Principal) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(internalShared.ContextWithPrincipal(req.Context(), p))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestWarehouseCRUD(t *testing.T) {
	r := newTestRouter()
	admin := internalShared.Principal{UserID: "a", OrganizationID: 1, Roles: []string{internalShared.RoleAdmin}}

	rr := call(r, http.MethodPost, "/warehouses", `{"code":" main  dc ","name":"Main DC"}`, admin)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created Warehouse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, "MAIN-DC", created.Code)
	require.True(t, created.IsActive)

	rr = call(r, http.MethodPost, "/warehouses", `{"code":"main-dc","name":"Dup"}`, admin)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = call(r, http.MethodPut, fmt.Sprintf("/warehouses/%d", created.ID), `{"code":"MAIN-DC","name":"Main","is_active":false}`, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	other := internalShared.Principal{UserID: "b", OrganizationID: 2, Roles: []string{internalShared.RoleAdmin}}
	rr = call(r, http.MethodGet, fmt.Sprintf("/warehouses/%d", created.ID), "", other)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = call(r, http.MethodGet, "/warehouses?columns=code,is_active", "", admin)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"is_active":false`)

	rr = call(r, http.MethodDelete, fmt.Sprintf("/warehouses/%d", created.ID), "", admin)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestWarehouseValidationAndPermissions(t *testing.T) {
	r := newTestRouter()
	viewer := internalShared.Principal{UserID: "v", OrganizationID: 1, Roles: []string{internalShared.RoleViewer}}
	admin := internalShared.Principal{UserID: "a", OrganizationID: 1, Roles: []string{internalShared.RoleAdmin}}

	rr := call(r, http.MethodPost, "/warehouses", `{"code":"X","name":"Y"}`, viewer)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = call(r, http.MethodPost, "/warehouses", `{"code":"","name":""}`, admin)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = call(r, http.MethodPost, "/warehouses", `{"code":"X","name":"Y","unknown":1}`, admin)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
