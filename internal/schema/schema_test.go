package schema

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct {
	Code string
	Qty  int
	Note string
}

var testTable = Table[row]{
	Resource: "rows",
	Title:    "Rows",
	Columns: []Column[row]{
		{ColumnSpec: ColumnSpec{Key: "code", Label: "Code", Type: TypeText, DefaultVisible: true}, Value: func(r row) any { return r.Code }},
		{ColumnSpec: ColumnSpec{Key: "qty", Label: "Qty", Type: TypeInteger, DefaultVisible: true}, Value: func(r row) any { return r.Qty }},
		{ColumnSpec: ColumnSpec{Key: "note", Label: "Note", Type: TypeText}, Value: func(r row) any { return r.Note }},
	},
}

func TestProjectDefaultColumns(t *testing.T) {
	p, err := testTable.Project([]row{{Code: "A", Qty: 2, Note: "x"}}, nil)
	require.NoError(t, err)
	require.Len(t, p.Columns, 2)
	require.Equal(t, map[string]any{"code": "A", "qty": 2}, p.Rows[0])
}

func TestProjectSelectedColumnsKeepOrder(t *testing.T) {
	p, err := testTable.Project([]row{{Code: "A", Qty: 2, Note: "x"}}, ParseColumns(" note, code ,note"))
	require.NoError(t, err)
	require.Equal(t, "note", p.Columns[0].Key)
	require.Equal(t, "code", p.Columns[1].Key)
	require.Len(t, p.Columns, 2)
	require.Equal(t, "x", p.Rows[0]["note"])
}

func TestProjectUnknownColumn(t *testing.T) {
	_, err := testTable.Project(nil, []string{"price"})
	require.ErrorIs(t, err, ErrUnknownColumn)
}

func TestRegistryAndHandler(t *testing.T) {
	reg := NewRegistry(testTable)
	h := NewHandler(reg)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rpc/get_schema_details", strings.NewReader(`{"resource":"rows"}`))
	h.GetSchemaDetails(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var details Details
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &details))
	require.Equal(t, "rows", details.Resource)
	require.Len(t, details.Columns, 3)

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/rpc/get_schema_details", strings.NewReader(`{"resource":"missing"}`))
	h.GetSchemaDetails(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/rpc/get_schema_details", nil)
	h.GetSchemaDetails(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"resources"`)
}
