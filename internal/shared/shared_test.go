package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeCode(t *testing.T) {
	require.Equal(t, "RACK-A-01", NormalizeCode("  rack a 01 "))
	require.Equal(t, "M-100", NormalizeCode("m-100"))
	require.Equal(t, "", NormalizeCode("   "))
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	require.False(t, ok)

	ctx := ContextWithPrincipal(context.Background(), Principal{})
	_, ok = PrincipalFromContext(ctx)
	require.False(t, ok, "empty principal must not count as authenticated")

	ctx = ContextWithPrincipal(context.Background(), Principal{UserID: "u-1", OrganizationID: 7, Roles: []string{"Admin"}})
	p, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, int64(7), p.OrganizationID)
	require.True(t, p.HasRole("admin"))
	require.False(t, p.HasRole("viewer"))
}

func TestPaginationOffset(t *testing.T) {
	p := NewPagination(3, 25, 120)
	require.Equal(t, 50, p.Offset())
	require.Equal(t, 5, p.TotalPages)
	require.Equal(t, 0, NewPagination(0, 0, 0).Offset())
}

func TestDefaultGrantsCoverOperator(t *testing.T) {
	grants := DefaultRoleGrants()
	require.ElementsMatch(t, InventoryScopes(), grants[RoleAdmin])
	require.Contains(t, grants[RoleOperator], PermDocumentsExecute)
	require.NotContains(t, grants[RoleViewer], PermDocumentsEdit)
}

func TestAuditLogValidate(t *testing.T) {
	require.Error(t, AuditLog{Action: "x"}.Validate())
	require.NoError(t, AuditLog{Action: "documents:transition", Entity: "document", EntityID: "1"}.Validate())
}
