package shared

// Inventory permissions.
const (
	PermInventoryView   = "inventory.view"
	PermInventoryVerify = "inventory.verify"

	PermMasterDataView = "masterdata.view"
	PermMasterDataEdit = "masterdata.edit"

	PermDocumentsView    = "documents.view"
	PermDocumentsEdit    = "documents.edit"
	PermDocumentsExecute = "documents.execute"
	PermDocumentsCancel  = "documents.cancel"

	PermDashboardView = "dashboard.view"
	PermAuditView     = "audit.view"
)

// Built-in roles understood without a role_permissions override.
const (
	RoleAdmin    = "admin"
	RoleOperator = "warehouse_operator"
	RoleViewer   = "viewer"
)

// InventoryScopes lists every inventory permission.
func InventoryScopes() []string {
	return []string{
		PermInventoryView,
		PermInventoryVerify,
		PermMasterDataView,
		PermMasterDataEdit,
		PermDocumentsView,
		PermDocumentsEdit,
		PermDocumentsExecute,
		PermDocumentsCancel,
		PermDashboardView,
		PermAuditView,
	}
}

// DefaultRoleGrants maps built-in roles to their permissions.
func DefaultRoleGrants() map[string][]string {
	return map[string][]string{
		RoleAdmin: InventoryScopes(),
		RoleOperator: {
			PermInventoryView,
			PermMasterDataView,
			PermDocumentsView,
			PermDocumentsEdit,
			PermDocumentsExecute,
			PermDashboardView,
		},
		RoleViewer: {
			PermInventoryView,
			PermMasterDataView,
			PermDocumentsView,
			PermDashboardView,
		},
	}
}
