package rbac

// Grant ties a permission to a role.
type Grant struct {
	Role       string `json:"role"`
	Permission string `json:"permission"`
}

// RolePermissions lists the permissions of one role.
type RolePermissions struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// SetRolePermissionsRequest replaces the stored grants of a role.
type SetRolePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"dive,required"`
}
