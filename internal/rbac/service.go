package rbac

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// ErrUnknownPermission indicates a grant names a permission the service does not define.
var ErrUnknownPermission = errors.New("rbac: unknown permission")

// Service resolves the permissions of a principal from its roles.
type Service struct {
	store    GrantStore
	defaults map[string][]string
}

// NewService constructs a Service. A nil store only serves the built-in grants.
func NewService(store GrantStore) *Service {
	return &Service{store: store, defaults: shared.DefaultRoleGrants()}
}

// EffectivePermissions returns deduplicated permission names for a principal.
func (s *Service) EffectivePermissions(ctx context.Context, p shared.Principal) ([]string, error) {
	roles := normalizeRoles(p.Roles)
	set := make(map[string]struct{})
	for _, role := range roles {
		for _, perm := range s.defaults[role] {
			set[perm] = struct{}{}
		}
	}
	if s.store != nil && len(roles) > 0 {
		stored, err := s.store.PermissionsForRoles(ctx, roles)
		if err != nil {
			return nil, fmt.Errorf("rbac: load grants: %w", err)
		}
		for _, perm := range stored {
			set[strings.ToLower(strings.TrimSpace(perm))] = struct{}{}
		}
	}
	perms := make([]string, 0, len(set))
	for perm := range set {
		perms = append(perms, perm)
	}
	sort.Strings(perms)
	return perms, nil
}

// ListRoles returns the built-in and stored grants grouped by role.
func (s *Service) ListRoles(ctx context.Context) ([]RolePermissions, error) {
	merged := make(map[string]map[string]struct{})
	add := func(role, perm string) {
		if merged[role] == nil {
			merged[role] = make(map[string]struct{})
		}
		merged[role][perm] = struct{}{}
	}
	for role, perms := range s.defaults {
		for _, perm := range perms {
			add(role, perm)
		}
	}
	if s.store != nil {
		grants, err := s.store.ListGrants(ctx)
		if err != nil {
			return nil, err
		}
		for _, g := range grants {
			add(g.Role, g.Permission)
		}
	}
	out := make([]RolePermissions, 0, len(merged))
	for role, set := range merged {
		perms := make([]string, 0, len(set))
		for perm := range set {
			perms = append(perms, perm)
		}
		sort.Strings(perms)
		out = append(out, RolePermissions{Role: role, Permissions: perms})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

// SetRolePermissions replaces the stored grants of a role.
func (s *Service) SetRolePermissions(ctx context.Context, role string, permissions []string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return errors.New("rbac: role required")
	}
	if s.store == nil {
		return errors.New("rbac: grant store not configured")
	}
	known := shared.InventoryScopes()
	perms := normalizePermissions(permissions)
	for _, perm := range perms {
		if !slices.Contains(known, perm) {
			return fmt.Errorf("%w: %s", ErrUnknownPermission, perm)
		}
	}
	sort.Strings(perms)
	return s.store.ReplaceRole(ctx, role, perms)
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}
